package codec

import (
	"math"

	"github.com/cockroachdb/errors"

	"github.com/windingtree/wt-client/pkg/types"
)

const (
	coordinateScale = 1e6
	latitudeOffset  = 90
	longitudeOffset = 180
)

// EncodeLocation shifts coordinates into the unsigned range and scales them to
// micro-degrees: latitude by +90, longitude by +180.
func EncodeLocation(latitude, longitude float64) (lat uint64, long uint64, err error) {
	if math.IsNaN(latitude) || latitude < -90 || latitude > 90 {
		return 0, 0, errors.Wrapf(types.ErrEncoding, "latitude %v out of range", latitude)
	}
	if math.IsNaN(longitude) || longitude < -180 || longitude > 180 {
		return 0, 0, errors.Wrapf(types.ErrEncoding, "longitude %v out of range", longitude)
	}
	lat = uint64(math.Round((latitude + latitudeOffset) * coordinateScale))
	long = uint64(math.Round((longitude + longitudeOffset) * coordinateScale))
	return lat, long, nil
}

// DecodeLocation reverses EncodeLocation.
func DecodeLocation(lat, long uint64) (latitude, longitude float64) {
	latitude = float64(lat)/coordinateScale - latitudeOffset
	longitude = float64(long)/coordinateScale - longitudeOffset
	return latitude, longitude
}
