package codec

import (
	"time"

	"github.com/cockroachdb/errors"

	"github.com/windingtree/wt-client/pkg/types"
)

const secondsPerDay = 24 * 60 * 60

// DateLayout is the calendar date format accepted by ParseDate.
const DateLayout = "2006-01-02"

// DayFromTime returns the number of whole UTC days between the epoch and t.
func DayFromTime(t time.Time) int64 {
	secs := t.Unix()
	day := secs / secondsPerDay
	if secs%secondsPerDay < 0 {
		day--
	}
	return day
}

// TimeFromDay returns midnight UTC of the given ledger day.
func TimeFromDay(day int64) time.Time {
	return time.Unix(day*secondsPerDay, 0).UTC()
}

// ParseDate parses a YYYY-MM-DD date into a ledger day.
func ParseDate(s string) (int64, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return 0, errors.Mark(errors.Wrapf(err, "invalid date %q", s), types.ErrEncoding)
	}
	return DayFromTime(t), nil
}

// FormatDay renders a ledger day as YYYY-MM-DD.
func FormatDay(day int64) string {
	return TimeFromDay(day).Format(DateLayout)
}

// NewDayRange builds the range of nights from check-in up to, but excluding, check-out.
func NewDayRange(checkIn, checkOut time.Time) (types.DayRange, error) {
	from, to := DayFromTime(checkIn), DayFromTime(checkOut)
	if to <= from {
		return types.DayRange{}, errors.Wrapf(types.ErrEncoding, "check-out %s is not after check-in %s",
			FormatDay(to), FormatDay(from))
	}
	r := types.DayRange{From: from, Count: uint32(to - from)}
	return r, r.Validate()
}
