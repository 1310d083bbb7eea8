package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Reservation is one calendar cell of a unit. A zero BookedBy means the day is free;
// zero prices mean the unit default applies.
type Reservation struct {
	Day               int64          `json:"day"`
	SpecialPrice      *big.Int       `json:"special_price,omitempty"`
	SpecialTokenPrice *big.Int       `json:"special_token_price,omitempty"`
	BookedBy          common.Address `json:"booked_by"`
}

// Booked reports whether some account occupies the day.
func (r Reservation) Booked() bool {
	return r.BookedBy != (common.Address{})
}

// PostalAddress is the physical address of a property.
type PostalAddress struct {
	LineOne string `json:"line_one,omitempty"`
	LineTwo string `json:"line_two,omitempty"`
	Zip     string `json:"zip,omitempty"`
	Country string `json:"country,omitempty"`
}

// Location is the decoded timezone and GPS position of a property.
type Location struct {
	Timezone  uint64  `json:"timezone"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// CategorySnapshot is an inventory category as read from the ledger.
type CategorySnapshot struct {
	Address     common.Address `json:"address"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	MinGuests   uint64         `json:"min_guests,omitempty"`
	MaxGuests   uint64         `json:"max_guests,omitempty"`
	Price       string         `json:"price,omitempty"`
	Amenities   []uint64       `json:"amenities,omitempty"`
	Images      []string       `json:"images,omitempty"`
}

// UnitSnapshot is a bookable unit as read from the ledger.
type UnitSnapshot struct {
	Address           common.Address        `json:"address"`
	Category          string                `json:"category"`
	Active            bool                  `json:"active"`
	DefaultPrice      *big.Int              `json:"default_price,omitempty"`
	DefaultTokenPrice *big.Int              `json:"default_token_price,omitempty"`
	CurrencyCode      string                `json:"currency_code,omitempty"`
	Calendar          map[int64]Reservation `json:"calendar,omitempty"`
}

// PropertySnapshot is the normalized object graph of one property with
// sentinel empty values filtered out.
type PropertySnapshot struct {
	Address             common.Address                   `json:"address"`
	Manager             common.Address                   `json:"manager"`
	Name                string                           `json:"name"`
	Description         string                           `json:"description,omitempty"`
	PostalAddress       PostalAddress                    `json:"postal_address"`
	Location            *Location                        `json:"location,omitempty"`
	RequireConfirmation bool                             `json:"require_confirmation"`
	Created             uint64                           `json:"created,omitempty"`
	Images              []string                         `json:"images,omitempty"`
	Categories          map[string]*CategorySnapshot     `json:"categories"`
	Units               map[common.Address]*UnitSnapshot `json:"units"`
}
