package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// LogRef locates the event a record was derived from.
type LogRef struct {
	BlockNumber uint64      `json:"block_number"`
	TxHash      common.Hash `json:"tx_hash"`
	LogIndex    uint        `json:"log_index"`
}

// Before orders references by ledger position.
func (r LogRef) Before(o LogRef) bool {
	if r.BlockNumber != o.BlockNumber {
		return r.BlockNumber < o.BlockNumber
	}
	return r.LogIndex < o.LogIndex
}

// Booking is a confirmed booking reconstructed from a Book event.
type Booking struct {
	Property     common.Address `json:"property"`
	Requester    common.Address `json:"requester"`
	Unit         common.Address `json:"unit"`
	Range        DayRange       `json:"range"`
	GuestPayload []byte         `json:"guest_payload,omitempty"`
	Ref          LogRef         `json:"ref"`
}

// PendingRequest is a booking request whose start event has no matching finish.
type PendingRequest struct {
	Property     common.Address `json:"property"`
	Requester    common.Address `json:"requester"`
	ContentHash  common.Hash    `json:"content_hash"`
	Method       string         `json:"method,omitempty"`
	Unit         common.Address `json:"unit,omitempty"`
	Range        DayRange       `json:"range"`
	GuestPayload []byte         `json:"guest_payload,omitempty"`
	Ref          LogRef         `json:"ref"`
}

// DayPrice is the effective price of a single day.
type DayPrice struct {
	Day   int64    `json:"day"`
	Fiat  *big.Int `json:"fiat"`
	Token *big.Int `json:"token"`
}

// Quote is the cost of a day range on a unit in both denominations.
// Fiat is in hundredths of the unit currency; Token is in base units.
type Quote struct {
	Unit         common.Address `json:"unit"`
	Range        DayRange       `json:"range"`
	CurrencyCode string         `json:"currency_code,omitempty"`
	Fiat         *big.Int       `json:"fiat"`
	Token        *big.Int       `json:"token"`
	Days         []DayPrice     `json:"days"`
}
