// Package events derives bookings and outstanding booking requests from
// property event logs.
package events

import (
	"math/big"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/windingtree/wt-client/internal/contracts"
	"github.com/windingtree/wt-client/pkg/types"
)

// On-ledger event names.
const (
	EventBook        = "Book"
	EventCallStarted = "CallStarted"
	EventCallFinish  = "CallFinish"
)

var (
	bookTopic     = contracts.EventID(contracts.Property, EventBook)
	startedTopic  = contracts.EventID(contracts.Property, EventCallStarted)
	finishedTopic = contracts.EventID(contracts.Property, EventCallFinish)
)

// Booked is a Book event: days were assigned to a requester.
type Booked struct {
	Property  common.Address
	Requester common.Address
	Unit      common.Address
	Range     types.DayRange
	Ref       types.LogRef
}

// RequestStarted is a CallStarted event: a two-phase request was recorded.
type RequestStarted struct {
	Property    common.Address
	Requester   common.Address
	ContentHash common.Hash
	Ref         types.LogRef
}

// RequestFinished is a CallFinish event: a two-phase request was executed.
type RequestFinished struct {
	Property    common.Address
	Requester   common.Address
	ContentHash common.Hash
	Ref         types.LogRef
}

func refOf(l ethtypes.Log) types.LogRef {
	return types.LogRef{BlockNumber: l.BlockNumber, TxHash: l.TxHash, LogIndex: l.Index}
}

func field[T any](ev *contracts.DecodedEvent, name string) (T, error) {
	v, ok := ev.Fields[name].(T)
	if !ok {
		var zero T
		return zero, errors.Wrapf(types.ErrDecode, "%s event has no %s field of type %T", ev.Name, name, zero)
	}
	return v, nil
}

// Parse decodes a property log into *Booked, *RequestStarted or *RequestFinished.
func Parse(decoder *contracts.Decoder, l ethtypes.Log) (any, error) {
	ev, err := decoder.DecodeLog(l)
	if err != nil {
		return nil, err
	}
	if ev.Kind != contracts.Property {
		return nil, errors.Wrapf(types.ErrDecode, "%s is not a property event", ev.Name)
	}

	switch ev.Name {
	case EventBook:
		from, err := field[common.Address](ev, "from")
		if err != nil {
			return nil, err
		}
		unit, err := field[common.Address](ev, "unit")
		if err != nil {
			return nil, err
		}
		day, err := field[*big.Int](ev, "fromDay")
		if err != nil {
			return nil, err
		}
		count, err := field[*big.Int](ev, "daysAmount")
		if err != nil {
			return nil, err
		}
		if !day.IsInt64() || !count.IsUint64() || count.Uint64() > uint64(^uint32(0)) {
			return nil, errors.Wrapf(types.ErrDecode, "book event day range %s+%s out of range", day, count)
		}
		return &Booked{
			Property:  l.Address,
			Requester: from,
			Unit:      unit,
			Range:     types.DayRange{From: day.Int64(), Count: uint32(count.Uint64())},
			Ref:       refOf(l),
		}, nil

	case EventCallStarted, EventCallFinish:
		from, err := field[common.Address](ev, "from")
		if err != nil {
			return nil, err
		}
		hash, err := field[[32]byte](ev, "dataHash")
		if err != nil {
			return nil, err
		}
		if ev.Name == EventCallStarted {
			return &RequestStarted{Property: l.Address, Requester: from, ContentHash: hash, Ref: refOf(l)}, nil
		}
		return &RequestFinished{Property: l.Address, Requester: from, ContentHash: hash, Ref: refOf(l)}, nil
	}
	return nil, errors.Wrapf(types.ErrDecode, "unexpected property event %s", ev.Name)
}
