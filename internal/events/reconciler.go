package events

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/windingtree/wt-client/internal/contracts"
	"github.com/windingtree/wt-client/internal/logging"
	"github.com/windingtree/wt-client/internal/metrics"
	"github.com/windingtree/wt-client/pkg/types"
)

// maxDescent bounds how many call layers are unwrapped while looking for
// the request that carries a guest payload.
const maxDescent = 4

// Backend is the read surface the reconciler needs.
type Backend interface {
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]ethtypes.Log, error)
	TransactionByHash(ctx context.Context, hash common.Hash) (*ethtypes.Transaction, bool, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// Reconciler rebuilds bookings and pending requests from the event log.
// Nothing is kept between calls; incremental use goes through a PendingSet
// the caller owns.
type Reconciler struct {
	backend Backend
	decoder *contracts.Decoder
	metrics *metrics.Collector
}

// NewReconciler creates a reconciler. decoder must know the property,
// registry and token interfaces.
func NewReconciler(backend Backend, decoder *contracts.Decoder, m *metrics.Collector) *Reconciler {
	return &Reconciler{backend: backend, decoder: decoder, metrics: m}
}

// ConfirmedBookings returns every Book event of properties from block from
// onward, with the guest payload recovered from the originating request.
func (r *Reconciler) ConfirmedBookings(ctx context.Context, properties []common.Address, from uint64) ([]types.Booking, error) {
	if len(properties) == 0 {
		return nil, nil
	}
	start := time.Now()
	defer func() { r.metrics.RecordReconcile("confirmed", time.Since(start)) }()

	logs, err := r.filter(ctx, EventBook, properties, [][]common.Hash{{bookTopic}}, from, nil)
	if err != nil {
		return nil, err
	}

	lookup := newStartLookup(r)
	bookings := make([]types.Booking, 0, len(logs))
	for _, l := range logs {
		ev, err := Parse(r.decoder, l)
		if err != nil {
			return nil, err
		}
		booked := ev.(*Booked)

		req, err := r.recoverRequest(ctx, booked.Property, booked.Ref.TxHash, lookup)
		if err != nil {
			rng := booked.Range
			return nil, &types.CallError{Op: "recover guest payload", Target: booked.Property, Range: &rng, TxHash: booked.Ref.TxHash, Err: err}
		}
		bookings = append(bookings, types.Booking{
			Property:     booked.Property,
			Requester:    booked.Requester,
			Unit:         booked.Unit,
			Range:        booked.Range,
			GuestPayload: req.payload,
			Ref:          booked.Ref,
		})
	}

	logging.Debug("confirmed bookings reconciled", "properties", len(properties), "bookings", len(bookings), "from_block", from)
	return bookings, nil
}

// OutstandingRequests returns the requests started from block from onward
// that have no matching finish in [from, latest].
func (r *Reconciler) OutstandingRequests(ctx context.Context, properties []common.Address, from uint64) ([]types.PendingRequest, error) {
	if len(properties) == 0 {
		return nil, nil
	}
	start := time.Now()
	defer func() { r.metrics.RecordReconcile("outstanding", time.Since(start)) }()

	latest, err := r.backend.BlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get block number: %w", err)
	}
	set := NewPendingSet()
	if err := r.Resume(ctx, set, properties, from, latest); err != nil {
		return nil, err
	}
	return r.Describe(ctx, set.Outstanding())
}

// Resume applies the start and finish events of [from, to] to set. Windows
// may be applied in pieces; the outstanding result is the same as for one
// window covering all of them.
func (r *Reconciler) Resume(ctx context.Context, set *PendingSet, properties []common.Address, from, to uint64) error {
	if from > to {
		return nil
	}
	if len(properties) > 0 {
		logs, err := r.filter(ctx, "CallStarted|CallFinish", properties, [][]common.Hash{{startedTopic, finishedTopic}}, from, &to)
		if err != nil {
			return err
		}
		for _, l := range logs {
			ev, err := Parse(r.decoder, l)
			if err != nil {
				return err
			}
			set.Apply(ev)
		}
	}
	set.advance(to)
	r.metrics.SetOutstanding(len(set.Outstanding()))
	return nil
}

// Describe recovers the payload and booking intent of each start event.
func (r *Reconciler) Describe(ctx context.Context, starts []*RequestStarted) ([]types.PendingRequest, error) {
	lookup := newStartLookup(r)
	out := make([]types.PendingRequest, 0, len(starts))
	for _, s := range starts {
		req, err := r.recoverRequest(ctx, s.Property, s.Ref.TxHash, lookup)
		if err != nil {
			return nil, &types.CallError{Op: "recover request", Target: s.Property, ContentHash: s.ContentHash, TxHash: s.Ref.TxHash, Err: err}
		}
		if req.contentHash != s.ContentHash {
			return nil, &types.CallError{
				Op:          "recover request",
				Target:      s.Property,
				ContentHash: s.ContentHash,
				TxHash:      s.Ref.TxHash,
				Err:         errors.Wrapf(types.ErrDecode, "transaction carries request %s", req.contentHash.Hex()),
			}
		}

		p := types.PendingRequest{
			Property:     s.Property,
			Requester:    s.Requester,
			ContentHash:  s.ContentHash,
			GuestPayload: req.payload,
			Ref:          s.Ref,
		}
		if intent := req.intent; intent != nil {
			p.Method = intent.method
			p.Requester = intent.requester
			p.Unit = intent.unit
			p.Range = intent.rng
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *Reconciler) filter(ctx context.Context, event string, properties []common.Address, topics [][]common.Hash, from uint64, to *uint64) ([]ethtypes.Log, error) {
	q := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		Addresses: properties,
		Topics:    topics,
	}
	if to != nil {
		q.ToBlock = new(big.Int).SetUint64(*to)
	}
	logs, err := r.backend.FilterLogs(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s logs: %w", event, err)
	}
	r.metrics.RecordLogQuery(event, len(logs))
	return logs, nil
}

// intent is the booking a request asks for.
type intent struct {
	method    string
	requester common.Address
	unit      common.Address
	rng       types.DayRange
}

// request is a two-phase request recovered from transaction input.
type request struct {
	contentHash common.Hash
	payload     []byte
	intent      *intent
}

// recoverRequest unwraps the input of txHash until it reaches the beginCall
// that was delivered to property. Wrapping calls (approve-and-call, registry
// delegation) are descended into; a continueCall jumps to the transaction of
// the start event it names.
func (r *Reconciler) recoverRequest(ctx context.Context, property common.Address, txHash common.Hash, lookup *startLookup) (*request, error) {
	data, err := r.input(ctx, txHash)
	if err != nil {
		return nil, err
	}

	for depth := 0; depth < maxDescent; depth++ {
		call, err := r.decoder.DecodeCall(data)
		if err != nil {
			return nil, err
		}

		switch call.Method {
		case "approveData", "callHotel":
			if data, err = call.Bytes("data"); err != nil {
				return nil, err
			}

		case "beginCall":
			payload, err := call.Bytes("privateData")
			if err != nil {
				return nil, err
			}
			public, err := call.Bytes("publicCallData")
			if err != nil {
				return nil, err
			}
			return &request{
				contentHash: crypto.Keccak256Hash(data),
				payload:     payload,
				intent:      r.intentOf(public),
			}, nil

		case "continueCall":
			hash, err := call.Hash("msgDataHash")
			if err != nil {
				return nil, err
			}
			origin, err := lookup.find(ctx, property, hash)
			if err != nil {
				return nil, err
			}
			if data, err = r.input(ctx, origin.Ref.TxHash); err != nil {
				return nil, err
			}

		default:
			return nil, errors.Wrapf(types.ErrDecode, "unexpected %s.%s while looking for a request", call.Kind, call.Method)
		}
	}
	return nil, errors.Wrapf(types.ErrDecode, "no request within %d call layers", maxDescent)
}

func (r *Reconciler) input(ctx context.Context, txHash common.Hash) ([]byte, error) {
	tx, _, err := r.backend.TransactionByHash(ctx, txHash)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transaction %s: %w", txHash.Hex(), err)
	}
	return tx.Data(), nil
}

// intentOf decodes the booking a request's public call describes. Requests
// that are not bookings have no intent.
func (r *Reconciler) intentOf(public []byte) *intent {
	call, err := r.decoder.DecodeCall(public)
	if err != nil || call.Kind != contracts.Property {
		return nil
	}
	if call.Method != "book" && call.Method != "bookWithLif" {
		return &intent{method: call.Method}
	}
	unit, _ := call.Args["unitAddress"].(common.Address)
	from, _ := call.Args["from"].(common.Address)
	day, _ := call.Args["fromDay"].(*big.Int)
	count, _ := call.Args["daysAmount"].(*big.Int)

	in := &intent{method: call.Method, requester: from, unit: unit}
	if day != nil && count != nil && day.IsInt64() && count.IsUint64() && count.Uint64() <= uint64(^uint32(0)) {
		in.rng = types.DayRange{From: day.Int64(), Count: uint32(count.Uint64())}
	}
	return in
}

// startLookup finds start events by content hash, loading each property's
// starts at most once per reconciler call.
type startLookup struct {
	r      *Reconciler
	loaded map[common.Address]map[common.Hash]*RequestStarted
}

func newStartLookup(r *Reconciler) *startLookup {
	return &startLookup{r: r, loaded: make(map[common.Address]map[common.Hash]*RequestStarted)}
}

func (s *startLookup) find(ctx context.Context, property common.Address, hash common.Hash) (*RequestStarted, error) {
	starts, ok := s.loaded[property]
	if !ok {
		logs, err := s.r.filter(ctx, EventCallStarted, []common.Address{property}, [][]common.Hash{{startedTopic}}, 0, nil)
		if err != nil {
			return nil, err
		}
		starts = make(map[common.Hash]*RequestStarted, len(logs))
		for _, l := range logs {
			ev, err := Parse(s.r.decoder, l)
			if err != nil {
				return nil, err
			}
			st := ev.(*RequestStarted)
			if _, dup := starts[st.ContentHash]; !dup {
				starts[st.ContentHash] = st
			}
		}
		s.loaded[property] = starts
	}
	st, ok := starts[hash]
	if !ok {
		return nil, errors.Wrapf(types.ErrNotFound, "no start event for %s on %s", hash.Hex(), property.Hex())
	}
	return st, nil
}
