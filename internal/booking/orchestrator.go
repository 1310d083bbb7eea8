// Package booking runs guest booking attempts: it quotes, checks funds and
// availability, and submits the two-phase booking request on either the
// token or the direct payment path.
package booking

import (
	"context"
	"math/big"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/windingtree/wt-client/internal/contracts"
	"github.com/windingtree/wt-client/internal/events"
	"github.com/windingtree/wt-client/internal/inventory"
	"github.com/windingtree/wt-client/internal/ledger"
	"github.com/windingtree/wt-client/internal/logging"
	"github.com/windingtree/wt-client/pkg/types"
)

var propertyEvents = contracts.NewDecoder(contracts.Property)

// Orchestrator runs booking attempts. It keeps no state between calls;
// pre-checks reflect the ledger at the time they were read and the ledger
// has the final word at inclusion.
type Orchestrator struct {
	reader   *inventory.Reader
	executor *ledger.Executor
	nowFunc  func() time.Time
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(reader *inventory.Reader, executor *ledger.Executor) *Orchestrator {
	return &Orchestrator{reader: reader, executor: executor, nowFunc: time.Now}
}

// Quote prices rng on unit in both denominations. A day's override is used
// when set, the unit default otherwise.
func (o *Orchestrator) Quote(ctx context.Context, unit common.Address, rng types.DayRange) (*types.Quote, error) {
	if err := rng.Validate(); err != nil {
		return nil, &types.CallError{Op: "quote", Target: unit, Range: &rng, Err: err}
	}
	u, err := o.reader.Unit(ctx, unit)
	if err != nil {
		return nil, err
	}
	calendar, err := o.reader.Calendar(ctx, unit, rng)
	if err != nil {
		return nil, err
	}

	q := &types.Quote{
		Unit:         unit,
		Range:        rng,
		CurrencyCode: u.CurrencyCode,
		Fiat:         new(big.Int),
		Token:        new(big.Int),
		Days:         make([]types.DayPrice, 0, rng.Count),
	}
	for _, day := range rng.Days() {
		p := types.DayPrice{Day: day, Fiat: orZero(u.DefaultPrice), Token: orZero(u.DefaultTokenPrice)}
		if res, ok := calendar[day]; ok {
			if res.SpecialPrice != nil {
				p.Fiat = res.SpecialPrice
			}
			if res.SpecialTokenPrice != nil {
				p.Token = res.SpecialTokenPrice
			}
		}
		q.Fiat.Add(q.Fiat, p.Fiat)
		q.Token.Add(q.Token, p.Token)
		q.Days = append(q.Days, p)
	}
	return q, nil
}

// UnitIsAvailable reports whether unit is active and free on every day of rng.
func (o *Orchestrator) UnitIsAvailable(ctx context.Context, unit common.Address, rng types.DayRange) (bool, error) {
	if err := rng.Validate(); err != nil {
		return false, &types.CallError{Op: "check availability", Target: unit, Range: &rng, Err: err}
	}
	u, err := o.reader.Unit(ctx, unit)
	if err != nil {
		return false, err
	}
	if !u.Active {
		return false, nil
	}
	for _, day := range rng.Days() {
		res, err := o.reader.Reservation(ctx, unit, day)
		if err != nil {
			return false, err
		}
		if res.Booked() {
			return false, nil
		}
	}
	return true, nil
}

// BookWithToken books on the token path: the request is the callback of a
// token approval covering the quoted cost, sent from the guest's account.
// The returned attempt is never nil; on failure it is rejected and its
// Cause is the returned error.
func (o *Orchestrator) BookWithToken(ctx context.Context, signer ledger.Signer, intent Intent) (*Attempt, error) {
	a := newAttempt(PathToken, intent, signer.Address(), o.nowFunc())

	quote, err := o.Quote(ctx, intent.Unit, intent.Range)
	if err != nil {
		return a, o.reject(a, err)
	}
	a.Quote = quote
	a.advance(StateCostQuoted, o.nowFunc())

	token, err := o.reader.TokenAddress(ctx)
	if err != nil {
		return a, o.reject(a, err)
	}
	balance, err := o.reader.TokenBalance(ctx, token, signer.Address())
	if err != nil {
		return a, o.reject(a, err)
	}
	if balance.Cmp(quote.Token) < 0 {
		rng := intent.Range
		return a, o.reject(a, &types.CallError{
			Op:     "book with token",
			Target: intent.Unit,
			Range:  &rng,
			Err:    errors.Wrapf(types.ErrInsufficientBalance, "balance %s, cost %s", balance, quote.Token),
		})
	}
	a.advance(StateFundsChecked, o.nowFunc())

	if err := o.checkAvailability(ctx, a); err != nil {
		return a, o.reject(a, err)
	}

	begin, err := o.encodeRequest(ctx, a, "bookWithLif")
	if err != nil {
		return a, o.reject(a, err)
	}
	data, err := contracts.Pack(contracts.Token, "approveData", intent.Property, quote.Token, begin)
	if err != nil {
		return a, o.reject(a, err)
	}
	return o.submit(ctx, signer, a, ledger.Call{To: &token, Data: data, Method: "token.approveData"})
}

// Book books on the direct path: the request goes to the property with no
// on-ledger payment. The returned attempt is never nil.
func (o *Orchestrator) Book(ctx context.Context, signer ledger.Signer, intent Intent) (*Attempt, error) {
	a := newAttempt(PathDirect, intent, signer.Address(), o.nowFunc())

	quote, err := o.Quote(ctx, intent.Unit, intent.Range)
	if err != nil {
		return a, o.reject(a, err)
	}
	a.Quote = quote
	a.advance(StateCostQuoted, o.nowFunc())

	if err := o.checkAvailability(ctx, a); err != nil {
		return a, o.reject(a, err)
	}

	begin, err := o.encodeRequest(ctx, a, "book")
	if err != nil {
		return a, o.reject(a, err)
	}
	property := intent.Property
	return o.submit(ctx, signer, a, ledger.Call{To: &property, Data: begin, Method: "property.beginCall"})
}

func (o *Orchestrator) checkAvailability(ctx context.Context, a *Attempt) error {
	ok, err := o.UnitIsAvailable(ctx, a.Intent.Unit, a.Intent.Range)
	if err != nil {
		return err
	}
	if !ok {
		rng := a.Intent.Range
		return &types.CallError{Op: "check availability", Target: a.Intent.Unit, Range: &rng, Err: types.ErrNotAvailable}
	}
	a.advance(StateAvailabilityChecked, o.nowFunc())
	return nil
}

// encodeRequest builds beginCall(method(unit, requester, from, days), payload)
// and records its content hash on the attempt.
func (o *Orchestrator) encodeRequest(ctx context.Context, a *Attempt, method string) ([]byte, error) {
	confirm, err := o.reader.RequiresConfirmation(ctx, a.Intent.Property)
	if err != nil {
		return nil, err
	}
	a.RequiresConfirmation = confirm

	inner, err := contracts.Pack(contracts.Property, method,
		a.Intent.Unit, a.Requester, big.NewInt(a.Intent.Range.From), new(big.Int).SetUint64(uint64(a.Intent.Range.Count)))
	if err != nil {
		return nil, err
	}
	begin, hash, err := ledger.EncodeBeginCall(inner, a.Intent.GuestPayload)
	if err != nil {
		return nil, err
	}
	a.ContentHash = hash
	return begin, nil
}

func (o *Orchestrator) submit(ctx context.Context, signer ledger.Signer, a *Attempt, call ledger.Call) (*Attempt, error) {
	a.advance(StateSubmitted, o.nowFunc())
	receipt, err := o.executor.Submit(ctx, signer, call)
	a.Receipt = receipt
	if err != nil {
		var ce *types.CallError
		if errors.As(err, &ce) && ce.ContentHash == (common.Hash{}) {
			ce.Target = a.Intent.Unit
			ce.ContentHash = a.ContentHash
			rng := a.Intent.Range
			ce.Range = &rng
		}
		return a, o.reject(a, err)
	}

	a.Pending = !finished(receipt.Logs, a.Intent.Property, a.ContentHash)
	a.advance(StateSettled, o.nowFunc())

	logging.Info("booking request settled",
		"attempt", a.ID,
		"path", string(a.Path),
		logging.Property(a.Intent.Property),
		logging.Unit(a.Intent.Unit),
		"days", a.Intent.Range.String(),
		logging.ContentHash(a.ContentHash),
		logging.TxHash(receipt.TxHash),
		"pending", a.Pending,
	)
	return a, nil
}

func (o *Orchestrator) reject(a *Attempt, err error) error {
	a.Cause = err
	a.advance(StateRejected, o.nowFunc())
	logging.Warn("booking attempt rejected",
		"attempt", a.ID,
		"path", string(a.Path),
		logging.Unit(a.Intent.Unit),
		"days", a.Intent.Range.String(),
		logging.Err(err),
	)
	return err
}

// finished reports whether logs carry the finish event of hash on property.
func finished(logs []ethtypes.Log, property common.Address, hash common.Hash) bool {
	for _, l := range logs {
		if l.Address != property {
			continue
		}
		ev, err := events.Parse(propertyEvents, l)
		if err != nil {
			continue
		}
		if fin, ok := ev.(*events.RequestFinished); ok && fin.ContentHash == hash {
			return true
		}
	}
	return false
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
