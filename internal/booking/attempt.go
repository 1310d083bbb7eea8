package booking

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/windingtree/wt-client/internal/ledger"
	"github.com/windingtree/wt-client/pkg/types"
)

// Path selects how a booking is paid for.
type Path string

const (
	// PathToken pays in the registry token through approve-and-call.
	PathToken Path = "token"
	// PathDirect sends the request to the property with no on-ledger payment.
	PathDirect Path = "direct"
)

// State is a step of a booking attempt.
type State string

const (
	StateIdle                State = "idle"
	StateCostQuoted          State = "cost_quoted"
	StateFundsChecked        State = "funds_checked"
	StateAvailabilityChecked State = "availability_checked"
	StateSubmitted           State = "submitted"
	StateSettled             State = "settled"
	StateRejected            State = "rejected"
)

// Terminal reports whether no further transition can follow s.
func (s State) Terminal() bool {
	return s == StateSettled || s == StateRejected
}

// Intent is what a guest asks to book.
type Intent struct {
	Property     common.Address
	Unit         common.Address
	Range        types.DayRange
	GuestPayload []byte
}

// Transition is one entry of an attempt's history.
type Transition struct {
	State State     `json:"state"`
	At    time.Time `json:"at"`
}

// Attempt is the record of one booking attempt. A settled attempt whose
// Pending flag is set has been accepted as a request and waits for the
// manager to confirm it by ContentHash.
type Attempt struct {
	ID        string         `json:"id"`
	Path      Path           `json:"path"`
	Intent    Intent         `json:"intent"`
	Requester common.Address `json:"requester"`
	State     State          `json:"state"`
	History   []Transition   `json:"history"`

	Quote                *types.Quote    `json:"quote,omitempty"`
	RequiresConfirmation bool            `json:"requires_confirmation"`
	Pending              bool            `json:"pending"`
	ContentHash          common.Hash     `json:"content_hash"`
	Receipt              *ledger.Receipt `json:"receipt,omitempty"`
	Cause                error           `json:"-"`
}

func newAttempt(path Path, intent Intent, requester common.Address, now time.Time) *Attempt {
	a := &Attempt{
		ID:        uuid.NewString(),
		Path:      path,
		Intent:    intent,
		Requester: requester,
	}
	a.advance(StateIdle, now)
	return a
}

func (a *Attempt) advance(s State, now time.Time) {
	a.State = s
	a.History = append(a.History, Transition{State: s, At: now})
}

// States lists the states the attempt went through, in order.
func (a *Attempt) States() []State {
	out := make([]State, len(a.History))
	for i, t := range a.History {
		out[i] = t.State
	}
	return out
}
