package types

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
)

// Error taxonomy shared by every layer. Callers match with errors.Is; the
// sentinels survive wrapping by CallError, errors.Wrap and fmt.Errorf("%w").
var (
	// ErrEncoding reports a value that cannot be represented in its ledger encoding.
	ErrEncoding = errors.New("encoding error")
	// ErrNameTooLong reports identifiers wider than 32 bytes. Errors built by
	// NameTooLong match both this sentinel and ErrEncoding.
	ErrNameTooLong = errors.New("name exceeds 32 bytes")
	// ErrEstimationFailed means the node refused to estimate, i.e. the call would revert.
	ErrEstimationFailed = errors.New("gas estimation failed")
	// ErrInsufficientBalance is returned before submission when token funds are short.
	ErrInsufficientBalance = errors.New("insufficient token balance")
	// ErrNotAvailable is returned before submission when a unit is inactive or booked.
	ErrNotAvailable = errors.New("unit not available for the requested days")
	// ErrSubmissionTimeout means the transaction was sent but not mined in time.
	// Its outcome is unknown and it must not be resubmitted blindly.
	ErrSubmissionTimeout = errors.New("submission not included before timeout")
	// ErrSubmissionReverted means the transaction was mined with a failed status.
	ErrSubmissionReverted = errors.New("submission reverted")
	// ErrDecode reports call data or logs with an unexpected shape.
	ErrDecode = errors.New("cannot decode ledger payload")
	// ErrNotManaged means the property is not in the manager's registry list.
	ErrNotManaged = errors.New("property is not managed by this account")
	// ErrNotFound reports a missing category, unit or event.
	ErrNotFound = errors.New("not found")
)

// NameTooLong builds the error for an oversized identifier.
func NameTooLong(name string) error {
	return errors.Mark(errors.Wrapf(ErrNameTooLong, "%q is %d bytes", name, len(name)), ErrEncoding)
}

// CallError carries the context of a failed ledger operation.
type CallError struct {
	Op          string
	Target      common.Address
	Range       *DayRange
	ContentHash common.Hash
	TxHash      common.Hash
	Err         error
}

func (e *CallError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Target != (common.Address{}) {
		fmt.Fprintf(&b, " %s", e.Target.Hex())
	}
	if e.Range != nil {
		fmt.Fprintf(&b, " days %s", e.Range)
	}
	if e.TxHash != (common.Hash{}) {
		fmt.Fprintf(&b, " tx %s", e.TxHash.Hex())
	}
	if e.ContentHash != (common.Hash{}) {
		fmt.Fprintf(&b, " content %s", e.ContentHash.Hex())
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// AsCallError extracts the outermost CallError from err.
func AsCallError(err error) (*CallError, bool) {
	var ce *CallError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
