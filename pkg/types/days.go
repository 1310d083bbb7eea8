package types

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// MaxDays is the longest range the ledger accepts in a single request.
const MaxDays = 3_660

// DayRange is a half-open span of ledger days [From, From+Count).
// Days are counted from 1970-01-01 UTC.
type DayRange struct {
	From  int64  `json:"from_day" yaml:"from_day"`
	Count uint32 `json:"days" yaml:"days"`
}

// End returns the first day after the range.
func (r DayRange) End() int64 {
	return r.From + int64(r.Count)
}

// Days lists every day in the range.
func (r DayRange) Days() []int64 {
	days := make([]int64, 0, r.Count)
	for d := r.From; d < r.End(); d++ {
		days = append(days, d)
	}
	return days
}

// Contains reports whether day lies in the range.
func (r DayRange) Contains(day int64) bool {
	return day >= r.From && day < r.End()
}

// Overlaps reports whether the two ranges share at least one day.
func (r DayRange) Overlaps(o DayRange) bool {
	return r.From < o.End() && o.From < r.End()
}

// Validate rejects empty, pre-epoch and overlong ranges.
func (r DayRange) Validate() error {
	if r.Count == 0 {
		return errors.Wrap(ErrEncoding, "day range must contain at least one day")
	}
	if r.Count > MaxDays {
		return errors.Wrapf(ErrEncoding, "day range of %d days exceeds %d", r.Count, MaxDays)
	}
	if r.From < 0 {
		return errors.Wrapf(ErrEncoding, "day %d is before the epoch", r.From)
	}
	return nil
}

func (r DayRange) String() string {
	return fmt.Sprintf("[%d,%d)", r.From, r.End())
}
