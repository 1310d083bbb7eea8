package events

import (
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// PendingSet accumulates start and finish events across any number of log
// windows. A start is outstanding until a finish with the bit-identical
// content hash has been applied, whichever order the two arrive in.
// The set belongs to the caller; it is safe for concurrent use.
type PendingSet struct {
	mu       sync.Mutex
	started  map[common.Hash]*RequestStarted
	finished map[common.Hash]*RequestFinished
	next     uint64
}

// NewPendingSet creates an empty set.
func NewPendingSet() *PendingSet {
	return &PendingSet{
		started:  make(map[common.Hash]*RequestStarted),
		finished: make(map[common.Hash]*RequestFinished),
	}
}

// Apply records an event. Other event types are ignored. Applying the same
// event twice has no further effect.
func (s *PendingSet) Apply(ev any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch e := ev.(type) {
	case *RequestStarted:
		if _, ok := s.started[e.ContentHash]; !ok {
			s.started[e.ContentHash] = e
		}
	case *RequestFinished:
		if _, ok := s.finished[e.ContentHash]; !ok {
			s.finished[e.ContentHash] = e
		}
	}
}

// Outstanding returns starts without a finish, in ledger order.
func (s *PendingSet) Outstanding() []*RequestStarted {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*RequestStarted
	for hash, start := range s.started {
		if _, done := s.finished[hash]; !done {
			out = append(out, start)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Ref.Before(out[j].Ref)
	})
	return out
}

// Start returns the recorded start event for hash.
func (s *PendingSet) Start(hash common.Hash) (*RequestStarted, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.started[hash]
	return ev, ok
}

// Finished reports whether a finish for hash has been applied.
func (s *PendingSet) Finished(hash common.Hash) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.finished[hash]
	return ok
}

// Next is the first block not yet covered by Resume.
func (s *PendingSet) Next() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}

func (s *PendingSet) advance(to uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if to+1 > s.next {
		s.next = to + 1
	}
}
