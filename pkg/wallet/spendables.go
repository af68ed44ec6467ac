package wallet

import (
	"fmt"
	"sync"

	"github.com/ivcnotes/core/pkg/history"
)

// Spendables is a wallet's currently-held note histories, indexed by
// position. Supplemented from original_source/ivcnotes/src/wallet.rs
// (present in the original, trimmed by the distillation): spec.md §9 notes
// "wallets index spendables by position; deletion is logical", which this
// type implements directly.
type Spendables struct {
	mu    sync.RWMutex
	items []*history.NoteHistory
}

// NewSpendables returns an empty spendables list.
func NewSpendables() *Spendables {
	return &Spendables{}
}

// Add appends a newly-verified note history.
func (s *Spendables) Add(nh *history.NoteHistory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, nh)
}

// At returns the history at position i.
func (s *Spendables) At(i int) (*history.NoteHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i < 0 || i >= len(s.items) {
		return nil, fmt.Errorf("wallet: spendable index %d out of range", i)
	}
	return s.items[i], nil
}

// RemoveAt performs the "logical deletion after a split" spec.md §9 calls
// for: the history stops being spendable once its note is consumed.
func (s *Spendables) RemoveAt(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.items) {
		return fmt.Errorf("wallet: spendable index %d out of range", i)
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	return nil
}

// Len returns the number of held histories.
func (s *Spendables) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Balance sums the value of every currently-held note.
func (s *Spendables) Balance() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total uint64
	for _, nh := range s.items {
		total += nh.CurrentNote.Value
	}
	return total
}

// All returns a snapshot of every held history, in position order.
func (s *Spendables) All() []*history.NoteHistory {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*history.NoteHistory, len(s.items))
	copy(out, s.items)
	return out
}

// Contains reports whether a history with the same current note already
// exists among the spendables, the dedup check verify_incoming uses.
func (s *Spendables) Contains(nh *history.NoteHistory) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	target := nh.CurrentNote.BlindHash()
	for _, existing := range s.items {
		if existing.CurrentNote.BlindHash().Equal(target) {
			return true
		}
	}
	return false
}
