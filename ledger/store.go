// SPDX-License-Identifier: MIT

package ledger

import (
	"sync"

	"github.com/katalvlaran/lvlsample/sampler"
)

// Entry is one evaluated point.
type Entry struct {
	Point  sampler.Point
	Values map[string]float64
	Prefix string
}

// Store is the shared existing-points pool. Safe for concurrent use.
type Store struct {
	digits int

	mu      sync.RWMutex
	entries []Entry
	byKey   map[string]int
}

// NewStore returns an empty store keyed at digits significant digits
// (<= 0 selects sampler.DefaultKeyDigits).
func NewStore(digits int) *Store {
	if digits <= 0 {
		digits = sampler.DefaultKeyDigits
	}

	return &Store{digits: digits, byKey: make(map[string]int)}
}

// Key returns the store key of p.
func (s *Store) Key(p sampler.Point) string { return sampler.KeyDigits(p, s.digits) }

// Add records the outputs of p. The first recording wins; added is false
// when p was already present.
func (s *Store) Add(p sampler.Point, values map[string]float64, prefix string) (added bool) {
	key := s.Key(p)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byKey[key]; ok {
		return false
	}
	v := make(map[string]float64, len(values))
	for k, x := range values {
		v[k] = x
	}
	s.byKey[key] = len(s.entries)
	s.entries = append(s.entries, Entry{Point: p.Clone(), Values: v, Prefix: prefix})

	return true
}

// Has reports whether p is existing.
func (s *Store) Has(p sampler.Point) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byKey[s.Key(p)]

	return ok
}

// Values returns the outputs recorded for p. It satisfies rom.Lookup.
func (s *Store) Values(p sampler.Point) (map[string]float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.byKey[s.Key(p)]
	if !ok {
		return nil, false
	}

	return s.entries[i].Values, true
}

// Len returns the number of existing points.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.entries)
}

// Entries returns a snapshot of all entries in insertion order.
func (s *Store) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]Entry(nil), s.entries...)
}
