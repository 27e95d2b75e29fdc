// SPDX-License-Identifier: MIT

package indexset

import (
	"fmt"
	"math"
)

// Set is the adaptive multi-index frontier.
//
// Pools:
//   - accepted: finalized indices contributing to the surrogate;
//   - active:   candidate frontier (admissible, not yet evaluated);
//   - rejected: candidates whose evaluation failed permanently; never re-proposed.
//
// Invariant (admissibility): every predecessor of every active index is accepted.
//
// A Set is not safe for concurrent mutation; its owner serializes access.
type Set struct {
	features []string
	weights  []float64
	maxOrder int

	accepted map[string]MultiIndex
	order    []MultiIndex // acceptance order
	active   map[string]MultiIndex
	rejected map[string]MultiIndex
	newest   MultiIndex
}

// Initialize seeds a Set with the zero index (accepted) and its immediate
// forward neighbours (active).
//
// Inputs:
//   - features: variable names fixing the axis order (non-empty).
//   - weights: importance weight per feature (nil => all ones). Each axis is
//     capped at max(1, floor(maxOrder*w_k/max(w))).
//   - maxOrder: largest per-axis order (>= 1).
//
// Errors:
//   - ErrNoFeatures, ErrWeights, ErrMaxOrder (all sampler.ErrConfiguration).
//
// Complexity: O(d).
func Initialize(features []string, weights []float64, maxOrder int) (*Set, error) {
	if len(features) == 0 {
		return nil, ErrNoFeatures
	}

	return InitializeWith(features, weights, maxOrder, []MultiIndex{Zero(len(features))})
}

// InitializeWith seeds a Set with a caller-supplied downward-closed accepted
// set, then forwards once. The seed must contain the zero index.
//
// Errors: as Initialize, plus ErrNotDownwardClosed and ErrIndexDimension.
func InitializeWith(features []string, weights []float64, maxOrder int, seed []MultiIndex) (*Set, error) {
	if len(features) == 0 {
		return nil, ErrNoFeatures
	}
	if maxOrder < 1 {
		return nil, fmt.Errorf("%w (got %d)", ErrMaxOrder, maxOrder)
	}
	w, err := normWeights(weights, len(features))
	if err != nil {
		return nil, err
	}
	s := &Set{
		features: append([]string(nil), features...),
		weights:  w,
		maxOrder: maxOrder,
		accepted: make(map[string]MultiIndex),
		active:   make(map[string]MultiIndex),
		rejected: make(map[string]MultiIndex),
	}

	sorted := make([]MultiIndex, 0, len(seed))
	for _, m := range seed {
		if len(m) != len(features) {
			return nil, fmt.Errorf("%w: %s", ErrIndexDimension, m)
		}
		sorted = append(sorted, m.Clone())
	}
	Sort(sorted)
	if len(sorted) == 0 || !sorted[0].IsZero() || !DownwardClosed(sorted) {
		return nil, ErrNotDownwardClosed
	}
	for _, m := range sorted {
		if _, dup := s.accepted[m.Key()]; dup {
			continue
		}
		s.accepted[m.Key()] = m
		s.order = append(s.order, m)
		s.newest = m
	}
	if _, err = s.Forward(maxOrder); err != nil {
		return nil, err
	}

	return s, nil
}

func normWeights(weights []float64, d int) ([]float64, error) {
	if weights == nil {
		w := make([]float64, d)
		for i := range w {
			w[i] = 1
		}

		return w, nil
	}
	if len(weights) != d {
		return nil, fmt.Errorf("%w: got %d weights for %d features", ErrWeights, len(weights), d)
	}
	for _, v := range weights {
		if !(v > 0) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: got %v", ErrWeights, weights)
		}
	}

	return append([]float64(nil), weights...), nil
}

// Caps returns the per-axis order limit for maxOrder under the importance weights.
func (s *Set) Caps(maxOrder int) []int {
	return axisCaps(s.weights, maxOrder)
}

func axisCaps(weights []float64, maxOrder int) []int {
	wmax := 0.0
	for _, w := range weights {
		wmax = math.Max(wmax, w)
	}
	caps := make([]int, len(weights))
	for k, w := range weights {
		c := int(math.Floor(float64(maxOrder)*w/wmax + 1e-12))
		if c < 1 {
			c = 1
		}
		caps[k] = c
	}

	return caps
}

// Forward proposes new active indices.
//
// Implementation:
//   - Stage 1: visit accepted indices in lexicographic order.
//   - Stage 2: for each axis k (feature order) form idx+e_k; skip it if it is
//     already accepted/active/rejected or exceeds the axis cap for maxOrder.
//   - Stage 3: admit it only if all its predecessors are accepted; otherwise
//     skip silently (not an error).
//
// Returns the newly activated indices in the order they were added.
// Determinism: identical pool histories yield identical results.
//
// Errors: ErrMaxOrder when maxOrder < 1.
//
// Complexity: O(|accepted| * d^2).
func (s *Set) Forward(maxOrder int) ([]MultiIndex, error) {
	if maxOrder < 1 {
		return nil, fmt.Errorf("%w (got %d)", ErrMaxOrder, maxOrder)
	}
	s.maxOrder = maxOrder
	caps := s.Caps(maxOrder)

	var added []MultiIndex
	for _, base := range s.AcceptedSorted() {
		for k, cand := range base.Successors() {
			if cand[k] > caps[k] || s.known(cand) {
				continue
			}
			if !s.Admissible(cand) {
				continue
			}
			s.active[cand.Key()] = cand
			added = append(added, cand)
		}
	}

	return added, nil
}

func (s *Set) known(m MultiIndex) bool {
	key := m.Key()
	if _, ok := s.accepted[key]; ok {
		return true
	}
	if _, ok := s.active[key]; ok {
		return true
	}
	_, ok := s.rejected[key]

	return ok
}

// Admissible reports whether every on-axis predecessor of m is accepted.
func (s *Set) Admissible(m MultiIndex) bool {
	for _, p := range m.Predecessors() {
		if _, ok := s.accepted[p.Key()]; !ok {
			return false
		}
	}

	return true
}

// Accept moves idx from active to accepted.
//
// Errors: ErrNotActive (sampler.ErrState) if idx is not currently active.
func (s *Set) Accept(idx MultiIndex) error {
	key := idx.Key()
	m, ok := s.active[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotActive, key)
	}
	delete(s.active, key)
	s.accepted[key] = m
	s.order = append(s.order, m)
	s.newest = m

	return nil
}

// Reject moves idx from active to rejected (failed evaluation).
//
// Errors: ErrNotActive (sampler.ErrState) if idx is not currently active.
func (s *Set) Reject(idx MultiIndex) error {
	key := idx.Key()
	m, ok := s.active[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotActive, key)
	}
	delete(s.active, key)
	s.rejected[key] = m

	return nil
}

// IsAccepted reports membership in the accepted pool.
func (s *Set) IsAccepted(m MultiIndex) bool {
	_, ok := s.accepted[m.Key()]

	return ok
}

// IsActive reports membership in the active pool.
func (s *Set) IsActive(m MultiIndex) bool {
	_, ok := s.active[m.Key()]

	return ok
}

// Accepted returns the accepted indices in acceptance order.
func (s *Set) Accepted() []MultiIndex {
	out := make([]MultiIndex, len(s.order))
	for i, m := range s.order {
		out[i] = m.Clone()
	}

	return out
}

// AcceptedSorted returns the accepted indices in lexicographic order.
func (s *Set) AcceptedSorted() []MultiIndex {
	out := s.Accepted()
	Sort(out)

	return out
}

// Active returns the active indices in lexicographic order.
func (s *Set) Active() []MultiIndex { return sortedValues(s.active) }

// Rejected returns the rejected indices in lexicographic order.
func (s *Set) Rejected() []MultiIndex { return sortedValues(s.rejected) }

// Newest returns the most recently accepted index.
func (s *Set) Newest() MultiIndex { return s.newest.Clone() }

// Features returns the axis names.
func (s *Set) Features() []string { return append([]string(nil), s.features...) }

// Dim returns the number of axes.
func (s *Set) Dim() int { return len(s.features) }

// MaxOrder returns the order limit used by the last Forward.
func (s *Set) MaxOrder() int { return s.maxOrder }

func sortedValues(m map[string]MultiIndex) []MultiIndex {
	out := make([]MultiIndex, 0, len(m))
	for _, v := range m {
		out = append(out, v.Clone())
	}
	Sort(out)

	return out
}
