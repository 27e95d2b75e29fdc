// SPDX-License-Identifier: MIT

package impact

import "github.com/katalvlaran/lvlsample/indexset"

// Record is the per-target impact bookkeeping of one refinement controller.
// A key is either expected (candidate) or actual (resolved) for a target,
// never both.
type Record struct {
	targets  []string
	expected map[string]map[string]float64 // target -> key -> value
	actual   map[string]map[string]float64
}

// NewRecord returns an empty record for targets.
func NewRecord(targets []string) *Record {
	r := &Record{
		targets:  append([]string(nil), targets...),
		expected: make(map[string]map[string]float64, len(targets)),
		actual:   make(map[string]map[string]float64, len(targets)),
	}
	for _, t := range targets {
		r.expected[t] = make(map[string]float64)
		r.actual[t] = make(map[string]float64)
	}

	return r
}

// Targets returns the tracked targets.
func (r *Record) Targets() []string { return append([]string(nil), r.targets...) }

// SetActual stores the actual impact of idx for target and clears any expected value.
func (r *Record) SetActual(target string, idx indexset.MultiIndex, v float64) {
	k := idx.Key()
	delete(r.expected[target], k)
	r.actual[target][k] = v
}

// Actual returns the actual impact of idx for target.
func (r *Record) Actual(target string, idx indexset.MultiIndex) (float64, bool) {
	v, ok := r.actual[target][idx.Key()]

	return v, ok
}

// ActualMap returns a copy of the actual impacts of target.
func (r *Record) ActualMap(target string) map[string]float64 {
	out := make(map[string]float64, len(r.actual[target]))
	for k, v := range r.actual[target] {
		out[k] = v
	}

	return out
}

// Estimate recomputes the expected impact of every candidate from the
// current actual impacts, replacing all previous estimates.
func (r *Record) Estimate(candidates []indexset.MultiIndex) {
	for _, t := range r.targets {
		fresh := make(map[string]float64, len(candidates))
		for _, c := range candidates {
			fresh[c.Key()] = Expected(c, r.actual[t])
		}
		r.expected[t] = fresh
	}
}

// Expected returns the candidate score: max over targets of the estimate.
func (r *Record) Expected(idx indexset.MultiIndex) float64 {
	k := idx.Key()
	best := 0.0
	for _, t := range r.targets {
		best = max(best, r.expected[t][k])
	}

	return best
}

// Resolve moves idx from expected to actual using per-target actual values.
func (r *Record) Resolve(idx indexset.MultiIndex, actual map[string]float64) {
	for _, t := range r.targets {
		r.SetActual(t, idx, actual[t])
	}
}

// Drop forgets the expected value of idx (rejected candidate).
func (r *Record) Drop(idx indexset.MultiIndex) {
	for _, t := range r.targets {
		delete(r.expected[t], idx.Key())
	}
}

// Residual is the max over targets of the per-target sum of expected impacts.
func (r *Record) Residual() float64 {
	best := 0.0
	for _, t := range r.targets {
		best = max(best, GlobalResidual(r.expected[t]))
	}

	return best
}

// Best returns the candidate with the highest score; ties go to the
// lexicographically smallest index. ok is false for no candidates.
func (r *Record) Best(candidates []indexset.MultiIndex) (best indexset.MultiIndex, score float64, ok bool) {
	sorted := make([]indexset.MultiIndex, len(candidates))
	copy(sorted, candidates)
	indexset.Sort(sorted)
	for _, c := range sorted {
		s := r.Expected(c)
		if !ok || s > score {
			best, score, ok = c, s, true
		}
	}

	return best, score, ok
}
