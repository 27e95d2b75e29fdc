// SPDX-License-Identifier: MIT

package sparsegrid

import (
	"fmt"
	"slices"

	"github.com/katalvlaran/lvlsample/indexset"
	"github.com/katalvlaran/lvlsample/quadrature"
	"github.com/katalvlaran/lvlsample/sampler"
)

// Builder turns index sets into grids for a fixed feature order.
// A Builder is stateless after construction and safe for concurrent use.
type Builder struct {
	features []string
	rules    []*quadrature.Rule
	digits   int
}

// NewBuilder binds one rule per feature (same order).
//
// Errors: ErrDimension when len(rules) != len(features); ErrEmpty for no features.
func NewBuilder(features []string, rules []*quadrature.Rule, opts ...Option) (*Builder, error) {
	if len(features) == 0 {
		return nil, fmt.Errorf("%w: no features", ErrEmpty)
	}
	if len(rules) != len(features) {
		return nil, fmt.Errorf("%w: %d rules for %d features", ErrDimension, len(rules), len(features))
	}
	b := &Builder{
		features: append([]string(nil), features...),
		rules:    append([]*quadrature.Rule(nil), rules...),
		digits:   DefaultKeyDigits,
	}
	for _, opt := range opts {
		opt(b)
	}

	return b, nil
}

// Features returns the builder's feature order.
func (b *Builder) Features() []string { return append([]string(nil), b.features...) }

// Rules returns the builder's rules in feature order.
func (b *Builder) Rules() []*quadrature.Rule { return append([]*quadrature.Rule(nil), b.rules...) }

// Term is one tensor rule of a combination: Coeff * (tensor grid of Index).
type Term struct {
	Index indexset.MultiIndex
	Coeff int
}

// CombinationCoefficients returns the non-zero Smolyak coefficients of the
// set, sorted by index. Duplicates in the input are ignored.
//
// Implementation:
//   - Stage 1: hash the set.
//   - Stage 2: for each i, enumerate z over the axes k with i+e_k in the set
//     (any other axis makes i+z leave a downward-closed set) and add
//     (−1)^{|z|} whenever i+z is a member.
//
// Complexity: O(|Λ| * 2^m * d) with m the number of forward neighbours present.
func CombinationCoefficients(indices []indexset.MultiIndex) []Term {
	set := make(map[string]indexset.MultiIndex, len(indices))
	for _, m := range indices {
		set[m.Key()] = m
	}
	uniq := make([]indexset.MultiIndex, 0, len(set))
	for _, m := range set {
		uniq = append(uniq, m)
	}
	indexset.Sort(uniq)

	var terms []Term
	for _, i := range uniq {
		var axes []int
		for k, s := range i.Successors() {
			if _, ok := set[s.Key()]; ok {
				axes = append(axes, k)
			}
		}
		c := 0
		for mask := 0; mask < 1<<len(axes); mask++ {
			probe := i.Clone()
			sign := 1
			for bit, k := range axes {
				if mask&(1<<bit) != 0 {
					probe[k]++
					sign = -sign
				}
			}
			if _, ok := set[probe.Key()]; ok {
				c += sign
			}
		}
		if c != 0 {
			terms = append(terms, Term{Index: i.Clone(), Coeff: c})
		}
	}

	return terms
}

// Build returns the sparse grid of indices ∪ {extra}. extra may be nil.
//
// Inputs:
//   - indices: a downward-closed set (typically the accepted pool).
//   - extra: a candidate index evaluated together with the set, or nil.
//
// Returns: the merged, sorted grid with combination-weighted probabilities.
//
// Errors:
//   - ErrEmpty if the union is empty.
//   - ErrDimension if any index has the wrong length (so no generated point can).
//   - quadrature.ErrLevel for levels a rule cannot produce.
//
// Determinism: identical inputs yield identical grids (order and bits).
func (b *Builder) Build(indices []indexset.MultiIndex, extra indexset.MultiIndex) (*Grid, error) {
	all := make([]indexset.MultiIndex, 0, len(indices)+1)
	all = append(all, indices...)
	if extra != nil {
		all = append(all, extra)
	}
	if len(all) == 0 {
		return nil, ErrEmpty
	}
	for _, m := range all {
		if len(m) != len(b.features) {
			return nil, fmt.Errorf("%w: index %s for %d features", ErrDimension, m, len(b.features))
		}
	}

	acc := newAccumulator(b.digits)
	for _, t := range CombinationCoefficients(all) {
		if err := b.addTensor(acc, t.Index, float64(t.Coeff)); err != nil {
			return nil, err
		}
	}

	return acc.grid(b.features), nil
}

// Tensor returns the full tensor grid of the given per-axis levels.
//
// Errors: ErrDimension, quadrature.ErrLevel.
func (b *Builder) Tensor(levels indexset.MultiIndex) (*Grid, error) {
	if len(levels) != len(b.features) {
		return nil, fmt.Errorf("%w: levels %s for %d features", ErrDimension, levels, len(b.features))
	}
	acc := newAccumulator(b.digits)
	if err := b.addTensor(acc, levels, 1); err != nil {
		return nil, err
	}

	return acc.grid(b.features), nil
}

// addTensor adds coeff * (tensor rule of levels) into acc.
func (b *Builder) addTensor(acc *accumulator, levels indexset.MultiIndex, coeff float64) error {
	d := len(b.features)
	xs := make([][]float64, d)
	ws := make([][]float64, d)
	for k, l := range levels {
		x, w, err := b.rules[k].Nodes(l)
		if err != nil {
			return fmt.Errorf("sparsegrid: feature %q: %w", b.features[k], err)
		}
		xs[k], ws[k] = x, w
	}

	// odometer over the per-axis node lists
	pos := make([]int, d)
	for {
		p := make(sampler.Point, d)
		w := coeff
		for k := range pos {
			p[k] = xs[k][pos[k]]
			w *= ws[k][pos[k]]
		}
		acc.add(p, w)

		k := d - 1
		for ; k >= 0; k-- {
			pos[k]++
			if pos[k] < len(xs[k]) {
				break
			}
			pos[k] = 0
		}
		if k < 0 {
			return nil
		}
	}
}

// accumulator merges weighted points by rounding key.
type accumulator struct {
	digits int
	byKey  map[string]int
	nodes  []Node
}

func newAccumulator(digits int) *accumulator {
	return &accumulator{digits: digits, byKey: make(map[string]int)}
}

func (a *accumulator) add(p sampler.Point, w float64) {
	key := sampler.KeyDigits(p, a.digits)
	if i, ok := a.byKey[key]; ok {
		a.nodes[i].Weight += w
		return
	}
	a.byKey[key] = len(a.nodes)
	a.nodes = append(a.nodes, Node{Point: p, Weight: w})
}

// grid sorts the merged nodes and freezes them.
// Points whose merged weight cancels exactly to zero are kept: the model
// value there is still required by the surrogate's tensor terms.
func (a *accumulator) grid(features []string) *Grid {
	slices.SortFunc(a.nodes, func(x, y Node) int { return slices.Compare(x.Point, y.Point) })

	return newGrid(append([]string(nil), features...), a.digits, a.nodes)
}
