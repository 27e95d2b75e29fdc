// SPDX-License-Identifier: MIT

package rom

import (
	"fmt"

	"github.com/katalvlaran/lvlsample/indexset"
	"github.com/katalvlaran/lvlsample/quadrature"
	"github.com/katalvlaran/lvlsample/sampler"
)

// Surrogate is the trained-model contract the refinement strategies consume.
type Surrogate interface {
	Features() []string
	Targets() []string
	// Evaluate predicts every target at a full-dimensional point.
	Evaluate(p sampler.Point) (map[string]float64, error)
	Mean(target string) float64
	Variance(target string) float64
	// Coefficient returns the expansion coefficient of idx (0 when absent).
	Coefficient(target string, idx indexset.MultiIndex) float64
	// Coefficients returns all coefficients of target keyed by MultiIndex.Key().
	Coefficients(target string) map[string]float64
}

// PCE is an immutable polynomial-chaos expansion.
type PCE struct {
	features []string
	rules    []*quadrature.Rule
	targets  []string
	basis    []indexset.MultiIndex
	pos      map[string]int
	coeffs   map[string][]float64 // target -> aligned with basis
}

var _ Surrogate = (*PCE)(nil)

// NewPCE assembles an expansion. basis must be duplicate free; coeffs holds one
// slice per target aligned with basis. Inputs are copied.
//
// Errors: sampler.ErrDimensionMismatch for inconsistent lengths, ErrMissingTarget.
func NewPCE(features []string, rules []*quadrature.Rule, targets []string,
	basis []indexset.MultiIndex, coeffs map[string][]float64) (*PCE, error) {
	if len(rules) != len(features) {
		return nil, sampler.Dimf("rom: %d rules for %d features", len(rules), len(features))
	}
	p := &PCE{
		features: append([]string(nil), features...),
		rules:    append([]*quadrature.Rule(nil), rules...),
		targets:  append([]string(nil), targets...),
		basis:    make([]indexset.MultiIndex, len(basis)),
		pos:      make(map[string]int, len(basis)),
		coeffs:   make(map[string][]float64, len(targets)),
	}
	for i, m := range basis {
		if len(m) != len(features) {
			return nil, sampler.Dimf("rom: basis index %s for %d features", m, len(features))
		}
		p.basis[i] = m.Clone()
		p.pos[m.Key()] = i
	}
	for _, t := range targets {
		c, ok := coeffs[t]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingTarget, t)
		}
		if len(c) != len(basis) {
			return nil, sampler.Dimf("rom: target %q has %d coefficients for %d basis terms", t, len(c), len(basis))
		}
		p.coeffs[t] = append([]float64(nil), c...)
	}

	return p, nil
}

// Features returns the feature order of the expansion.
func (p *PCE) Features() []string { return append([]string(nil), p.features...) }

// Rules returns the per-feature quadrature rules.
func (p *PCE) Rules() []*quadrature.Rule { return append([]*quadrature.Rule(nil), p.rules...) }

// Targets returns the response names.
func (p *PCE) Targets() []string { return append([]string(nil), p.targets...) }

// Basis returns the expansion multi-indices.
func (p *PCE) Basis() []indexset.MultiIndex {
	out := make([]indexset.MultiIndex, len(p.basis))
	for i, m := range p.basis {
		out[i] = m.Clone()
	}

	return out
}

// Coefficient returns c_idx for target, 0 when idx is not in the basis.
func (p *PCE) Coefficient(target string, idx indexset.MultiIndex) float64 {
	i, ok := p.pos[idx.Key()]
	if !ok {
		return 0
	}

	return p.coeffs[target][i]
}

// Coefficients returns the coefficients of target keyed by MultiIndex.Key().
func (p *PCE) Coefficients(target string) map[string]float64 {
	c := p.coeffs[target]
	out := make(map[string]float64, len(c))
	for i, m := range p.basis {
		out[m.Key()] = c[i]
	}

	return out
}

// Mean returns c_0.
func (p *PCE) Mean(target string) float64 {
	return p.Coefficient(target, indexset.Zero(len(p.features)))
}

// Variance returns Σ_{j≠0} c_j².
func (p *PCE) Variance(target string) float64 {
	v := 0.0
	for i, m := range p.basis {
		if m.IsZero() {
			continue
		}
		c := p.coeffs[target][i]
		v += c * c
	}

	return v
}

// Evaluate computes every target at p.
//
// Errors: sampler.ErrDimensionMismatch when len(x) != len(Features()).
//
// Complexity: O(d*maxDeg + |basis|*d*|targets|).
func (p *PCE) Evaluate(x sampler.Point) (map[string]float64, error) {
	if len(x) != len(p.features) {
		return nil, sampler.Dimf("rom: point has %d coordinates, surrogate has %d features", len(x), len(p.features))
	}
	phis := p.univariate(x)
	out := make(map[string]float64, len(p.targets))
	for i, m := range p.basis {
		phi := 1.0
		for k, deg := range m {
			phi *= phis[k][deg]
		}
		for _, t := range p.targets {
			out[t] += p.coeffs[t][i] * phi
		}
	}

	return out, nil
}

// univariate tabulates Φ_0..Φ_maxdeg per axis at x.
func (p *PCE) univariate(x sampler.Point) [][]float64 {
	maxDeg := make([]int, len(p.features))
	for _, m := range p.basis {
		for k, v := range m {
			if v > maxDeg[k] {
				maxDeg[k] = v
			}
		}
	}

	return tabulate(p.rules, maxDeg, x)
}

func tabulate(rules []*quadrature.Rule, maxDeg []int, x sampler.Point) [][]float64 {
	out := make([][]float64, len(rules))
	for k, r := range rules {
		out[k] = Orthonormal(r.Basis(), maxDeg[k], r.Standardize(x[k]))
	}

	return out
}

// SobolIndices returns first-order and total Sobol indices per feature,
// computed from the coefficients. Both are zero when the variance is zero.
func (p *PCE) SobolIndices(target string) (first, total []float64) {
	d := len(p.features)
	first = make([]float64, d)
	total = make([]float64, d)
	v := p.Variance(target)
	if v == 0 {
		return first, total
	}
	for i, m := range p.basis {
		if m.IsZero() {
			continue
		}
		c2 := p.coeffs[target][i] * p.coeffs[target][i]
		active, only := 0, -1
		for k, deg := range m {
			if deg > 0 {
				active++
				only = k
				total[k] += c2
			}
		}
		if active == 1 {
			first[only] += c2
		}
	}
	for k := range first {
		first[k] /= v
		total[k] /= v
	}

	return first, total
}

// Term is one weighted summand of Sum.
type Term struct {
	Weight    float64
	Surrogate *PCE
}

// Sum embeds each term into (features, rules) by feature name and returns the
// weighted sum Σ w_t · term_t as one expansion over the union of the bases.
// With no terms the result is the zero function.
//
// Errors: ErrFeature (a term feature not in features), ErrMissingTarget,
// sampler.ErrDimensionMismatch (len(rules) != len(features)).
//
// Complexity: O(Σ |basis_t| * (d + |targets|)).
func Sum(features []string, rules []*quadrature.Rule, targets []string, terms ...Term) (*PCE, error) {
	axis := make(map[string]int, len(features))
	for k, f := range features {
		axis[f] = k
	}
	zero := indexset.Zero(len(features))
	basis := []indexset.MultiIndex{zero}
	pos := map[string]int{zero.Key(): 0}
	acc := make(map[string][]float64, len(targets))
	for _, t := range targets {
		acc[t] = []float64{0}
	}

	for _, term := range terms {
		axes := make([]int, len(term.Surrogate.features))
		for i, f := range term.Surrogate.features {
			k, ok := axis[f]
			if !ok {
				return nil, fmt.Errorf("%w: %q", ErrFeature, f)
			}
			axes[i] = k
		}
		for _, t := range targets {
			if _, ok := term.Surrogate.coeffs[t]; !ok {
				return nil, fmt.Errorf("%w: %q", ErrMissingTarget, t)
			}
		}
		for i, m := range term.Surrogate.basis {
			full := m.Embed(len(features), axes)
			j, ok := pos[full.Key()]
			if !ok {
				j = len(basis)
				pos[full.Key()] = j
				basis = append(basis, full)
				for _, t := range targets {
					acc[t] = append(acc[t], 0)
				}
			}
			for _, t := range targets {
				acc[t][j] += term.Weight * term.Surrogate.coeffs[t][i]
			}
		}
	}

	return NewPCE(features, rules, targets, basis, acc)
}
