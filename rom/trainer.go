// SPDX-License-Identifier: MIT

package rom

import (
	"errors"
	"fmt"

	"github.com/katalvlaran/lvlsample/indexset"
	"github.com/katalvlaran/lvlsample/matrix"
	"github.com/katalvlaran/lvlsample/sampler"
	"github.com/katalvlaran/lvlsample/sparsegrid"
)

// Lookup returns the model outputs recorded for a grid point.
type Lookup interface {
	Values(p sampler.Point) (map[string]float64, bool)
}

// LookupFunc adapts a function to Lookup.
type LookupFunc func(p sampler.Point) (map[string]float64, bool)

// Values implements Lookup.
func (f LookupFunc) Values(p sampler.Point) (map[string]float64, bool) { return f(p) }

// Trainer fits a PCE whose basis is the given downward-closed index set, using
// model outputs at the builder's grid points.
type Trainer interface {
	Train(b *sparsegrid.Builder, indices []indexset.MultiIndex, targets []string, values Lookup) (*PCE, error)
}

// Trainer kinds accepted by NewTrainer.
const (
	KindProjection = "projection"
	KindRegression = "regression"
)

// NewTrainer returns the trainer of the given kind ("" selects projection).
//
// Errors: ErrUnknownTrainer.
func NewTrainer(kind string) (Trainer, error) {
	switch kind {
	case "", KindProjection:
		return Projection{}, nil
	case KindRegression:
		return Regression{}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownTrainer, kind)
}

// Projection is the sparse pseudo-spectral trainer.
type Projection struct{}

// Train projects f onto the basis.
//
// Implementation:
//   - Stage 1: compute the Smolyak terms (i, c_i) of the set.
//   - Stage 2: for every term, integrate f·Φ_j on the tensor grid of i for the
//     basis functions j <= i (componentwise), which that grid resolves exactly.
//   - Stage 3: accumulate c_i times those tensor projections.
//
// Polynomials inside the span of the basis are reproduced exactly.
//
// Errors: ErrMissingValue, ErrMissingTarget, grid construction errors.
//
// Complexity: O(Σ_i |grid_i| * |{j <= i}| * d).
func (Projection) Train(b *sparsegrid.Builder, indices []indexset.MultiIndex, targets []string, values Lookup) (*PCE, error) {
	basis := uniqueSorted(indices)
	rules := b.Rules()
	coeffs := make(map[string][]float64, len(targets))
	for _, t := range targets {
		coeffs[t] = make([]float64, len(basis))
	}

	for _, term := range sparsegrid.CombinationCoefficients(basis) {
		grid, err := b.Tensor(term.Index)
		if err != nil {
			return nil, err
		}
		var below []int
		for j, m := range basis {
			if dominated(m, term.Index) {
				below = append(below, j)
			}
		}
		for _, n := range grid.Nodes() {
			f, err := lookupTargets(values, n.Point, targets)
			if err != nil {
				return nil, err
			}
			phis := tabulate(rules, term.Index, n.Point)
			for _, j := range below {
				phi := 1.0
				for k, deg := range basis[j] {
					phi *= phis[k][deg]
				}
				scale := float64(term.Coeff) * n.Weight * phi
				for t, ft := range f {
					coeffs[targets[t]][j] += scale * ft
				}
			}
		}
	}

	return NewPCE(b.Features(), rules, targets, basis, coeffs)
}

// Regression is the least-squares trainer.
type Regression struct{}

// Train fits the basis to the outputs on the sparse grid of the set by
// unweighted least squares.
//
// Errors: ErrIllPosed (fewer points than basis terms, or rank deficient),
// ErrMissingValue, ErrMissingTarget.
//
// Complexity: O(n_pts * |basis|^2) per target.
func (Regression) Train(b *sparsegrid.Builder, indices []indexset.MultiIndex, targets []string, values Lookup) (*PCE, error) {
	basis := uniqueSorted(indices)
	grid, err := b.Build(basis, nil)
	if err != nil {
		return nil, err
	}
	if grid.Len() < len(basis) {
		return nil, fmt.Errorf("%w: %d points for %d basis terms", ErrIllPosed, grid.Len(), len(basis))
	}
	rules := b.Rules()
	maxDeg := make([]int, len(rules))
	for _, m := range basis {
		for k, v := range m {
			maxDeg[k] = max(maxDeg[k], v)
		}
	}

	design, err := matrix.NewDense(grid.Len(), len(basis))
	if err != nil {
		return nil, err
	}
	rhs := make([][]float64, len(targets))
	for t := range rhs {
		rhs[t] = make([]float64, grid.Len())
	}
	for r, p := range grid.Points() {
		f, err := lookupTargets(values, p, targets)
		if err != nil {
			return nil, err
		}
		for t := range targets {
			rhs[t][r] = f[t]
		}
		phis := tabulate(rules, maxDeg, p)
		for j, m := range basis {
			phi := 1.0
			for k, deg := range m {
				phi *= phis[k][deg]
			}
			if err = design.Set(r, j, phi); err != nil {
				return nil, err
			}
		}
	}

	coeffs := make(map[string][]float64, len(targets))
	for t, name := range targets {
		c, err := matrix.LeastSquares(design, rhs[t])
		if errors.Is(err, matrix.ErrSingular) {
			return nil, fmt.Errorf("%w: target %q: %v", ErrIllPosed, name, err)
		}
		if err != nil {
			return nil, err
		}
		coeffs[name] = c
	}

	return NewPCE(b.Features(), rules, targets, basis, coeffs)
}

func lookupTargets(values Lookup, p sampler.Point, targets []string) ([]float64, error) {
	v, ok := values.Values(p)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingValue, p.Key())
	}
	out := make([]float64, len(targets))
	for i, t := range targets {
		x, ok := v[t]
		if !ok {
			return nil, fmt.Errorf("%w: %q at %s", ErrMissingTarget, t, p.Key())
		}
		out[i] = x
	}

	return out, nil
}

func uniqueSorted(indices []indexset.MultiIndex) []indexset.MultiIndex {
	seen := make(map[string]struct{}, len(indices))
	out := make([]indexset.MultiIndex, 0, len(indices))
	for _, m := range indices {
		if _, dup := seen[m.Key()]; dup {
			continue
		}
		seen[m.Key()] = struct{}{}
		out = append(out, m.Clone())
	}
	indexset.Sort(out)

	return out
}

// dominated reports j <= i componentwise.
func dominated(j, i indexset.MultiIndex) bool {
	for k := range j {
		if j[k] > i[k] {
			return false
		}
	}

	return true
}
