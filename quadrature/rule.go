// SPDX-License-Identifier: MIT

package quadrature

import (
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/integrate/quad"

	"github.com/katalvlaran/lvlsample/dist"
)

// Family names a quadrature family.
type Family string

// Quadrature families.
const (
	Legendre       Family = "Legendre"
	Hermite        Family = "Hermite"
	CDF            Family = "CDF"
	ClenshawCurtis Family = "ClenshawCurtis"
)

// Basis names the orthonormal polynomial family paired with a rule.
type Basis string

// Polynomial families.
const (
	BasisLegendre Basis = "Legendre" // orthonormal on Uniform(-1, 1)
	BasisHermite  Basis = "Hermite"  // probabilists', orthonormal on Normal(0, 1)
)

// MaxPoints bounds the node count of a single one-dimensional level.
const MaxPoints = 1 << 14

// zeroSnap collapses node rounding noise around the symmetry centre.
const zeroSnap = 1e-15

// Rule is a quadrature family bound to one distribution.
// Rules cache their nodes per level and are safe for concurrent use.
type Rule struct {
	family Family
	d      dist.Distribution

	mu    sync.Mutex
	cache map[int]nodes
}

type nodes struct{ x, w []float64 }

// New binds family to d.
//
// Compatibility:
//   - Legendre requires a Uniform distribution;
//   - Hermite requires a Normal distribution;
//   - CDF accepts any one-dimensional distribution;
//   - ClenshawCurtis requires bounded support (its end nodes sit on the bounds).
//
// Errors: ErrFamily.
func New(family Family, d dist.Distribution) (*Rule, error) {
	if d == nil {
		return nil, fmt.Errorf("%w: nil distribution", ErrFamily)
	}
	ok := false
	switch family {
	case Legendre:
		ok = d.Kind() == dist.KindUniform
	case Hermite:
		ok = d.Kind() == dist.KindNormal
	case CDF:
		ok = true
	case ClenshawCurtis:
		ok = d.Bounded()
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s on %s %q", ErrFamily, family, d.Kind(), d.Name())
	}

	return &Rule{family: family, d: d, cache: make(map[int]nodes)}, nil
}

// Default returns the natural Gauss rule of d: Legendre for Uniform, Hermite
// for Normal, CDF-space Legendre otherwise.
func Default(d dist.Distribution) *Rule {
	family := CDF
	switch d.Kind() {
	case dist.KindUniform:
		family = Legendre
	case dist.KindNormal:
		family = Hermite
	}

	return &Rule{family: family, d: d, cache: make(map[int]nodes)}
}

// Family returns the rule's family.
func (r *Rule) Family() Family { return r.family }

// Distribution returns the bound distribution.
func (r *Rule) Distribution() dist.Distribution { return r.d }

// Basis returns the orthonormal polynomial family matching the rule's measure.
func (r *Rule) Basis() Basis {
	if r.family == Hermite {
		return BasisHermite
	}

	return BasisLegendre
}

// Standardize maps x from the variable's units into the standard variable of
// Basis: (x-mu)/sigma for Hermite, [low,high] -> [-1,1] for Legendre and
// 2*CDF(x)-1 for the CDF-space families.
func (r *Rule) Standardize(x float64) float64 {
	switch r.family {
	case Legendre:
		lo, hi := r.d.LowerBound(), r.d.UpperBound()
		return 2*(x-lo)/(hi-lo) - 1
	case Hermite:
		mu := r.d.UntruncatedMean()
		sigma := r.d.Quantile(normalOneSigma) - mu
		return (x - mu) / sigma
	default:
		return 2*r.d.CDF(x) - 1
	}
}

// normalOneSigma is Phi(1), the CDF of the standard normal at one sigma.
var normalOneSigma = 0.5 * math.Erfc(-1/math.Sqrt2)

// Size returns the node count of level: level+1 for Gauss families; 1 at
// level 0 and 2^level+1 otherwise for Clenshaw–Curtis.
func (r *Rule) Size(level int) int { return size(r.family, level) }

func size(family Family, level int) int {
	if family != ClenshawCurtis {
		return level + 1
	}
	if level == 0 {
		return 1
	}
	if level >= 30 {
		return math.MaxInt32
	}

	return 1<<level + 1
}

// Nodes returns the ascending nodes (variable units) and probability weights of level.
//
// Errors: ErrLevel for level < 0 or Size(level) > MaxPoints.
//
// Complexity: O(n^2) the first time a level is requested, O(n) afterwards.
func (r *Rule) Nodes(level int) (x, w []float64, err error) {
	if level < 0 || r.Size(level) > MaxPoints {
		return nil, nil, fmt.Errorf("%w: %s level %d", ErrLevel, r.family, level)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cache[level]
	if !ok {
		c = r.compute(r.Size(level))
		r.cache[level] = c
	}

	return append([]float64(nil), c.x...), append([]float64(nil), c.w...), nil
}

func (r *Rule) compute(n int) nodes {
	x := make([]float64, n)
	w := make([]float64, n)
	switch r.family {
	case Legendre:
		lo, hi := r.d.LowerBound(), r.d.UpperBound()
		quad.Legendre{}.FixedLocations(x, w, lo, hi)
		scale(w, 1/(hi-lo))
	case Hermite:
		quad.Hermite{}.FixedLocations(x, w, math.Inf(-1), math.Inf(1))
		mu := r.d.UntruncatedMean()
		sigma := r.d.Quantile(normalOneSigma) - mu
		for i := range x {
			x[i] = mu + sigma*math.Sqrt2*snap(x[i])
		}
		scale(w, 1/math.SqrtPi)
	case CDF:
		quad.Legendre{}.FixedLocations(x, w, 0, 1)
		r.quantiles(x)
	case ClenshawCurtis:
		clenshawCurtis(x, w)
		for i := range x {
			x[i] = (x[i] + 1) / 2
		}
		scale(w, 0.5)
		r.quantiles(x)
	}
	sortNodes(x, w)

	return nodes{x: x, w: w}
}

// quantiles maps CDF-space nodes u in [0,1] to variable units in place.
func (r *Rule) quantiles(u []float64) {
	for i, v := range u {
		u[i] = r.d.Quantile(v)
	}
}

func scale(w []float64, f float64) {
	for i := range w {
		w[i] *= f
	}
}

func snap(v float64) float64 {
	if math.Abs(v) < zeroSnap {
		return 0
	}

	return v
}

// sortNodes orders (x, w) pairs by ascending x with an insertion sort; n is small.
func sortNodes(x, w []float64) {
	for i := 1; i < len(x); i++ {
		for j := i; j > 0 && x[j] < x[j-1]; j-- {
			x[j], x[j-1] = x[j-1], x[j]
			w[j], w[j-1] = w[j-1], w[j]
		}
	}
}
