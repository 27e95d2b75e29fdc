// SPDX-License-Identifier: MIT

// Package dist provides the one-dimensional probability distributions the
// sampling engine binds to its variables.
//
// The engine only needs the collaborator surface below (pdf, cdf, inverse cdf,
// bounds, untruncated mean, dimensionality). Implementations here delegate the
// numerics to gonum's stat/distuv and add naming, bounds and validation.
//
// Supported kinds and their natural quadrature/polynomial families:
//
//	Uniform   -> Gauss–Legendre  / Legendre polynomials
//	Normal    -> Gauss–Hermite   / probabilists' Hermite polynomials
//	LogNormal -> CDF-Legendre    / Legendre polynomials in CDF space
//	Beta      -> CDF-Legendre    / Legendre polynomials in CDF space
package dist

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/katalvlaran/lvlsample/sampler"
)

// Kind labels a distribution family.
type Kind string

// Distribution kinds.
const (
	KindUniform   Kind = "uniform"
	KindNormal    Kind = "normal"
	KindLogNormal Kind = "lognormal"
	KindBeta      Kind = "beta"
)

// ErrInvalidParameter is returned when a distribution parameter is invalid.
var ErrInvalidParameter = fmt.Errorf("%w: dist: invalid distribution parameter", sampler.ErrConfiguration)

// Distribution is the collaborator contract of a one-dimensional distribution.
type Distribution interface {
	Name() string
	Kind() Kind
	Prob(x float64) float64
	CDF(x float64) float64
	Quantile(q float64) float64
	LowerBound() float64 // -Inf when unbounded below
	UpperBound() float64 // +Inf when unbounded above
	Bounded() bool
	UntruncatedMean() float64
	Dimensionality() int
}

// gonumDist is the subset of distuv behaviour wrapped here.
type gonumDist interface {
	Prob(x float64) float64
	CDF(x float64) float64
	Quantile(p float64) float64
	Mean() float64
}

// univariate adapts a distuv distribution (optionally affinely scaled) to
// Distribution.
type univariate struct {
	name   string
	kind   Kind
	d      gonumDist
	lo, hi float64 // support bounds in the user's units
	shift  float64 // x = shift + scale*y, y in gonum units
	scale  float64
}

var _ Distribution = (*univariate)(nil)

func (u *univariate) Name() string        { return u.name }
func (u *univariate) Kind() Kind          { return u.kind }
func (u *univariate) LowerBound() float64 { return u.lo }
func (u *univariate) UpperBound() float64 { return u.hi }
func (u *univariate) Dimensionality() int { return 1 }

func (u *univariate) Bounded() bool {
	return !math.IsInf(u.lo, 0) && !math.IsInf(u.hi, 0)
}

func (u *univariate) Prob(x float64) float64 {
	return u.d.Prob((x-u.shift)/u.scale) / u.scale
}

func (u *univariate) CDF(x float64) float64 {
	return u.d.CDF((x - u.shift) / u.scale)
}

// Quantile returns the inverse CDF; q is clamped into [0,1].
func (u *univariate) Quantile(q float64) float64 {
	switch {
	case q <= 0:
		return u.lo
	case q >= 1:
		return u.hi
	}

	return u.shift + u.scale*u.d.Quantile(q)
}

func (u *univariate) UntruncatedMean() float64 {
	return u.shift + u.scale*u.d.Mean()
}

func (u *univariate) String() string {
	return fmt.Sprintf("%s(%s)", u.kind, u.name)
}

// NewUniform returns Uniform(low, high).
func NewUniform(name string, low, high float64) (Distribution, error) {
	if !finite(low, high) || low >= high {
		return nil, fmt.Errorf("%w: uniform %q needs finite low < high, got [%g, %g]", ErrInvalidParameter, name, low, high)
	}

	return &univariate{
		name: name, kind: KindUniform,
		d:  distuv.Uniform{Min: low, Max: high},
		lo: low, hi: high, shift: 0, scale: 1,
	}, nil
}

// NewNormal returns Normal(mu, sigma), unbounded.
func NewNormal(name string, mu, sigma float64) (Distribution, error) {
	if !finite(mu, sigma) || sigma <= 0 {
		return nil, fmt.Errorf("%w: normal %q needs finite mu and sigma > 0, got (%g, %g)", ErrInvalidParameter, name, mu, sigma)
	}

	return &univariate{
		name: name, kind: KindNormal,
		d:  distuv.Normal{Mu: mu, Sigma: sigma},
		lo: math.Inf(-1), hi: math.Inf(1), shift: 0, scale: 1,
	}, nil
}

// NewLogNormal returns LogNormal(mu, sigma) on (0, +Inf).
func NewLogNormal(name string, mu, sigma float64) (Distribution, error) {
	if !finite(mu, sigma) || sigma <= 0 {
		return nil, fmt.Errorf("%w: lognormal %q needs finite mu and sigma > 0, got (%g, %g)", ErrInvalidParameter, name, mu, sigma)
	}

	return &univariate{
		name: name, kind: KindLogNormal,
		d:  distuv.LogNormal{Mu: mu, Sigma: sigma},
		lo: 0, hi: math.Inf(1), shift: 0, scale: 1,
	}, nil
}

// NewBeta returns Beta(alpha, beta) rescaled onto [low, high].
func NewBeta(name string, alpha, beta, low, high float64) (Distribution, error) {
	if !finite(alpha, beta, low, high) || alpha <= 0 || beta <= 0 || low >= high {
		return nil, fmt.Errorf("%w: beta %q needs alpha, beta > 0 and low < high", ErrInvalidParameter, name)
	}

	return &univariate{
		name: name, kind: KindBeta,
		d:  distuv.Beta{Alpha: alpha, Beta: beta},
		lo: low, hi: high, shift: low, scale: high - low,
	}, nil
}

// Sample draws one value from d by inversion using r.
func Sample(d Distribution, r *rand.Rand) float64 {
	u := r.Float64()
	for u == 0 {
		u = r.Float64()
	}

	return d.Quantile(u)
}

func finite(xs ...float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}

	return true
}
