// SPDX-License-Identifier: MIT

// Package space binds sampled variable names to distributions (or to
// deterministic functions of the sampled values) and fixes the feature order
// every grid, point and surrogate in the engine uses.
//
// Invariant: a variable name is bound to exactly one distribution OR exactly
// one function, never both. Violations are reported as sampler.ErrConfiguration
// at binding time, before any sampling starts.
package space

import (
	"fmt"
	"sort"

	"github.com/katalvlaran/lvlsample/dist"
	"github.com/katalvlaran/lvlsample/sampler"
)

// Func computes a dependent variable from the sampled ones.
type Func func(sampled map[string]float64) float64

// Space is the ordered variable space.
// The zero value is not usable; call New.
type Space struct {
	features []string
	dists    map[string]dist.Distribution
	funcs    map[string]Func
	fnames   []string
}

// New returns an empty variable space.
func New() *Space {
	return &Space{
		dists: make(map[string]dist.Distribution),
		funcs: make(map[string]Func),
	}
}

// Bind adds a sampled variable with distribution d. Features keep insertion order.
func (s *Space) Bind(name string, d dist.Distribution) error {
	if name == "" || d == nil {
		return sampler.Configf("space: variable needs a name and a distribution")
	}
	if err := s.free(name); err != nil {
		return err
	}
	if d.Dimensionality() != 1 {
		return sampler.Configf("space: variable %q: only one-dimensional distributions are supported, got %d", name, d.Dimensionality())
	}
	s.dists[name] = d
	s.features = append(s.features, name)

	return nil
}

// BindFunc adds a dependent variable computed by f after sampling.
func (s *Space) BindFunc(name string, f Func) error {
	if name == "" || f == nil {
		return sampler.Configf("space: function variable needs a name and a function")
	}
	if err := s.free(name); err != nil {
		return err
	}
	s.funcs[name] = f
	s.fnames = append(s.fnames, name)

	return nil
}

func (s *Space) free(name string) error {
	_, hasDist := s.dists[name]
	_, hasFunc := s.funcs[name]
	if hasDist || hasFunc {
		return sampler.Configf("space: variable %q already bound; a variable has exactly one distribution or one function", name)
	}

	return nil
}

// Features returns the sampled variable names in feature order.
func (s *Space) Features() []string {
	out := make([]string, len(s.features))
	copy(out, s.features)

	return out
}

// Dim returns the number of sampled variables.
func (s *Space) Dim() int { return len(s.features) }

// Distribution returns the distribution bound to name.
func (s *Space) Distribution(name string) (dist.Distribution, bool) {
	d, ok := s.dists[name]

	return d, ok
}

// Distributions returns the distributions in feature order.
func (s *Space) Distributions() []dist.Distribution {
	out := make([]dist.Distribution, len(s.features))
	for i, f := range s.features {
		out[i] = s.dists[f]
	}

	return out
}

// Index returns the feature position of name, or -1.
func (s *Space) Index(name string) int {
	for i, f := range s.features {
		if f == name {
			return i
		}
	}

	return -1
}

// Reference returns the reference point: every distribution's untruncated mean.
func (s *Space) Reference() sampler.Point {
	p := make(sampler.Point, len(s.features))
	for i, f := range s.features {
		p[i] = s.dists[f].UntruncatedMean()
	}

	return p
}

// Validate checks the space is usable and, when targets are given, that no
// target name collides with an input variable.
func (s *Space) Validate(targets ...string) error {
	if len(s.features) == 0 {
		return sampler.Configf("space: no sampled variables")
	}
	for _, t := range targets {
		if _, ok := s.dists[t]; ok {
			return sampler.Configf("space: target %q is also a sampled variable", t)
		}
		if _, ok := s.funcs[t]; ok {
			return sampler.Configf("space: target %q is also a function variable", t)
		}
	}

	return nil
}

// Vars maps a full-dimensional point to the model's sampled-variable payload:
// values (including dependent functions), per-variable pdf values and their
// product.
func (s *Space) Vars(p sampler.Point) (vars, pbs map[string]float64, prob float64, err error) {
	if len(p) != len(s.features) {
		return nil, nil, 0, sampler.Dimf("space: point has %d coordinates, space has %d features", len(p), len(s.features))
	}
	vars = make(map[string]float64, len(s.features)+len(s.funcs))
	pbs = make(map[string]float64, len(s.features))
	prob = 1
	for i, f := range s.features {
		vars[f] = p[i]
		pb := s.dists[f].Prob(p[i])
		pbs[f] = pb
		prob *= pb
	}
	for _, name := range s.fnames {
		vars[name] = s.funcs[name](vars)
	}

	return vars, pbs, prob, nil
}

// String lists the bindings deterministically.
func (s *Space) String() string {
	names := make([]string, 0, len(s.fnames))
	names = append(names, s.fnames...)
	sort.Strings(names)

	return fmt.Sprintf("space{features=%v functions=%v}", s.features, names)
}
