// SPDX-License-Identifier: MIT

package models

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/katalvlaran/lvlsample/dist"
	"github.com/katalvlaran/lvlsample/executor"
	"github.com/katalvlaran/lvlsample/sampler"
	"github.com/katalvlaran/lvlsample/space"
)

// Target is the output name every analytic model reports.
const Target = "f"

// Analytic is a model with a closed-form mean and variance over its natural
// input space.
type Analytic interface {
	executor.Model

	// Name returns the registry name.
	Name() string
	// Inputs returns the variable names read from SampledVars, in order.
	Inputs() []string
	// Space returns the input distributions the moments refer to.
	Space() (*space.Space, error)
	// Mean and Variance are the exact moments of Target.
	Mean() float64
	Variance() float64
}

// Ishigami is f = sin x1 + A sin² x2 + B x3⁴ sin x1 on U(-π, π)³.
type Ishigami struct{ A, B float64 }

var _ Analytic = Ishigami{}

// Name implements Analytic.
func (Ishigami) Name() string { return "ishigami" }

// Inputs implements Analytic.
func (Ishigami) Inputs() []string { return []string{"x1", "x2", "x3"} }

// Space implements Analytic.
func (m Ishigami) Space() (*space.Space, error) { return uniformSpace(m.Inputs(), -math.Pi, math.Pi) }

// Mean implements Analytic.
func (m Ishigami) Mean() float64 { return m.A / 2 }

// Variance implements Analytic.
func (m Ishigami) Variance() float64 {
	pi4 := math.Pow(math.Pi, 4)

	return m.A*m.A/8 + m.B*pi4/5 + m.B*m.B*pi4*pi4/18 + 0.5
}

// Evaluate implements executor.Model.
func (m Ishigami) Evaluate(_ context.Context, in sampler.Input) (sampler.Outputs, error) {
	x, err := inputs(in, m.Inputs())
	if err != nil {
		return sampler.Outputs{}, err
	}
	s1, s2 := math.Sin(x[0]), math.Sin(x[1])
	f := s1 + m.A*s2*s2 + m.B*math.Pow(x[2], 4)*s1

	return output(f), nil
}

// GFunction is Sobol's G-function Π (|4x_i - 2| + a_i)/(1 + a_i) on U(0,1)^d.
// Small a_i make x_i important.
type GFunction struct{ A []float64 }

var _ Analytic = GFunction{}

// Name implements Analytic.
func (GFunction) Name() string { return "gfunction" }

// Inputs implements Analytic.
func (m GFunction) Inputs() []string { return numbered(len(m.A)) }

// Space implements Analytic.
func (m GFunction) Space() (*space.Space, error) { return uniformSpace(m.Inputs(), 0, 1) }

// Mean implements Analytic.
func (GFunction) Mean() float64 { return 1 }

// Variance implements Analytic.
func (m GFunction) Variance() float64 {
	v := 1.0
	for _, a := range m.A {
		v *= 1 + 1/(3*(1+a)*(1+a))
	}

	return v - 1
}

// Evaluate implements executor.Model.
func (m GFunction) Evaluate(_ context.Context, in sampler.Input) (sampler.Outputs, error) {
	x, err := inputs(in, m.Inputs())
	if err != nil {
		return sampler.Outputs{}, err
	}
	f := 1.0
	for i, a := range m.A {
		f *= (math.Abs(4*x[i]-2) + a) / (1 + a)
	}

	return output(f), nil
}

// Product is f = Π (1 + x_i) on U(-1,1)^Dim. With Dim = 2 it is the
// bilinear 1 + x1 + x2 + x1·x2.
type Product struct{ Dim int }

var _ Analytic = Product{}

// Name implements Analytic.
func (Product) Name() string { return "product" }

// Inputs implements Analytic.
func (m Product) Inputs() []string { return numbered(m.Dim) }

// Space implements Analytic.
func (m Product) Space() (*space.Space, error) { return uniformSpace(m.Inputs(), -1, 1) }

// Mean implements Analytic.
func (Product) Mean() float64 { return 1 }

// Variance implements Analytic.
func (m Product) Variance() float64 { return math.Pow(4.0/3.0, float64(m.Dim)) - 1 }

// Evaluate implements executor.Model.
func (m Product) Evaluate(_ context.Context, in sampler.Input) (sampler.Outputs, error) {
	x, err := inputs(in, m.Inputs())
	if err != nil {
		return sampler.Outputs{}, err
	}
	f := 1.0
	for _, v := range x {
		f *= 1 + v
	}

	return output(f), nil
}

// gCoefficients are the customary G-function importances.
var gCoefficients = []float64{0, 1, 4.5, 9, 99, 99, 99, 99}

// Lookup builds a registered analytic model from named parameters:
//
//	ishigami   a (7), b (0.1)
//	gfunction  dim (4), a1..a<dim> (0, 1, 4.5, 9, then 99)
//	product    dim (2)
//
// Errors: ErrUnknownModel, ErrParam.
func Lookup(name string, params map[string]float64) (Analytic, error) {
	get := func(key string, def float64) float64 {
		if v, ok := params[key]; ok {
			return v
		}

		return def
	}
	dim := func(def int) (int, error) {
		d := get("dim", float64(def))
		if d < 1 || d != math.Trunc(d) {
			return 0, fmt.Errorf("%w: dim %v", ErrParam, d)
		}

		return int(d), nil
	}

	switch name {
	case "ishigami":
		return Ishigami{A: get("a", 7), B: get("b", 0.1)}, nil
	case "gfunction":
		d, err := dim(4)
		if err != nil {
			return nil, err
		}
		a := make([]float64, d)
		for i := range a {
			def := 99.0
			if i < len(gCoefficients) {
				def = gCoefficients[i]
			}
			if a[i] = get("a"+strconv.Itoa(i+1), def); a[i] < 0 {
				return nil, fmt.Errorf("%w: a%d = %v must be >= 0", ErrParam, i+1, a[i])
			}
		}
		return GFunction{A: a}, nil
	case "product":
		d, err := dim(2)
		if err != nil {
			return nil, err
		}
		return Product{Dim: d}, nil
	}

	return nil, fmt.Errorf("%w: %q (known: %v)", ErrUnknownModel, name, Names())
}

// Names lists the registered analytic models.
func Names() []string {
	return []string{"gfunction", "ishigami", "product"}
}

func numbered(d int) []string {
	out := make([]string, d)
	for i := range out {
		out[i] = "x" + strconv.Itoa(i+1)
	}

	return out
}

func uniformSpace(names []string, lo, hi float64) (*space.Space, error) {
	sp := space.New()
	for _, n := range names {
		d, err := dist.NewUniform(n, lo, hi)
		if err != nil {
			return nil, err
		}
		if err = sp.Bind(n, d); err != nil {
			return nil, err
		}
	}

	return sp, nil
}

func inputs(in sampler.Input, names []string) ([]float64, error) {
	x := make([]float64, len(names))
	for i, n := range names {
		v, ok := in.SampledVars[n]
		if !ok {
			return nil, fmt.Errorf("%w: %q in run %q", ErrMissingInput, n, in.Prefix)
		}
		x[i] = v
	}

	return x, nil
}

func output(f float64) sampler.Outputs {
	return sampler.Outputs{Values: map[string]float64{Target: f}}
}
