package quadrature_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/lvlsample/dist"
	"github.com/katalvlaran/lvlsample/quadrature"
	"github.com/katalvlaran/lvlsample/sampler"
)

const tol = 1e-10

func expect(x, w []float64, f func(float64) float64) float64 {
	s := 0.0
	for i := range x {
		s += w[i] * f(x[i])
	}

	return s
}

func sum(w []float64) float64 {
	s := 0.0
	for _, v := range w {
		s += v
	}

	return s
}

// TestLegendre_Uniform verifies exactness up to degree 2n-1 and unit weight mass.
func TestLegendre_Uniform(t *testing.T) {
	d, err := dist.NewUniform("x", 0, 1)
	require.NoError(t, err)
	r, err := quadrature.New(quadrature.Legendre, d)
	require.NoError(t, err)

	x, w, err := r.Nodes(2)
	require.NoError(t, err)
	require.Len(t, x, 3)
	assert.InDelta(t, 1.0, sum(w), tol)
	assert.InDelta(t, 0.2, expect(x, w, func(v float64) float64 { return math.Pow(v, 4) }), tol)
	assert.InDelta(t, 0.5, x[1], tol)
	assert.Equal(t, quadrature.BasisLegendre, r.Basis())
	assert.InDelta(t, -1.0, r.Standardize(0), tol)
	assert.InDelta(t, 1.0, r.Standardize(1), tol)
}

// TestHermite_Normal verifies the second moment of N(1, 2^2).
func TestHermite_Normal(t *testing.T) {
	d, err := dist.NewNormal("y", 1, 2)
	require.NoError(t, err)
	r := quadrature.Default(d)
	require.Equal(t, quadrature.Hermite, r.Family())

	x, w, err := r.Nodes(2)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, sum(w), 1e-9)
	assert.InDelta(t, 1.0, expect(x, w, func(v float64) float64 { return v }), 1e-9)
	assert.InDelta(t, 5.0, expect(x, w, func(v float64) float64 { return v * v }), 1e-8)
	assert.Equal(t, quadrature.BasisHermite, r.Basis())
	assert.InDelta(t, 0.5, r.Standardize(2), 1e-9)
}

// TestClenshawCurtis verifies Simpson weights at level 1 and nesting.
func TestClenshawCurtis(t *testing.T) {
	d, err := dist.NewUniform("x", -1, 1)
	require.NoError(t, err)
	r, err := quadrature.New(quadrature.ClenshawCurtis, d)
	require.NoError(t, err)

	assert.Equal(t, 1, r.Size(0))
	assert.Equal(t, 3, r.Size(1))
	assert.Equal(t, 5, r.Size(2))

	x0, w0, err := r.Nodes(0)
	require.NoError(t, err)
	assert.Equal(t, []float64{0}, x0)
	assert.Equal(t, []float64{1}, w0)

	x, w, err := r.Nodes(1)
	require.NoError(t, err)
	require.Len(t, x, 3)
	assert.InDeltaSlice(t, []float64{-1, 0, 1}, x, tol)
	assert.InDeltaSlice(t, []float64{1.0 / 6, 2.0 / 3, 1.0 / 6}, w, tol)

	x2, w2, err := r.Nodes(2)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, sum(w2), tol)
	for _, v := range x {
		found := false
		for _, u := range x2 {
			found = found || math.Abs(u-v) < tol
		}
		assert.True(t, found, "level 1 node %g missing from level 2", v)
	}
}

// TestCDF_Beta checks the CDF-space rule converges to the Beta mean.
func TestCDF_Beta(t *testing.T) {
	d, err := dist.NewBeta("b", 2, 5, 0, 1)
	require.NoError(t, err)
	r := quadrature.Default(d)
	require.Equal(t, quadrature.CDF, r.Family())

	x, w, err := r.Nodes(8)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, sum(w), tol)
	assert.InDelta(t, 2.0/7.0, expect(x, w, func(v float64) float64 { return v }), 1e-3)
	for i := 1; i < len(x); i++ {
		assert.Less(t, x[i-1], x[i])
	}
}

// TestNew_Errors covers family/distribution mismatches and bad levels.
func TestNew_Errors(t *testing.T) {
	u, err := dist.NewUniform("u", 0, 1)
	require.NoError(t, err)
	ln, err := dist.NewLogNormal("l", 0, 1)
	require.NoError(t, err)

	_, err = quadrature.New(quadrature.Hermite, u)
	assert.ErrorIs(t, err, quadrature.ErrFamily)
	_, err = quadrature.New(quadrature.ClenshawCurtis, ln)
	assert.ErrorIs(t, err, sampler.ErrConfiguration)
	_, err = quadrature.New("Simpson", u)
	assert.ErrorIs(t, err, quadrature.ErrFamily)

	r := quadrature.Default(u)
	_, _, err = r.Nodes(-1)
	assert.ErrorIs(t, err, quadrature.ErrLevel)
}
