package dist_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/lvlsample/dist"
	"github.com/katalvlaran/lvlsample/rng"
	"github.com/katalvlaran/lvlsample/sampler"
)

// TestUniform_Surface checks pdf/cdf/ppf/bounds/mean of Uniform(2, 6).
func TestUniform_Surface(t *testing.T) {
	u, err := dist.NewUniform("x", 2, 6)
	require.NoError(t, err)

	assert.Equal(t, dist.KindUniform, u.Kind())
	assert.InDelta(t, 0.25, u.Prob(3), 1e-12)
	assert.InDelta(t, 0.5, u.CDF(4), 1e-12)
	assert.InDelta(t, 5.0, u.Quantile(0.75), 1e-12)
	assert.InDelta(t, 4.0, u.UntruncatedMean(), 1e-12)
	assert.True(t, u.Bounded())
	assert.Equal(t, 1, u.Dimensionality())
	assert.Equal(t, 2.0, u.Quantile(0))
	assert.Equal(t, 6.0, u.Quantile(1))
}

// TestNormal_Unbounded checks the unbounded sentinel and symmetry.
func TestNormal_Unbounded(t *testing.T) {
	n, err := dist.NewNormal("y", 1, 2)
	require.NoError(t, err)

	assert.False(t, n.Bounded())
	assert.True(t, math.IsInf(n.LowerBound(), -1))
	assert.True(t, math.IsInf(n.UpperBound(), 1))
	assert.InDelta(t, 0.5, n.CDF(1), 1e-12)
	assert.InDelta(t, 1.0, n.Quantile(0.5), 1e-9)
	assert.InDelta(t, 1/(2*math.Sqrt(2*math.Pi)), n.Prob(1), 1e-12)
}

// TestBeta_Rescaled checks the affine rescaling of Beta onto [low, high].
func TestBeta_Rescaled(t *testing.T) {
	b, err := dist.NewBeta("z", 2, 2, 10, 20)
	require.NoError(t, err)

	assert.InDelta(t, 15.0, b.UntruncatedMean(), 1e-12)
	assert.InDelta(t, 0.5, b.CDF(15), 1e-9)
	assert.InDelta(t, 15.0, b.Quantile(0.5), 1e-9)
	// pdf integrates to one: Beta(2,2) density 6y(1-y) scaled by 1/10.
	assert.InDelta(t, 0.15, b.Prob(15), 1e-12)
}

// TestConstructors_RejectBadParameters verifies the ErrConfiguration class.
func TestConstructors_RejectBadParameters(t *testing.T) {
	_, err := dist.NewUniform("x", 1, 1)
	assert.ErrorIs(t, err, dist.ErrInvalidParameter)
	assert.True(t, errors.Is(err, sampler.ErrConfiguration))

	_, err = dist.NewNormal("x", 0, 0)
	assert.ErrorIs(t, err, sampler.ErrConfiguration)

	_, err = dist.NewLogNormal("x", math.NaN(), 1)
	assert.ErrorIs(t, err, sampler.ErrConfiguration)

	_, err = dist.NewBeta("x", -1, 1, 0, 1)
	assert.ErrorIs(t, err, sampler.ErrConfiguration)
}

// TestSample_InSupport draws from a lognormal and checks the support.
func TestSample_InSupport(t *testing.T) {
	ln, err := dist.NewLogNormal("w", 0, 0.5)
	require.NoError(t, err)

	r := rng.New(11)
	for i := 0; i < 200; i++ {
		assert.Greater(t, dist.Sample(ln, r), 0.0)
	}
}
