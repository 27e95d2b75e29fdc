package sobol_test

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/lvlsample/sampler"
	"github.com/katalvlaran/lvlsample/sobol"
)

func TestSubset_Basics(t *testing.T) {
	s, err := sobol.NewSubset(4, 0, 2)
	require.NoError(t, err)

	assert.Equal(t, "{0,2}", s.Key())
	assert.Equal(t, "{}", sobol.Subset{}.Key())
	assert.Equal(t, []string{"a", "c"}, s.Names([]string{"a", "b", "c", "d"}))
	assert.True(t, s.Contains(2))
	assert.False(t, s.Contains(1))
	assert.Equal(t, sobol.Subset{0, 1, 2}, s.With(1))
	assert.Equal(t, sobol.Subset{0, 2}, s.With(2))
	assert.Equal(t, []sobol.Subset{{2}, {0}}, s.Parents())
	assert.True(t, sobol.Subset{2}.Within(s))
	assert.True(t, sobol.Subset{}.Within(s))
	assert.False(t, sobol.Subset{1}.Within(s))

	for _, bad := range [][]int{{2, 0}, {1, 1}, {-1}, {4}} {
		_, err = sobol.NewSubset(4, bad...)
		assert.ErrorIs(t, err, sobol.ErrSubset, "%v", bad)
		assert.ErrorIs(t, err, sampler.ErrConfiguration)
	}
}

func TestCompare(t *testing.T) {
	subsets := []sobol.Subset{{1, 2}, {2}, {}, {0, 1}, {0}}
	slices.SortFunc(subsets, sobol.Compare)
	assert.Equal(t, []sobol.Subset{{}, {0}, {2}, {0, 1}, {1, 2}}, subsets)
}

func TestCutPlane(t *testing.T) {
	ref := sampler.Point{0.1, 0.2, 0.3}
	plane, err := sobol.NewCutPlane(sobol.Subset{0, 2}, ref)
	require.NoError(t, err)

	full, err := plane.Expand(sampler.Point{-1, 1})
	require.NoError(t, err)
	assert.Equal(t, sampler.Point{-1, 0.2, 1}, full)
	sub, err := plane.Extract(full)
	require.NoError(t, err)
	assert.Equal(t, sampler.Point{-1, 1}, sub)
	assert.True(t, plane.OnPlane(full))
	assert.False(t, plane.OnPlane(sampler.Point{-1, 0.5, 1}))
	assert.Equal(t, []int{0, 2}, plane.Axes())

	_, err = plane.Expand(sampler.Point{1})
	assert.ErrorIs(t, err, sampler.ErrDimensionMismatch)
	_, err = plane.Extract(sampler.Point{1, 2})
	assert.ErrorIs(t, err, sampler.ErrDimensionMismatch)

	_, err = sobol.NewCutPlane(sobol.Subset{3}, ref)
	assert.ErrorIs(t, err, sobol.ErrSubset)
}
