package indexset_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/lvlsample/indexset"
	"github.com/katalvlaran/lvlsample/sampler"
)

// TestMultiIndex_Basics covers key, order and neighbour helpers.
func TestMultiIndex_Basics(t *testing.T) {
	m := mi(2, 0, 1)
	assert.Equal(t, "(2,0,1)", m.Key())
	assert.Equal(t, 3, m.Order())
	assert.False(t, m.IsZero())
	assert.True(t, indexset.Zero(3).IsZero())
	assert.Equal(t, mi(0, 1, 0), indexset.Unit(3, 1))

	assert.Equal(t, []indexset.MultiIndex{mi(1, 0, 1), mi(2, 0, 0)}, m.Predecessors())
	assert.Equal(t, []indexset.MultiIndex{mi(3, 0, 1), mi(2, 1, 1), mi(2, 0, 2)}, m.Successors())
	assert.Equal(t, mi(0, 2, 0, 1), mi(2, 1).Embed(4, []int{1, 3}))

	c := m.Clone()
	c[0] = 9
	assert.Equal(t, 2, m[0])
}

// TestSort checks the lexicographic order.
func TestSort(t *testing.T) {
	ms := []indexset.MultiIndex{mi(1, 0), mi(0, 2), mi(0, 1), mi(1, 1)}
	indexset.Sort(ms)
	require.Equal(t, []indexset.MultiIndex{mi(0, 1), mi(0, 2), mi(1, 0), mi(1, 1)}, ms)
}

// TestStatic verifies the three classic families, isotropic and weighted.
func TestStatic(t *testing.T) {
	tp, err := indexset.TensorProduct(2, nil, 1)
	require.NoError(t, err)
	assert.Equal(t, []indexset.MultiIndex{mi(0, 0), mi(0, 1), mi(1, 0), mi(1, 1)}, tp)

	td, err := indexset.TotalDegree(2, nil, 2)
	require.NoError(t, err)
	assert.Equal(t, []indexset.MultiIndex{mi(0, 0), mi(0, 1), mi(0, 2), mi(1, 0), mi(1, 1), mi(2, 0)}, td)

	hc, err := indexset.HyperbolicCross(2, nil, 3)
	require.NoError(t, err)
	assert.Equal(t, []indexset.MultiIndex{
		mi(0, 0), mi(0, 1), mi(0, 2), mi(0, 3), mi(1, 0), mi(1, 1), mi(2, 0), mi(3, 0),
	}, hc)

	wtd, err := indexset.TotalDegree(2, []float64{1, 0.5}, 2)
	require.NoError(t, err)
	assert.Equal(t, []indexset.MultiIndex{mi(0, 0), mi(0, 1), mi(1, 0), mi(2, 0)}, wtd)

	for _, set := range [][]indexset.MultiIndex{tp, td, hc, wtd} {
		assert.True(t, indexset.DownwardClosed(set))
	}
}

// TestStatic_Errors covers invalid family, order and dimension.
func TestStatic_Errors(t *testing.T) {
	_, err := indexset.Static("Nope", 2, nil, 2)
	assert.ErrorIs(t, err, indexset.ErrUnknownKind)
	assert.ErrorIs(t, err, sampler.ErrConfiguration)

	_, err = indexset.TotalDegree(0, nil, 2)
	assert.ErrorIs(t, err, indexset.ErrNoFeatures)

	_, err = indexset.TotalDegree(2, nil, -1)
	assert.ErrorIs(t, err, indexset.ErrMaxOrder)
}
