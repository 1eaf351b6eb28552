package index

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildFlat(t *testing.T, vectors ...[]float32) *Flat {
	t.Helper()
	f, err := NewFlat(len(vectors[0]))
	require.NoError(t, err)
	require.NoError(t, f.Add(vectors...))
	return f
}

func TestSearchSelfSimilarity(t *testing.T) {
	vectors := [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}
	f := buildFlat(t, vectors...)

	for i, v := range vectors {
		hits, err := f.Search(v, 1)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, i, hits[0].Position)
		assert.Equal(t, float32(0), hits[0].Distance)
	}
}

func TestSearchAscendingDistance(t *testing.T) {
	f := buildFlat(t, []float32{0, 0}, []float32{3, 4}, []float32{1, 0}, []float32{10, 0})

	hits, err := f.Search([]float32{0, 0}, 4)
	require.NoError(t, err)
	require.Len(t, hits, 4)
	for i := 1; i < len(hits); i++ {
		assert.LessOrEqual(t, hits[i-1].Distance, hits[i].Distance)
	}
	assert.Equal(t, []int{0, 2, 1, 3}, []int{hits[0].Position, hits[1].Position, hits[2].Position, hits[3].Position})
}

func TestSearchTieBreaksByPosition(t *testing.T) {
	// Two identical vectors: the earlier insertion wins.
	f := buildFlat(t, []float32{5, 5}, []float32{1, 1}, []float32{1, 1})

	hits, err := f.Search([]float32{1, 1}, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, hits[0].Position)
	assert.Equal(t, 2, hits[1].Position)
}

func TestSearchKExceedsCount(t *testing.T) {
	f := buildFlat(t, []float32{1, 2})

	hits, err := f.Search([]float32{1, 2}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, 0, hits[0].Position)
	assert.Equal(t, -1, hits[1].Position)
	assert.Equal(t, -1, hits[2].Position)
	assert.True(t, math.IsInf(float64(hits[1].Distance), 1))
	assert.True(t, math.IsInf(float64(hits[2].Distance), 1))
}

func TestSearchDimensionMismatch(t *testing.T) {
	f := buildFlat(t, []float32{1, 2, 3})

	_, err := f.Search([]float32{1, 2}, 1)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestAddDimensionMismatch(t *testing.T) {
	f, err := NewFlat(2)
	require.NoError(t, err)
	assert.ErrorIs(t, f.Add([]float32{1, 2, 3}), ErrDimensionMismatch)
}

func TestNewFlatInvalidDimension(t *testing.T) {
	_, err := NewFlat(0)
	assert.Error(t, err)
}
