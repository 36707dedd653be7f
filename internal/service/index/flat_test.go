package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Taichi-iskw/yt-rag/internal/errors"
)

func TestFlatIndex_Add(t *testing.T) {
	x := NewFlatIndex(0)
	require.NoError(t, x.Add([]float32{1, 2, 3}))
	assert.Equal(t, 3, x.Dimension())
	assert.Equal(t, 1, x.Len())

	err := x.Add([]float32{1, 2})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeDimension))

	err = x.Add(nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeDimension))
	assert.Equal(t, 1, x.Len())
}

func TestFlatIndex_Search(t *testing.T) {
	x := NewFlatIndex(2)
	for _, v := range [][]float32{{0, 0}, {3, 4}, {1, 0}, {0, 10}} {
		require.NoError(t, x.Add(v))
	}

	tests := []struct {
		name      string
		query     []float32
		k         int
		wantRows  []int
		wantDists []float64
	}{
		{name: "nearest first", query: []float32{0, 0}, k: 2, wantRows: []int{0, 2}, wantDists: []float64{0, 1}},
		{name: "squared distances", query: []float32{0, 0}, k: 3, wantRows: []int{0, 2, 1}, wantDists: []float64{0, 1, 25}},
		{name: "squared off-axis", query: []float32{1, 1}, k: 4, wantRows: []int{2, 0, 1, 3}, wantDists: []float64{1, 2, 13, 82}},
		{name: "k clamped to size", query: []float32{0, 9}, k: 10, wantRows: []int{3, 0, 2, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits, err := x.Search(tt.query, tt.k)
			require.NoError(t, err)

			rows := make([]int, len(hits))
			for i, h := range hits {
				rows[i] = h.Row
			}
			assert.Equal(t, tt.wantRows, rows)
			for i, d := range tt.wantDists {
				assert.InDelta(t, d, hits[i].Distance, 1e-6)
			}
			for i := 1; i < len(hits); i++ {
				assert.LessOrEqual(t, hits[i-1].Distance, hits[i].Distance)
			}
		})
	}
}

func TestFlatIndex_SearchTiesKeepRowOrder(t *testing.T) {
	x := NewFlatIndex(1)
	for _, v := range []float32{1, -1, 1} {
		require.NoError(t, x.Add([]float32{v}))
	}

	hits, err := x.Search([]float32{0}, 3)
	require.NoError(t, err)
	assert.Equal(t, []Hit{{Row: 0, Distance: 1}, {Row: 1, Distance: 1}, {Row: 2, Distance: 1}}, hits)
}

func TestFlatIndex_SearchErrors(t *testing.T) {
	x := NewFlatIndex(2)

	hits, err := x.Search([]float32{1, 1}, 3)
	require.NoError(t, err)
	assert.Empty(t, hits)

	_, err = x.Search([]float32{1, 1}, 0)
	assert.True(t, errors.Is(err, errors.CodeInvalidArg))

	require.NoError(t, x.Add([]float32{1, 1}))
	_, err = x.Search([]float32{1, 1, 1}, 1)
	assert.True(t, errors.Is(err, errors.CodeDimension))
}

func TestFlatIndex_StoredVectorIsOwnNearest(t *testing.T) {
	x := NewFlatIndex(0)
	vectors := [][]float32{{0.1, 0.2, 0.3}, {-0.5, 0.5, 0}, {0.9, -0.1, 0.4}}
	for _, v := range vectors {
		require.NoError(t, x.Add(v))
	}

	for row := range vectors {
		hits, err := x.Search(x.Vector(row), 1)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, row, hits[0].Row)
		assert.InDelta(t, 0, hits[0].Distance, 1e-9)
	}
}
