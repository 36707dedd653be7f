package index

import (
	"sort"

	"github.com/Taichi-iskw/yt-rag/internal/errors"
)

// Hit is a search result: a row of the index and its squared L2 distance to the query
type Hit struct {
	Row      int
	Distance float64
}

// FlatIndex is an exhaustive L2 nearest-neighbor index. Rows keep insertion order,
// so row i always corresponds to the i-th added vector.
type FlatIndex struct {
	dim  int
	data []float32
}

// NewFlatIndex creates an index; dim 0 takes the dimension of the first added vector
func NewFlatIndex(dim int) *FlatIndex {
	return &FlatIndex{dim: dim}
}

// Dimension returns the vector dimension, or 0 if unset
func (x *FlatIndex) Dimension() int {
	return x.dim
}

// Len returns the number of rows
func (x *FlatIndex) Len() int {
	if x.dim == 0 {
		return 0
	}
	return len(x.data) / x.dim
}

// Add appends a vector as the next row
func (x *FlatIndex) Add(vec []float32) error {
	if len(vec) == 0 {
		return errors.New(errors.CodeDimension, "cannot add an empty vector")
	}
	if x.dim == 0 {
		x.dim = len(vec)
	}
	if len(vec) != x.dim {
		return errors.Newf(errors.CodeDimension, "vector dimension %d does not match index dimension %d", len(vec), x.dim)
	}
	x.data = append(x.data, vec...)
	return nil
}

// Vector returns a copy of row i
func (x *FlatIndex) Vector(i int) []float32 {
	out := make([]float32, x.dim)
	copy(out, x.data[i*x.dim:(i+1)*x.dim])
	return out
}

// Search returns the k nearest rows in ascending distance order.
// k larger than the index is clamped; ties keep row order.
func (x *FlatIndex) Search(query []float32, k int) ([]Hit, error) {
	if k <= 0 {
		return nil, errors.Newf(errors.CodeInvalidArg, "k must be positive, got %d", k)
	}
	n := x.Len()
	if n == 0 {
		return []Hit{}, nil
	}
	if len(query) != x.dim {
		return nil, errors.Newf(errors.CodeDimension, "query dimension %d does not match index dimension %d", len(query), x.dim)
	}

	hits := make([]Hit, n)
	for row := 0; row < n; row++ {
		hits[row] = Hit{Row: row, Distance: l2(query, x.data[row*x.dim:(row+1)*x.dim])}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})

	if k > n {
		k = n
	}
	return hits[:k], nil
}

// l2 returns the squared Euclidean distance between a and b
func l2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
