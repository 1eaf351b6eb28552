package index

import (
	"errors"
	"math"
	"sort"

	"lawqa/internal/domain"
)

// ErrDimensionMismatch is returned when a vector's length differs from the
// index dimensionality.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Flat is an exact nearest-neighbor index over float32 vectors using
// exhaustive L2 distance. It is immutable once built.
type Flat struct {
	dim     int
	vectors [][]float32
}

// NewFlat creates an empty flat index of the given dimensionality.
func NewFlat(dim int) (*Flat, error) {
	if dim <= 0 {
		return nil, errors.New("invalid dimension")
	}
	return &Flat{dim: dim}, nil
}

// Add appends vectors to the index in order.
func (f *Flat) Add(vectors ...[]float32) error {
	for _, v := range vectors {
		if len(v) != f.dim {
			return ErrDimensionMismatch
		}
	}
	f.vectors = append(f.vectors, vectors...)
	return nil
}

// Len returns the number of indexed vectors.
func (f *Flat) Len() int { return len(f.vectors) }

// Dimension returns the index dimensionality.
func (f *Flat) Dimension() int { return f.dim }

// Search returns exactly k hits ordered by ascending L2 distance, ties
// broken by lower insertion position. When k exceeds the indexed count the
// trailing slots carry Position -1 and an infinite distance; callers must
// tolerate fewer valid results than requested.
func (f *Flat) Search(query []float32, k int) ([]domain.SearchHit, error) {
	if len(query) != f.dim {
		return nil, ErrDimensionMismatch
	}
	if k <= 0 {
		return nil, nil
	}
	hits := make([]domain.SearchHit, 0, len(f.vectors))
	for i, v := range f.vectors {
		hits = append(hits, domain.SearchHit{Position: i, Distance: l2(query, v)})
	}
	// Stable sort keeps insertion order among equal distances.
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})
	for len(hits) < k {
		hits = append(hits, domain.SearchHit{Position: -1, Distance: float32(math.Inf(1))})
	}
	return hits[:k], nil
}

func l2(a, b []float32) float32 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return float32(math.Sqrt(sum))
}
