package vecindex

import (
	"context"
	"fmt"
	"math"
	"sort"
)

// Flat is a brute-force inner-product index over unit-normalized vectors,
// stored row-major. The catalog is small enough that exhaustive scoring
// beats an approximate structure.
//
// A Flat is immutable after Build/Load and safe for concurrent searches.
type Flat struct {
	dim     int
	count   int
	vectors []float32 // count*dim, row-major, unit-normalized
}

// Build constructs a flat index from item vectors. All vectors must share
// one dimensionality; each is normalized to unit length before insertion.
func Build(itemVectors [][]float32) (*Flat, error) {
	if len(itemVectors) == 0 {
		return nil, fmt.Errorf("no vectors to index")
	}
	dim := len(itemVectors[0])
	if dim == 0 {
		return nil, fmt.Errorf("%w: zero-length vector at ordinal 0", ErrDimensionMismatch)
	}

	flat := make([]float32, 0, len(itemVectors)*dim)
	for i, v := range itemVectors {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: ordinal %d has dim %d, want %d", ErrDimensionMismatch, i, len(v), dim)
		}
		flat = append(flat, normalize(v)...)
	}

	return &Flat{dim: dim, count: len(itemVectors), vectors: flat}, nil
}

// Dimension returns the vector dimensionality of the index.
func (f *Flat) Dimension() int { return f.dim }

// Len returns the number of indexed vectors.
func (f *Flat) Len() int { return f.count }

// Search returns the n nearest items to the query vector, ordered by
// descending score with ties broken by ascending ordinal. If the index
// holds fewer than n items, all of them are returned.
func (f *Flat) Search(_ context.Context, vector []float32, n int) ([]Hit, error) {
	if len(vector) != f.dim {
		return nil, fmt.Errorf("%w: query has dim %d, index has dim %d", ErrDimensionMismatch, len(vector), f.dim)
	}
	if n <= 0 {
		return nil, fmt.Errorf("search size must be positive, got %d", n)
	}

	query := normalize(vector)

	hits := make([]Hit, f.count)
	for i := 0; i < f.count; i++ {
		row := f.vectors[i*f.dim : (i+1)*f.dim]
		var dot float32
		for j, q := range query {
			dot += row[j] * q
		}
		hits[i] = Hit{Ordinal: i, Score: dot}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Ordinal < hits[j].Ordinal
	})

	if n < len(hits) {
		hits = hits[:n]
	}
	return hits, nil
}

// normalize returns a unit-length copy of v. A zero vector is returned
// unchanged (as zeros) so it scores 0 against everything.
func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	norm := math.Sqrt(sum)
	if norm == 0 {
		return out
	}
	inv := float32(1.0 / norm)
	for i, x := range v {
		out[i] = x * inv
	}
	return out
}

// Ensure Flat implements Searcher.
var _ Searcher = (*Flat)(nil)
