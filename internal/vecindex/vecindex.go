// Package vecindex provides nearest-neighbor retrieval over catalog
// item embeddings.
//
// Vectors are compared by inner product over unit-normalized vectors
// (cosine similarity). Normalization is owned by this package: Build and
// Search normalize internally, callers never pre-normalize.
package vecindex

import (
	"context"
	"errors"
)

// ErrDimensionMismatch indicates a vector whose dimensionality does not
// match the index. This is a build-time configuration fault between the
// embedding model and the index, never expected at runtime.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Hit is one search result: the ordinal position of a catalog item and
// its raw similarity score.
type Hit struct {
	Ordinal int
	Score   float32
}

// Searcher is the read-side contract the recommendation pipeline depends
// on. Implementations must return at most n hits ordered by descending
// score, ties broken by ascending ordinal.
type Searcher interface {
	Search(ctx context.Context, vector []float32, n int) ([]Hit, error)
}
