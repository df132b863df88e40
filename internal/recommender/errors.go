package recommender

import (
	"errors"

	"github.com/assesskit/recommender/internal/enrich"
	"github.com/assesskit/recommender/internal/vecindex"
)

// Pipeline errors. Input-validation errors are detected before any
// enrichment, network, or embedding work.
var (
	// ErrEmptyQuery indicates empty or whitespace-only query input.
	ErrEmptyQuery = enrich.ErrEmptyQuery

	// ErrInvalidTopK indicates a non-positive top-k request.
	ErrInvalidTopK = errors.New("top_k must be positive")

	// ErrUpstreamFetch indicates a URL query could not be dereferenced.
	ErrUpstreamFetch = enrich.ErrUpstreamFetch

	// ErrDimensionMismatch indicates the embedding model and the index
	// disagree on dimensionality. Always a server-side build fault.
	ErrDimensionMismatch = vecindex.ErrDimensionMismatch

	// ErrEmbeddingService indicates the embedding backend failed or
	// returned malformed output. Not retried here: embedding is assumed
	// deterministic, so a retry policy belongs to the caller.
	ErrEmbeddingService = errors.New("embedding service failed")

	// ErrNotReady indicates no catalog snapshot has been loaded yet.
	ErrNotReady = errors.New("no catalog snapshot loaded")
)
