// Package recommender wires the recommendation pipeline: enrich the
// query, embed it, retrieve an oversampled candidate pool from the vector
// index, rerank, and truncate to the requested size. The same Recommend
// function serves online requests and offline evaluation.
package recommender

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/assesskit/recommender/internal/catalog"
	"github.com/assesskit/recommender/internal/embedder"
	"github.com/assesskit/recommender/internal/enrich"
	"github.com/assesskit/recommender/internal/reranker"
	"github.com/assesskit/recommender/internal/vecindex"
)

// DefaultCandidatePoolSize is how many nearest neighbors are pulled from
// the index before reranking. Much larger than any sensible top-k so the
// reranker has room to reorder.
const DefaultCandidatePoolSize = 50

// Snapshot pairs a catalog store with the vector index built from it.
// The two are co-indexed by ordinal and swapped as one unit, so every
// in-flight request sees a consistent pair.
type Snapshot struct {
	Catalog *catalog.Store
	Index   vecindex.Searcher
}

// Result is one ranked recommendation in the external response shape.
type Result struct {
	Name            string   `json:"name"`
	URL             string   `json:"url"`
	Description     string   `json:"description"`
	Duration        int      `json:"duration"`
	AdaptiveSupport string   `json:"adaptive_support"`
	RemoteSupport   string   `json:"remote_support"`
	TestType        []string `json:"test_type"`
}

// Recommender is the recommendation pipeline. Safe for concurrent use;
// the snapshot is read atomically per request.
type Recommender struct {
	snapshot atomic.Pointer[Snapshot]
	embedder embedder.Embedder
	enricher *enrich.Enricher
	reranker *reranker.Reranker
	poolSize int
	logger   *slog.Logger
}

// Option configures a Recommender.
type Option func(*Recommender)

// WithCandidatePoolSize sets the retrieval pool size.
func WithCandidatePoolSize(n int) Option {
	return func(r *Recommender) {
		if n > 0 {
			r.poolSize = n
		}
	}
}

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recommender) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates a Recommender. A snapshot must be installed with Swap
// before the first Recommend call.
func New(e embedder.Embedder, enricher *enrich.Enricher, rr *reranker.Reranker, opts ...Option) *Recommender {
	r := &Recommender{
		embedder: e,
		enricher: enricher,
		reranker: rr,
		poolSize: DefaultCandidatePoolSize,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Swap atomically installs a new catalog/index snapshot. In-flight
// requests keep the snapshot they started with.
func (r *Recommender) Swap(snap *Snapshot) {
	r.snapshot.Store(snap)
}

// Ready reports whether a snapshot is loaded.
func (r *Recommender) Ready() bool {
	return r.snapshot.Load() != nil
}

// Recommend returns the top-k catalog items for the query. The result
// always has exactly min(k, catalog size) entries; failures return an
// error, never a truncated list disguised as success.
func (r *Recommender) Recommend(ctx context.Context, query string, topK int) ([]Result, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidTopK, topK)
	}

	snap := r.snapshot.Load()
	if snap == nil {
		return nil, ErrNotReady
	}

	start := time.Now()

	qc, err := r.enricher.Enrich(ctx, query)
	if err != nil {
		return nil, err
	}

	vector, err := r.embedder.Embed(ctx, qc.Enriched)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingService, err)
	}

	// Oversample so the reranker has candidates beyond the final k.
	pool := r.poolSize
	if pool < topK {
		pool = topK
	}
	hits, err := snap.Index.Search(ctx, vector, pool)
	if err != nil {
		return nil, fmt.Errorf("index search failed: %w", err)
	}

	candidates := make([]reranker.Candidate, 0, len(hits))
	for _, h := range hits {
		item, ok := snap.Catalog.At(h.Ordinal)
		if !ok {
			return nil, fmt.Errorf("index returned ordinal %d outside catalog of %d items", h.Ordinal, snap.Catalog.Len())
		}
		candidates = append(candidates, reranker.Candidate{
			Ordinal:  h.Ordinal,
			Item:     item,
			RawScore: h.Score,
		})
	}

	ranked := r.reranker.Rerank(candidates, qc, topK)

	results := make([]Result, len(ranked))
	for i, c := range ranked {
		results[i] = Result{
			Name:            c.Item.Name,
			URL:             c.Item.URL,
			Description:     c.Item.Description,
			Duration:        c.Item.DurationMinutes,
			AdaptiveSupport: catalog.BoolToYesNo(c.Item.Adaptive),
			RemoteSupport:   catalog.BoolToYesNo(c.Item.Remote),
			TestType:        c.Item.TestTypes,
		}
	}

	r.logger.Debug("recommendation served",
		"top_k", topK,
		"candidates", len(candidates),
		"results", len(results),
		"inferred_types", qc.Categories,
		"inferred_skills", qc.Skills,
		"duration", time.Since(start),
	)

	return results, nil
}
