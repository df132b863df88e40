package vecindex

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/assesskit/recommender/internal/catalog"
	"github.com/assesskit/recommender/internal/embedder"
)

// Builder embeds catalog items and produces a flat index aligned with the
// store by ordinal. Offline only.
type Builder struct {
	embedder embedder.Embedder
	poolSize int
	logger   *slog.Logger
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithPoolSize sets the worker pool size for concurrent embedding.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) BuilderOption {
	return func(b *Builder) {
		if size < 1 {
			size = 1
		}
		b.poolSize = size
	}
}

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) BuilderOption {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBuilder creates an index builder backed by the given embedder.
func NewBuilder(e embedder.Embedder, opts ...BuilderOption) *Builder {
	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	b := &Builder{
		embedder: e,
		poolSize: poolSize,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// BuildFromStore embeds every item in the store and builds the index.
// Item i in the store maps to vector i in the returned index.
func (b *Builder) BuildFromStore(ctx context.Context, store *catalog.Store) (*Flat, error) {
	items := store.Items()
	if len(items) == 0 {
		return nil, fmt.Errorf("catalog is empty")
	}

	b.logger.Info("embedding catalog items",
		"count", len(items),
		"model", b.embedder.ModelName(),
		"pool_size", b.poolSize,
	)

	pool, err := ants.NewPool(b.poolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}
	defer pool.Release()

	vectors := make([][]float32, len(items))
	errs := make([]error, len(items))

	var wg sync.WaitGroup
	for i := range items {
		i := i
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				errs[i] = ctx.Err()
				return
			}
			text := catalog.EmbeddingText(items[i])
			vec, err := b.embedder.Embed(ctx, text)
			if err != nil {
				errs[i] = fmt.Errorf("failed to embed item %d (%s): %w", i, items[i].Name, err)
				return
			}
			vectors[i] = vec
		}); err != nil {
			wg.Done()
			return nil, fmt.Errorf("failed to submit embedding task: %w", err)
		}
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	flat, err := Build(vectors)
	if err != nil {
		return nil, err
	}

	b.logger.Info("index built", "count", flat.Len(), "dim", flat.Dimension())
	return flat, nil
}
