// Command recsctl drives the offline side of the recommendation service:
// building the vector index from the catalog and evaluating retrieval
// quality against a labeled query set.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/assesskit/recommender/internal/catalog"
	"github.com/assesskit/recommender/internal/config"
	"github.com/assesskit/recommender/internal/embedder"
	"github.com/assesskit/recommender/internal/enrich"
	"github.com/assesskit/recommender/internal/eval"
	"github.com/assesskit/recommender/internal/recommender"
	"github.com/assesskit/recommender/internal/reranker"
	"github.com/assesskit/recommender/internal/vecindex"
)

var rootCmd = &cobra.Command{
	Use:          "recsctl",
	Short:        "Offline tooling for the assessment recommendation service",
	SilenceUsage: true, // don't print usage on operational errors
}

var (
	flagIndexPool   int
	flagIndexQdrant bool

	flagEvalQuerySet string
	flagEvalK        int
	flagEvalOut      string
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Embed the catalog and build the vector index",
	RunE:  runIndex,
}

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Compute Recall@K over a labeled query set",
	RunE:  runEval,
}

func init() {
	indexCmd.Flags().IntVar(&flagIndexPool, "pool", 0, "Worker pool size for concurrent embedding (0 = auto)")
	indexCmd.Flags().BoolVar(&flagIndexQdrant, "qdrant", false, "Also upsert vectors into the configured Qdrant collection")
	rootCmd.AddCommand(indexCmd)

	evalCmd.Flags().StringVar(&flagEvalQuerySet, "queries", "train_data.csv", "CSV file with Query and Assessment_url columns")
	evalCmd.Flags().IntVar(&flagEvalK, "k", 10, "K for Recall@K")
	evalCmd.Flags().StringVar(&flagEvalOut, "out", "evaluation_results.json", "Where to write the detailed report")
	rootCmd.AddCommand(evalCmd)
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// signalContext returns a context canceled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func loadCatalog(ctx context.Context, cfg *config.Config) (*catalog.Store, error) {
	if cfg.CatalogSource == "postgres" {
		pool, err := catalog.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		defer pool.Close()
		return catalog.LoadPostgres(ctx, pool)
	}
	return catalog.LoadFile(cfg.CatalogPath)
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	store, err := loadCatalog(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	slog.Info("catalog loaded", "items", store.Len())

	embed := embedder.NewOllamaEmbedder(embedder.OllamaConfig{
		BaseURL: cfg.OllamaURL,
		Model:   cfg.OllamaEmbeddingModel,
	})

	var opts []vecindex.BuilderOption
	if flagIndexPool > 0 {
		opts = append(opts, vecindex.WithPoolSize(flagIndexPool))
	}
	builder := vecindex.NewBuilder(embed, opts...)

	flat, err := builder.BuildFromStore(ctx, store)
	if err != nil {
		return fmt.Errorf("failed to build index: %w", err)
	}

	if err := flat.Save(cfg.IndexDir, embed.ModelName()); err != nil {
		return fmt.Errorf("failed to save index: %w", err)
	}
	slog.Info("index saved", "dir", cfg.IndexDir, "count", flat.Len(), "dim", flat.Dimension())

	if flagIndexQdrant {
		if err := upsertQdrant(ctx, cfg, store, embed, flat); err != nil {
			return err
		}
	}

	return nil
}

// upsertQdrant mirrors the freshly built vectors into Qdrant so the
// serving daemon can run with INDEX_BACKEND=qdrant.
func upsertQdrant(ctx context.Context, cfg *config.Config, store *catalog.Store, embed embedder.Embedder, flat *vecindex.Flat) error {
	qdr, err := vecindex.NewQdrantIndex(cfg.QdrantGRPCURL, "assessments", flat.Dimension())
	if err != nil {
		return fmt.Errorf("failed to connect to qdrant: %w", err)
	}
	defer qdr.Close()

	if err := qdr.Recreate(ctx); err != nil {
		return err
	}

	// Re-embed per item rather than exporting from the flat index: the
	// flat index stores normalized vectors and Qdrant normalizes itself.
	items := store.Items()
	vectors := make([][]float32, len(items))
	for i, it := range items {
		v, err := embed.Embed(ctx, catalog.EmbeddingText(it))
		if err != nil {
			return fmt.Errorf("failed to embed item %d: %w", i, err)
		}
		vectors[i] = v
	}
	if err := qdr.Upsert(ctx, vectors); err != nil {
		return err
	}
	slog.Info("qdrant collection updated", "collection", "assessments", "count", len(vectors))
	return nil
}

func runEval(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	queries, err := eval.LoadQuerySet(flagEvalQuerySet)
	if err != nil {
		return err
	}
	slog.Info("query set loaded", "path", flagEvalQuerySet, "queries", len(queries))

	store, err := loadCatalog(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	flat, err := vecindex.Load(cfg.IndexDir)
	if err != nil {
		return fmt.Errorf("failed to load index: %w", err)
	}

	embed := embedder.NewOllamaEmbedder(embedder.OllamaConfig{
		BaseURL: cfg.OllamaURL,
		Model:   cfg.OllamaEmbeddingModel,
	})

	enrichOpts := []enrich.Option{
		enrich.WithFetchFallback(cfg.FetchFallback),
		enrich.WithFetcher(enrich.NewHTTPFetcher(cfg.FetchTimeout)),
	}
	if cfg.LexiconPath != "" {
		lex, err := enrich.LoadLexicons(cfg.LexiconPath)
		if err != nil {
			return fmt.Errorf("failed to load lexicons: %w", err)
		}
		enrichOpts = append(enrichOpts, enrich.WithLexicons(lex))
	}
	enricher := enrich.New(enrichOpts...)
	rr := reranker.New(
		reranker.Weights{
			Sim:             cfg.WeightSim,
			Type:            cfg.WeightType,
			Skill:           cfg.WeightSkill,
			DurationPenalty: cfg.DurationPenalty,
		},
		reranker.DiversityConfig{
			Enabled:   cfg.DiversityEnabled,
			MaxShare:  cfg.DiversityMaxShare,
			Tolerance: cfg.DiversityTolerance,
		},
	)
	rec := recommender.New(embed, enricher, rr,
		recommender.WithCandidatePoolSize(cfg.CandidatePoolSize),
	)
	rec.Swap(&recommender.Snapshot{Catalog: store, Index: flat})

	report, err := eval.Evaluate(ctx, rec, queries, flagEvalK, slog.Default())
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(flagEvalOut, out, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	fmt.Printf("Mean Recall@%d: %.3f over %d queries (details in %s)\n",
		report.K, report.MeanRecall, len(report.Results), flagEvalOut)
	return nil
}
