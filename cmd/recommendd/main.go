package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/assesskit/recommender/internal/auth"
	"github.com/assesskit/recommender/internal/catalog"
	"github.com/assesskit/recommender/internal/config"
	"github.com/assesskit/recommender/internal/embedder"
	"github.com/assesskit/recommender/internal/enrich"
	"github.com/assesskit/recommender/internal/recommender"
	"github.com/assesskit/recommender/internal/reranker"
	"github.com/assesskit/recommender/internal/server"
	"github.com/assesskit/recommender/internal/vecindex"
)

func main() {
	// Set up structured logging
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("failed to run server", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	slog.Info("starting recommendation service",
		"http_port", cfg.HTTPPort,
		"environment", cfg.Environment,
		"catalog_source", cfg.CatalogSource,
		"index_backend", cfg.IndexBackend,
	)

	// Initialize Ollama embedder
	embed := embedder.NewOllamaEmbedder(embedder.OllamaConfig{
		BaseURL: cfg.OllamaURL,
		Model:   cfg.OllamaEmbeddingModel,
	})
	slog.Info("initialized embedder", "model", embed.ModelName(), "dimension", embed.Dimension())

	// Build the query enricher
	enricher, err := buildEnricher(cfg)
	if err != nil {
		return err
	}

	// Build the reranker from configured weights
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

	// Load the initial catalog/index snapshot
	snap, err := loadSnapshot(ctx, cfg, embed.Dimension())
	if err != nil {
		return fmt.Errorf("failed to load snapshot: %w", err)
	}
	rec.Swap(snap)
	slog.Info("catalog snapshot loaded", "items", snap.Catalog.Len())

	// Create HTTP server
	httpServer := server.New(server.Config{
		Port:        cfg.HTTPPort,
		DefaultTopK: cfg.DefaultTopK,
		Logger:      slog.Default(),
		Auth:        auth.New(cfg.APIKey, cfg.JWTSecret),
	}, rec)

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.Start(); err != nil {
			errCh <- err
		}
	}()

	// SIGHUP reloads the snapshot; the swap is atomic so in-flight
	// requests keep the pair they started with.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for {
		select {
		case err := <-errCh:
			return err
		case sig := <-sigCh:
			if sig == syscall.SIGHUP {
				slog.Info("reloading catalog snapshot")
				newSnap, err := loadSnapshot(ctx, cfg, embed.Dimension())
				if err != nil {
					slog.Error("snapshot reload failed, keeping current snapshot", "error", err)
					continue
				}
				rec.Swap(newSnap)
				slog.Info("catalog snapshot reloaded", "items", newSnap.Catalog.Len())
				continue
			}
			slog.Info("received shutdown signal", "signal", sig)

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer shutdownCancel()

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("failed to shutdown HTTP server", "error", err)
			}
			slog.Info("server stopped")
			return nil
		}
	}
}

// buildEnricher assembles the query enricher from configuration.
func buildEnricher(cfg *config.Config) (*enrich.Enricher, error) {
	opts := []enrich.Option{
		enrich.WithFetchFallback(cfg.FetchFallback),
	}

	if cfg.LexiconPath != "" {
		lex, err := enrich.LoadLexicons(cfg.LexiconPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load lexicons: %w", err)
		}
		opts = append(opts, enrich.WithLexicons(lex))
		slog.Info("loaded lexicons", "path", cfg.LexiconPath,
			"categories", len(lex.Categories), "skills", len(lex.Skills))
	}

	if cfg.FetchHeadless {
		opts = append(opts, enrich.WithFetcher(enrich.NewHeadlessFetcher(cfg.FetchTimeout)))
	} else {
		opts = append(opts, enrich.WithFetcher(enrich.NewHTTPFetcher(cfg.FetchTimeout)))
	}

	return enrich.New(opts...), nil
}

// loadSnapshot loads the catalog store and its co-indexed vector index.
func loadSnapshot(ctx context.Context, cfg *config.Config, dim int) (*recommender.Snapshot, error) {
	var store *catalog.Store
	var err error

	switch cfg.CatalogSource {
	case "postgres":
		pool, err := catalog.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		defer pool.Close()
		store, err = catalog.LoadPostgres(ctx, pool)
		if err != nil {
			return nil, err
		}
	default:
		store, err = catalog.LoadFile(cfg.CatalogPath)
		if err != nil {
			return nil, err
		}
	}

	var index vecindex.Searcher
	switch cfg.IndexBackend {
	case "qdrant":
		qdr, err := vecindex.NewQdrantIndex(cfg.QdrantGRPCURL, "assessments", dim)
		if err != nil {
			return nil, err
		}
		index = qdr
	default:
		flat, err := vecindex.Load(cfg.IndexDir)
		if err != nil {
			return nil, err
		}
		if flat.Dimension() != dim {
			return nil, fmt.Errorf("%w: index has dim %d, embedder produces dim %d",
				vecindex.ErrDimensionMismatch, flat.Dimension(), dim)
		}
		if flat.Len() != store.Len() {
			return nil, fmt.Errorf("index holds %d vectors but catalog has %d items; rebuild the index",
				flat.Len(), store.Len())
		}
		index = flat
	}

	return &recommender.Snapshot{Catalog: store, Index: index}, nil
}
