package app

import (
	"context"
	"fmt"
	"time"

	"database/sql"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/kira2406/Veritas/internal/config"
	"github.com/kira2406/Veritas/internal/core"
	"github.com/kira2406/Veritas/internal/core/extract"
	"github.com/kira2406/Veritas/internal/core/index"
	"github.com/kira2406/Veritas/internal/core/llm"
	"github.com/kira2406/Veritas/internal/services"
)

// App wires the pipeline dependencies together. Every client is an explicit
// dependency built here; an initialization failure aborts startup instead of
// being logged and swallowed.
type App struct {
	Index     index.VectorIndex
	Ingest    *services.IngestService
	Server    *Server
	extractor *llm.GeminiExtractor
	embedder  core.EmbeddingProvider
	logger    *zap.Logger
}

func NewApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	idx, err := newIndex(appCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("couldn't initialize the vector index: %w", err)
	}
	logger.Info("vector index initialized", zap.String("backend", cfg.IndexBackend))

	structured, err := llm.NewGeminiExtractor(appCtx, cfg.AIAPIKey, cfg.GenModel)
	if err != nil {
		return nil, fmt.Errorf("couldn't initialize the structured extractor: %w", err)
	}

	embedder, err := newEmbedder(appCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("couldn't initialize the embedder: %w", err)
	}
	logger.Info("embedder initialized", zap.String("mode", cfg.EmbedMode), zap.Int("dimension", embedder.Dimension()))

	retry := services.RetryPolicy{
		MaxAttempts:    cfg.RetryMaxAttempts,
		InitialBackoff: time.Duration(cfg.RetryBackoffMillis) * time.Millisecond,
		Multiplier:     2,
	}

	ingest := services.NewIngestService(extract.New(), structured, embedder, idx, retry, logger)
	server := NewServer(cfg, ingest, logger)

	return &App{
		Index:     idx,
		Ingest:    ingest,
		Server:    server,
		extractor: structured,
		embedder:  embedder,
		logger:    logger,
	}, nil
}

func newIndex(ctx context.Context, cfg *config.Config) (index.VectorIndex, error) {
	switch cfg.IndexBackend {
	case config.IndexBackendPostgres:
		return index.NewPostgresIndex(ctx, cfg.DatabaseURL, cfg.EmbedDim)
	case config.IndexBackendSQLite:
		db, err := sql.Open("sqlite", cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		return index.NewSQLiteIndex(db, cfg.EmbedDim)
	default:
		return nil, fmt.Errorf("unknown index backend %q", cfg.IndexBackend)
	}
}

func newEmbedder(ctx context.Context, cfg *config.Config) (core.EmbeddingProvider, error) {
	switch cfg.EmbedMode {
	case config.EmbedModeGemini:
		return llm.NewGeminiEmbedder(ctx, cfg.AIAPIKey, cfg.EmbedModel, cfg.EmbedDim)
	case config.EmbedModeDeterministic:
		return llm.NewDeterministicEmbedder(cfg.EmbedDim)
	default:
		return nil, fmt.Errorf("unknown embed mode %q", cfg.EmbedMode)
	}
}

func (a *App) Close() {
	if a.extractor != nil {
		_ = a.extractor.Close()
	}
	if closer, ok := a.embedder.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
	if a.Index != nil {
		_ = a.Index.Close()
	}
}
