package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/Taichi-iskw/yt-rag/internal/config"
	pipelinerepo "github.com/Taichi-iskw/yt-rag/internal/repository/pipeline"
	"github.com/Taichi-iskw/yt-rag/internal/repository/vector"
	"github.com/Taichi-iskw/yt-rag/internal/retry"
	"github.com/Taichi-iskw/yt-rag/internal/service/answer"
	"github.com/Taichi-iskw/yt-rag/internal/service/chunker"
	"github.com/Taichi-iskw/yt-rag/internal/service/embedding"
	"github.com/Taichi-iskw/yt-rag/internal/service/index"
	"github.com/Taichi-iskw/yt-rag/internal/service/pipeline"
	"github.com/Taichi-iskw/yt-rag/internal/service/transcript"
)

// app holds the wired components for one command invocation
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	pipeline *pipeline.Pipeline
	service  *pipeline.Service
	pool     *pgxpool.Pool
	redis    *redis.Client
}

// Close releases database and Redis connections
func (a *app) Close() {
	config.CloseDatabasePool(a.pool)
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("failed to close redis client", slog.Any("error", err))
		}
	}
}

// newApp creates every component selected by the configuration
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	if cfg.Registry == config.RegistryPostgres || cfg.IndexBackend == config.IndexPgvector {
		pool, err := config.NewDatabasePool(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.pool = pool
	}

	registry, err := a.newRegistry(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	rc := retryConfig(cfg)
	transcripts := transcript.NewTranscriptService(newProvider(cfg, rc, logger), cfg.Transcript.Languages, logger)
	chunks := chunker.NewChunkerService(cfg.Chunking.DurationSeconds, cfg.Chunking.Strict, logger)

	embedder := embedding.NewOllamaClient(cfg.Embedding.URL, cfg.Embedding.Model,
		embedding.WithHTTPClient(&http.Client{Timeout: cfg.Embedding.Timeout}),
		embedding.WithRetry(rc),
		embedding.WithRateLimit(cfg.Embedding.RequestsPerSecond),
	)

	var store index.Store = index.NewFileStore()
	if cfg.IndexBackend == config.IndexPgvector {
		store = vector.NewPgvectorStore(a.pool)
	}
	indexer := index.NewIndexer(embedder, store, logger)

	completer := answer.NewGeminiClient(cfg.Completion.APIKey, cfg.Completion.Model,
		answer.WithBaseURL(cfg.Completion.BaseURL),
		answer.WithGeneration(answer.Generation{
			Temperature: cfg.Completion.Temperature,
			MaxTokens:   cfg.Completion.MaxTokens,
			TopP:        cfg.Completion.TopP,
		}),
		answer.WithRetry(rc),
		answer.WithTimeout(cfg.Completion.Timeout),
	)
	answerer := answer.NewAnswerer(indexer, completer, logger)

	a.pipeline = pipeline.NewPipeline(cfg.DataDir, transcripts, chunks, indexer, store, answerer, logger)
	a.service = pipeline.NewService(a.pipeline, registry, logger)
	return a, nil
}

func (a *app) newRegistry(ctx context.Context) (pipelinerepo.Repository, error) {
	staleAfter := a.cfg.Server.StaleLockAfter
	switch a.cfg.Registry {
	case config.RegistryPostgres:
		return pipelinerepo.NewPostgresRepository(a.pool, staleAfter), nil
	case config.RegistryRedis:
		client, err := pipelinerepo.NewRedisClient(ctx, a.cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		a.redis = client
		return pipelinerepo.NewRedisRepository(client, staleAfter), nil
	default:
		return pipelinerepo.NewMemoryRepository(staleAfter), nil
	}
}

func newProvider(cfg *config.Config, rc retry.Config, logger *slog.Logger) transcript.Provider {
	if cfg.Transcript.Provider == config.ProviderYtDlp {
		return transcript.NewYtDlpProvider(rc)
	}
	return transcript.NewInnertubeProvider(
		transcript.WithRetry(rc),
		transcript.WithLogger(logger),
	)
}

func retryConfig(cfg *config.Config) retry.Config {
	rc := retry.DefaultConfig
	rc.MaxRetries = cfg.Retry.MaxRetries
	if cfg.Retry.InitialWait > 0 {
		rc.InitialWait = cfg.Retry.InitialWait
	}
	if cfg.Retry.MaxWait > 0 {
		rc.MaxWait = cfg.Retry.MaxWait
	}
	return rc
}

// setup loads configuration and wires the application
func setup(ctx context.Context) (*app, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return newApp(ctx, cfg, logger)
}
