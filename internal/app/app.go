// Package app builds the stores and model clients selected by configuration.
// Both the API server and the seed tool start from here.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"docuchat-ai/internal/config"
	"docuchat-ai/internal/handlers"
	"docuchat-ai/internal/history"
	"docuchat-ai/internal/indexer"
	"docuchat-ai/internal/llm"
	"docuchat-ai/internal/pgstore"
	"docuchat-ai/internal/search"
	"docuchat-ai/internal/storage"
	"docuchat-ai/internal/vectorstore"
)

// Stores are the configured persistence backends.
type Stores struct {
	Documents search.DocumentStore
	Chunks    search.ChunkStore
	History   history.Store

	DocumentWriter indexer.DocumentWriter
	ChunkWriter    indexer.ChunkWriter

	// HealthChecks holds one probe per remote dependency.
	HealthChecks map[string]handlers.Pinger

	closers []func() error
}

// Close releases every connection opened by OpenStores, newest first.
func (s *Stores) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	return errors.Join(errs...)
}

// OpenStores connects to the document, chunk and history backends named by cfg
// and runs their migrations.
func OpenStores(ctx context.Context, cfg *config.Config) (*Stores, error) {
	s := &Stores{HealthChecks: map[string]handlers.Pinger{}}
	if err := s.open(ctx, cfg); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Stores) open(ctx context.Context, cfg *config.Config) error {
	var sqlite *sql.DB

	if cfg.StoreBackend == config.StoreSQLite || cfg.HistoryBackend == config.HistorySQLite {
		db, err := storage.New(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		s.closers = append(s.closers, db.Close)
		if err := storage.Migrate(db); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		sqlite = db
		s.HealthChecks["database"] = handlers.PingFunc(db.PingContext)
		slog.InfoContext(ctx, "database initialized", "path", cfg.DBPath)
	}

	switch cfg.StoreBackend {
	case config.StorePostgres:
		db, err := pgstore.Open(ctx, cfg.DatabaseURL, cfg.DBDebug)
		if err != nil {
			return err
		}
		s.closers = append(s.closers, db.Close)
		if err := pgstore.Migrate(ctx, db); err != nil {
			return err
		}
		store := pgstore.New(db)
		s.Documents, s.Chunks = store, store
		s.DocumentWriter, s.ChunkWriter = store, store
		s.HealthChecks["postgres"] = store
		slog.InfoContext(ctx, "postgres store initialized")

	default:
		index, err := openVectorIndex(ctx, cfg, s)
		if err != nil {
			return err
		}
		docs := storage.NewDocumentRepo(sqlite)
		rows := storage.NewChunkRepo(sqlite)
		s.Documents = docs
		s.Chunks = search.SplitStore{VectorIndex: index, ChunkLookup: rows}
		s.DocumentWriter = docs
		s.ChunkWriter = indexer.SplitWriter{Rows: rows, Index: index}
	}

	switch cfg.HistoryBackend {
	case config.HistoryRedis:
		client, err := history.NewRedisClient(ctx, history.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return err
		}
		s.closers = append(s.closers, client.Close)
		s.History = history.NewRedisStore(client, 0)
		s.HealthChecks["redis"] = handlers.PingFunc(func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
	case config.HistoryMemory:
		s.History = history.NewMemoryStore()
	default:
		s.History = storage.NewHistoryRepo(sqlite)
	}
	slog.InfoContext(ctx, "history store initialized", "backend", cfg.HistoryBackend)

	return nil
}

func openVectorIndex(ctx context.Context, cfg *config.Config, s *Stores) (vectorstore.ChunkIndex, error) {
	if cfg.VectorBackend == config.VectorMemory {
		slog.WarnContext(ctx, "using in-process vector index; vectors are lost on restart")
		return vectorstore.NewMemoryStore()
	}

	store, err := vectorstore.NewQdrantStore(cfg.QdrantURL, cfg.QdrantCollection)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, store.Close)
	if err := store.EnsureCollection(ctx, cfg.EmbeddingVectorSize); err != nil {
		return nil, fmt.Errorf("failed to ensure qdrant collection: %w", err)
	}
	s.HealthChecks["vector_store"] = store
	slog.InfoContext(ctx, "qdrant collection ready", "collection", cfg.QdrantCollection, "vector_size", cfg.EmbeddingVectorSize)
	return store, nil
}

// NewGenerator returns the configured generation model client.
func NewGenerator(ctx context.Context, cfg *config.Config) (llm.Generator, error) {
	if cfg.LLMProvider == config.ProviderGemini {
		return llm.NewGeminiClient(ctx, llm.GeminiConfig{
			APIKey:      cfg.GeminiAPIKey,
			Model:       cfg.LLMModelName,
			Temperature: cfg.LLMTemperature,
		})
	}
	return llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModelName, cfg.LLMTemperature), nil
}

// NewEmbedder returns the configured embedding model client and checks that
// it produces vectors of the configured size.
func NewEmbedder(ctx context.Context, cfg *config.Config) (llm.Embedder, error) {
	var embedder llm.Embedder
	if cfg.EmbeddingProvider == config.ProviderGemini {
		client, err := llm.NewGeminiClient(ctx, llm.GeminiConfig{
			APIKey:         cfg.GeminiAPIKey,
			EmbeddingModel: cfg.EmbeddingModelName,
			Dimensions:     cfg.EmbeddingVectorSize,
		})
		if err != nil {
			return nil, err
		}
		embedder = client
	} else {
		embedder = llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModelName, cfg.EmbeddingVectorSize)
	}

	// Fail fast on a model/index size mismatch.
	vec, err := embedder.Embed(ctx, "test")
	if err != nil {
		return nil, fmt.Errorf("failed to validate embedding client: %w", err)
	}
	if len(vec) != cfg.EmbeddingVectorSize {
		return nil, fmt.Errorf("embedding vector size mismatch: expected %d, got %d", cfg.EmbeddingVectorSize, len(vec))
	}
	slog.InfoContext(ctx, "embedding client validated", "provider", cfg.EmbeddingProvider, "vector_size", cfg.EmbeddingVectorSize)
	return embedder, nil
}
