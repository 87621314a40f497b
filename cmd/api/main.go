package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"docuchat-ai/internal/app"
	"docuchat-ai/internal/citation"
	"docuchat-ai/internal/config"
	"docuchat-ai/internal/embedcache"
	"docuchat-ai/internal/http"
	"docuchat-ai/internal/rag"
	"docuchat-ai/internal/search"
	"docuchat-ai/internal/service"
)

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, err := app.OpenStores(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open stores: %v", err)
	}
	defer func() {
		if err := stores.Close(); err != nil {
			slog.Error("Failed to close stores", "error", err)
		}
	}()

	embedder, err := app.NewEmbedder(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to create embedding client: %v", err)
	}
	generator, err := app.NewGenerator(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to create LLM client: %v", err)
	}

	// Query embeddings are cached; repeated questions skip the model call.
	cachedEmbedder := embedcache.New(embedder, cfg.EmbedCacheTTL, cfg.EmbedCacheCapacity)

	searchService := search.NewService(cachedEmbedder, stores.Chunks, stores.Documents, cfg.SearchLimit)
	ragEngine := rag.NewEngine(generator, searchService, stores.Documents, citation.NewService(generator))
	chatService := service.NewChatService(ragEngine, stores.History, cfg.HistoryLimit)
	slog.Info("RAG engine initialized",
		"llm_provider", cfg.LLMProvider, "store", cfg.StoreBackend, "history", cfg.HistoryBackend)

	router := http.NewRouter(&http.Deps{
		ChatService:    chatService,
		Documents:      stores.Documents,
		HealthChecks:   stores.HealthChecks,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})

	// No write timeout: streamed answers outlive any fixed deadline.
	server := &nethttp.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting API server", "addr", server.Addr)
		slog.Debug("LLM configuration", "base_url", cfg.LLMBaseURL, "model", cfg.LLMModelName)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, nethttp.ErrServerClosed) {
			log.Fatalf("API server failed: %v", err)
		}
	case <-ctx.Done():
		slog.Info("Shutting down API server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Graceful shutdown failed", "error", err)
		}
	}
}
