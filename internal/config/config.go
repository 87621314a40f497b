package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends.
const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Vector index backends (sqlite store only).
const (
	VectorQdrant = "qdrant"
	VectorMemory = "memory"
)

// History backends.
const (
	HistorySQLite = "sqlite"
	HistoryRedis  = "redis"
	HistoryMemory = "memory"
)

// Model providers.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Config holds all configuration for the application.
type Config struct {
	APIPort   string
	LogLevel  slog.Level
	LogFormat string

	LLMProvider    string
	LLMBaseURL     string
	LLMModelName   string
	LLMAPIKey      string
	LLMTemperature float32

	EmbeddingProvider   string
	EmbeddingBaseURL    string
	EmbeddingModelName  string
	EmbeddingVectorSize int
	GeminiAPIKey        string

	StoreBackend  string
	DBPath        string
	DatabaseURL   string
	DBDebug       bool
	VectorBackend string

	QdrantURL        string
	QdrantCollection string

	HistoryBackend string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	HistoryLimit   int

	SearchLimit        int
	EmbedCacheTTL      time.Duration
	EmbedCacheCapacity int

	RateLimitRPS   float64
	RateLimitBurst int
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates required fields.
// If a .env file exists in the current directory or one of its parents, it is loaded first.
// Environment variables already set take precedence over .env file values.
func Load() (*Config, error) {
	_ = godotenv.Load()

	wd, err := os.Getwd()
	if err == nil {
		dir := wd
		for i := 0; i < 5; i++ {
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	cfg := &Config{
		APIPort:            getEnv("API_PORT", "9000"),
		LogFormat:          strings.ToLower(getEnv("LOG_FORMAT", "text")),
		LLMProvider:        strings.ToLower(getEnv("LLM_PROVIDER", ProviderOpenAI)),
		LLMBaseURL:         getEnv("LLM_BASE_URL", "http://localhost:8080"),
		LLMModelName:       getEnv("LLM_MODEL", "Llama-3.1-8B-Instruct"),
		LLMAPIKey:          getEnv("LLM_API_KEY", "dummy-key"),
		EmbeddingProvider:  strings.ToLower(getEnv("EMBEDDING_PROVIDER", ProviderOpenAI)),
		EmbeddingBaseURL:   getEnv("EMBEDDING_BASE_URL", "http://localhost:8081"),
		EmbeddingModelName: getEnv("EMBEDDING_MODEL_NAME", "granite-embedding-278m-multilingual"),
		GeminiAPIKey:       getEnv("GEMINI_API_KEY", ""),
		StoreBackend:       strings.ToLower(getEnv("STORE_BACKEND", StoreSQLite)),
		DBPath:             getEnv("DB_PATH", "./data/docuchat.db"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		VectorBackend:      strings.ToLower(getEnv("VECTOR_BACKEND", VectorQdrant)),
		QdrantURL:          getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantCollection:   getEnv("QDRANT_COLLECTION", "chunks"),
		HistoryBackend:     strings.ToLower(getEnv("HISTORY_BACKEND", HistorySQLite)),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
	}

	if cfg.LogLevel, err = parseLevel(getEnv("LOG_LEVEL", "info")); err != nil {
		return nil, err
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("LOG_FORMAT must be json or text, got %q", cfg.LogFormat)
	}

	// Must match the output size of the embedding model; a change requires rebuilding the vector index.
	vectorSizeStr := getEnv("EMBEDDING_VECTOR_SIZE", "")
	if vectorSizeStr == "" {
		return nil, fmt.Errorf("EMBEDDING_VECTOR_SIZE is required")
	}
	if cfg.EmbeddingVectorSize, err = strconv.Atoi(vectorSizeStr); err != nil {
		return nil, fmt.Errorf("EMBEDDING_VECTOR_SIZE must be a valid integer: %w", err)
	}
	if cfg.EmbeddingVectorSize <= 0 {
		return nil, fmt.Errorf("EMBEDDING_VECTOR_SIZE must be greater than 0")
	}

	if err := oneOf("LLM_PROVIDER", cfg.LLMProvider, ProviderOpenAI, ProviderGemini); err != nil {
		return nil, err
	}
	if err := oneOf("EMBEDDING_PROVIDER", cfg.EmbeddingProvider, ProviderOpenAI, ProviderGemini); err != nil {
		return nil, err
	}
	if (cfg.LLMProvider == ProviderGemini || cfg.EmbeddingProvider == ProviderGemini) && cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required when a gemini provider is selected")
	}
	if err := oneOf("STORE_BACKEND", cfg.StoreBackend, StoreSQLite, StorePostgres); err != nil {
		return nil, err
	}
	if err := oneOf("VECTOR_BACKEND", cfg.VectorBackend, VectorQdrant, VectorMemory); err != nil {
		return nil, err
	}
	if err := oneOf("HISTORY_BACKEND", cfg.HistoryBackend, HistorySQLite, HistoryRedis, HistoryMemory); err != nil {
		return nil, err
	}
	if cfg.StoreBackend == StorePostgres && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required when STORE_BACKEND=postgres")
	}

	if cfg.DBDebug, err = strconv.ParseBool(getEnv("DB_DEBUG", "false")); err != nil {
		return nil, fmt.Errorf("DB_DEBUG must be a boolean: %w", err)
	}
	temperature, err := strconv.ParseFloat(getEnv("LLM_TEMPERATURE", "0.2"), 32)
	if err != nil {
		return nil, fmt.Errorf("LLM_TEMPERATURE must be a number: %w", err)
	}
	cfg.LLMTemperature = float32(temperature)

	if cfg.RedisDB, err = positiveInt("REDIS_DB", "0", true); err != nil {
		return nil, err
	}
	if cfg.HistoryLimit, err = positiveInt("HISTORY_LIMIT", "6", true); err != nil {
		return nil, err
	}
	if cfg.SearchLimit, err = positiveInt("SEARCH_LIMIT", "10", false); err != nil {
		return nil, err
	}
	if cfg.EmbedCacheCapacity, err = positiveInt("EMBED_CACHE_CAPACITY", "100", false); err != nil {
		return nil, err
	}
	if cfg.RateLimitBurst, err = positiveInt("RATE_LIMIT_BURST", "10", false); err != nil {
		return nil, err
	}
	if cfg.EmbedCacheTTL, err = time.ParseDuration(getEnv("EMBED_CACHE_TTL", "5m")); err != nil {
		return nil, fmt.Errorf("EMBED_CACHE_TTL must be a duration: %w", err)
	}
	if cfg.EmbedCacheTTL <= 0 {
		return nil, fmt.Errorf("EMBED_CACHE_TTL must be greater than 0")
	}
	if cfg.RateLimitRPS, err = strconv.ParseFloat(getEnv("RATE_LIMIT_RPS", "5"), 64); err != nil {
		return nil, fmt.Errorf("RATE_LIMIT_RPS must be a number: %w", err)
	}
	if cfg.RateLimitRPS <= 0 {
		return nil, fmt.Errorf("RATE_LIMIT_RPS must be greater than 0")
	}

	if cfg.StoreBackend == StoreSQLite || cfg.HistoryBackend == HistorySQLite {
		dataDir := filepath.Dir(cfg.DBPath)
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	return cfg, nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func positiveInt(key, defaultValue string, allowZero bool) (int, error) {
	n, err := strconv.Atoi(getEnv(key, defaultValue))
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	if n < 0 || (n == 0 && !allowZero) {
		return 0, fmt.Errorf("%s must be greater than 0", key)
	}
	return n, nil
}

func oneOf(key, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of %s, got %q", key, strings.Join(allowed, "|"), value)
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL must be debug, info, warn or error: %w", err)
	}
	return level, nil
}
