package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Embedding modes. Which one is active is an explicit configuration choice;
// there is no implicit fallback from the live model to the deterministic stub.
const (
	EmbedModeGemini        = "gemini"
	EmbedModeDeterministic = "deterministic"
)

// Index backends.
const (
	IndexBackendPostgres = "postgres"
	IndexBackendSQLite   = "sqlite"
)

type Config struct {
	DatabaseURL  string
	SQLitePath   string
	IndexBackend string
	AIAPIKey     string
	GenModel     string
	EmbedModel   string
	EmbedDim     int
	EmbedMode    string
	Port         string
	LogJSON      bool
	Debug        bool

	RetryMaxAttempts   int
	RetryBackoffMillis int
}

// LoadConfig loads the environment variables and returns the config.
func LoadConfig() (*Config, error) {

	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		SQLitePath:         getEnv("SQLITE_PATH", "veritas.db"),
		IndexBackend:       getEnv("INDEX_BACKEND", IndexBackendPostgres),
		AIAPIKey:           getEnv("GEMINI_API_KEY", ""),
		GenModel:           getEnv("GEN_MODEL", "gemini-1.5-flash"),
		EmbedModel:         getEnv("EMBED_MODEL", "text-embedding-004"),
		EmbedDim:           getEnvInt("EMBED_DIM", 1536),
		EmbedMode:          getEnv("EMBED_MODE", EmbedModeGemini),
		Port:               getEnv("PORT", "8080"),
		LogJSON:            getEnvBool("LOG_JSON", false),
		Debug:              getEnvBool("DEBUG", false),
		RetryMaxAttempts:   getEnvInt("RETRY_MAX_ATTEMPTS", 3),
		RetryBackoffMillis: getEnvInt("RETRY_BACKOFF_MS", 500),
	}

	switch cfg.EmbedMode {
	case EmbedModeGemini, EmbedModeDeterministic:
	default:
		return nil, fmt.Errorf("EMBED_MODE must be %q or %q, got %q", EmbedModeGemini, EmbedModeDeterministic, cfg.EmbedMode)
	}

	switch cfg.IndexBackend {
	case IndexBackendPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL not set but INDEX_BACKEND is %q", IndexBackendPostgres)
		}
	case IndexBackendSQLite:
	default:
		return nil, fmt.Errorf("INDEX_BACKEND must be %q or %q, got %q", IndexBackendPostgres, IndexBackendSQLite, cfg.IndexBackend)
	}

	if cfg.AIAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY not set")
	}
	if cfg.EmbedDim <= 0 {
		return nil, fmt.Errorf("EMBED_DIM must be positive, got %d", cfg.EmbedDim)
	}

	return cfg, nil
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("WARN: %s=%q not an int, using default %d", key, v, def)
		return def
	}
	return n
}

func getEnvBool(key string, def bool) bool {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("WARN: %s=%q not a bool, using default %t", key, v, def)
		return def
	}
	return b
}
