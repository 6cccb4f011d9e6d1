package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	ServerPort string
	ServerHost string

	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Redis configuration
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	RedisURL      string

	// Catalog sync configuration
	CatalogDumpURL      string
	CatalogBatchSize    int
	CatalogTargetLang   string
	CatalogFallbackLang string
	CatalogRegionTag    string
	CatalogStrictRegion bool
	// CatalogProgressEvery is the processed-record cadence of sync progress
	// logging and status updates.
	CatalogProgressEvery int

	// Search configuration
	SearchSimilarityThreshold float64
	SearchDefaultLimit        int
	SearchMaxLimit            int
	SearchCacheTTL            time.Duration
}

// LoadConfig creates a new Config instance with values from environment
// variables, falling back to development defaults. In production, sensitive
// values are overridden from Docker secrets.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerPort: getEnv("SERVER_PORT", "8080"),
		ServerHost: getEnv("SERVER_HOST", "0.0.0.0"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "receptar"),
		DBSSLMode:  getEnv("DB_SSL_MODE", "disable"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       0,
		RedisURL:      getEnv("REDIS_URL", ""),

		CatalogDumpURL:       getEnv("CATALOG_DUMP_URL", "https://static.openfoodfacts.org/data/openfoodfacts-products.jsonl.gz"),
		CatalogBatchSize:     getEnvInt("CATALOG_BATCH_SIZE", 2000),
		CatalogTargetLang:    getEnv("CATALOG_TARGET_LANG", "cs"),
		CatalogFallbackLang:  getEnv("CATALOG_FALLBACK_LANG", "en"),
		CatalogRegionTag:     getEnv("CATALOG_REGION_TAG", "en:czech-republic"),
		CatalogStrictRegion:  getEnvBool("CATALOG_STRICT_REGION", false),
		CatalogProgressEvery: getEnvInt("CATALOG_PROGRESS_EVERY", 10000),

		SearchSimilarityThreshold: getEnvFloat("SEARCH_SIMILARITY_THRESHOLD", 0.2),
		SearchDefaultLimit:        getEnvInt("SEARCH_DEFAULT_LIMIT", 15),
		SearchMaxLimit:            getEnvInt("SEARCH_MAX_LIMIT", 50),
		SearchCacheTTL:            getEnvDuration("SEARCH_CACHE_TTL", 5*time.Minute),
	}

	// Docker secrets override environment values in production.
	if IsProduction() {
		applySecrets(cfg)
	}

	// Validate the configuration
	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// applySecrets loads sensitive values from Docker secrets, keeping the
// environment value when a secret file is missing.
func applySecrets(cfg *Config) {
	if v := readSecret("db_user"); v != "" {
		cfg.DBUser = v
	}
	if v := readSecret("db_password"); v != "" {
		cfg.DBPassword = v
	}
	if v := readSecret("redis_password"); v != "" {
		cfg.RedisPassword = v
	}
	if v := readSecret("redis_url"); v != "" {
		cfg.RedisURL = v
	}
}

// readSecret reads a Docker secret from the secrets directory
func readSecret(name string) string {
	secretsDir := os.Getenv("SECRETS_DIR")
	if secretsDir == "" {
		secretsDir = "/run/secrets"
	}
	secretPath := filepath.Join(secretsDir, name)
	if data, err := os.ReadFile(secretPath); err == nil {
		return strings.TrimSpace(string(data))
	}
	return ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
