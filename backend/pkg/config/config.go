package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Graph backends
const (
	BackendNeo4j  = "neo4j"
	BackendMemory = "memory"
)

// Config holds all application configuration
type Config struct {
	// App
	Port     string
	Env      string
	LogLevel string

	// Graph store
	GraphBackend     string
	Neo4jURI         string
	Neo4jUser        string
	Neo4jPassword    string
	Neo4jDatabase    string
	Neo4jMaxPoolSize int

	// Source records (canonical product data the graph is derived from)
	SourceDBPath string

	// Query engine
	QueryDefaultLimit int
	QueryMaxLimit     int
	QueryScanLimit    int // per-rung candidate bound for broadened queries
	QueryTimeout      time.Duration
	BatchConcurrency  int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		Env:               getEnv("ENV", "development"),
		LogLevel:          getEnv("LOG_LEVEL", ""),
		GraphBackend:      getEnv("GRAPH_BACKEND", BackendNeo4j),
		Neo4jURI:          getEnv("NEO4J_URI", "bolt://localhost:7687"),
		Neo4jUser:         getEnv("NEO4J_USER", "neo4j"),
		Neo4jPassword:     getEnv("NEO4J_PASSWORD", "password"),
		Neo4jDatabase:     getEnv("NEO4J_DATABASE", ""),
		Neo4jMaxPoolSize:  getEnvInt("NEO4J_MAX_POOL_SIZE", 50),
		SourceDBPath:      getEnv("SOURCE_DB_PATH", "data/products.db"),
		QueryDefaultLimit: getEnvInt("QUERY_DEFAULT_LIMIT", 10),
		QueryMaxLimit:     getEnvInt("QUERY_MAX_LIMIT", 50),
		QueryScanLimit:    getEnvInt("QUERY_SCAN_LIMIT", 500),
		QueryTimeout:      time.Duration(getEnvInt("QUERY_TIMEOUT_MS", 5000)) * time.Millisecond,
		BatchConcurrency:  getEnvInt("BATCH_CONCURRENCY", 4),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set
func (c *Config) Validate() error {
	switch c.GraphBackend {
	case BackendNeo4j:
		if c.Neo4jURI == "" {
			return fmt.Errorf("NEO4J_URI is required")
		}
		if c.Neo4jUser == "" {
			return fmt.Errorf("NEO4J_USER is required")
		}
		if c.Neo4jPassword == "" {
			return fmt.Errorf("NEO4J_PASSWORD is required")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("GRAPH_BACKEND must be %q or %q, got %q", BackendNeo4j, BackendMemory, c.GraphBackend)
	}
	if c.SourceDBPath == "" {
		return fmt.Errorf("SOURCE_DB_PATH is required")
	}
	if c.QueryDefaultLimit < 1 {
		return fmt.Errorf("QUERY_DEFAULT_LIMIT must be positive")
	}
	if c.QueryMaxLimit < c.QueryDefaultLimit {
		return fmt.Errorf("QUERY_MAX_LIMIT must be >= QUERY_DEFAULT_LIMIT")
	}
	if c.QueryScanLimit < c.QueryMaxLimit {
		return fmt.Errorf("QUERY_SCAN_LIMIT must be >= QUERY_MAX_LIMIT")
	}
	if c.QueryTimeout <= 0 {
		return fmt.Errorf("QUERY_TIMEOUT_MS must be positive")
	}
	if c.BatchConcurrency < 1 {
		return fmt.Errorf("BATCH_CONCURRENCY must be positive")
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}
