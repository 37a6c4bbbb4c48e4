// Package config handles application configuration loading from environment
// variables. It provides a centralized Config struct used across the application.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds all application configuration values loaded from the environment.
type Config struct {
	// Server settings
	Host string
	Port string
	Env  string // "development", "production", "testing"

	// Storage backend: "postgres" or "sqlite"
	DBDriver   string
	SQLitePath string

	// PostgreSQL connection
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Valkey (Redis-compatible cache). An empty host disables the page cache.
	ValkeyHost     string
	ValkeyPort     string
	ValkeyPassword string
	ValkeyDB       int
	PageCacheTTL   time.Duration

	// Rendering
	RenderMaxDepth int

	// Routing
	PagePathPrefix string // where global pages are mounted, e.g. "/" or "/site"
	ParentParam    string // chi URL param carrying the parent id
	ParentType     string // fixed owner type for parented routes; empty takes it from the URL
}

// Load reads configuration from environment variables, applying defaults
// for development where appropriate. Returns an error if critical values
// are missing or malformed.
func Load() (*Config, error) {
	cfg := &Config{
		Host: envOrDefault("APP_HOST", "0.0.0.0"),
		Port: envOrDefault("APP_PORT", "8080"),
		Env:  envOrDefault("APP_ENV", "development"),

		DBDriver:   strings.ToLower(envOrDefault("DB_DRIVER", DriverPostgres)),
		SQLitePath: envOrDefault("SQLITE_PATH", "data/quire.db"),

		DBHost:     envOrDefault("POSTGRES_HOST", "localhost"),
		DBPort:     envOrDefault("POSTGRES_PORT", "5432"),
		DBUser:     envOrDefault("POSTGRES_USER", "quire"),
		DBPassword: envOrDefault("POSTGRES_PASSWORD", "changeme"),
		DBName:     envOrDefault("POSTGRES_DB", "quire"),

		ValkeyHost:     os.Getenv("VALKEY_HOST"),
		ValkeyPort:     envOrDefault("VALKEY_PORT", "6379"),
		ValkeyPassword: os.Getenv("VALKEY_PASSWORD"),

		PagePathPrefix: envOrDefault("PAGE_PATH_PREFIX", "/"),
		ParentParam:    envOrDefault("PARENT_PARAM", "parent_id"),
		ParentType:     os.Getenv("PARENT_TYPE"),
	}

	switch cfg.DBDriver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("DB_DRIVER must be %q or %q, got %q", DriverPostgres, DriverSQLite, cfg.DBDriver)
	}

	ttl, err := time.ParseDuration(envOrDefault("PAGE_CACHE_TTL", "5m"))
	if err != nil {
		return nil, fmt.Errorf("PAGE_CACHE_TTL: %w", err)
	}
	if ttl < 0 {
		return nil, fmt.Errorf("PAGE_CACHE_TTL must not be negative, got %s", ttl)
	}
	cfg.PageCacheTTL = ttl

	valkeyDB, err := strconv.Atoi(envOrDefault("VALKEY_DB", "0"))
	if err != nil || valkeyDB < 0 {
		return nil, fmt.Errorf("VALKEY_DB must be a non-negative database index, got %q", os.Getenv("VALKEY_DB"))
	}
	cfg.ValkeyDB = valkeyDB

	depth, err := strconv.Atoi(envOrDefault("RENDER_MAX_DEPTH", "10"))
	if err != nil {
		return nil, fmt.Errorf("RENDER_MAX_DEPTH: %w", err)
	}
	if depth <= 0 {
		return nil, fmt.Errorf("RENDER_MAX_DEPTH must be positive, got %d", depth)
	}
	cfg.RenderMaxDepth = depth

	if !strings.HasPrefix(cfg.PagePathPrefix, "/") {
		cfg.PagePathPrefix = "/" + cfg.PagePathPrefix
	}

	if cfg.Env == "production" && cfg.DBDriver == DriverPostgres {
		if cfg.DBPassword == "changeme" {
			return nil, fmt.Errorf("POSTGRES_PASSWORD must be set in production")
		}
	}

	return cfg, nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName,
	)
}

// Addr returns the server listen address (host:port).
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDev returns true if the application is running in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// PageCacheEnabled reports whether rendered pages should be cached in Valkey.
func (c *Config) PageCacheEnabled() bool {
	return c.ValkeyHost != "" && c.PageCacheTTL > 0
}

// envOrDefault reads an environment variable, returning a fallback if unset or empty.
func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
