package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/recordkit/recordkit/pkg/observability"
	"github.com/recordkit/recordkit/pkg/record"
	"github.com/recordkit/recordkit/pkg/storage"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Storage configuration
	Storage storage.Config

	// Lifecycle configuration
	Lifecycle LifecycleConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// AllowedOrigins enables CORS when non-empty.
	AllowedOrigins []string

	// MaxBodyBytes caps request body size.
	MaxBodyBytes int64
}

// LifecycleConfig holds record lifecycle settings
type LifecycleConfig struct {
	// DefaultPageSize is used when list requests omit a size.
	DefaultPageSize int

	// ResyncSchedule is the cron expression for the mirror re-sync sweep.
	ResyncSchedule string

	// ResyncBatch caps how many flagged records one sweep picks up.
	ResyncBatch int

	// RevivalTargets restricts which statuses a superadmin may revive a
	// deleted record into. Empty means any non-Deleted status.
	RevivalTargets []record.Status
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Storage:       loadStorageConfig(),
		Lifecycle:     loadLifecycleConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadServerConfig loads server configuration from environment
func loadServerConfig() ServerConfig {
	cfg := ServerConfig{
		Host:            getEnv("RECORDKIT_HOST", "0.0.0.0"),
		Port:            getEnv("RECORDKIT_PORT", "8080"),
		ReadTimeout:     getEnvDuration("RECORDKIT_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("RECORDKIT_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("RECORDKIT_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("RECORDKIT_SHUTDOWN_TIMEOUT", 30*time.Second),
		MaxBodyBytes:    getEnvInt64("RECORDKIT_MAX_BODY_BYTES", 1<<20),
	}
	if origins := getEnv("RECORDKIT_ALLOWED_ORIGINS", ""); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	}
	return cfg
}

// loadStorageConfig loads storage configuration from environment
func loadStorageConfig() storage.Config {
	cfg := storage.DefaultConfig()

	if driver := getEnv("RECORDKIT_DB_DRIVER", ""); driver != "" {
		cfg.Driver = driver
	}
	if dsn := getEnv("RECORDKIT_DB_DSN", ""); dsn != "" {
		cfg.DSN = dsn
	}
	if maxConns := getEnvInt("RECORDKIT_DB_MAX_CONNS", 0); maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	if minConns := getEnvInt("RECORDKIT_DB_MIN_CONNS", 0); minConns > 0 {
		cfg.MinConns = minConns
	}
	if timeout := getEnvDuration("RECORDKIT_DB_TIMEOUT", 0); timeout > 0 {
		cfg.Timeout = timeout
	}

	cfg.MirrorEnabled = getEnvBool("RECORDKIT_MIRROR_ENABLED", false)
	if redisURL := getEnv("RECORDKIT_REDIS_URL", ""); redisURL != "" {
		cfg.RedisURL = redisURL
	}
	if redisPassword := getEnv("RECORDKIT_REDIS_PASSWORD", ""); redisPassword != "" {
		cfg.RedisPassword = redisPassword
	}
	if redisDB := getEnvInt("RECORDKIT_REDIS_DB", -1); redisDB >= 0 {
		cfg.RedisDB = redisDB
	}
	if redisPoolSize := getEnvInt("RECORDKIT_REDIS_POOL_SIZE", 0); redisPoolSize > 0 {
		cfg.RedisPoolSize = redisPoolSize
	}

	if cacheSize := getEnvInt("RECORDKIT_CACHE_SIZE", -1); cacheSize >= 0 {
		cfg.CacheSize = cacheSize
	}

	return cfg
}

// loadLifecycleConfig loads lifecycle configuration from environment
func loadLifecycleConfig() LifecycleConfig {
	cfg := LifecycleConfig{
		DefaultPageSize: getEnvInt("RECORDKIT_DEFAULT_PAGE_SIZE", 20),
		ResyncSchedule:  getEnv("RECORDKIT_RESYNC_SCHEDULE", "*/5 * * * *"),
		ResyncBatch:     getEnvInt("RECORDKIT_RESYNC_BATCH", 100),
	}
	if raw := getEnv("RECORDKIT_REVIVAL_TARGETS", ""); raw != "" {
		for _, token := range strings.Split(raw, ",") {
			n, err := strconv.Atoi(strings.TrimSpace(token))
			if err != nil {
				continue
			}
			cfg.RevivalTargets = append(cfg.RevivalTargets, record.Status(n))
		}
	}
	return cfg
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:       observability.ParseLogLevel(getEnv("RECORDKIT_LOG_LEVEL", "info")),
		MetricsEnabled: getEnvBool("RECORDKIT_METRICS_ENABLED", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	switch c.Storage.Driver {
	case "postgres", "sqlite3":
	default:
		return fmt.Errorf("invalid database driver: %s (must be postgres or sqlite3)", c.Storage.Driver)
	}
	if c.Storage.DSN == "" {
		return fmt.Errorf("database DSN is required")
	}

	if c.Storage.MirrorEnabled && c.Storage.RedisURL == "" {
		return fmt.Errorf("redis URL is required when mirroring is enabled")
	}

	if c.Lifecycle.DefaultPageSize < 1 {
		return fmt.Errorf("default page size must be at least 1")
	}

	for _, target := range c.Lifecycle.RevivalTargets {
		if !target.Valid() || target == record.StatusDeleted {
			return fmt.Errorf("invalid revival target status: %d", target)
		}
	}

	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvInt64 returns an int64 environment variable or a default
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
