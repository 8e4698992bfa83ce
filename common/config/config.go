package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all service configuration
type Config struct {
	Service  ServiceConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Explorer ExplorerConfig
	Tags     TagConfig
	Metrics  MetricsConfig
}

// ServiceConfig holds service-specific settings
type ServiceConfig struct {
	Name        string
	Port        int
	Environment string
	LogLevel    string
	LogFormat   string
}

// DatabaseConfig holds Postgres connection settings
type DatabaseConfig struct {
	Host        string
	Port        int
	Database    string
	User        string
	Password    string
	MaxConns    int
	MinConns    int
	MaxIdleTime time.Duration
	MaxLifetime time.Duration
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// ExplorerConfig holds record loading and paging settings
type ExplorerConfig struct {
	BatchSize   int
	PageSize    int
	LoadTimeout time.Duration
}

// TagConfig selects where tags live and how change events are delivered
type TagConfig struct {
	Backend           string // "postgres" or "kv"
	KVBackend         string // "memory", "redis" or "sqlite"
	SQLitePath        string
	NotifyBackend     string // "memory" or "redis"
	ReconcileStrategy string // "reload" or "patch"
	SerialQueue       bool
}

// MetricsConfig holds Prometheus settings
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// Load loads configuration from environment variables. A .env file in the
// working directory is read first when present; real env vars win.
func Load(serviceName string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Service: ServiceConfig{
			Name:        serviceName,
			Port:        getEnvInt("PORT", 8080),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			LogFormat:   getEnv("LOG_FORMAT", "text"),
		},
		Database: DatabaseConfig{
			Host:        getEnv("POSTGRES_HOST", "localhost"),
			Port:        getEnvInt("POSTGRES_PORT", 5432),
			Database:    getEnv("POSTGRES_DB", "explorer"),
			User:        getEnv("POSTGRES_USER", "explorer"),
			Password:    getEnv("POSTGRES_PASSWORD", "explorer"),
			MaxConns:    getEnvInt("POSTGRES_MAX_CONNS", 20),
			MinConns:    getEnvInt("POSTGRES_MIN_CONNS", 2),
			MaxIdleTime: getEnvDuration("POSTGRES_MAX_IDLE_TIME", 30*time.Minute),
			MaxLifetime: getEnvDuration("POSTGRES_MAX_LIFETIME", 1*time.Hour),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Explorer: ExplorerConfig{
			BatchSize:   getEnvInt("EXPLORER_BATCH_SIZE", 1000),
			PageSize:    getEnvInt("EXPLORER_PAGE_SIZE", 50),
			LoadTimeout: getEnvDuration("EXPLORER_LOAD_TIMEOUT", 2*time.Minute),
		},
		Tags: loadTagConfig(),
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Path:    getEnv("METRICS_PATH", "/metrics"),
		},
	}

	return cfg, cfg.Validate()
}

// LoadTagConfig reads only the tag settings, for clients that have no
// database or service settings of their own
func LoadTagConfig() TagConfig {
	_ = godotenv.Load()
	return loadTagConfig()
}

func loadTagConfig() TagConfig {
	return TagConfig{
		Backend:           strings.ToLower(getEnv("TAG_BACKEND", "postgres")),
		KVBackend:         strings.ToLower(getEnv("KV_BACKEND", "memory")),
		SQLitePath:        getEnv("SQLITE_PATH", "explorer_tags.db"),
		NotifyBackend:     strings.ToLower(getEnv("NOTIFY_BACKEND", "memory")),
		ReconcileStrategy: strings.ToLower(getEnv("RECONCILE_STRATEGY", "reload")),
		SerialQueue:       getEnvBool("TAG_SERIAL_QUEUE", false),
	}
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.Service.Port < 1 || c.Service.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Service.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("max_conns must be >= min_conns")
	}

	if c.Explorer.BatchSize < 1 {
		return fmt.Errorf("invalid batch size: %d", c.Explorer.BatchSize)
	}

	if c.Explorer.PageSize < 1 {
		return fmt.Errorf("invalid page size: %d", c.Explorer.PageSize)
	}

	switch c.Tags.Backend {
	case "postgres", "kv":
	default:
		return fmt.Errorf("unknown tag backend: %s", c.Tags.Backend)
	}

	switch c.Tags.KVBackend {
	case "memory", "redis", "sqlite":
	default:
		return fmt.Errorf("unknown kv backend: %s", c.Tags.KVBackend)
	}

	switch c.Tags.NotifyBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown notify backend: %s", c.Tags.NotifyBackend)
	}

	switch c.Tags.ReconcileStrategy {
	case "reload", "patch":
	default:
		return fmt.Errorf("unknown reconcile strategy: %s", c.Tags.ReconcileStrategy)
	}

	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
	)
}

// NeedsRedis reports whether any configured backend talks to Redis
func (c *Config) NeedsRedis() bool {
	return c.Tags.NotifyBackend == "redis" ||
		(c.Tags.Backend == "kv" && c.Tags.KVBackend == "redis")
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
