package bootstrap

import (
	"context"
	"fmt"

	"github.com/lyzr/explorer/common/config"
	"github.com/lyzr/explorer/common/db"
	"github.com/lyzr/explorer/common/kv"
	"github.com/lyzr/explorer/common/logger"
	"github.com/lyzr/explorer/common/metrics"
	"github.com/lyzr/explorer/common/notify"
	"github.com/lyzr/explorer/common/redis"
)

// kvKeyPrefix namespaces the explorer's keys in a shared Redis
const kvKeyPrefix = "explorer:kv:"

// Setup initializes all service components
// This is the main entry point for all services
func Setup(ctx context.Context, serviceName string, opts ...Option) (*Components, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	components := &Components{
		cleanupFuncs: make([]func() error, 0),
	}

	// 1. Load configuration
	var err error
	if options.customConfig != nil {
		components.Config = options.customConfig
	} else {
		components.Config, err = config.Load(serviceName)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}
	cfg := components.Config

	// 2. Initialize logger
	if options.customLogger != nil {
		components.Logger = options.customLogger
	} else {
		components.Logger = logger.New(cfg.Service.LogLevel, cfg.Service.LogFormat)
	}
	log := components.Logger

	log.Info("initializing service",
		"service", serviceName,
		"environment", cfg.Service.Environment,
	)

	// 3. Initialize database (if not skipped)
	if !options.skipDB {
		log.Info("connecting to database")
		components.DB, err = db.New(ctx, cfg, log)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		components.addCleanup(func() error {
			log.Info("closing database connection")
			components.DB.Close()
			return nil
		})

		if options.dbInitHook != nil {
			log.Info("running database init hook")
			if err := options.dbInitHook(components.DB); err != nil {
				components.Shutdown(ctx)
				return nil, fmt.Errorf("database init hook failed: %w", err)
			}
		}
	}

	// 4. Connect Redis when a backend needs it
	if !options.skipRedis && cfg.NeedsRedis() {
		components.Redis, err = redis.Dial(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, log)
		if err != nil {
			components.Shutdown(ctx)
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}

		components.addCleanup(func() error {
			log.Info("closing redis connection")
			return components.Redis.Close()
		})
	}

	// 5. Notification bus
	switch {
	case options.customBus != nil:
		components.Bus = options.customBus
	case cfg.Tags.NotifyBackend == "redis" && components.Redis != nil:
		components.Bus = notify.NewRedisBus(components.Redis, log)
	default:
		components.Bus = notify.NewMemoryBus(log)
	}
	log.Info("notification bus ready", "type", fmt.Sprintf("%T", components.Bus))

	components.addCleanup(func() error {
		log.Info("closing notification bus")
		return components.Bus.Close()
	})

	// 6. Key/value store for the kv tag backend
	if cfg.Tags.Backend == "kv" {
		components.KV, err = openKV(ctx, cfg, components.Redis, log)
		if err != nil {
			components.Shutdown(ctx)
			return nil, err
		}

		components.addCleanup(func() error {
			log.Info("closing kv store")
			return components.KV.Close()
		})
	}

	// 7. Metrics
	if !options.skipMetrics && cfg.Metrics.Enabled {
		components.Metrics = metrics.New()
	}

	log.Info("service initialization complete",
		"service", serviceName,
		"db", components.DB != nil,
		"redis", components.Redis != nil,
		"kv", components.KV != nil,
		"metrics", components.Metrics != nil,
	)

	return components, nil
}

func openKV(ctx context.Context, cfg *config.Config, rc *redis.Client, log *logger.Logger) (kv.Store, error) {
	log.Info("initializing kv store", "type", cfg.Tags.KVBackend)

	switch cfg.Tags.KVBackend {
	case "redis":
		if rc == nil {
			log.Warn("redis unavailable, falling back to memory kv store")
			return kv.NewMemoryStore(log), nil
		}
		return kv.NewRedisStore(rc, kvKeyPrefix), nil
	case "sqlite":
		store, err := kv.OpenSQLite(ctx, cfg.Tags.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite kv store: %w", err)
		}
		return store, nil
	default:
		return kv.NewMemoryStore(log), nil
	}
}
