package bootstrap

import (
	"github.com/lyzr/explorer/common/config"
	"github.com/lyzr/explorer/common/db"
	"github.com/lyzr/explorer/common/logger"
	"github.com/lyzr/explorer/common/notify"
)

// Option configures the bootstrap process
type Option func(*options)

type options struct {
	skipDB       bool
	skipRedis    bool
	skipMetrics  bool
	customLogger *logger.Logger
	customConfig *config.Config
	customBus    notify.Bus
	dbInitHook   func(*db.DB) error
}

// WithoutDB skips database initialization
func WithoutDB() Option {
	return func(o *options) {
		o.skipDB = true
	}
}

// WithoutRedis skips Redis even when a backend is configured to use it;
// memory implementations are used instead
func WithoutRedis() Option {
	return func(o *options) {
		o.skipRedis = true
	}
}

// WithoutMetrics skips Prometheus registration
func WithoutMetrics() Option {
	return func(o *options) {
		o.skipMetrics = true
	}
}

// WithCustomLogger uses a custom logger instead of creating one
func WithCustomLogger(log *logger.Logger) Option {
	return func(o *options) {
		o.customLogger = log
	}
}

// WithCustomConfig uses a custom config instead of loading from env
func WithCustomConfig(cfg *config.Config) Option {
	return func(o *options) {
		o.customConfig = cfg
	}
}

// WithBus uses the given notification bus instead of building one from config
func WithBus(bus notify.Bus) Option {
	return func(o *options) {
		o.customBus = bus
	}
}

// WithDBInitHook runs a custom function after DB initialization
// Useful for seeding data in tests and demos
func WithDBInitHook(hook func(*db.DB) error) Option {
	return func(o *options) {
		o.dbInitHook = hook
	}
}

func defaultOptions() *options {
	return &options{}
}
