package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("explorer")
	require.NoError(t, err)

	assert.Equal(t, "explorer", cfg.Service.Name)
	assert.Equal(t, 1000, cfg.Explorer.BatchSize)
	assert.Equal(t, 50, cfg.Explorer.PageSize)
	assert.Equal(t, "postgres", cfg.Tags.Backend)
	assert.Equal(t, "reload", cfg.Tags.ReconcileStrategy)
	assert.False(t, cfg.NeedsRedis())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("EXPLORER_BATCH_SIZE", "250")
	t.Setenv("TAG_BACKEND", "KV")
	t.Setenv("KV_BACKEND", "redis")
	t.Setenv("NOTIFY_BACKEND", "redis")
	t.Setenv("RECONCILE_STRATEGY", "patch")
	t.Setenv("EXPLORER_LOAD_TIMEOUT", "30s")

	cfg, err := Load("explorer")
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Service.Port)
	assert.Equal(t, 250, cfg.Explorer.BatchSize)
	assert.Equal(t, "kv", cfg.Tags.Backend)
	assert.Equal(t, "patch", cfg.Tags.ReconcileStrategy)
	assert.Equal(t, 30*time.Second, cfg.Explorer.LoadTimeout)
	assert.True(t, cfg.NeedsRedis())
}

func TestLoadTagConfig(t *testing.T) {
	t.Setenv("RECONCILE_STRATEGY", "Patch")
	t.Setenv("TAG_SERIAL_QUEUE", "true")

	cfg := LoadTagConfig()
	assert.Equal(t, "patch", cfg.ReconcileStrategy)
	assert.True(t, cfg.SerialQueue)
	assert.Equal(t, "postgres", cfg.Backend)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("EXPLORER_PAGE_SIZE", "lots")

	cfg, err := Load("explorer")
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Explorer.PageSize)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Service.Port = 0 }},
		{"no db host", func(c *Config) { c.Database.Host = "" }},
		{"conns", func(c *Config) { c.Database.MinConns = c.Database.MaxConns + 1 }},
		{"batch size", func(c *Config) { c.Explorer.BatchSize = 0 }},
		{"page size", func(c *Config) { c.Explorer.PageSize = -1 }},
		{"tag backend", func(c *Config) { c.Tags.Backend = "mongo" }},
		{"kv backend", func(c *Config) { c.Tags.KVBackend = "etcd" }},
		{"notify backend", func(c *Config) { c.Tags.NotifyBackend = "kafka" }},
		{"strategy", func(c *Config) { c.Tags.ReconcileStrategy = "merge" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("explorer")
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDatabaseURL(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{
		User: "u", Password: "p", Host: "db", Port: 5433, Database: "explorer",
	}}
	assert.Equal(t, "postgres://u:p@db:5433/explorer?sslmode=disable", cfg.DatabaseURL())
}
