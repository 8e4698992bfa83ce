package bootstrap

import (
	"context"
	"testing"

	"github.com/lyzr/explorer/common/config"
	"github.com/lyzr/explorer/common/kv"
	"github.com/lyzr/explorer/common/logger"
	"github.com/lyzr/explorer/common/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("explorer-test")
	require.NoError(t, err)
	return cfg
}

func TestSetup_WithoutDB(t *testing.T) {
	ctx := context.Background()

	c, err := Setup(ctx, "explorer-test",
		WithoutDB(),
		WithCustomConfig(testConfig(t)),
		WithCustomLogger(logger.Discard()),
	)
	require.NoError(t, err)

	assert.Nil(t, c.DB)
	assert.Nil(t, c.Redis)
	assert.Nil(t, c.KV)
	assert.IsType(t, &notify.MemoryBus{}, c.Bus)
	assert.NotNil(t, c.Metrics)
	assert.NoError(t, c.Health(ctx))
	assert.NoError(t, c.Shutdown(ctx))
}

func TestSetup_KVBackendSQLite(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Tags.Backend = "kv"
	cfg.Tags.KVBackend = "sqlite"
	cfg.Tags.SQLitePath = t.TempDir() + "/tags.db"

	c, err := Setup(ctx, "explorer-test",
		WithoutDB(),
		WithoutMetrics(),
		WithCustomConfig(cfg),
		WithCustomLogger(logger.Discard()),
	)
	require.NoError(t, err)
	defer c.Shutdown(ctx)

	assert.IsType(t, &kv.SQLiteStore{}, c.KV)
	assert.Nil(t, c.Metrics)
}

func TestSetup_RedisSkippedFallsBackToMemory(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Tags.Backend = "kv"
	cfg.Tags.KVBackend = "redis"
	cfg.Tags.NotifyBackend = "redis"

	c, err := Setup(ctx, "explorer-test",
		WithoutDB(),
		WithoutRedis(),
		WithCustomConfig(cfg),
		WithCustomLogger(logger.Discard()),
	)
	require.NoError(t, err)
	defer c.Shutdown(ctx)

	assert.IsType(t, &kv.MemoryStore{}, c.KV)
	assert.IsType(t, &notify.MemoryBus{}, c.Bus)
}

func TestSetup_CustomBus(t *testing.T) {
	ctx := context.Background()
	bus := notify.NewMemoryBus(logger.Discard())

	c, err := Setup(ctx, "explorer-test",
		WithoutDB(),
		WithBus(bus),
		WithCustomConfig(testConfig(t)),
		WithCustomLogger(logger.Discard()),
	)
	require.NoError(t, err)

	assert.Same(t, bus, c.Bus)
	require.NoError(t, c.Shutdown(ctx))
	assert.NoError(t, c.Shutdown(ctx))
}
