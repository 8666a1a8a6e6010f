package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnv_Defaults(t *testing.T) {
	cfg := LoadEnv()

	assert.Equal(t, "dev", cfg.Server.AppEnv)
	assert.Equal(t, 1500*time.Millisecond, cfg.Sync.SettleDelay)
	assert.Equal(t, cfg.Sync.SettleDelay, cfg.Sync.RetryDelay)
	assert.False(t, cfg.Sync.StartOffline)
	assert.Equal(t, "stockagent.db", cfg.Storage.Path)
}

func TestLoadEnv_Overrides(t *testing.T) {
	t.Setenv("SYNC_SETTLE_DELAY", "250")
	t.Setenv("SYNC_RETRY_DELAY", "5s")
	t.Setenv("SYNC_START_OFFLINE", "true")
	t.Setenv("REMOTE_BASE_URL", "http://erp.local/api/v1")

	cfg := LoadEnv()

	assert.Equal(t, 250*time.Millisecond, cfg.Sync.SettleDelay)
	assert.Equal(t, 5*time.Second, cfg.Sync.RetryDelay)
	assert.True(t, cfg.Sync.StartOffline)
	assert.Equal(t, "http://erp.local/api/v1", cfg.Remote.BaseURL)
}

func TestLoad_YAMLOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage:\n  path: /var/lib/stock/agent.db\nsync:\n  retry_delay: 10s\n"), 0o600))
	t.Setenv("STOCK_CONFIG_FILE", path)
	t.Setenv("APP_ENV", "production")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/stock/agent.db", cfg.Storage.Path)
	assert.Equal(t, 10*time.Second, cfg.Sync.RetryDelay)
	assert.Equal(t, "production", cfg.Server.AppEnv)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("STOCK_CONFIG_FILE", filepath.Join(t.TempDir(), "nope.yaml"))

	_, err := Load()
	assert.Error(t, err)
}
