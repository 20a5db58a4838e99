package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "source:\n  base_url: http://rm.local\n"))
	require.NoError(t, err)

	assert.Equal(t, "http://rm.local", cfg.Source.BaseURL)
	assert.Equal(t, 200, cfg.Source.PageSize)
	assert.Equal(t, 30*time.Second, cfg.Source.Timeout)
	assert.Equal(t, "UTC", cfg.Source.Timezone)
	assert.Equal(t, time.Minute, cfg.Feed.PollInterval)
	assert.Equal(t, 10*time.Minute, cfg.Sessions.IdleTimeout)
	assert.Equal(t, 256, cfg.Sessions.UpdateBuffer)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 3600, cfg.Push.TTL)
	assert.Equal(t, 1, cfg.WorkerPool.Size)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5*time.Minute, cfg.Server.CacheTTL)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
server:
  port: 9090
  request_ip_header: X-Real-IP
source:
  base_url: http://rm.local
  page_size: 50
  headers:
    Authorization: Bearer token
feed:
  poll_enabled: true
  poll_interval_seconds: 5
database:
  driver: sqlite
  dsn: "file::memory:"
worker_pool:
  size: 4
`))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "X-Real-IP", cfg.Server.RequestIPHeader)
	assert.Equal(t, 50, cfg.Source.PageSize)
	assert.Equal(t, "Bearer token", cfg.Source.Headers["Authorization"])
	assert.True(t, cfg.Feed.PollEnabled)
	assert.Equal(t, 5*time.Second, cfg.Feed.PollInterval)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 4, cfg.WorkerPool.Size)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
