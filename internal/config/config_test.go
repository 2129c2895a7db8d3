package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, "/ws", cfg.Server.WebSocketPath)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.JWTExpiry)
	assert.Zero(t, cfg.WebSocket.PongWait(), "idle timeout is off by default")
	assert.Zero(t, cfg.WebSocket.PingPeriod())
	assert.Equal(t, 10*time.Second, cfg.WebSocket.WriteWait())
	assert.Equal(t, 50, cfg.Messages.DefaultPageSize)
	assert.Equal(t, 200, cfg.Messages.MaxPageSize)
	assert.False(t, cfg.Redis.Enabled)
	assert.False(t, cfg.Kafka.Enabled)
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
SERVER:
  PORT: "8080"
DATABASE:
  TYPE: sqlite
  SQLITE_PATH: /tmp/hub.db
WEBSOCKET:
  PONG_WAIT_SECONDS: 60
  PING_PERIOD_SECONDS: 54
`), 0o600))
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("AUTH_JWT_SECRET_KEY", "from-env")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port, "environment overrides the file")
	assert.Equal(t, "from-env", cfg.Auth.JWTSecretKey)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, "/tmp/hub.db", cfg.Database.SQLitePath)
	assert.Equal(t, time.Minute, cfg.WebSocket.PongWait())
	assert.Equal(t, 54*time.Second, cfg.WebSocket.PingPeriod())
}

func TestLoadConfigBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("SERVER: [unclosed"), 0o600))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}
