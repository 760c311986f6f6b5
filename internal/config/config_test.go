package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Payment.GatewayTimeout)
	assert.Equal(t, 30*time.Second, cfg.Payment.LockTTL)
	assert.False(t, cfg.Database.AutoMigrate)
}

func TestLoad_FileThenEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "9090"
database:
  host: db.internal
  auto_migrate: true
payment:
  gateway_timeout: 3s
  lock_ttl: 1m
log:
  level: debug
`), 0o600))

	t.Setenv("CONFIG_PATH", path)
	t.Setenv("DB_HOST", "db.override")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("PAYMENT_LOCK_TTL", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "db.override", cfg.Database.Host)
	assert.True(t, cfg.Database.AutoMigrate)
	assert.Equal(t, 3*time.Second, cfg.Payment.GatewayTimeout)
	assert.Equal(t, time.Minute, cfg.Payment.LockTTL, "unparseable values keep the file setting")
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "postgres", cfg.Database.User)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	assert.Error(t, err)
}
