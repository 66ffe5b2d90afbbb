package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "memory", cfg.KV.Driver)
	assert.Equal(t, 3, cfg.Rate.Login.Limit)
	assert.Equal(t, "5m", cfg.Rate.Login.Window)
	assert.Equal(t, 2, cfg.Rate.Registration.Limit)
	assert.Equal(t, "10m", cfg.Rate.Registration.Window)
	assert.Equal(t, 5, cfg.Auth.Session.MaxPerPrincipal)
	assert.Equal(t, "30m", cfg.Auth.Session.IdleTimeout)
	assert.Equal(t, "15m", cfg.Auth.Lockout.Duration)
	assert.EqualValues(t, 5, cfg.Honeypot.BlockThreshold)
	assert.Equal(t, "5m", cfg.Sweeper.Interval)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeTempConfig(t, `
server:
  addr: ":9999"
rate:
  login:
    limit: 10
    window: 1m
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, 10, cfg.Rate.Login.Limit)
	assert.Equal(t, "1m", cfg.Rate.Login.Window)
	// Untouched sections keep their defaults
	assert.Equal(t, 2, cfg.Rate.Registration.Limit)
}

func TestLoad_InvalidDuration(t *testing.T) {
	path := writeTempConfig(t, `
auth:
  nonce_ttl: "not-a-duration"
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth.nonce_ttl")
}

func TestLoad_ProdRequiresRedis(t *testing.T) {
	path := writeTempConfig(t, `
app:
  app_env: prod
kv:
  driver: memory
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_ADDR", ":7777")
	t.Setenv("KV_DRIVER", "redis")
	t.Setenv("REDIS_ADDR", "redis.internal:6379")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":7777", cfg.Server.Addr)
	assert.Equal(t, "redis", cfg.KV.Driver)
	assert.Equal(t, "redis.internal:6379", cfg.KV.Redis.Addr)
}

func TestDuration(t *testing.T) {
	assert.Equal(t, 5*time.Minute, Duration("5m"))
}
