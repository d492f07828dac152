package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  path: /tmp/fixam.db
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "fixam", cfg.App.Name)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, float64(10), cfg.Server.RateLimit.RPS)
	assert.Equal(t, 20, cfg.Server.RateLimit.Burst)
	assert.Equal(t, "v1", cfg.Agent.CacheVersion)
	assert.Equal(t, 5, cfg.Agent.CDNTimeoutSeconds)
	assert.Equal(t, 50, cfg.Agent.ReplayBatch)
	assert.Equal(t, []string{"/api/"}, cfg.Agent.APIPrefixes)
	assert.Equal(t, []string{"/api/artisans/", "/api/users/"}, cfg.Agent.LiveOnlyPatterns)
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("FIXAM_DB_PATH", "/var/lib/fixam/app.db")
	t.Setenv("FIXAM_REDIS_PASSWORD", "s3cret")

	path := writeConfig(t, `
database:
  path: ${FIXAM_DB_PATH}
redis:
  address: localhost:6379
  password: ${FIXAM_REDIS_PASSWORD}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/fixam/app.db", cfg.Database.Path)
	assert.Equal(t, "s3cret", cfg.Redis.Password)
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
app:
  name: fixam
  environment: production
server:
  port: 9000
  rate_limit:
    rps: 25
    burst: 50
database:
  path: /tmp/fixam.db
agent:
  api_base: https://fixam.ng
  cache_version: v7
  static_assets:
    - /
    - /app.js
  cdn_hosts:
    - fonts.gstatic.com
  live_only_patterns:
    - /api/artisans/
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, float64(25), cfg.Server.RateLimit.RPS)
	assert.Equal(t, "v7", cfg.Agent.CacheVersion)
	assert.Equal(t, []string{"/", "/app.js"}, cfg.Agent.StaticAssets)
	assert.Equal(t, []string{"/api/artisans/"}, cfg.Agent.LiveOnlyPatterns)
}

func TestLoadValidation(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 8080
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database path")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
