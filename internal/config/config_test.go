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

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, "database:\n  path: "+filepath.Join(dir, "test.db")+"\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.Booking.DefaultCapacity)
	assert.Equal(t, LockingLocal, cfg.Locking.Mode)
	assert.Equal(t, 8080, cfg.API.Port)
	assert.Equal(t, 20.0, cfg.API.RateLimitRPS)
	assert.Equal(t, 40, cfg.API.RateLimitBurst)
	assert.Equal(t, 8090, cfg.Monitoring.HealthCheckPort)
}

func TestLoadFull(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, `
database:
  path: `+filepath.Join(dir, "bookflow.db")+`
booking:
  default_capacity: 3
pricing:
  units:
    fixed: fixed
    hour: time
    day: time
locking:
  mode: redis
redis:
  address: localhost:6379
  lock_ttl_seconds: 5
api:
  port: 9000
  rate_limit_rps: 5
  rate_limit_burst: 10
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Booking.DefaultCapacity)
	assert.Equal(t, "time", cfg.Pricing.Units["hour"])
	assert.Equal(t, LockingRedis, cfg.Locking.Mode)
	assert.Equal(t, 9000, cfg.API.Port)
	assert.Equal(t, 5.0, cfg.API.RateLimitRPS)
	assert.Equal(t, "5s", cfg.RedisLockTTL().String())
}

func TestLoadEnvExpansion(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("BOOKFLOW_DB_PATH", filepath.Join(dir, "env.db"))
	path := writeConfig(t, "database:\n  path: ${BOOKFLOW_DB_PATH}\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "env.db"), cfg.Database.Path)
}

func TestLoadInvalidLockingMode(t *testing.T) {
	path := writeConfig(t, "locking:\n  mode: zookeeper\n")

	_, err := Load(path)
	assert.ErrorContains(t, err, "unknown locking mode")
}

func TestLoadRedisModeRequiresAddress(t *testing.T) {
	path := writeConfig(t, "locking:\n  mode: redis\n")

	_, err := Load(path)
	assert.ErrorContains(t, err, "requires redis.address")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
