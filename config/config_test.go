package config_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/ticket-recon/config"
)

var keys = []string{
	"PORT", "DATABASE_PATH", "LOG_LEVEL", "RUN_RETENTION", "RETENTION_INTERVAL",
	"CACHE_TTL", "MAX_UPLOAD_BYTES", "CORS_ORIGINS",
}

// clearEnv blanks every key for the test; empty values count as unset.
func clearEnv(t *testing.T) {
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := config.Load(zerolog.Nop(), filepath.Join(t.TempDir(), "missing.env"))

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "./ticket-recon.db", cfg.DatabasePath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 30*24*time.Hour, cfg.RunRetention)
	assert.Equal(t, time.Hour, cfg.RetentionInterval)
	assert.Equal(t, 10*time.Minute, cfg.CacheTTL)
	assert.Equal(t, int64(20<<20), cfg.MaxUploadBytes)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
}

func TestLoad_Environment(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("RUN_RETENTION", "72h")
	t.Setenv("CACHE_TTL", "0s")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test,")

	cfg := config.Load(zerolog.Nop(), filepath.Join(t.TempDir(), "missing.env"))

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 72*time.Hour, cfg.RunRetention)
	assert.Zero(t, cfg.CacheTTL)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
}

func TestLoad_InvalidFallsBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("RUN_RETENTION", "forever")
	t.Setenv("MAX_UPLOAD_BYTES", "-5")
	buf := &bytes.Buffer{}

	cfg := config.Load(zerolog.New(buf), filepath.Join(t.TempDir(), "missing.env"))

	assert.Equal(t, 30*24*time.Hour, cfg.RunRetention)
	assert.Equal(t, int64(20<<20), cfg.MaxUploadBytes)
	assert.Contains(t, buf.String(), "RUN_RETENTION")
	assert.Contains(t, buf.String(), "MAX_UPLOAD_BYTES")
}

func TestLoad_DotEnvFile(t *testing.T) {
	// GIVEN: A .env file and one variable already set in the environment
	clearEnv(t)
	os.Unsetenv("DATABASE_PATH")
	os.Unsetenv("LOG_LEVEL")
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("DATABASE_PATH=/tmp/runs.db\nLOG_LEVEL=debug\n"), 0o600))
	t.Setenv("LOG_LEVEL", "warn")

	// WHEN: Loading with that file
	cfg := config.Load(zerolog.Nop(), path)
	t.Cleanup(func() { os.Unsetenv("DATABASE_PATH") })

	// THEN: The file fills gaps, the environment wins
	assert.Equal(t, "/tmp/runs.db", cfg.DatabasePath)
	assert.Equal(t, "warn", cfg.LogLevel)
}
