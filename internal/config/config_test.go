package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// chdirTemp moves the test into an empty directory so no config.yaml is found.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Fetch.MaxAttempts)
	assert.Equal(t, 5, cfg.Fetch.TimeoutSecs)
	assert.Equal(t, 1000, cfg.Fetch.DelayMs)
	assert.Equal(t, 1000, cfg.Fetch.BackoffBaseMs)
	assert.InDelta(t, 2.0, cfg.Fetch.BackoffMultiplier, 0.001)
	assert.Equal(t, 30000, cfg.Fetch.MaxBackoffMs)
	assert.Contains(t, cfg.Fetch.UserAgent, "Chrome/")
	assert.InDelta(t, 2.0, cfg.Fetch.HostRPS, 0.001)
	assert.Equal(t, "data/records.csv", cfg.Store.Destination)
	assert.Equal(t, "data/raw", cfg.Store.ArchiveDir)
	assert.Empty(t, cfg.Catalog.Overrides)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
fetch:
  max_attempts: 5
  delay_ms: 250
store:
  destination: out/mal.db
log:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Fetch.MaxAttempts)
	assert.Equal(t, 250, cfg.Fetch.DelayMs)
	assert.Equal(t, "out/mal.db", cfg.Store.Destination)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	// Defaults still apply for unset values
	assert.Equal(t, 5, cfg.Fetch.TimeoutSecs)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  destination: out/mal.db
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	t.Setenv("MALSCRAPE_STORE_DESTINATION", "postgres://localhost/mal")
	t.Setenv("MALSCRAPE_LOG_LEVEL", "warn")
	t.Setenv("MALSCRAPE_FETCH_MAX_ATTEMPTS", "7")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/mal", cfg.Store.Destination)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 7, cfg.Fetch.MaxAttempts)
}

func TestLoadMalformedFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("fetch: [unclosed"), 0o644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestFetchConfig_Policy(t *testing.T) {
	p := FetchConfig{
		MaxAttempts:       4,
		TimeoutSecs:       10,
		DelayMs:           500,
		BackoffBaseMs:     200,
		BackoffMultiplier: 3,
		MaxBackoffMs:      1000,
	}.Policy()

	assert.Equal(t, 4, p.MaxAttempts)
	assert.Equal(t, 10*time.Second, p.Timeout)
	assert.Equal(t, 500*time.Millisecond, p.Delay)
	assert.Equal(t, 200*time.Millisecond, p.Backoff(0))
	assert.Equal(t, 600*time.Millisecond, p.Backoff(1))
	assert.Equal(t, time.Second, p.Backoff(2))
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		Fetch:  FetchConfig{MaxAttempts: 0, TimeoutSecs: 0, DelayMs: -1, BackoffMultiplier: 0.5, HostRPS: -1},
		Server: ServerConfig{Port: 70000},
		Log:    LogConfig{Format: "xml"},
	}
	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{
		"fetch.max_attempts", "fetch.timeout_secs", "fetch.delay_ms",
		"fetch.backoff_multiplier", "fetch.host_rps", "server.port", "store.destination", "log.format",
	} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}
