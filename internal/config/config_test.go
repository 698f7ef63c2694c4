package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points SCRUPER_CONFIG at an empty file so a stray scruper.yaml cannot leak in.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "scruper.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{}\n"), 0o644))
	t.Setenv("SCRUPER_CONFIG", path)
	return dir
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)
	cfg, err := load(nil, "")
	require.NoError(t, err)

	assert.Equal(t, 24, cfg.Hours)
	assert.Equal(t, ".tmp/articles.json", cfg.Output)
	assert.Equal(t, ".tmp/errors.log", cfg.ErrorLog)
	assert.Equal(t, "json", cfg.Store.Backend)
	assert.Equal(t, 15*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, 1, cfg.Fetch.Workers)
	assert.Equal(t, time.Second, cfg.Fetch.Spacing)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "scruper", cfg.Metrics.Job)
	assert.Empty(t, cfg.FeedsFile)
}

func TestLoadHoursPrecedence(t *testing.T) {
	isolate(t)
	t.Setenv("SCRUPER_HOURS", "48")

	cfg, err := load(nil, "")
	require.NoError(t, err)
	assert.Equal(t, 48, cfg.Hours)

	cfg, err = load([]string{"--hours", "6"}, "")
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Hours)
}

func TestLoadNestedEnv(t *testing.T) {
	isolate(t)
	t.Setenv("SCRUPER_FETCH_WORKERS", "4")
	t.Setenv("SCRUPER_FETCH_SPACING", "250ms")
	t.Setenv("SCRUPER_STORE_BACKEND", "BOLT")

	cfg, err := load(nil, "")
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Fetch.Workers)
	assert.Equal(t, 250*time.Millisecond, cfg.Fetch.Spacing)
	assert.Equal(t, "bolt", cfg.Store.Backend)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
hours: 12
output: out/articles.json
http:
  timeout: 5s
  user_agent: scruper/1.0
metrics:
  pushgateway_url: http://pushgateway:9091
`), 0o644))
	t.Setenv("SCRUPER_CONFIG", path)

	cfg, err := load(nil, "")
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.Hours)
	assert.Equal(t, "out/articles.json", cfg.Output)
	assert.Equal(t, 5*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, "scruper/1.0", cfg.HTTP.UserAgent)
	assert.Equal(t, "http://pushgateway:9091", cfg.Metrics.PushgatewayURL)
}

func TestLoadDotEnv(t *testing.T) {
	dir := isolate(t)
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("SCRUPER_FEEDS_FILE=feeds.yaml\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("SCRUPER_FEEDS_FILE") })

	cfg, err := load(nil, envFile)
	require.NoError(t, err)
	assert.Equal(t, "feeds.yaml", cfg.FeedsFile)
}

func TestLoadRejectsInvalid(t *testing.T) {
	isolate(t)

	_, err := load([]string{"--hours", "-1"}, "")
	assert.Error(t, err)

	_, err = load([]string{"--unknown"}, "")
	assert.Error(t, err)

	t.Setenv("SCRUPER_FETCH_WORKERS", "0")
	_, err = load(nil, "")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := Config{
		Hours: 24, Output: "a.json", ErrorLog: "e.log",
		Store: StoreConfig{Backend: "json"},
		HTTP:  HTTPConfig{Timeout: time.Second},
		Fetch: FetchConfig{Workers: 1},
	}
	require.NoError(t, base.Validate())

	zeroHours := base
	zeroHours.Hours = 0
	assert.NoError(t, zeroHours.Validate())

	badBackend := base
	badBackend.Store.Backend = "redis"
	assert.Error(t, badBackend.Validate())

	boltNoPath := base
	boltNoPath.Store.Backend = "bolt"
	assert.Error(t, boltNoPath.Validate())

	noTimeout := base
	noTimeout.HTTP.Timeout = 0
	assert.Error(t, noTimeout.Validate())
}
