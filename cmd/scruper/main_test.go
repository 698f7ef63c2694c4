package main

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const oneItemFeed = `<?xml version="1.0"?>
<rss version="2.0"><channel><title>t</title>
<item><title>Launch Day</title><link>https://ex.com/a</link></item>
</channel></rss>`

// setup writes a feeds file and a config file pointing at a local feed server and returns the
// temp dir. output overrides the cache path when non-empty.
func setup(t *testing.T, output, backend string) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(oneItemFeed))
	}))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	feeds := filepath.Join(dir, "feeds.yaml")
	require.NoError(t, os.WriteFile(feeds, []byte(fmt.Sprintf(
		"feeds:\n  - source: local\n    source_label: Local\n    url: %s\n", srv.URL)), 0o644))

	if output == "" {
		output = filepath.Join(dir, "articles.json")
	}
	cfg := filepath.Join(dir, "scruper.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte(fmt.Sprintf(`
output: %s
error_log: %s
feeds_file: %s
store:
  backend: %s
  bolt_path: %s
fetch:
  spacing: 0s
log:
  level: error
`, output, filepath.Join(dir, "errors.log"), feeds, backend, filepath.Join(dir, "articles.db"))), 0o644))
	t.Setenv("SCRUPER_CONFIG", cfg)
	return dir
}

func TestRunWritesCache(t *testing.T) {
	dir := setup(t, "", "json")
	assert.Equal(t, 0, run([]string{"--hours", "24"}))
	assert.FileExists(t, filepath.Join(dir, "articles.json"))
}

func TestRunExitsZeroWhenCacheCannotBeWritten(t *testing.T) {
	// the output path is an existing directory, so the final rename fails
	blocked := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(blocked, "keep"), nil, 0o644))
	setup(t, blocked, "json")

	assert.Equal(t, 0, run(nil))
	assert.DirExists(t, blocked)
}

func TestRunExitsZeroWithCorruptBoltCache(t *testing.T) {
	dir := setup(t, "", "bolt")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "articles.db"), []byte("garbage"), 0o600))

	assert.Equal(t, 0, run(nil))
	assert.FileExists(t, filepath.Join(dir, "articles.json"))
}

func TestRunExitsOneOnStartupFailure(t *testing.T) {
	setup(t, "", "redis")
	assert.Equal(t, 1, run(nil))
}
