package errlog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	at := time.Date(2024, 3, 1, 9, 5, 7, 123456000, time.Local)
	line := Format(at, "Ben's Bites", "https://bensbites.substack.com/feed", errors.New("status 503\nbody: down"))
	assert.Equal(t, "[2024-03-01T09:05:07.123456] ERROR fetching Ben's Bites (https://bensbites.substack.com/feed): status 503 body: down\n", line)
}

func TestFileAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".tmp", "errors.log")
	f := NewFile(path)
	f.now = func() time.Time { return time.Date(2024, 3, 1, 0, 0, 0, 0, time.Local) }

	require.NoError(t, f.Record("A", "https://a", errors.New("first")))
	require.NoError(t, f.Record("B", "https://b", errors.New("second")))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(raw), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasSuffix(lines[0], "ERROR fetching A (https://a): first"))
	assert.True(t, strings.HasSuffix(lines[1], "ERROR fetching B (https://b): second"))
}

func TestFileConcurrentWritesDoNotInterleave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "errors.log")
	f := NewFile(path)

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, f.Record(fmt.Sprintf("feed-%d", i), "https://x", errors.New(strings.Repeat("e", 200))))
		}()
	}
	wg.Wait()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(raw), "\n"), "\n")
	require.Len(t, lines, 50)
	for _, line := range lines {
		assert.Regexp(t, `^\[[^\]]+\] ERROR fetching feed-\d+ \(https://x\): e{200}$`, line)
	}
}
