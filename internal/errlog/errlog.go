// Package errlog appends per-source fetch failures to a plain-text log file.
package errlog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const timestampLayout = "2006-01-02T15:04:05.000000"

// Recorder records a source failure.
type Recorder interface {
	Record(label, url string, err error) error
}

// File appends one line per failure. Each line is written with a single call under a mutex, so
// concurrent fetchers never interleave.
type File struct {
	path string
	now  func() time.Time
	mu   sync.Mutex
}

// NewFile returns a File writing to path. The file and its directory are created on first write.
func NewFile(path string) *File {
	return &File{path: path, now: time.Now}
}

// Record appends `[<local time>] ERROR fetching <label> (<url>): <err>`.
func (f *File) Record(label, url string, err error) error {
	line := Format(f.now(), label, url, err)

	f.mu.Lock()
	defer f.mu.Unlock()

	if mkErr := os.MkdirAll(filepath.Dir(f.path), 0o755); mkErr != nil {
		return fmt.Errorf("create error log dir: %w", mkErr)
	}
	fh, openErr := os.OpenFile(f.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if openErr != nil {
		return fmt.Errorf("open error log: %w", openErr)
	}
	if _, wErr := fh.WriteString(line); wErr != nil {
		fh.Close()
		return fmt.Errorf("append error log: %w", wErr)
	}
	return fh.Close()
}

// Format renders one error-log line, newline included. Newlines inside the error are flattened
// so every failure stays on one line.
func Format(at time.Time, label, url string, err error) string {
	detail := "<nil>"
	if err != nil {
		detail = strings.Join(strings.Fields(err.Error()), " ")
	}
	return fmt.Sprintf("[%s] ERROR fetching %s (%s): %s\n", at.Local().Format(timestampLayout), label, url, detail)
}

// Nop discards records.
type Nop struct{}

func (Nop) Record(string, string, error) error { return nil }
