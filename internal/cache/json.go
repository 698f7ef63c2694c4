package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/Adda-Baaj/scruper/internal/domain"
)

// JSONStore keeps the cache in a single pretty-printed JSON file.
type JSONStore struct {
	path string
}

// NewJSONStore returns a store backed by the file at path.
func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

// Path returns the backing file location.
func (s *JSONStore) Path() string { return s.path }

// Load reads the cache file. A missing file yields an empty cache.
func (s *JSONStore) Load(_ context.Context) (domain.Cache, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.EmptyCache(), nil
	}
	if err != nil {
		return domain.Cache{}, fmt.Errorf("read cache %s: %w", s.path, err)
	}

	var c domain.Cache
	if err := json.Unmarshal(raw, &c); err != nil {
		return domain.Cache{}, fmt.Errorf("decode cache %s: %w", s.path, err)
	}
	return sanitize(c), nil
}

// Save replaces the cache file atomically: readers see either the old or the new file.
func (s *JSONStore) Save(_ context.Context, c domain.Cache) error {
	payload, err := Encode(sanitize(c))
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp cache file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return fmt.Errorf("write cache: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close cache: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod cache: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace cache %s: %w", s.path, err)
	}
	return nil
}

// Close is a no-op.
func (s *JSONStore) Close() error { return nil }

// Encode renders the cache as indented UTF-8 JSON with non-ASCII characters kept literal.
func Encode(c domain.Cache) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("encode cache: %w", err)
	}
	return buf.Bytes(), nil
}

func sanitize(c domain.Cache) domain.Cache {
	if c.Articles == nil {
		c.Articles = []domain.Article{}
	}
	for i := range c.Articles {
		if c.Articles[i].Tags == nil {
			c.Articles[i].Tags = []string{}
		}
	}
	return c
}
