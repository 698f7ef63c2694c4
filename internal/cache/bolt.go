package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
	berrors "go.etcd.io/bbolt/errors"

	"github.com/Adda-Baaj/scruper/internal/domain"
)

var (
	articlesBucket = []byte("articles")
	metaBucket     = []byte("meta")
	lastFetchedKey = []byte("last_fetched")
)

// BoltStore keeps articles in a bbolt database, one key per article ID.
type BoltStore struct {
	db        *bolt.DB
	recovered string
}

// OpenBoltStore opens (or creates) the database at path. A file bbolt cannot read as a
// database is moved aside to <path>.corrupt-<unix> and a fresh database takes its place.
func OpenBoltStore(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create bolt dir: %w", err)
	}

	db, err := openBolt(path)
	if err == nil {
		return &BoltStore{db: db}, nil
	}
	if !unreadable(err) {
		return nil, fmt.Errorf("open bolt %s: %w", path, err)
	}

	aside := fmt.Sprintf("%s.corrupt-%d", path, time.Now().Unix())
	if mvErr := os.Rename(path, aside); mvErr != nil {
		return nil, fmt.Errorf("move unreadable bolt %s: %w", path, mvErr)
	}
	if db, err = openBolt(path); err != nil {
		return nil, fmt.Errorf("open bolt %s: %w", path, err)
	}
	return &BoltStore{db: db, recovered: aside}, nil
}

func openBolt(path string) (*bolt.DB, error) {
	return bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
}

func unreadable(err error) bool {
	return errors.Is(err, berrors.ErrInvalid) ||
		errors.Is(err, berrors.ErrChecksum) ||
		errors.Is(err, berrors.ErrVersionMismatch)
}

// Recovered is the path the unreadable database was moved to, or "" when it opened cleanly.
func (s *BoltStore) Recovered() string { return s.recovered }

// Load reads every stored article. Order is by ID; callers sort after merging.
func (s *BoltStore) Load(_ context.Context) (domain.Cache, error) {
	c := domain.EmptyCache()
	err := s.db.View(func(tx *bolt.Tx) error {
		if meta := tx.Bucket(metaBucket); meta != nil {
			if v := meta.Get(lastFetchedKey); v != nil {
				last := string(v)
				c.LastFetched = &last
			}
		}

		b := tx.Bucket(articlesBucket)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var art domain.Article
			if err := json.Unmarshal(v, &art); err != nil {
				return fmt.Errorf("decode article %s: %w", k, err)
			}
			c.Articles = append(c.Articles, art)
			return nil
		})
	})
	if err != nil {
		return domain.Cache{}, fmt.Errorf("load bolt cache: %w", err)
	}
	return sanitize(c), nil
}

// Save replaces the stored set in a single transaction.
func (s *BoltStore) Save(_ context.Context, c domain.Cache) error {
	c = sanitize(c)
	err := s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{articlesBucket, metaBucket} {
			if tx.Bucket(name) != nil {
				if err := tx.DeleteBucket(name); err != nil {
					return fmt.Errorf("reset bucket %s: %w", name, err)
				}
			}
		}

		b, err := tx.CreateBucket(articlesBucket)
		if err != nil {
			return fmt.Errorf("create articles bucket: %w", err)
		}
		for _, art := range c.Articles {
			v, err := json.Marshal(art)
			if err != nil {
				return fmt.Errorf("encode article %s: %w", art.ID, err)
			}
			if err := b.Put([]byte(art.ID), v); err != nil {
				return fmt.Errorf("put article %s: %w", art.ID, err)
			}
		}

		meta, err := tx.CreateBucket(metaBucket)
		if err != nil {
			return fmt.Errorf("create meta bucket: %w", err)
		}
		if c.LastFetched != nil {
			if err := meta.Put(lastFetchedKey, []byte(*c.LastFetched)); err != nil {
				return fmt.Errorf("put last_fetched: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save bolt cache: %w", err)
	}
	return nil
}

// Close releases the database file lock.
func (s *BoltStore) Close() error {
	return s.db.Close()
}
