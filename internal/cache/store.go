package cache

import (
	"context"
	"fmt"

	"github.com/Adda-Baaj/scruper/internal/domain"
)

const (
	BackendJSON = "json"
	BackendBolt = "bolt"
)

// Store loads and replaces the persisted cache. Save always writes the complete set.
type Store interface {
	Load(ctx context.Context) (domain.Cache, error)
	Save(ctx context.Context, c domain.Cache) error
	Close() error
}

// LoadOrEmpty loads the cache and falls back to an empty one on any failure.
// The load error, if any, is returned alongside so callers can log it.
func LoadOrEmpty(ctx context.Context, s Store) (domain.Cache, error) {
	c, err := s.Load(ctx)
	if err != nil {
		return domain.EmptyCache(), err
	}
	if c.Articles == nil {
		c.Articles = []domain.Article{}
	}
	return c, nil
}

// MirrorStore saves to a primary store and mirrors every save to secondary stores.
// Loads only consult the primary.
type MirrorStore struct {
	primary Store
	mirrors []Store
}

// NewMirrorStore builds a MirrorStore.
func NewMirrorStore(primary Store, mirrors ...Store) *MirrorStore {
	return &MirrorStore{primary: primary, mirrors: mirrors}
}

func (m *MirrorStore) Load(ctx context.Context) (domain.Cache, error) {
	return m.primary.Load(ctx)
}

func (m *MirrorStore) Save(ctx context.Context, c domain.Cache) error {
	if err := m.primary.Save(ctx, c); err != nil {
		return err
	}
	for _, s := range m.mirrors {
		if err := s.Save(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

func (m *MirrorStore) Close() error {
	err := m.primary.Close()
	for _, s := range m.mirrors {
		if cerr := s.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Open builds the store for backend. The JSON output file is always written; with the bolt
// backend the database is the cache that gets loaded and the JSON file mirrors it.
func Open(backend, jsonPath, boltPath string) (Store, error) {
	jsonStore := NewJSONStore(jsonPath)
	switch backend {
	case "", BackendJSON:
		return jsonStore, nil
	case BackendBolt:
		boltStore, err := OpenBoltStore(boltPath)
		if err != nil {
			return nil, err
		}
		return NewMirrorStore(boltStore, jsonStore), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}
