// Package store defines the storage contracts of the result cache and the
// track store, and builds a backend from configuration.
package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/xxxsen/tunebox/internal/config"
	"github.com/xxxsen/tunebox/internal/embedcache"
	"github.com/xxxsen/tunebox/internal/model"
	appErr "github.com/xxxsen/tunebox/internal/pkg/errors"
)

// ResultCache is a key/value store of serialized results with an expiry.
// Get only returns entries whose expiry is strictly after the current time;
// Put replaces the whole entry for the key.
type ResultCache interface {
	Get(ctx context.Context, key string) (*model.CacheEntry, bool, error)
	Put(ctx context.Context, key string, result []byte, ttl time.Duration) error
}

// TrackStore persists normalized tracks with their embeddings. Upsert
// replaces the row by id; an empty embedding or genre keeps the stored one.
type TrackStore interface {
	Upsert(ctx context.Context, track *model.StoredTrack) error
	Get(ctx context.Context, id string) (*model.StoredTrack, error)
	// ListCandidates returns tracks with an embedding other than excludeID,
	// ordered by id, at most limit rows.
	ListCandidates(ctx context.Context, excludeID string, filter model.SimilarityFilter, limit int) ([]model.StoredTrack, error)
	ListMissingEmbedding(ctx context.Context, limit int) ([]model.StoredTrack, error)
	VectorSearchAvailable(ctx context.Context) bool
	VectorSearch(ctx context.Context, q model.VectorQuery) ([]model.SimilarityResult, error)
}

// EmbeddingCacheStore is the persistent tier of the embedding cache.
type EmbeddingCacheStore interface {
	embedcache.Store
	DeleteBefore(ctx context.Context, cutoff int64) (int64, error)
}

type Backend struct {
	Name           string
	Cache          ResultCache
	Tracks         TrackStore
	EmbeddingCache EmbeddingCacheStore
	closer         func(ctx context.Context) error
}

func (b *Backend) Close(ctx context.Context) error {
	if b == nil || b.closer == nil {
		return nil
	}
	return b.closer(ctx)
}

type Options struct {
	// Dimension of the deployment's embeddings, 0 when unknown.
	Dimension int
	Now       func() time.Time
}

type Factory func(ctx context.Context, cfg config.StoreConfig, opts Options) (*Backend, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

func Register(name string, factory Factory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registryMu.Lock()
	registry[key] = factory
	registryMu.Unlock()
}

func New(ctx context.Context, cfg config.StoreConfig, opts Options) (*Backend, error) {
	key := strings.ToLower(strings.TrimSpace(cfg.Type))
	if key == "" {
		return nil, fmt.Errorf("store.type is required")
	}
	registryMu.RLock()
	factory := registry[key]
	registryMu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("unsupported store type: %s", cfg.Type)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return factory(ctx, cfg, opts)
}

// Unavailable marks err as a storage failure while keeping it inspectable.
// Not-found is a lookup outcome, not a failure, and passes through.
func Unavailable(op string, err error) error {
	if err == nil || appErr.IsNotFound(err) || appErr.IsStorage(err) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, appErr.ErrStorageUnavailable, err)
}
