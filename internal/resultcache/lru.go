package resultcache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/xxxsen/tunebox/internal/model"
	"github.com/xxxsen/tunebox/internal/store"
)

// WrapLRU puts a process local tier in front of c. Writes go through to c
// first; local entries keep the expiry they were written with.
func WrapLRU(c store.ResultCache, size int, ttl time.Duration, now func() time.Time) store.ResultCache {
	if c == nil || size <= 0 {
		return c
	}
	if now == nil {
		now = time.Now
	}
	return &lruCache{
		next:  c,
		cache: expirable.NewLRU[string, *model.CacheEntry](size, nil, ttl),
		now:   now,
	}
}

type lruCache struct {
	next  store.ResultCache
	cache *expirable.LRU[string, *model.CacheEntry]
	now   func() time.Time
}

func (l *lruCache) Get(ctx context.Context, key string) (*model.CacheEntry, bool, error) {
	if entry, ok := l.cache.Get(key); ok {
		if !entry.Expired(l.now()) {
			return entry, true, nil
		}
		l.cache.Remove(key)
	}
	entry, ok, err := l.next.Get(ctx, key)
	if err != nil || !ok {
		return entry, ok, err
	}
	l.cache.Add(key, entry)
	return entry, true, nil
}

func (l *lruCache) Put(ctx context.Context, key string, result []byte, ttl time.Duration) error {
	if err := l.next.Put(ctx, key, result, ttl); err != nil {
		l.cache.Remove(key)
		return err
	}
	l.cache.Add(key, &model.CacheEntry{Key: key, Result: result, ExpiresAt: l.now().Add(ttl)})
	return nil
}
