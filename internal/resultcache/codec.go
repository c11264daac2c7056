package resultcache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/tunebox/internal/store"
)

// Load reads key and decodes the cached JSON into T. A row that does not
// decode is reported as a miss so the caller refetches and overwrites it.
func Load[T any](ctx context.Context, c store.ResultCache, key string) (*T, bool, error) {
	entry, ok, err := c.Get(ctx, key)
	if err != nil {
		return nil, false, store.Unavailable("cache get", err)
	}
	if !ok || entry == nil {
		return nil, false, nil
	}
	var value T
	if err := json.Unmarshal(entry.Result, &value); err != nil {
		logutil.GetLogger(ctx).Warn("drop undecodable cache entry", zap.String("key", key), zap.Error(err))
		return nil, false, nil
	}
	return &value, true, nil
}

func Store(ctx context.Context, c store.ResultCache, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache value: %w", err)
	}
	if err := c.Put(ctx, key, raw, ttl); err != nil {
		return store.Unavailable("cache put", err)
	}
	return nil
}
