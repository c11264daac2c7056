package embedcache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/tunebox/internal/ai"
	"github.com/xxxsen/tunebox/internal/metrics"
)

// WrapLruCacheToEmbedder keeps up to size vectors in process for ttl. A
// non-positive size or ttl disables the tier.
func WrapLruCacheToEmbedder(e ai.IEmbedder, size int, ttl time.Duration) ai.IEmbedder {
	if e == nil || size <= 0 || ttl <= 0 {
		return e
	}
	return &lruEmbedder{
		next:  e,
		cache: expirable.NewLRU[string, []float32](size, nil, ttl),
	}
}

type lruEmbedder struct {
	next  ai.IEmbedder
	cache *expirable.LRU[string, []float32]
}

func (l *lruEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	key := newCacheKey(l.next.ModelName(), taskType, text)
	if cached, ok := l.cache.Get(key.String()); ok {
		metrics.EmbeddingCacheLookupsTotal.WithLabelValues("lru", "hit").Inc()
		logutil.GetLogger(ctx).Debug("embedding cache hit", zap.String("tier", "lru"), zap.String("model", key.model))
		return cloneEmbedding(cached), nil
	}
	metrics.EmbeddingCacheLookupsTotal.WithLabelValues("lru", "miss").Inc()
	res, err := l.next.Embed(ctx, text, taskType)
	if err != nil {
		return nil, err
	}
	l.cache.Add(key.String(), cloneEmbedding(res))
	return res, nil
}

func (l *lruEmbedder) ModelName() string {
	return l.next.ModelName()
}

func cloneEmbedding(values []float32) []float32 {
	if len(values) == 0 {
		return nil
	}
	return append(make([]float32, 0, len(values)), values...)
}
