package embedcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/tunebox/internal/ai"
	"github.com/xxxsen/tunebox/internal/metrics"
	"github.com/xxxsen/tunebox/internal/model"
)

// Store persists embeddings keyed by model, task type and content hash.
type Store interface {
	Get(ctx context.Context, modelName, taskType, contentHash string) ([]float32, bool, error)
	Save(ctx context.Context, item *model.EmbeddingCache) error
}

type cacheKey struct {
	model    string
	taskType string
	hash     string
}

func newCacheKey(modelName, taskType, text string) cacheKey {
	modelName = strings.TrimSpace(modelName)
	if modelName == "" {
		modelName = "unknown"
	}
	sum := sha256.Sum256([]byte(text))
	return cacheKey{model: modelName, taskType: taskType, hash: hex.EncodeToString(sum[:])}
}

func (k cacheKey) String() string {
	return "embed:" + k.model + ":" + k.taskType + ":" + k.hash
}

// WrapDBCacheToEmbedder puts a persistent tier in front of e. A failed
// lookup is treated as a miss and a failed save only logs: the cache never
// fails an embedding the provider could compute.
func WrapDBCacheToEmbedder(e ai.IEmbedder, cacheRepo Store) ai.IEmbedder {
	if e == nil || cacheRepo == nil {
		return e
	}
	return &dbEmbedder{next: e, repo: cacheRepo, now: time.Now}
}

type dbEmbedder struct {
	next ai.IEmbedder
	repo Store
	now  func() time.Time
}

func (d *dbEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	logger := logutil.GetLogger(ctx)
	key := newCacheKey(d.next.ModelName(), taskType, text)
	values, ok, err := d.repo.Get(ctx, key.model, key.taskType, key.hash)
	switch {
	case err != nil:
		metrics.EmbeddingCacheLookupsTotal.WithLabelValues("db", "error").Inc()
		logger.Warn("embedding cache lookup failed", zap.String("model", key.model), zap.Error(err))
	case ok:
		metrics.EmbeddingCacheLookupsTotal.WithLabelValues("db", "hit").Inc()
		logger.Debug("embedding cache hit", zap.String("tier", "db"), zap.String("model", key.model))
		return values, nil
	default:
		metrics.EmbeddingCacheLookupsTotal.WithLabelValues("db", "miss").Inc()
	}
	res, err := d.next.Embed(ctx, text, taskType)
	if err != nil {
		return nil, err
	}
	if err := d.repo.Save(ctx, &model.EmbeddingCache{
		ModelName:   key.model,
		TaskType:    key.taskType,
		ContentHash: key.hash,
		Embedding:   res,
		Ctime:       d.now().Unix(),
	}); err != nil {
		logger.Warn("save embedding cache failed", zap.String("model", key.model), zap.Error(err))
	}
	return res, nil
}

func (d *dbEmbedder) ModelName() string {
	return d.next.ModelName()
}
