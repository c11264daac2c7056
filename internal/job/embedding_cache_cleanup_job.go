package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/tunebox/internal/store"
)

type EmbeddingCacheCleanupJob struct {
	repo       store.EmbeddingCacheStore
	maxAgeDays int
	now        func() time.Time
}

func NewEmbeddingCacheCleanupJob(repo store.EmbeddingCacheStore, maxAgeDays int) *EmbeddingCacheCleanupJob {
	return &EmbeddingCacheCleanupJob{repo: repo, maxAgeDays: maxAgeDays, now: time.Now}
}

func (j *EmbeddingCacheCleanupJob) Name() string {
	return "embedding_cache_cleanup"
}

func (j *EmbeddingCacheCleanupJob) Run(ctx context.Context) error {
	if j.repo == nil {
		return nil
	}
	maxAgeDays := j.maxAgeDays
	if maxAgeDays <= 0 {
		maxAgeDays = 30
	}
	cutoff := j.now().Add(-time.Duration(maxAgeDays) * 24 * time.Hour).Unix()
	removed, err := j.repo.DeleteBefore(ctx, cutoff)
	if err != nil {
		return store.Unavailable("delete embedding cache", err)
	}
	logutil.GetLogger(ctx).Info("embedding cache cleaned", zap.Int64("removed", removed))
	return nil
}
