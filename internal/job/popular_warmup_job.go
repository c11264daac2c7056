package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/tunebox/internal/model"
)

type PopularRefresher interface {
	RefreshPopularSongs(ctx context.Context, country string) (*model.PopularSongsResult, error)
}

// PopularWarmupJob rebuilds the popular lists ahead of their expiry so
// requests keep hitting the cache.
type PopularWarmupJob struct {
	svc       PopularRefresher
	countries []string
}

func NewPopularWarmupJob(svc PopularRefresher, countries []string) *PopularWarmupJob {
	return &PopularWarmupJob{svc: svc, countries: countries}
}

func (j *PopularWarmupJob) Name() string {
	return "popular_warmup"
}

func (j *PopularWarmupJob) Run(ctx context.Context) error {
	if j.svc == nil {
		return nil
	}
	logger := logutil.GetLogger(ctx)
	var lastErr error
	for _, country := range j.countries {
		res, err := j.svc.RefreshPopularSongs(ctx, country)
		if err != nil {
			lastErr = err
			logger.Warn("refresh popular songs failed", zap.String("country", country), zap.Error(err))
			continue
		}
		logger.Debug("popular songs refreshed", zap.String("country", country), zap.Int("items", len(res.Items)))
	}
	return lastErr
}
