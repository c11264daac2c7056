package job

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/tunebox/internal/model"
	appErr "github.com/xxxsen/tunebox/internal/pkg/errors"
)

type fakeEmbeddingCache struct {
	cutoff int64
	err    error
}

func (f *fakeEmbeddingCache) Get(ctx context.Context, modelName, taskType, contentHash string) ([]float32, bool, error) {
	return nil, false, nil
}

func (f *fakeEmbeddingCache) Save(ctx context.Context, item *model.EmbeddingCache) error {
	return nil
}

func (f *fakeEmbeddingCache) DeleteBefore(ctx context.Context, cutoff int64) (int64, error) {
	f.cutoff = cutoff
	return 3, f.err
}

func TestEmbeddingCacheCleanupJob(t *testing.T) {
	repo := &fakeEmbeddingCache{}
	job := NewEmbeddingCacheCleanupJob(repo, 0)
	now := time.Unix(1_700_000_000, 0)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	require.Equal(t, now.Add(-30*24*time.Hour).Unix(), repo.cutoff)

	repo.err = errors.New("disk full")
	require.ErrorIs(t, job.Run(context.Background()), appErr.ErrStorageUnavailable)
}

type fakeBackfiller struct {
	batch int
}

func (f *fakeBackfiller) BackfillEmbeddings(ctx context.Context, batch int) (int, error) {
	f.batch = batch
	return 2, nil
}

func TestEmbeddingBackfillJob(t *testing.T) {
	svc := &fakeBackfiller{}
	require.NoError(t, NewEmbeddingBackfillJob(svc, 0).Run(context.Background()))
	require.Equal(t, 50, svc.batch)
	require.NoError(t, NewEmbeddingBackfillJob(svc, 7).Run(context.Background()))
	require.Equal(t, 7, svc.batch)
}

type fakeRefresher struct {
	countries []string
}

func (f *fakeRefresher) RefreshPopularSongs(ctx context.Context, country string) (*model.PopularSongsResult, error) {
	f.countries = append(f.countries, country)
	if country == "XX" {
		return nil, appErr.ErrInvalid
	}
	return &model.PopularSongsResult{Items: make([]*model.TrackItem, 2)}, nil
}

func TestPopularWarmupJob_ContinuesAfterFailure(t *testing.T) {
	svc := &fakeRefresher{}
	err := NewPopularWarmupJob(svc, []string{"XX", "VN", "US"}).Run(context.Background())
	require.ErrorIs(t, err, appErr.ErrInvalid)
	require.Equal(t, []string{"XX", "VN", "US"}, svc.countries)
}
