package sqliterepo

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/tunebox/internal/model"
	appErr "github.com/xxxsen/tunebox/internal/pkg/errors"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "tunebox.db"))
	require.NoError(t, err)
	require.NoError(t, ApplyMigrations(db))
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestResultCacheRepo_PutGetExpiry(t *testing.T) {
	db := setupDB(t)
	clock := &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
	repo := NewResultCacheRepo(db, clock.Now)
	ctx := context.Background()

	_, ok, err := repo.Get(ctx, "search:x")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, repo.Put(ctx, "search:x", []byte(`{"a":1}`), time.Hour))
	entry, ok, err := repo.Get(ctx, "search:x")
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, `{"a":1}`, string(entry.Result))
	require.Equal(t, clock.now.Add(time.Hour).UnixMilli(), entry.ExpiresAt.UnixMilli())

	clock.now = clock.now.Add(time.Hour)
	_, ok, err = repo.Get(ctx, "search:x")
	require.NoError(t, err)
	require.False(t, ok, "entry expiring exactly now is a miss")

	require.NoError(t, repo.Put(ctx, "search:x", []byte(`{"a":2}`), time.Minute))
	entry, ok, err = repo.Get(ctx, "search:x")
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, `{"a":2}`, string(entry.Result))

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(1) FROM result_cache`).Scan(&count))
	require.Equal(t, 1, count)
}

func TestTrackRepo_UpsertKeepsEmbeddingAndGenre(t *testing.T) {
	db := setupDB(t)
	repo := NewTrackRepo(db, nil)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &model.StoredTrack{
		ID: "t1", Name: "One", Artists: []string{"A"}, Genre: "pop", Embedding: []float32{1, 0},
	}))
	require.NoError(t, repo.Upsert(ctx, &model.StoredTrack{ID: "t1", Name: "One (Live)", Artists: []string{"A", "B"}}))

	got, err := repo.Get(ctx, "t1")
	require.NoError(t, err)
	require.Equal(t, "One (Live)", got.Name)
	require.Equal(t, []string{"A", "B"}, got.Artists)
	require.Equal(t, "pop", got.Genre)
	require.Equal(t, []float32{1, 0}, got.Embedding)

	_, err = repo.Get(ctx, "missing")
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestTrackRepo_ListCandidates(t *testing.T) {
	db := setupDB(t)
	repo := NewTrackRepo(db, nil)
	ctx := context.Background()
	for _, tr := range []model.StoredTrack{
		{ID: "t3", Name: "c", Genre: "rock", Embedding: []float32{0, 1}},
		{ID: "t1", Name: "a", Genre: "pop", Embedding: []float32{1, 0}},
		{ID: "t2", Name: "b", Genre: "pop", Embedding: []float32{1, 0}},
		{ID: "t4", Name: "d", Genre: "pop"},
	} {
		tr := tr
		require.NoError(t, repo.Upsert(ctx, &tr))
	}

	items, err := repo.ListCandidates(ctx, "t1", model.SimilarityFilter{}, 10)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "t2", items[0].ID)
	require.Equal(t, "t3", items[1].ID)

	items, err = repo.ListCandidates(ctx, "t1", model.SimilarityFilter{Genre: "pop"}, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "t2", items[0].ID)

	items, err = repo.ListCandidates(ctx, "t9", model.SimilarityFilter{}, 1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "t1", items[0].ID)

	missing, err := repo.ListMissingEmbedding(ctx, 10)
	require.NoError(t, err)
	require.Len(t, missing, 1)
	require.Equal(t, "t4", missing[0].ID)

	require.False(t, repo.VectorSearchAvailable(ctx))
	_, err = repo.VectorSearch(ctx, model.VectorQuery{Vector: []float32{1, 0}, Limit: 1})
	require.ErrorIs(t, err, appErr.ErrPrimarySearchUnavailable)
}

func TestEmbeddingCacheRepo(t *testing.T) {
	db := setupDB(t)
	repo := NewEmbeddingCacheRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, &model.EmbeddingCache{ModelName: "local", TaskType: "SEMANTIC_SIMILARITY", ContentHash: "h1", Embedding: []float32{0.5, 0.25}, Ctime: 10}))
	require.NoError(t, repo.Save(ctx, &model.EmbeddingCache{ModelName: "local", TaskType: "SEMANTIC_SIMILARITY", ContentHash: "h2", Embedding: []float32{1}, Ctime: 100}))

	vec, ok, err := repo.Get(ctx, "local", "SEMANTIC_SIMILARITY", "h1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []float32{0.5, 0.25}, vec)

	removed, err := repo.DeleteBefore(ctx, 50)
	require.NoError(t, err)
	require.Equal(t, int64(1), removed)

	_, ok, err = repo.Get(ctx, "local", "SEMANTIC_SIMILARITY", "h1")
	require.NoError(t, err)
	require.False(t, ok)
}
