package repo

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/tunebox/internal/config"
	"github.com/xxxsen/tunebox/internal/db"
	"github.com/xxxsen/tunebox/internal/model"
	appErr "github.com/xxxsen/tunebox/internal/pkg/errors"
)

func setupPostgres(t *testing.T) *sql.DB {
	t.Helper()
	host := os.Getenv("TEST_DB_HOST")
	if host == "" {
		t.Skip("TEST_DB_HOST not set")
	}
	port, _ := strconv.Atoi(os.Getenv("TEST_DB_PORT"))
	if port == 0 {
		port = 5432
	}
	conn, err := db.Open(config.DatabaseConfig{
		Host:     host,
		Port:     port,
		User:     os.Getenv("TEST_DB_USER"),
		Password: os.Getenv("TEST_DB_PASSWORD"),
		DBName:   os.Getenv("TEST_DB_NAME"),
	})
	require.NoError(t, err)
	require.NoError(t, db.ApplyMigrations(conn))
	t.Cleanup(func() {
		_, _ = conn.Exec(`TRUNCATE result_cache, tracks, embedding_cache`)
		_ = conn.Close()
	})
	return conn
}

func TestResultCacheRepo(t *testing.T) {
	conn := setupPostgres(t)
	now := time.Now().Truncate(time.Millisecond)
	repo := NewResultCacheRepo(conn, func() time.Time { return now })
	ctx := context.Background()

	key := fmt.Sprintf("download_%d", now.UnixNano())
	require.NoError(t, repo.Put(ctx, key, []byte(`{"success":true}`), time.Minute))
	entry, ok, err := repo.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, `{"success":true}`, string(entry.Result))

	later := NewResultCacheRepo(conn, func() time.Time { return now.Add(time.Minute) })
	_, ok, err = later.Get(ctx, key)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestTrackRepo_VectorSearch(t *testing.T) {
	conn := setupPostgres(t)
	repo := NewTrackRepo(conn, 0, nil)
	ctx := context.Background()

	for _, tr := range []model.StoredTrack{
		{ID: "t1", Name: "one", Embedding: []float32{1, 0}},
		{ID: "t2", Name: "two", Embedding: []float32{1, 0}},
		{ID: "t3", Name: "three", Embedding: []float32{0, 1}},
		{ID: "t4", Name: "four", Embedding: []float32{-1, 0}},
	} {
		tr := tr
		require.NoError(t, repo.Upsert(ctx, &tr))
	}
	require.True(t, repo.VectorSearchAvailable(ctx))

	results, err := repo.VectorSearch(ctx, model.VectorQuery{Vector: []float32{1, 0}, SourceID: "t1", NumCandidates: 20, Limit: 2})
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "t2", results[0].TrackID)
	require.InDelta(t, 1.0, results[0].SimilarityScore, 1e-6)
	require.Equal(t, "t3", results[1].TrackID)

	got, err := repo.Get(ctx, "t4")
	require.NoError(t, err)
	require.Equal(t, []float32{-1, 0}, got.Embedding)

	_, err = repo.Get(ctx, "missing")
	require.ErrorIs(t, err, appErr.ErrNotFound)

	items, err := repo.ListCandidates(ctx, "t1", model.SimilarityFilter{}, 2)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "t2", items[0].ID)
}
