package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/tunebox/internal/config"
	appErr "github.com/xxxsen/tunebox/internal/pkg/errors"
)

func TestNew_SQLiteBackend(t *testing.T) {
	ctx := context.Background()
	backend, err := New(ctx, config.StoreConfig{
		Type:   "SQLite",
		SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "store.db")},
	}, Options{})
	require.NoError(t, err)
	defer func() { require.NoError(t, backend.Close(ctx)) }()

	require.Equal(t, "sqlite", backend.Name)
	require.NotNil(t, backend.Cache)
	require.NotNil(t, backend.Tracks)
	require.NotNil(t, backend.EmbeddingCache)
	require.False(t, backend.Tracks.VectorSearchAvailable(ctx))
}

func TestNew_UnknownType(t *testing.T) {
	_, err := New(context.Background(), config.StoreConfig{Type: "redis"}, Options{})
	require.Error(t, err)
	_, err = New(context.Background(), config.StoreConfig{}, Options{})
	require.Error(t, err)
}

func TestUnavailable(t *testing.T) {
	require.NoError(t, Unavailable("op", nil))
	require.ErrorIs(t, Unavailable("op", appErr.ErrNotFound), appErr.ErrNotFound)
	require.False(t, appErr.IsStorage(Unavailable("op", appErr.ErrNotFound)))

	cause := errors.New("connection refused")
	err := Unavailable("cache get", cause)
	require.ErrorIs(t, err, appErr.ErrStorageUnavailable)
	require.ErrorIs(t, err, cause)
	require.Equal(t, err, Unavailable("outer", err))
}
