package store

import (
	"context"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/tunebox/internal/config"
	"github.com/xxxsen/tunebox/internal/db"
	"github.com/xxxsen/tunebox/internal/repo"
)

func init() {
	Register("postgres", newPostgresBackend)
}

func newPostgresBackend(ctx context.Context, cfg config.StoreConfig, opts Options) (*Backend, error) {
	conn, err := db.Open(cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.ApplyMigrations(conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	tracks := repo.NewTrackRepo(conn, opts.Dimension, opts.Now)
	if err := tracks.EnsureVectorIndex(ctx); err != nil {
		logutil.GetLogger(ctx).Warn("create vector index failed", zap.Int("dim", opts.Dimension), zap.Error(err))
	}
	return &Backend{
		Name:           "postgres",
		Cache:          repo.NewResultCacheRepo(conn, opts.Now),
		Tracks:         tracks,
		EmbeddingCache: repo.NewEmbeddingCacheRepo(conn),
		closer: func(ctx context.Context) error {
			return conn.Close()
		},
	}, nil
}
