package store

import (
	"context"

	"github.com/xxxsen/tunebox/internal/config"
	"github.com/xxxsen/tunebox/internal/sqliterepo"
)

func init() {
	Register("sqlite", newSQLiteBackend)
}

func newSQLiteBackend(ctx context.Context, cfg config.StoreConfig, opts Options) (*Backend, error) {
	conn, err := sqliterepo.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, err
	}
	if err := sqliterepo.ApplyMigrations(conn); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return &Backend{
		Name:           "sqlite",
		Cache:          sqliterepo.NewResultCacheRepo(conn, opts.Now),
		Tracks:         sqliterepo.NewTrackRepo(conn, opts.Now),
		EmbeddingCache: sqliterepo.NewEmbeddingCacheRepo(conn),
		closer: func(ctx context.Context) error {
			return conn.Close()
		},
	}, nil
}
