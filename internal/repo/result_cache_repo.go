package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/xxxsen/tunebox/internal/model"
)

type ResultCacheRepo struct {
	db  *sql.DB
	now func() time.Time
}

func NewResultCacheRepo(db *sql.DB, now func() time.Time) *ResultCacheRepo {
	if now == nil {
		now = time.Now
	}
	return &ResultCacheRepo{db: db, now: now}
}

func (r *ResultCacheRepo) Get(ctx context.Context, key string) (*model.CacheEntry, bool, error) {
	const query = `
		SELECT result, expires_at
		FROM result_cache
		WHERE cache_key = $1 AND expires_at > $2
	`
	row := r.db.QueryRowContext(ctx, query, key, r.now())
	entry := &model.CacheEntry{Key: key}
	if err := row.Scan(&entry.Result, &entry.ExpiresAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, err
	}
	return entry, true, nil
}

func (r *ResultCacheRepo) Put(ctx context.Context, key string, result []byte, ttl time.Duration) error {
	const query = `
		INSERT INTO result_cache (cache_key, result, expires_at, mtime)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (cache_key) DO UPDATE SET
			result = EXCLUDED.result,
			expires_at = EXCLUDED.expires_at,
			mtime = EXCLUDED.mtime
	`
	now := r.now()
	// jsonb takes text; a []byte argument would be sent as bytea
	_, err := r.db.ExecContext(ctx, query, key, string(result), now.Add(ttl), now.UnixMilli())
	return err
}
