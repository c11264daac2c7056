package sqliterepo

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
	const query = `SELECT result, expires_at FROM result_cache WHERE cache_key = ? AND expires_at > ?`
	var result string
	var expiresAt int64
	err := r.db.QueryRowContext(ctx, query, key, r.now().UnixMilli()).Scan(&result, &expiresAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, err
	}
	return &model.CacheEntry{
		Key:       key,
		Result:    []byte(result),
		ExpiresAt: time.UnixMilli(expiresAt),
	}, true, nil
}

func (r *ResultCacheRepo) Put(ctx context.Context, key string, result []byte, ttl time.Duration) error {
	const query = `
		INSERT INTO result_cache (cache_key, result, expires_at, mtime)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET
			result = excluded.result,
			expires_at = excluded.expires_at,
			mtime = excluded.mtime
	`
	now := r.now()
	_, err := r.db.ExecContext(ctx, query, key, string(result), now.Add(ttl).UnixMilli(), now.UnixMilli())
	return err
}
