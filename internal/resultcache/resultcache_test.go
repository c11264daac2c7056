package resultcache

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/tunebox/internal/config"
	"github.com/xxxsen/tunebox/internal/model"
	appErr "github.com/xxxsen/tunebox/internal/pkg/errors"
	"github.com/xxxsen/tunebox/internal/sqliterepo"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type countingCache struct {
	entries map[string]*model.CacheEntry
	now     func() time.Time
	gets    int
	err     error
}

func newCountingCache(now func() time.Time) *countingCache {
	return &countingCache{entries: map[string]*model.CacheEntry{}, now: now}
}

func (c *countingCache) Get(ctx context.Context, key string) (*model.CacheEntry, bool, error) {
	c.gets++
	if c.err != nil {
		return nil, false, c.err
	}
	entry, ok := c.entries[key]
	if !ok || entry.Expired(c.now()) {
		return nil, false, nil
	}
	return entry, true, nil
}

func (c *countingCache) Put(ctx context.Context, key string, result []byte, ttl time.Duration) error {
	if c.err != nil {
		return c.err
	}
	c.entries[key] = &model.CacheEntry{Key: key, Result: result, ExpiresAt: c.now().Add(ttl)}
	return nil
}

func TestKey_Canonical(t *testing.T) {
	a, err := Key(PrefixSearch, map[string]interface{}{"q": "hello", "type": "tracks", "offset": 0, "limit": 20, "numberOfTopResults": 5})
	require.NoError(t, err)
	b, err := Key(PrefixSearch, map[string]interface{}{"limit": 20, "numberOfTopResults": 5, "offset": 0, "type": "tracks", "q": "hello"})
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.Equal(t, `search:{"limit":20,"numberOfTopResults":5,"offset":0,"q":"hello","type":"tracks"}`, a)

	c, err := Key(PrefixSearch, map[string]interface{}{"q": "hello", "type": "tracks", "offset": 20, "limit": 20, "numberOfTopResults": 5})
	require.NoError(t, err)
	require.NotEqual(t, a, c)

	require.Equal(t, "track_infor_abc", IDKey(PrefixTrackInfo, "abc"))
	require.Equal(t, "download_abc", IDKey(PrefixDownload, "abc"))
}

func TestNewTTLPolicy(t *testing.T) {
	p := NewTTLPolicy(config.CacheTTLConfig{})
	require.Equal(t, DefaultTTLPolicy(), p)
	require.Equal(t, 10*time.Minute, p.Download)
	require.Equal(t, 30*24*time.Hour, p.Lyrics)

	p = NewTTLPolicy(config.CacheTTLConfig{DownloadMinutes: 5, PopularHours: 1})
	require.Equal(t, 5*time.Minute, p.Download)
	require.Equal(t, time.Hour, p.Popular)
	require.Equal(t, 72*time.Hour, p.Search)
}

func TestLoadStore_SQLite(t *testing.T) {
	db, err := sqliterepo.Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	require.NoError(t, sqliterepo.ApplyMigrations(db))
	defer db.Close()

	clk := &clock{now: time.UnixMilli(1_700_000_000_000)}
	cache := sqliterepo.NewResultCacheRepo(db, clk.Now)
	ctx := context.Background()
	key := IDKey(PrefixLyrics, "t1")

	v := &model.TrackLyricsResponse{Lyrics: model.Lyrics{SyncType: "LINE_SYNCED", Language: "en"}}
	require.NoError(t, Store(ctx, cache, key, v, time.Hour))
	require.NoError(t, Store(ctx, cache, key, v, time.Hour))

	got, ok, err := Load[model.TrackLyricsResponse](ctx, cache, key)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "LINE_SYNCED", got.Lyrics.SyncType)

	clk.Advance(time.Hour + time.Millisecond)
	_, ok, err = Load[model.TrackLyricsResponse](ctx, cache, key)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestLoad_UndecodableIsMiss(t *testing.T) {
	clk := &clock{now: time.Now()}
	cache := newCountingCache(clk.Now)
	require.NoError(t, cache.Put(context.Background(), "k", []byte(`[1,2`), time.Hour))

	_, ok, err := Load[model.TrackList](context.Background(), cache, "k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestLoadStore_WrapStorageErrors(t *testing.T) {
	cache := newCountingCache(time.Now)
	cache.err = errors.New("dial tcp: refused")

	_, _, err := Load[model.TrackList](context.Background(), cache, "k")
	require.ErrorIs(t, err, appErr.ErrStorageUnavailable)

	err = Store(context.Background(), cache, "k", model.TrackList{}, time.Hour)
	require.ErrorIs(t, err, appErr.ErrStorageUnavailable)
}

func TestWrapLRU(t *testing.T) {
	clk := &clock{now: time.Now()}
	next := newCountingCache(clk.Now)
	cache := WrapLRU(next, 8, time.Hour, clk.Now)
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, "k", []byte(`1`), time.Minute))
	entry, ok, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `1`, string(entry.Result))
	require.Equal(t, 0, next.gets)

	clk.Advance(time.Minute)
	_, ok, err = cache.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, 1, next.gets)

	require.Same(t, next, WrapLRU(next, 0, time.Hour, clk.Now))
}
