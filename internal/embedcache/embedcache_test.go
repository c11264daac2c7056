package embedcache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/tunebox/internal/model"
)

type countingEmbedder struct {
	calls int
	err   error
}

func (c *countingEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return []float32{float32(len(text)), 1}, nil
}

func (c *countingEmbedder) ModelName() string { return "counting" }

type memStore struct {
	mu    sync.Mutex
	items map[string]*model.EmbeddingCache
}

func (m *memStore) Get(ctx context.Context, modelName, taskType, contentHash string) ([]float32, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[modelName+taskType+contentHash]
	if !ok {
		return nil, false, nil
	}
	return item.Embedding, true, nil
}

func (m *memStore) Save(ctx context.Context, item *model.EmbeddingCache) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[item.ModelName+item.TaskType+item.ContentHash] = item
	return nil
}

func TestLruEmbedder_CachesByText(t *testing.T) {
	next := &countingEmbedder{}
	e := WrapLruCacheToEmbedder(next, 16, time.Minute)

	a, err := e.Embed(context.Background(), "song", "T")
	require.NoError(t, err)
	b, err := e.Embed(context.Background(), "song", "T")
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.Equal(t, 1, next.calls)

	_, err = e.Embed(context.Background(), "song", "OTHER")
	require.NoError(t, err)
	require.Equal(t, 2, next.calls)
}

func TestLruEmbedder_ReturnsCopies(t *testing.T) {
	e := WrapLruCacheToEmbedder(&countingEmbedder{}, 16, time.Minute)
	_, err := e.Embed(context.Background(), "abc", "")
	require.NoError(t, err)
	first, err := e.Embed(context.Background(), "abc", "")
	require.NoError(t, err)
	first[0] = 99
	second, err := e.Embed(context.Background(), "abc", "")
	require.NoError(t, err)
	require.Equal(t, float32(3), second[0])
}

func TestDBEmbedder_PersistsAndReuses(t *testing.T) {
	store := &memStore{items: map[string]*model.EmbeddingCache{}}
	next := &countingEmbedder{}
	e := WrapDBCacheToEmbedder(next, store)

	_, err := e.Embed(context.Background(), "hello", "T")
	require.NoError(t, err)
	require.Len(t, store.items, 1)

	again := WrapDBCacheToEmbedder(&countingEmbedder{err: errors.New("must not be called")}, store)
	vec, err := again.Embed(context.Background(), "hello", "T")
	require.NoError(t, err)
	require.Equal(t, []float32{5, 1}, vec)
}

func TestWrap_NoopWhenDisabled(t *testing.T) {
	next := &countingEmbedder{}
	require.Same(t, next, WrapLruCacheToEmbedder(next, 0, time.Minute))
	require.Same(t, next, WrapDBCacheToEmbedder(next, nil))
}

type brokenStore struct{ saves int }

func (b *brokenStore) Get(ctx context.Context, modelName, taskType, contentHash string) ([]float32, bool, error) {
	return nil, false, errors.New("connection refused")
}

func (b *brokenStore) Save(ctx context.Context, item *model.EmbeddingCache) error {
	b.saves++
	return errors.New("connection refused")
}

func TestDBEmbedder_StoreFailureFallsThrough(t *testing.T) {
	store := &brokenStore{}
	next := &countingEmbedder{}
	vec, err := WrapDBCacheToEmbedder(next, store).Embed(context.Background(), "abc", "T")
	require.NoError(t, err)
	require.Equal(t, []float32{3, 1}, vec)
	require.Equal(t, 1, next.calls)
	require.Equal(t, 1, store.saves)
}

func TestCacheKey(t *testing.T) {
	a := newCacheKey(" gemini ", "T", "x")
	require.Equal(t, "gemini", a.model)
	require.Len(t, a.hash, 64)
	require.Equal(t, "unknown", newCacheKey("", "T", "x").model)
	require.NotEqual(t, a.String(), newCacheKey("gemini", "Q", "x").String())
}
