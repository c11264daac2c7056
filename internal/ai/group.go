package ai

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type EmbedderEntry struct {
	Name     string
	Embedder IEmbedder
}

// groupEmbedder falls through its entries in order. The first vector it
// returns pins the dimension; a later entry answering with another length is
// treated as failed, since stored vectors of different lengths never compare.
type groupEmbedder struct {
	items []EmbedderEntry
	dim   atomic.Int64
}

// NewGroupEmbedder tries each embedder in order and returns the first
// success.
func NewGroupEmbedder(items []EmbedderEntry) IEmbedder {
	if len(items) == 0 {
		return nil
	}
	if len(items) == 1 {
		return items[0].Embedder
	}
	return &groupEmbedder{items: items}
}

func (g *groupEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	logger := logutil.GetLogger(ctx)
	var lastErr error
	for i, item := range g.items {
		if item.Embedder == nil {
			continue
		}
		res, err := item.Embedder.Embed(ctx, text, taskType)
		if err == nil {
			err = g.checkDimension(len(res))
		}
		if err == nil {
			return res, nil
		}
		lastErr = err
		logger.Warn("embedder failed", zap.Int("index", i), zap.String("name", item.Name), zap.Error(err))
	}
	if lastErr == nil {
		return nil, fmt.Errorf("embedder not configured")
	}
	return nil, lastErr
}

func (g *groupEmbedder) checkDimension(n int) error {
	if n == 0 {
		return fmt.Errorf("%w: empty embedding", ErrUnavailable)
	}
	if g.dim.CompareAndSwap(0, int64(n)) {
		return nil
	}
	if want := g.dim.Load(); want != int64(n) {
		return fmt.Errorf("%w: embedding has %d dimensions, group produces %d", ErrUnavailable, n, want)
	}
	return nil
}

func (g *groupEmbedder) ModelName() string {
	names := make([]string, 0, len(g.items))
	for _, item := range g.items {
		if item.Name == "" {
			continue
		}
		names = append(names, item.Name)
	}
	return strings.Join(names, "|")
}
