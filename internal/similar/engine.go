package similar

import (
	"context"
	"errors"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/tunebox/internal/metrics"
	"github.com/xxxsen/tunebox/internal/model"
	appErr "github.com/xxxsen/tunebox/internal/pkg/errors"
	"github.com/xxxsen/tunebox/internal/store"
)

const (
	DefaultLimit = 5
	MaxLimit     = 50
)

// Strategy is one way of ranking tracks against a source embedding.
type Strategy interface {
	Name() string
	Available(ctx context.Context) bool
	Search(ctx context.Context, src *model.StoredTrack, n int, filter model.SimilarityFilter) ([]model.SimilarityResult, error)
}

type Engine struct {
	tracks     store.TrackStore
	strategies []Strategy
}

// NewEngine builds an engine over tracks. Without explicit strategies the
// store's vector index is tried first and the brute force scan second.
func NewEngine(tracks store.TrackStore, strategies ...Strategy) *Engine {
	if len(strategies) == 0 {
		strategies = []Strategy{NewVectorIndex(tracks), NewBruteForce(tracks)}
	}
	return &Engine{tracks: tracks, strategies: strategies}
}

func ClampLimit(n int) int {
	switch {
	case n == 0:
		return DefaultLimit
	case n < 1:
		return 1
	case n > MaxLimit:
		return MaxLimit
	}
	return n
}

// Similar returns at most n tracks ranked by cosine similarity to sourceID,
// excluding sourceID itself. An unknown source or one without an embedding
// yields an empty result.
func (e *Engine) Similar(ctx context.Context, sourceID string, n int, filter model.SimilarityFilter) ([]model.SimilarityResult, error) {
	n = ClampLimit(n)
	src, err := e.tracks.Get(ctx, sourceID)
	if err != nil {
		if appErr.IsNotFound(err) {
			return []model.SimilarityResult{}, nil
		}
		return nil, store.Unavailable("get source track", err)
	}
	if !src.HasEmbedding() {
		logutil.GetLogger(ctx).Debug("source track has no embedding", zap.String("track_id", sourceID))
		return []model.SimilarityResult{}, nil
	}
	var lastErr error
	for _, s := range e.strategies {
		if !s.Available(ctx) {
			logutil.GetLogger(ctx).Debug("similarity strategy unavailable", zap.String("strategy", s.Name()))
			continue
		}
		res, err := s.Search(ctx, src, n, filter)
		if err != nil {
			lastErr = err
			metrics.SimilarityQueriesTotal.WithLabelValues(s.Name(), "error").Inc()
			logutil.GetLogger(ctx).Warn("similarity strategy failed, try next",
				zap.String("strategy", s.Name()),
				zap.String("track_id", sourceID),
				zap.Error(err),
			)
			continue
		}
		metrics.SimilarityQueriesTotal.WithLabelValues(s.Name(), "ok").Inc()
		if len(res) > n {
			res = res[:n]
		}
		if res == nil {
			res = []model.SimilarityResult{}
		}
		return res, nil
	}
	if lastErr == nil {
		lastErr = errors.New("no similarity strategy available")
	}
	return nil, store.Unavailable("similar tracks", lastErr)
}
