package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/tunebox/internal/embed"
	"github.com/xxxsen/tunebox/internal/metrics"
	"github.com/xxxsen/tunebox/internal/model"
	appErr "github.com/xxxsen/tunebox/internal/pkg/errors"
	"github.com/xxxsen/tunebox/internal/resultcache"
	"github.com/xxxsen/tunebox/internal/similar"
	"github.com/xxxsen/tunebox/internal/store"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 50
	searchTopResults   = 5
	dateLayout         = "2006-01-02"
)

// Fetcher is the upstream music provider.
type Fetcher interface {
	Search(ctx context.Context, q model.TrackSearch) (*model.TrackList, error)
	Trending(ctx context.Context, country model.Country, period model.Period, date string) (*model.TrendingTracksResponse, error)
	Lyrics(ctx context.Context, id string) (*model.TrackLyricsResponse, error)
	TrackInfo(ctx context.Context, id string) (json.RawMessage, error)
	DownloadLink(ctx context.Context, id string) (*model.DownloadTrackResponse, error)
}

type PopularOptions struct {
	Concurrency int
	Timeout     time.Duration
	SampleSize  int
}

type MusicService struct {
	cache     store.ResultCache
	tracks    store.TrackStore
	fetcher   Fetcher
	generator *embed.Generator
	engine    *similar.Engine
	ttl       resultcache.TTLPolicy
	popular   PopularOptions
	seeds     func(model.Country) []model.PopularSong
	shuffle   func(n int, swap func(i, j int))
	now       func() time.Time
}

type Option func(*MusicService)

func WithTTLPolicy(p resultcache.TTLPolicy) Option {
	return func(s *MusicService) { s.ttl = p }
}

func WithPopularOptions(p PopularOptions) Option {
	return func(s *MusicService) {
		if p.Concurrency > 0 {
			s.popular.Concurrency = p.Concurrency
		}
		if p.Timeout > 0 {
			s.popular.Timeout = p.Timeout
		}
		if p.SampleSize > 0 {
			s.popular.SampleSize = p.SampleSize
		}
	}
}

func WithSeeds(fn func(model.Country) []model.PopularSong) Option {
	return func(s *MusicService) { s.seeds = fn }
}

func WithShuffle(fn func(n int, swap func(i, j int))) Option {
	return func(s *MusicService) { s.shuffle = fn }
}

func WithClock(now func() time.Time) Option {
	return func(s *MusicService) { s.now = now }
}

func NewMusicService(cache store.ResultCache, tracks store.TrackStore, fetcher Fetcher, generator *embed.Generator, engine *similar.Engine, opts ...Option) *MusicService {
	s := &MusicService{
		cache:     cache,
		tracks:    tracks,
		fetcher:   fetcher,
		generator: generator,
		engine:    engine,
		ttl:       resultcache.DefaultTTLPolicy(),
		popular:   PopularOptions{Concurrency: 5, Timeout: 5 * time.Second, SampleSize: 10},
		seeds:     PopularSeeds,
		shuffle:   rand.Shuffle,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// cacheAside serves key from the result cache, or calls fetch and stores its
// result with ttl. Nothing is cached when fetch fails.
func cacheAside[T any](ctx context.Context, c store.ResultCache, op, key string, ttl time.Duration, fetch func(ctx context.Context) (*T, error)) (*T, bool, error) {
	return cacheAsideIf(ctx, c, op, key, ttl, fetch, nil)
}

// cacheAsideIf is cacheAside that stores a fetched result only when keep
// accepts it. A nil keep accepts everything.
func cacheAsideIf[T any](ctx context.Context, c store.ResultCache, op, key string, ttl time.Duration, fetch func(ctx context.Context) (*T, error), keep func(*T) bool) (*T, bool, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("op", op), zap.String("key", key))
	cached, ok, err := resultcache.Load[T](ctx, c, key)
	if err != nil {
		logger.Error("cache lookup failed", zap.Error(err))
		return nil, false, err
	}
	if ok {
		metrics.CacheHit(op)
		logger.Debug("cache hit")
		return cached, true, nil
	}
	metrics.CacheMiss(op)
	res, err := fetch(ctx)
	if err != nil {
		logger.Error("fetch failed, nothing cached", zap.Error(err))
		return nil, false, err
	}
	if keep != nil && !keep(res) {
		logger.Warn("result not cached")
		return res, false, nil
	}
	if err := resultcache.Store(ctx, c, key, res, ttl); err != nil {
		logger.Error("cache store failed", zap.Error(err))
		return nil, false, err
	}
	return res, false, nil
}

func (s *MusicService) Search(ctx context.Context, q model.TrackSearch) (*model.TrackList, error) {
	return s.search(ctx, q, "")
}

func (s *MusicService) search(ctx context.Context, q model.TrackSearch, genre string) (*model.TrackList, error) {
	q.Query = strings.TrimSpace(q.Query)
	if q.Query == "" {
		return nil, fmt.Errorf("%w: query is required", appErr.ErrInvalid)
	}
	if q.Offset < 0 || q.Limit < 0 {
		return nil, fmt.Errorf("%w: limit and offset must not be negative", appErr.ErrInvalid)
	}
	if q.Limit == 0 {
		q.Limit = defaultSearchLimit
	}
	if q.Limit > maxSearchLimit {
		q.Limit = maxSearchLimit
	}
	key, err := resultcache.Key(resultcache.PrefixSearch, map[string]interface{}{
		"type":               "tracks",
		"offset":             q.Offset,
		"limit":              q.Limit,
		"numberOfTopResults": searchTopResults,
		"q":                  q.Query,
	})
	if err != nil {
		return nil, err
	}
	// tracks are persisted before the result is cached, so a hit implies
	// they are already stored
	res, _, err := cacheAside(ctx, s.cache, "search", key, s.ttl.Search, func(ctx context.Context) (*model.TrackList, error) {
		list, err := s.fetcher.Search(ctx, q)
		if err != nil {
			return nil, err
		}
		if list == nil {
			return nil, fmt.Errorf("empty search response: %w", appErr.ErrMalformedUpstreamPayload)
		}
		if err := s.storeTracks(ctx, list.Items, genre); err != nil {
			return nil, err
		}
		return list, nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// storeTracks upserts every returned track. A track whose embedding cannot
// be computed is still stored, without an embedding.
func (s *MusicService) storeTracks(ctx context.Context, items []model.TrackItem, genre string) error {
	logger := logutil.GetLogger(ctx)
	for _, item := range items {
		st := model.NewStoredTrack(item.Data)
		if st == nil || st.ID == "" {
			continue
		}
		st.Genre = genre
		switch {
		case s.generator == nil:
		case s.generator.Mode() == embed.ModeHybrid:
			logger.Debug("hybrid mode, embedding waits for audio", zap.String("track_id", st.ID))
		default:
			vec, err := s.generator.Generate(ctx, st, nil)
			if err != nil {
				metrics.EmbeddingsTotal.WithLabelValues(string(s.generator.Mode()), "error").Inc()
				logger.Warn("compute track embedding failed, store without it",
					zap.String("track_id", st.ID),
					zap.Error(err),
				)
			} else {
				metrics.EmbeddingsTotal.WithLabelValues(string(s.generator.Mode()), "ok").Inc()
				st.Embedding = vec
			}
		}
		if err := s.tracks.Upsert(ctx, st); err != nil {
			logger.Error("upsert track failed", zap.String("track_id", st.ID), zap.Error(err))
			return store.Unavailable("upsert track", err)
		}
	}
	return nil
}

func (s *MusicService) TopTrending(ctx context.Context, req model.TopTrending) (*model.TrendingTracksResponse, error) {
	country, ok := model.ParseCountry(string(req.Country))
	if !ok {
		return nil, fmt.Errorf("%w: unknown country %q", appErr.ErrInvalid, req.Country)
	}
	period := model.Period(strings.ToLower(strings.TrimSpace(string(req.Period))))
	if !period.Valid() {
		return nil, fmt.Errorf("%w: unknown period %q", appErr.ErrInvalid, req.Period)
	}
	params := map[string]interface{}{
		"country": string(country),
		"period":  string(period),
	}
	var date string
	if period == model.PeriodWeekly {
		date = LatestThursday(s.now()).Format(dateLayout)
		params["date"] = date
	}
	key, err := resultcache.Key(resultcache.PrefixTrending, params)
	if err != nil {
		return nil, err
	}
	res, _, err := cacheAside(ctx, s.cache, "trending", key, s.ttl.Trending, func(ctx context.Context) (*model.TrendingTracksResponse, error) {
		return s.fetcher.Trending(ctx, country, period, date)
	})
	return res, err
}

// LatestThursday returns the most recent Thursday, today included, in UTC.
// Weekly charts are published per Thursday.
func LatestThursday(now time.Time) time.Time {
	now = now.UTC()
	back := (int(now.Weekday()) - int(time.Thursday) + 7) % 7
	day := now.AddDate(0, 0, -back)
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
}

func (s *MusicService) DownloadLink(ctx context.Context, id string) (*model.DownloadTrackResponse, error) {
	id, err := requireID(id)
	if err != nil {
		return nil, err
	}
	res, _, err := cacheAside(ctx, s.cache, "download", resultcache.IDKey(resultcache.PrefixDownload, id), s.ttl.Download,
		func(ctx context.Context) (*model.DownloadTrackResponse, error) {
			return s.fetcher.DownloadLink(ctx, id)
		})
	return res, err
}

func (s *MusicService) Lyrics(ctx context.Context, id string) (*model.TrackLyricsResponse, error) {
	id, err := requireID(id)
	if err != nil {
		return nil, err
	}
	res, _, err := cacheAside(ctx, s.cache, "lyrics", resultcache.IDKey(resultcache.PrefixLyrics, id), s.ttl.Lyrics,
		func(ctx context.Context) (*model.TrackLyricsResponse, error) {
			return s.fetcher.Lyrics(ctx, id)
		})
	return res, err
}

func (s *MusicService) TrackInfo(ctx context.Context, id string) (json.RawMessage, error) {
	id, err := requireID(id)
	if err != nil {
		return nil, err
	}
	res, _, err := cacheAside(ctx, s.cache, "track_info", resultcache.IDKey(resultcache.PrefixTrackInfo, id), s.ttl.TrackInfo,
		func(ctx context.Context) (*json.RawMessage, error) {
			raw, err := s.fetcher.TrackInfo(ctx, id)
			if err != nil {
				return nil, err
			}
			return &raw, nil
		})
	if err != nil {
		return nil, err
	}
	return *res, nil
}

func (s *MusicService) Similar(ctx context.Context, id string, n int, filter model.SimilarityFilter) ([]model.SimilarityResult, error) {
	id, err := requireID(id)
	if err != nil {
		return nil, err
	}
	filter.Genre = strings.TrimSpace(filter.Genre)
	return s.engine.Similar(ctx, id, n, filter)
}

// EmbedTrackAudio recomputes a stored track's embedding from its metadata
// and decoded mono PCM. Only hybrid deployments accept audio.
func (s *MusicService) EmbedTrackAudio(ctx context.Context, id string, audio *embed.AudioInput) (*model.StoredTrack, error) {
	id, err := requireID(id)
	if err != nil {
		return nil, err
	}
	if s.generator == nil || s.generator.Mode() != embed.ModeHybrid {
		return nil, fmt.Errorf("%w: audio embeddings need hybrid mode", appErr.ErrInvalid)
	}
	if audio == nil || len(audio.Samples) == 0 || audio.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: audio samples and sample rate are required", appErr.ErrInvalid)
	}
	track, err := s.tracks.Get(ctx, id)
	if err != nil {
		return nil, store.Unavailable("get track", err)
	}
	vec, err := s.generator.Generate(ctx, track, audio)
	if err != nil {
		metrics.EmbeddingsTotal.WithLabelValues(string(embed.ModeHybrid), "error").Inc()
		return nil, err
	}
	metrics.EmbeddingsTotal.WithLabelValues(string(embed.ModeHybrid), "ok").Inc()
	track.Embedding = vec
	if err := s.tracks.Upsert(ctx, track); err != nil {
		return nil, store.Unavailable("upsert track", err)
	}
	return track, nil
}

// BackfillEmbeddings computes metadata embeddings for up to batch stored
// tracks that have none and returns how many were updated.
func (s *MusicService) BackfillEmbeddings(ctx context.Context, batch int) (int, error) {
	if s.generator == nil || s.generator.Mode() != embed.ModeMetadata {
		return 0, nil
	}
	tracks, err := s.tracks.ListMissingEmbedding(ctx, batch)
	if err != nil {
		return 0, store.Unavailable("list tracks without embedding", err)
	}
	logger := logutil.GetLogger(ctx)
	updated := 0
	for i := range tracks {
		track := &tracks[i]
		vec, err := s.generator.Generate(ctx, track, nil)
		if err != nil {
			metrics.EmbeddingsTotal.WithLabelValues(string(embed.ModeMetadata), "error").Inc()
			logger.Warn("backfill embedding failed", zap.String("track_id", track.ID), zap.Error(err))
			continue
		}
		metrics.EmbeddingsTotal.WithLabelValues(string(embed.ModeMetadata), "ok").Inc()
		track.Embedding = vec
		if err := s.tracks.Upsert(ctx, track); err != nil {
			return updated, store.Unavailable("upsert track", err)
		}
		updated++
	}
	return updated, nil
}

func requireID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("%w: track id is required", appErr.ErrInvalid)
	}
	return id, nil
}
