package service

import (
	"context"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xxxsen/tunebox/internal/model"
	appErr "github.com/xxxsen/tunebox/internal/pkg/errors"
	"github.com/xxxsen/tunebox/internal/resultcache"
)

// PopularSongs resolves a sample of the country's seed songs to provider
// tracks. The result keeps one slot per sampled seed.
func (s *MusicService) PopularSongs(ctx context.Context, rawCountry string) (*model.PopularSongsResult, error) {
	country, err := parsePopularCountry(rawCountry)
	if err != nil {
		return nil, err
	}
	res, _, err := cacheAsideIf(ctx, s.cache, "popular", popularKey(country), s.ttl.Popular, func(ctx context.Context) (*model.PopularSongsResult, error) {
		return s.resolvePopular(ctx, country), nil
	}, anyResolved)
	return res, err
}

// anyResolved reports whether at least one seed resolved to a track.
func anyResolved(res *model.PopularSongsResult) bool {
	for _, item := range res.Items {
		if item != nil {
			return true
		}
	}
	return false
}

// RefreshPopularSongs rebuilds the popular list for country and overwrites
// the cached one. The cached list is kept when no seed resolves.
func (s *MusicService) RefreshPopularSongs(ctx context.Context, rawCountry string) (*model.PopularSongsResult, error) {
	country, err := parsePopularCountry(rawCountry)
	if err != nil {
		return nil, err
	}
	res := s.resolvePopular(ctx, country)
	if !anyResolved(res) {
		return nil, fmt.Errorf("refresh popular songs %s: no seed resolved: %w", country, appErr.ErrUpstreamUnavailable)
	}
	if err := resultcache.Store(ctx, s.cache, popularKey(country), res, s.ttl.Popular); err != nil {
		return nil, err
	}
	return res, nil
}

func parsePopularCountry(raw string) (model.Country, error) {
	if raw == "" {
		return model.CountryGlobal, nil
	}
	country, ok := model.ParseCountry(raw)
	if !ok {
		return "", fmt.Errorf("%w: unknown country %q", appErr.ErrInvalid, raw)
	}
	return country, nil
}

func popularKey(country model.Country) string {
	return resultcache.IDKey(resultcache.PrefixPopular, string(country))
}

func (s *MusicService) sampleSeeds(country model.Country) []model.PopularSong {
	seeds := s.seeds(country)
	s.shuffle(len(seeds), func(i, j int) {
		seeds[i], seeds[j] = seeds[j], seeds[i]
	})
	if len(seeds) > s.popular.SampleSize {
		seeds = seeds[:s.popular.SampleSize]
	}
	return seeds
}

// resolvePopular never fails as a whole: a seed whose search fails or runs
// past the per item timeout leaves a nil slot.
func (s *MusicService) resolvePopular(ctx context.Context, country model.Country) *model.PopularSongsResult {
	logger := logutil.GetLogger(ctx).With(zap.String("country", string(country)))
	seeds := s.sampleSeeds(country)
	items := make([]*model.TrackItem, len(seeds))
	var g errgroup.Group
	g.SetLimit(s.popular.Concurrency)
	for i, seed := range seeds {
		i, seed := i, seed
		g.Go(func() error {
			itemCtx, cancel := context.WithTimeout(ctx, s.popular.Timeout)
			defer cancel()
			list, err := s.search(itemCtx, model.TrackSearch{Query: seed.Title + " " + seed.Artist, Limit: 1}, seed.Genre)
			if err != nil {
				logger.Warn("resolve popular seed failed",
					zap.String("title", seed.Title),
					zap.String("artist", seed.Artist),
					zap.Error(err),
				)
				return nil
			}
			if list == nil || len(list.Items) == 0 || list.Items[0].Data == nil {
				return nil
			}
			item := list.Items[0]
			items[i] = &item
			return nil
		})
	}
	_ = g.Wait()
	return &model.PopularSongsResult{Items: items}
}
