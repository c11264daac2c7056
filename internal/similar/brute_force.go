package similar

import (
	"context"
	"sort"

	"github.com/xxxsen/tunebox/internal/model"
	"github.com/xxxsen/tunebox/internal/pkg/vecmath"
	"github.com/xxxsen/tunebox/internal/store"
)

// CandidatePool caps how many stored tracks one brute force query scores.
const CandidatePool = 100

type bruteForce struct {
	tracks store.TrackStore
	pool   int
}

func NewBruteForce(tracks store.TrackStore) Strategy {
	return &bruteForce{tracks: tracks, pool: CandidatePool}
}

func (b *bruteForce) Name() string {
	return "brute_force"
}

func (b *bruteForce) Available(ctx context.Context) bool {
	return true
}

func (b *bruteForce) Search(ctx context.Context, src *model.StoredTrack, n int, filter model.SimilarityFilter) ([]model.SimilarityResult, error) {
	candidates, err := b.tracks.ListCandidates(ctx, src.ID, filter, b.pool)
	if err != nil {
		return nil, err
	}
	results := make([]model.SimilarityResult, 0, len(candidates))
	for _, c := range candidates {
		if c.ID == src.ID {
			continue
		}
		score, ok := vecmath.Cosine(src.Embedding, c.Embedding)
		if !ok {
			continue
		}
		results = append(results, model.SimilarityResult{
			TrackID:         c.ID,
			Name:            c.Name,
			Artists:         c.Artists,
			Album:           c.Album,
			Genre:           c.Genre,
			SimilarityScore: score,
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].SimilarityScore != results[j].SimilarityScore {
			return results[i].SimilarityScore > results[j].SimilarityScore
		}
		return results[i].TrackID < results[j].TrackID
	})
	if len(results) > n {
		results = results[:n]
	}
	return results, nil
}
