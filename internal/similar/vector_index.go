package similar

import (
	"context"

	"github.com/xxxsen/tunebox/internal/model"
	"github.com/xxxsen/tunebox/internal/store"
)

const candidateFactor = 10

type vectorIndex struct {
	tracks store.TrackStore
}

func NewVectorIndex(tracks store.TrackStore) Strategy {
	return &vectorIndex{tracks: tracks}
}

func (v *vectorIndex) Name() string {
	return "vector_index"
}

func (v *vectorIndex) Available(ctx context.Context) bool {
	return v.tracks.VectorSearchAvailable(ctx)
}

func (v *vectorIndex) Search(ctx context.Context, src *model.StoredTrack, n int, filter model.SimilarityFilter) ([]model.SimilarityResult, error) {
	res, err := v.tracks.VectorSearch(ctx, model.VectorQuery{
		Vector:        src.Embedding,
		SourceID:      src.ID,
		NumCandidates: n * candidateFactor,
		Limit:         n,
		Filter:        filter,
	})
	if err != nil {
		return nil, err
	}
	out := make([]model.SimilarityResult, 0, len(res))
	for _, item := range res {
		if item.TrackID == src.ID {
			continue
		}
		item.SimilarityScore = clampScore(item.SimilarityScore)
		out = append(out, item)
	}
	return out, nil
}

func clampScore(s float64) float64 {
	if s > 1 {
		return 1
	}
	if s < -1 {
		return -1
	}
	return s
}
