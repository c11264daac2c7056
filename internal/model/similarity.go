package model

type SimilarityFilter struct {
	Genre string `json:"genre,omitempty"`
}

func (f SimilarityFilter) IsEmpty() bool {
	return f.Genre == ""
}

type SimilarityResult struct {
	TrackID         string   `json:"track_id"`
	Name            string   `json:"name"`
	Artists         []string `json:"artists"`
	Album           string   `json:"album"`
	Genre           string   `json:"genre,omitempty"`
	SimilarityScore float64  `json:"similarity_score"`
}

// VectorQuery is a nearest neighbour request against a store's vector index.
type VectorQuery struct {
	Vector        []float32
	SourceID      string
	NumCandidates int
	Limit         int
	Filter        SimilarityFilter
}
