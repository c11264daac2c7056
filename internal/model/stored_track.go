package model

// StoredTrack is the track store projection: normalized metadata plus the
// embedding computed when the track was first seen through search.
type StoredTrack struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Artists       []string  `json:"artists"`
	Album         string    `json:"album"`
	Genre         string    `json:"genre,omitempty"`
	DurationMs    int64     `json:"duration_ms"`
	ContentRating string    `json:"content_rating,omitempty"`
	Playable      bool      `json:"playable"`
	Embedding     []float32 `json:"embedding,omitempty"`
	Ctime         int64     `json:"ctime"`
	Mtime         int64     `json:"mtime"`
}

func (t *StoredTrack) HasEmbedding() bool {
	return t != nil && len(t.Embedding) > 0
}

func (t *StoredTrack) PrimaryArtist() string {
	if t == nil || len(t.Artists) == 0 {
		return ""
	}
	return t.Artists[0]
}

// NewStoredTrack normalizes a provider track. Embedding and timestamps are
// left to the caller.
func NewStoredTrack(t *Track) *StoredTrack {
	if t == nil {
		return nil
	}
	st := &StoredTrack{
		ID:      t.ID,
		Name:    t.Name,
		Artists: t.ArtistNames(),
		Album:   t.AlbumName(),
	}
	if t.Duration != nil {
		st.DurationMs = t.Duration.TotalMilliseconds
	}
	if t.ContentRating != nil {
		st.ContentRating = t.ContentRating.Label
	}
	if t.Playability != nil {
		st.Playable = t.Playability.Playable
	}
	return st
}
