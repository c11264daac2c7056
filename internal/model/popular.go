package model

type PopularSong struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Genre  string `json:"genre"`
	Year   string `json:"year"`
}

// PopularSongsResult keeps one slot per sampled seed; a nil slot means the
// lookup for that seed failed or timed out.
type PopularSongsResult struct {
	Items []*TrackItem `json:"items"`
}
