package model

type LyricsLine struct {
	StartTimeMs string `json:"startTimeMs"`
	Words       string `json:"words"`
	EndTimeMs   string `json:"endTimeMs"`
}

type Lyrics struct {
	SyncType            string       `json:"syncType"`
	Lines               []LyricsLine `json:"lines"`
	Provider            string       `json:"provider"`
	ProviderLyricsID    string       `json:"providerLyricsId"`
	ProviderDisplayName string       `json:"providerDisplayName"`
	Language            string       `json:"language"`
}

type TrackLyricsResponse struct {
	Lyrics Lyrics `json:"lyrics"`
}
