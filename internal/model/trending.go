package model

type Period string

const (
	PeriodDaily  Period = "daily"
	PeriodWeekly Period = "weekly"
)

func (p Period) Valid() bool {
	return p == PeriodDaily || p == PeriodWeekly
}

type TopTrending struct {
	Country Country `json:"country"`
	Period  Period  `json:"period"`
}

type TrendingTrackArtist struct {
	Name        string `json:"name"`
	SpotifyURI  string `json:"spotifyUri"`
	ExternalURL string `json:"externalUrl"`
}

type TrendingTrackLabel struct {
	Name        string `json:"name"`
	SpotifyURI  string `json:"spotifyUri"`
	ExternalURL string `json:"externalUrl"`
}

type RankingMetric struct {
	Value string `json:"value"`
	Type  string `json:"type"`
}

type ChartEntryData struct {
	CurrentRank                   int           `json:"currentRank"`
	PreviousRank                  int           `json:"previousRank"`
	PeakRank                      int           `json:"peakRank"`
	PeakDate                      string        `json:"peakDate"`
	AppearancesOnChart            int           `json:"appearancesOnChart"`
	ConsecutiveAppearancesOnChart int           `json:"consecutiveAppearancesOnChart"`
	RankingMetric                 RankingMetric `json:"rankingMetric"`
	EntryStatus                   string        `json:"entryStatus"`
	EntryRank                     int           `json:"entryRank"`
	EntryDate                     string        `json:"entryDate"`
}

type TrendingTrackMetadata struct {
	TrackName       string                `json:"trackName"`
	TrackURI        string                `json:"trackUri"`
	DisplayImageURI string                `json:"displayImageUri"`
	Artists         []TrendingTrackArtist `json:"artists"`
	Producers       []any                 `json:"producers"`
	Labels          []TrendingTrackLabel  `json:"labels"`
	SongWriters     []any                 `json:"songWriters"`
	ReleaseDate     string                `json:"releaseDate"`
}

type TrendingTrack struct {
	ChartEntryData        ChartEntryData        `json:"chartEntryData"`
	MissingRequiredFields bool                  `json:"missingRequiredFields"`
	TrackMetadata         TrendingTrackMetadata `json:"trackMetadata"`
}

type TrendingTracksResponse struct {
	Tracks []TrendingTrack `json:"tracks"`
}
