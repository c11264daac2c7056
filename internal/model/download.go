package model

type DownloadTrack struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Artist       string `json:"artist"`
	Album        string `json:"album"`
	Cover        string `json:"cover"`
	ReleaseDate  string `json:"releaseDate"`
	DownloadLink string `json:"downloadLink"`
}

type DownloadTrackResponse struct {
	Success bool          `json:"success"`
	Data    DownloadTrack `json:"data"`
}
