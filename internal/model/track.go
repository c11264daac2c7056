package model

import "strings"

type ImageSource struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type CoverArt struct {
	Sources []ImageSource `json:"sources"`
}

type SharingInfo struct {
	ShareURL string `json:"shareUrl"`
}

type Album struct {
	URI         string       `json:"uri"`
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	CoverArt    CoverArt     `json:"coverArt"`
	SharingInfo *SharingInfo `json:"sharingInfo,omitempty"`
}

type ArtistProfile struct {
	Name string `json:"name"`
}

type Artist struct {
	URI     string        `json:"uri"`
	Profile ArtistProfile `json:"profile"`
}

type Artists struct {
	Items []Artist `json:"items"`
}

type ContentRating struct {
	Label string `json:"label"`
}

type Duration struct {
	TotalMilliseconds int64 `json:"totalMilliseconds"`
}

type Playability struct {
	Playable bool `json:"playable"`
}

// Track is the provider's track shape as returned by search.
type Track struct {
	URI           string         `json:"uri,omitempty"`
	ID            string         `json:"id,omitempty"`
	Name          string         `json:"name,omitempty"`
	AlbumOfTrack  *Album         `json:"albumOfTrack,omitempty"`
	Artists       *Artists       `json:"artists,omitempty"`
	ContentRating *ContentRating `json:"contentRating,omitempty"`
	Duration      *Duration      `json:"duration,omitempty"`
	Playability   *Playability   `json:"playability,omitempty"`
}

func (t *Track) PrimaryArtist() string {
	if t == nil || t.Artists == nil || len(t.Artists.Items) == 0 {
		return ""
	}
	return t.Artists.Items[0].Profile.Name
}

func (t *Track) ArtistNames() []string {
	if t == nil || t.Artists == nil {
		return nil
	}
	names := make([]string, 0, len(t.Artists.Items))
	for _, item := range t.Artists.Items {
		name := strings.TrimSpace(item.Profile.Name)
		if name == "" {
			continue
		}
		names = append(names, name)
	}
	return names
}

func (t *Track) AlbumName() string {
	if t == nil || t.AlbumOfTrack == nil {
		return ""
	}
	return t.AlbumOfTrack.Name
}

// TrackItem wraps a track; the provider sometimes sends an empty data field.
type TrackItem struct {
	Data *Track `json:"data,omitempty"`
}

type PagingInfo struct {
	NextOffset int `json:"nextOffset"`
	Limit      int `json:"limit"`
}

type TrackList struct {
	TotalCount int         `json:"totalCount"`
	Items      []TrackItem `json:"items"`
	PagingInfo *PagingInfo `json:"pagingInfo,omitempty"`
}

type TrackSearch struct {
	Query  string `json:"query"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}
