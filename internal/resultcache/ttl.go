package resultcache

import (
	"time"

	"github.com/xxxsen/tunebox/internal/config"
)

type TTLPolicy struct {
	Search    time.Duration
	Trending  time.Duration
	Download  time.Duration
	Lyrics    time.Duration
	TrackInfo time.Duration
	Popular   time.Duration
}

func DefaultTTLPolicy() TTLPolicy {
	return TTLPolicy{
		Search:    72 * time.Hour,
		Trending:  72 * time.Hour,
		Download:  10 * time.Minute,
		Lyrics:    30 * 24 * time.Hour,
		TrackInfo: 72 * time.Hour,
		Popular:   24 * time.Hour,
	}
}

// NewTTLPolicy overrides the defaults with the non zero configured values.
func NewTTLPolicy(cfg config.CacheTTLConfig) TTLPolicy {
	p := DefaultTTLPolicy()
	if cfg.SearchHours > 0 {
		p.Search = time.Duration(cfg.SearchHours) * time.Hour
	}
	if cfg.TrendingHours > 0 {
		p.Trending = time.Duration(cfg.TrendingHours) * time.Hour
	}
	if cfg.DownloadMinutes > 0 {
		p.Download = time.Duration(cfg.DownloadMinutes) * time.Minute
	}
	if cfg.LyricsHours > 0 {
		p.Lyrics = time.Duration(cfg.LyricsHours) * time.Hour
	}
	if cfg.TrackInfoHours > 0 {
		p.TrackInfo = time.Duration(cfg.TrackInfoHours) * time.Hour
	}
	if cfg.PopularHours > 0 {
		p.Popular = time.Duration(cfg.PopularHours) * time.Hour
	}
	return p
}
