package resultcache

import (
	"encoding/json"
	"fmt"
)

const (
	PrefixSearch    = "search"
	PrefixTrending  = "trending"
	PrefixDownload  = "download"
	PrefixLyrics    = "lyrics"
	PrefixTrackInfo = "track_infor"
	PrefixPopular   = "popular_songs"
)

// Key builds `<prefix>:<json>` from the request parameters. encoding/json
// writes map keys in sorted order, so equal parameter sets always produce
// the same key regardless of how the caller assembled them.
func Key(prefix string, params map[string]interface{}) (string, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("encode cache key: %w", err)
	}
	return prefix + ":" + string(raw), nil
}

func IDKey(prefix, id string) string {
	return prefix + "_" + id
}
