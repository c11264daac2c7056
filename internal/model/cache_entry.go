package model

import "time"

type CacheEntry struct {
	Key       string    `json:"key"`
	Result    []byte    `json:"result"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (e *CacheEntry) Expired(now time.Time) bool {
	return e == nil || !e.ExpiresAt.After(now)
}
