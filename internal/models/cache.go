package models

import "time"

// CachedResponse is a last-known-good response stored in a cache partition.
type CachedResponse struct {
	Status   int               `json:"status"`
	Headers  map[string]string `json:"headers"`
	Body     []byte            `json:"body"`
	StoredAt time.Time         `json:"stored_at"`
}
