package models

import "time"

// OutboxEntry is a mutating request captured while the network was down.
// The auto-increment ID doubles as the FIFO ordering key.
type OutboxEntry struct {
	ID             int64             `json:"id"`
	IdempotencyKey string            `json:"idempotency_key"`
	URL            string            `json:"url"`
	Method         string            `json:"method"`
	Headers        map[string]string `json:"headers"`
	Body           *string           `json:"body"` // serialized JSON, nil for bodyless requests
	EnqueuedAt     time.Time         `json:"enqueued_at"`
}

// AnalyticsEvent is an offline analytics record queued for later flush.
type AnalyticsEvent struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Payload    string    `json:"payload"`
	OccurredAt time.Time `json:"occurred_at"`
}
