package outbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"fixam/internal/apperrors"
	"fixam/internal/domain"
	"fixam/internal/events"
	"fixam/internal/metrics"
	"fixam/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Queue captures mutating requests that failed on the network and replays
// them strictly oldest-first once connectivity returns.
type Queue struct {
	store  domain.OutboxStore
	client domain.RoundTripper
	bus    domain.EventPublisher
	batch  int
	online func() bool
	logger *zerolog.Logger
}

func NewQueue(store domain.OutboxStore, client domain.RoundTripper, bus domain.EventPublisher, batch int, logger *zerolog.Logger) *Queue {
	if batch <= 0 {
		batch = models.DefaultReplayBatch
	}
	return &Queue{
		store:  store,
		client: client,
		bus:    bus,
		batch:  batch,
		logger: logger,
	}
}

// SetOnlineCheck installs a connectivity check consulted after every
// Enqueue. When it reports the network as up, the queue starts a replay run
// straight away instead of waiting for the next periodic drain.
func (q *Queue) SetOnlineCheck(fn func() bool) {
	q.online = fn
}

// Enqueue persists a failed mutating request. A body must be valid JSON to
// be queueable; only DELETE may go bodyless or carry anything else.
func (q *Queue) Enqueue(ctx context.Context, method, url string, headers map[string]string, body []byte) (*models.OutboxEntry, error) {
	if len(body) > 0 && !json.Valid(body) && method != http.MethodDelete {
		return nil, &apperrors.QueueRejectedError{Reason: "request body is not JSON-serializable"}
	}

	entry := &models.OutboxEntry{
		IdempotencyKey: uuid.NewString(),
		URL:            url,
		Method:         method,
		Headers:        headers,
	}
	if len(body) > 0 {
		s := string(body)
		entry.Body = &s
	}

	if err := q.store.InsertOutboxEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("persist outbox entry: %w", err)
	}

	q.broadcast(events.EventOutboxQueued, entry, 0)
	q.updateDepth(ctx)
	q.logger.Info().Int64("entry_id", entry.ID).Str("method", method).Str("url", url).Msg("request queued offline")

	if q.online != nil && q.online() {
		// The network may only have blipped; try draining right away so the
		// entry is not stranded until the next scheduled replay.
		if err := q.Replay(ctx); err != nil {
			q.logger.Warn().Err(err).Msg("immediate replay after enqueue failed")
		}
	}

	return entry, nil
}

// Replay walks the queue in FIFO order. A 2xx response removes the entry, a
// 4xx removes it as dropped (the server will never accept it), and a
// transport error stops the whole run so order is preserved and the backend
// is not hammered while unreachable.
func (q *Queue) Replay(ctx context.Context) error {
	entries, err := q.store.ListOutboxEntries(ctx, q.batch)
	if err != nil {
		return fmt.Errorf("list outbox entries: %w", err)
	}

	for _, entry := range entries {
		status, err := q.send(ctx, entry)
		if err != nil {
			metrics.IncReplay("retained")
			q.logger.Warn().Err(err).Int64("entry_id", entry.ID).Msg("replay hit network error, stopping run")
			break
		}

		switch {
		case status >= 200 && status < 300:
			if err := q.store.DeleteOutboxEntry(ctx, entry.ID); err != nil {
				return fmt.Errorf("delete sent entry %d: %w", entry.ID, err)
			}
			metrics.IncReplay("sent")
			q.broadcast(events.EventOutboxSent, entry, status)
		case status >= 400 && status < 500:
			if err := q.store.DeleteOutboxEntry(ctx, entry.ID); err != nil {
				return fmt.Errorf("delete dropped entry %d: %w", entry.ID, err)
			}
			metrics.IncReplay("dropped")
			q.broadcast(events.EventOutboxDropped, entry, status)
			q.logger.Warn().Int64("entry_id", entry.ID).Int("status", status).Msg("replay dropped by server")
		default:
			// 5xx: the server is up but struggling; keep the entry and
			// stop the run like a network failure.
			metrics.IncReplay("retained")
			q.logger.Warn().Int64("entry_id", entry.ID).Int("status", status).Msg("replay got server error, stopping run")
			q.updateDepth(ctx)
			return nil
		}
	}

	q.updateDepth(ctx)
	return nil
}

// Depth reports the number of queued entries.
func (q *Queue) Depth(ctx context.Context) (int, error) {
	return q.store.CountOutboxEntries(ctx)
}

func (q *Queue) send(ctx context.Context, entry *models.OutboxEntry) (int, error) {
	var body *bytes.Reader
	if entry.Body != nil {
		body = bytes.NewReader([]byte(*entry.Body))
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, entry.Method, entry.URL, body)
	if err != nil {
		return 0, err
	}
	for k, v := range entry.Headers {
		req.Header.Set(k, v)
	}
	if entry.Body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Idempotency-Key", entry.IdempotencyKey)

	resp, err := q.client.Do(req)
	if err != nil {
		return 0, &apperrors.NetworkError{Cause: err}
	}
	defer resp.Body.Close()

	return resp.StatusCode, nil
}

func (q *Queue) broadcast(eventType string, entry *models.OutboxEntry, status int) {
	if q.bus == nil {
		return
	}
	payload := events.OutboxEventPayload{
		EntryID:    entry.ID,
		URL:        entry.URL,
		Method:     entry.Method,
		StatusCode: status,
	}
	if err := q.bus.PublishJSON(eventType, payload); err != nil {
		q.logger.Error().Err(err).Str("event_type", eventType).Msg("broadcast outbox event")
	}
}

func (q *Queue) updateDepth(ctx context.Context) {
	depth, err := q.store.CountOutboxEntries(ctx)
	if err != nil {
		q.logger.Error().Err(err).Msg("count outbox entries")
		return
	}
	metrics.SetOutboxDepth(depth)
}
