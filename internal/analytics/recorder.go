package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"fixam/internal/domain"
	"fixam/internal/models"

	"github.com/rs/zerolog"
)

// Recorder queues analytics events locally and flushes them to the backend
// once connectivity returns. Records survive restarts via the local store.
type Recorder struct {
	store    domain.AnalyticsStore
	client   domain.RoundTripper
	endpoint string
	batch    int
	logger   *zerolog.Logger
}

func NewRecorder(store domain.AnalyticsStore, client domain.RoundTripper, endpoint string, batch int, logger *zerolog.Logger) *Recorder {
	if batch <= 0 {
		batch = models.DefaultReplayBatch
	}
	return &Recorder{
		store:    store,
		client:   client,
		endpoint: endpoint,
		batch:    batch,
		logger:   logger,
	}
}

// Record persists one event locally. Always succeeds while the local store
// is writable, online or not.
func (r *Recorder) Record(ctx context.Context, name string, payload json.RawMessage) error {
	event := &models.AnalyticsEvent{
		Name:    name,
		Payload: string(payload),
	}
	return r.store.InsertAnalyticsEvent(ctx, event)
}

// Flush posts queued events oldest-first. A delivery failure stops the run
// and keeps the remaining events queued.
func (r *Recorder) Flush(ctx context.Context) error {
	eventsList, err := r.store.ListAnalyticsEvents(ctx, r.batch)
	if err != nil {
		return fmt.Errorf("list analytics events: %w", err)
	}

	for _, event := range eventsList {
		if err := r.post(ctx, event); err != nil {
			r.logger.Warn().Err(err).Int64("event_id", event.ID).Msg("analytics flush stopped")
			return nil
		}
		if err := r.store.DeleteAnalyticsEvent(ctx, event.ID); err != nil {
			return fmt.Errorf("delete flushed event %d: %w", event.ID, err)
		}
	}
	return nil
}

func (r *Recorder) post(ctx context.Context, event *models.AnalyticsEvent) error {
	body, err := json.Marshal(map[string]interface{}{
		"name":        event.Name,
		"payload":     json.RawMessage(event.Payload),
		"occurred_at": event.OccurredAt,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("analytics endpoint returned %d", resp.StatusCode)
	}
	return nil
}
