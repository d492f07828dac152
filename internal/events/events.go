package events

import (
	"encoding/json"
	"sync"
	"time"
)

// Booking domain events.
const (
	EventBookingCreated      = "booking_created"
	EventBookingTransitioned = "booking_transitioned"
)

// Agent broadcasts, mirrored to the foreground page by the bridge.
const (
	EventAgentActivated = "SW_ACTIVATED"
	EventOutboxQueued   = "OUTBOX_QUEUED"
	EventOutboxSent     = "OUTBOX_SENT"
	EventOutboxDropped  = "OUTBOX_DROPPED"
	EventCachesCleared  = "CACHES_CLEARED"
	EventNotifyClick    = "NOTIFICATION_CLICK"
)

// BookingEventPayload describes the minimal booking snapshot for event consumers.
type BookingEventPayload struct {
	BookingID int64     `json:"booking_id"`
	Reference string    `json:"reference"`
	ClientID  int64     `json:"client_id"`
	ArtisanID int64     `json:"artisan_id"`
	Service   string    `json:"service"`
	Status    string    `json:"status"`
	Action    string    `json:"action,omitempty"`
	ActorID   int64     `json:"actor_id,omitempty"`
	Date      time.Time `json:"date"`
}

// OutboxEventPayload describes an outbox outcome for UI listeners.
type OutboxEventPayload struct {
	EntryID    int64  `json:"entry_id"`
	URL        string `json:"url"`
	Method     string `json:"method"`
	StatusCode int    `json:"status_code,omitempty"`
}

// Event represents a lightweight domain event.
type Event struct {
	ID        int64
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		_ = handler(event)
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
	return nil
}
