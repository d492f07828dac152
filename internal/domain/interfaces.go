package domain

import (
	"context"
	"net/http"

	"fixam/internal/models"
)

type BookingStore interface {
	CreateBooking(ctx context.Context, booking *models.Booking) error
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	GetBookingByReference(ctx context.Context, reference string) (*models.Booking, error)
	UpdateStatusVersioned(ctx context.Context, id, fromVersion int64, status string) error
	ListBookingsForUser(ctx context.Context, userID int64) ([]*models.Booking, error)
	ListAllBookings(ctx context.Context) ([]*models.Booking, error)
}

type NotificationStore interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	ListNotificationsForUser(ctx context.Context, userID int64) ([]*models.Notification, error)
	GetNotification(ctx context.Context, id int64) (*models.Notification, error)
	MarkNotificationRead(ctx context.Context, id, userID int64) error
	MarkAllNotificationsRead(ctx context.Context, userID int64) (int64, error)
}

type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByToken(ctx context.Context, token string) (*models.User, error)
}

// Dispatcher persists one notification addressed to a single user.
type Dispatcher interface {
	Dispatch(ctx context.Context, userID int64, title, message, typ string, payload *models.NotificationPayload) error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type OutboxStore interface {
	InsertOutboxEntry(ctx context.Context, entry *models.OutboxEntry) error
	ListOutboxEntries(ctx context.Context, limit int) ([]*models.OutboxEntry, error)
	DeleteOutboxEntry(ctx context.Context, id int64) error
	CountOutboxEntries(ctx context.Context) (int, error)
}

type AnalyticsStore interface {
	InsertAnalyticsEvent(ctx context.Context, event *models.AnalyticsEvent) error
	ListAnalyticsEvents(ctx context.Context, limit int) ([]*models.AnalyticsEvent, error)
	DeleteAnalyticsEvent(ctx context.Context, id int64) error
}

// CacheStore is one named partition of cached responses.
type CacheStore interface {
	Get(ctx context.Context, key string) (*models.CachedResponse, error)
	Put(ctx context.Context, key string, resp *models.CachedResponse) error
	Clear(ctx context.Context) error
	Name() string
}

// RoundTripper is the outbound HTTP dependency of the agent, injectable in tests.
type RoundTripper interface {
	Do(req *http.Request) (*http.Response, error)
}
