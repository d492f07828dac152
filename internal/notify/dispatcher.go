package notify

import (
	"context"

	"fixam/internal/domain"
	"fixam/internal/metrics"
	"fixam/internal/models"

	"github.com/rs/zerolog"
)

// Service persists notifications and answers recipient queries.
type Service struct {
	store  domain.NotificationStore
	logger *zerolog.Logger
}

func NewService(store domain.NotificationStore, logger *zerolog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Dispatch writes one notification addressed to a single user. The type
// defaults to "booking" when empty. Either the record is persisted whole or
// an error comes back; there is no partial write.
func (s *Service) Dispatch(ctx context.Context, userID int64, title, message, typ string, payload *models.NotificationPayload) error {
	if typ == "" {
		typ = models.NotificationTypeBooking
	}

	n := &models.Notification{
		UserID:  userID,
		Title:   title,
		Message: message,
		Type:    typ,
		Payload: payload,
	}
	if err := s.store.CreateNotification(ctx, n); err != nil {
		return err
	}

	metrics.IncNotification(typ)
	s.logger.Debug().Int64("user_id", userID).Str("type", typ).Str("title", title).Msg("notification dispatched")
	return nil
}

// ListForUser returns the user's notifications, newest first.
func (s *Service) ListForUser(ctx context.Context, userID int64) ([]*models.Notification, error) {
	return s.store.ListNotificationsForUser(ctx, userID)
}

// MarkRead flips the read flag. Already-read notifications succeed as a no-op.
func (s *Service) MarkRead(ctx context.Context, id, userID int64) error {
	return s.store.MarkNotificationRead(ctx, id, userID)
}

// MarkAllRead marks every unread notification for the user and reports how
// many changed.
func (s *Service) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	return s.store.MarkAllNotificationsRead(ctx, userID)
}
