package models

import "time"

type Notification struct {
	ID        int64                `json:"id"`
	UserID    int64                `json:"user_id"`
	Title     string               `json:"title"`
	Message   string               `json:"message"`
	Type      string               `json:"type"` // booking, payment, message, system
	Read      bool                 `json:"read"`
	ReadAt    *time.Time           `json:"read_at,omitempty"`
	Payload   *NotificationPayload `json:"payload,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
}

// NotificationPayload carries structured context for the recipient UI.
type NotificationPayload struct {
	BookingReference string `json:"booking_reference,omitempty"`
	ActorID          int64  `json:"actor_id,omitempty"`
	ActionRequired   bool   `json:"action_required,omitempty"`
}
