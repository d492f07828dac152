package models

const (
	StatusPending             = "pending"
	StatusConfirmed           = "confirmed"
	StatusDeclined            = "declined"
	StatusInProgress          = "in_progress"
	StatusPendingConfirmation = "pending_confirmation"
	StatusCompleted           = "completed"
	StatusCancelled           = "cancelled"
)

const (
	PaymentCash     = "cash"
	PaymentTransfer = "transfer"
	PaymentOnline   = "online"
)

const (
	NotificationTypeBooking = "booking"
	NotificationTypePayment = "payment"
	NotificationTypeMessage = "message"
	NotificationTypeSystem  = "system"
)

const (
	RoleClient  = "client"
	RoleArtisan = "artisan"
)

const (
	// ReferencePrefix starts every human-readable booking reference.
	ReferencePrefix = "FXM-"

	// ReferenceLength is the random-suffix length after the prefix.
	ReferenceLength = 9

	// DefaultCDNTimeout bounds network fetches to external hosts.
	DefaultCDNTimeout = 5 // seconds

	// DefaultReplayBatch caps entries processed per outbox replay run.
	DefaultReplayBatch = 50

	// DefaultRateLimitRPS is the per-token API rate limit.
	DefaultRateLimitRPS = 10

	// DefaultRateLimitBurst is the per-token burst allowance.
	DefaultRateLimitBurst = 20
)

// IsTerminalStatus reports whether a booking can no longer transition.
func IsTerminalStatus(status string) bool {
	switch status {
	case StatusDeclined, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// ValidPayment reports whether the payment method is one of the enum.
func ValidPayment(method string) bool {
	switch method {
	case PaymentCash, PaymentTransfer, PaymentOnline:
		return true
	}
	return false
}
