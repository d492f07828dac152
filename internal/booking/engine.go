package booking

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"fixam/internal/apperrors"
	"fixam/internal/domain"
	"fixam/internal/events"
	"fixam/internal/metrics"
	"fixam/internal/models"

	"github.com/rs/zerolog"
)

var timePattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// Engine owns the booking lifecycle: it validates creation input, enforces
// the transition table, and fans out one notification per state change.
type Engine struct {
	store      domain.BookingStore
	users      domain.UserStore
	dispatcher domain.Dispatcher
	eventBus   domain.EventPublisher
	logger     *zerolog.Logger
}

func NewEngine(store domain.BookingStore, users domain.UserStore, dispatcher domain.Dispatcher, eventBus domain.EventPublisher, logger *zerolog.Logger) *Engine {
	return &Engine{
		store:      store,
		users:      users,
		dispatcher: dispatcher,
		eventBus:   eventBus,
		logger:     logger,
	}
}

// CreateInput is the client-supplied booking request.
type CreateInput struct {
	ArtisanID   int64   `json:"artisan_id"`
	Service     string  `json:"service"`
	Description string  `json:"description"`
	Date        string  `json:"date"`
	Time        string  `json:"time"`
	Amount      float64 `json:"amount"`
	Payment     string  `json:"payment_method"`
	Location    string  `json:"location"`
}

// Create validates every field at once, persists a pending booking with a
// fresh reference, and notifies the artisan.
func (e *Engine) Create(ctx context.Context, clientID int64, input CreateInput) (*models.Booking, error) {
	fields := make(map[string]string)

	if input.ArtisanID <= 0 {
		fields["artisan_id"] = "required"
	}
	if strings.TrimSpace(input.Service) == "" {
		fields["service"] = "required"
	}

	var date time.Time
	if input.Date == "" {
		fields["date"] = "required"
	} else {
		var err error
		date, err = time.Parse("2006-01-02", input.Date)
		if err != nil {
			fields["date"] = "must be a valid date (YYYY-MM-DD)"
		}
	}

	if !timePattern.MatchString(input.Time) {
		fields["time"] = "must match HH:MM (24h)"
	}
	if input.Amount < 0 || math.IsNaN(input.Amount) || math.IsInf(input.Amount, 0) {
		fields["amount"] = "must be a non-negative number"
	}
	if !models.ValidPayment(input.Payment) {
		fields["payment_method"] = "must be one of cash, transfer, online"
	}

	if len(fields) > 0 {
		return nil, apperrors.NewValidation(fields)
	}

	if input.ArtisanID == clientID {
		return nil, &apperrors.ConflictError{Reason: "self-booking is not allowed", Cause: apperrors.ErrSelfBooking}
	}

	client, err := e.users.GetUserByID(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("resolve client: %w", err)
	}
	artisan, err := e.users.GetUserByID(ctx, input.ArtisanID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("resolve artisan: %w", err)
	}

	reference, err := NewReference()
	if err != nil {
		return nil, err
	}

	booking := &models.Booking{
		Reference:   reference,
		ClientID:    client.ID,
		ClientName:  client.Name,
		ArtisanID:   artisan.ID,
		ArtisanName: artisan.Name,
		Service:     strings.TrimSpace(input.Service),
		Description: input.Description,
		Date:        date,
		Time:        input.Time,
		Amount:      input.Amount,
		Payment:     input.Payment,
		Location:    input.Location,
		Status:      models.StatusPending,
	}

	if err := e.store.CreateBooking(ctx, booking); err != nil {
		return nil, err
	}

	e.notify(ctx, artisan.ID, "New Booking Request",
		fmt.Sprintf("New booking request for %s", booking.Service),
		booking, client.ID, true)

	e.publishEvent(events.EventBookingCreated, booking, "", client.ID)
	metrics.IncTransition("create", "ok")

	return booking, nil
}

// Apply runs one lifecycle action on behalf of an actor. The transition
// table decides authorization and the allowed from-states; the status write
// is a version compare-and-swap, so a concurrent transition loses cleanly.
func (e *Engine) Apply(ctx context.Context, bookingID, actorID int64, action Action) (*models.Booking, error) {
	row, ok := transitions[action]
	if !ok {
		return nil, apperrors.ErrUnknownAction
	}

	b, err := e.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if !row.authorized(b, actorID) {
		metrics.IncTransition(string(action), "forbidden")
		return nil, &apperrors.AuthorizationError{ActorID: actorID, Action: string(action)}
	}

	if !row.allowsFrom(b.Status) {
		metrics.IncTransition(string(action), "conflict")
		return nil, &apperrors.ConflictError{
			Reason: fmt.Sprintf("cannot %s a booking in status %s", action, b.Status),
			Cause:  apperrors.ErrInvalidTransition,
		}
	}

	if err := e.store.UpdateStatusVersioned(ctx, b.ID, b.Version, row.to); err != nil {
		if errors.Is(err, apperrors.ErrConcurrentModification) {
			metrics.IncTransition(string(action), "conflict")
			return nil, &apperrors.ConflictError{Reason: "booking was modified concurrently", Cause: err}
		}
		return nil, err
	}

	updated, err := e.store.GetBooking(ctx, b.ID)
	if err != nil {
		return nil, err
	}

	e.notify(ctx, row.recipient(b, actorID), row.title, row.message(b), updated, actorID, row.actionRequired)
	e.publishEvent(events.EventBookingTransitioned, updated, string(action), actorID)
	metrics.IncTransition(string(action), "ok")

	return updated, nil
}

// ListForUser returns the caller's bookings (either party), newest first.
func (e *Engine) ListForUser(ctx context.Context, userID int64) ([]models.BookingView, error) {
	bookings, err := e.store.ListBookingsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	views := make([]models.BookingView, 0, len(bookings))
	for _, b := range bookings {
		views = append(views, b.View())
	}
	return views, nil
}

// notify dispatches the transition's notification. Dispatch failure never
// rolls back the state change; it is logged and swallowed.
func (e *Engine) notify(ctx context.Context, recipientID int64, title, message string, b *models.Booking, actorID int64, actionRequired bool) {
	if e.dispatcher == nil {
		return
	}

	payload := &models.NotificationPayload{
		BookingReference: b.Reference,
		ActorID:          actorID,
		ActionRequired:   actionRequired,
	}
	if err := e.dispatcher.Dispatch(ctx, recipientID, title, message, models.NotificationTypeBooking, payload); err != nil {
		e.logger.Error().Err(err).
			Int64("booking_id", b.ID).
			Int64("recipient_id", recipientID).
			Msg("notification dispatch failed")
	}
}

func (e *Engine) publishEvent(eventType string, b *models.Booking, action string, actorID int64) {
	if e.eventBus == nil {
		return
	}

	payload := events.BookingEventPayload{
		BookingID: b.ID,
		Reference: b.Reference,
		ClientID:  b.ClientID,
		ArtisanID: b.ArtisanID,
		Service:   b.Service,
		Status:    b.Status,
		Action:    action,
		ActorID:   actorID,
		Date:      b.Date,
	}

	if err := e.eventBus.PublishJSON(eventType, payload); err != nil {
		e.logger.Error().Err(err).Str("event_type", eventType).Int64("booking_id", b.ID).Msg("publish event error")
	}
}
