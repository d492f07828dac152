package apperrors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound               = errors.New("not found")
	ErrSelfBooking            = errors.New("client and artisan must differ")
	ErrInvalidTransition      = errors.New("invalid status transition")
	ErrConcurrentModification = errors.New("booking was modified concurrently")
	ErrUnknownAction          = errors.New("unknown booking action")
)

// ValidationError reports every missing or malformed field at once.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, reason := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, reason))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// NewValidation builds a ValidationError from collected field problems.
func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Fields: fields}
}

// AuthorizationError means the caller is not the authorized actor.
type AuthorizationError struct {
	ActorID int64
	Action  string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("actor %d is not authorized for %s", e.ActorID, e.Action)
}

// ConflictError covers self-booking, invalid transitions and version races.
type ConflictError struct {
	Reason string
	Cause  error
}

func (e *ConflictError) Error() string {
	return e.Reason
}

func (e *ConflictError) Unwrap() error {
	return e.Cause
}

// QueueRejectedError means a request could not be captured into the outbox.
type QueueRejectedError struct {
	Reason string
}

func (e *QueueRejectedError) Error() string {
	return "queue rejected: " + e.Reason
}

// NetworkError marks a transport-level failure that may be retried.
type NetworkError struct {
	Cause error
}

func (e *NetworkError) Error() string {
	return "network error: " + e.Cause.Error()
}

func (e *NetworkError) Unwrap() error {
	return e.Cause
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsAuthorization reports whether err carries an AuthorizationError.
func IsAuthorization(err error) bool {
	var ae *AuthorizationError
	return errors.As(err, &ae)
}

// IsConflict reports whether err carries a ConflictError.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// IsNetwork reports whether err carries a NetworkError.
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}
