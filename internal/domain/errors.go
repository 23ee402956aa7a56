package domain

import "errors"

var (
	// ErrValidation indicates missing or malformed caller input.
	ErrValidation = errors.New("invalid input")
	// ErrMemberNotFound is returned when a member cannot be located.
	ErrMemberNotFound = errors.New("member not found")
	// ErrSessionNotFound is returned when a session cannot be located.
	ErrSessionNotFound = errors.New("session not found")
	// ErrReservationNotFound is returned when no matching reservation exists for the caller.
	ErrReservationNotFound = errors.New("reservation not found")
	// ErrNotificationNotFound is returned when a notification cannot be located for the caller.
	ErrNotificationNotFound = errors.New("notification not found")
	// ErrCapacityExceeded indicates the session already holds its maximum number of reservations.
	ErrCapacityExceeded = errors.New("session capacity exceeded")
	// ErrDuplicateBooking indicates the member already holds a reservation for the session.
	ErrDuplicateBooking = errors.New("session already booked by member")
	// ErrForbidden indicates a tier-gating or ownership violation.
	ErrForbidden = errors.New("forbidden")
	// ErrExternalService wraps failures of the chat-completion collaborator.
	ErrExternalService = errors.New("external service unavailable")
)
