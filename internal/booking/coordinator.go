// Package booking manages capacity-constrained session reservations.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"example.com/gymfit/internal/domain"
	"example.com/gymfit/internal/observability"
)

// Store persists reservations. CreateReservation must re-validate capacity
// and duplicate ownership atomically with the insert: implementations
// serialize concurrent calls for the same session so that two bookings for
// the last open slot yield exactly one success.
type Store interface {
	CreateReservation(ctx context.Context, memberID, sessionID string) (*domain.Reservation, error)
	DeleteReservation(ctx context.Context, memberID, reservationID string) error
	ListOpenSessions(ctx context.Context, from time.Time) ([]domain.SessionAvailability, error)
}

// Coordinator enforces the reservation invariants: at most capacity active
// reservations per session, at most one per (member, session).
type Coordinator struct {
	store Store
}

// NewCoordinator constructs a Coordinator.
func NewCoordinator(store Store) *Coordinator {
	return &Coordinator{store: store}
}

// Book reserves one unit of the session's capacity for the member.
func (c *Coordinator) Book(ctx context.Context, memberID, sessionID string) (*domain.Reservation, error) {
	if memberID == "" {
		return nil, fmt.Errorf("%w: member id is required", domain.ErrValidation)
	}
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session id is required", domain.ErrValidation)
	}

	reservation, err := c.store.CreateReservation(ctx, memberID, sessionID)
	switch {
	case err == nil:
		observability.RecordBooking("booked")
		return reservation, nil
	case errors.Is(err, domain.ErrSessionNotFound):
		observability.RecordBooking("not_found")
	case errors.Is(err, domain.ErrCapacityExceeded):
		observability.RecordBooking("capacity_exceeded")
	case errors.Is(err, domain.ErrDuplicateBooking):
		observability.RecordBooking("duplicate")
	default:
		observability.RecordBooking("error")
	}
	return nil, err
}

// Cancel deletes the member's reservation, freeing one unit of capacity.
// Only the owning member may cancel.
func (c *Coordinator) Cancel(ctx context.Context, memberID, reservationID string) error {
	if memberID == "" {
		return fmt.Errorf("%w: member id is required", domain.ErrValidation)
	}
	if reservationID == "" {
		return fmt.Errorf("%w: reservation id is required", domain.ErrValidation)
	}

	if err := c.store.DeleteReservation(ctx, memberID, reservationID); err != nil {
		return err
	}
	observability.RecordBooking("cancelled")
	return nil
}

// ListAvailable returns sessions scheduled at or after now that still have
// open capacity, ordered by schedule.
func (c *Coordinator) ListAvailable(ctx context.Context, now time.Time) ([]domain.SessionAvailability, error) {
	return c.store.ListOpenSessions(ctx, now)
}
