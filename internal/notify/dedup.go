// Package notify raises member lifecycle notifications, suppressing
// repeats of the same kind inside a cooldown window.
package notify

import (
	"context"
	"fmt"
	"time"

	"example.com/gymfit/internal/domain"
	"example.com/gymfit/internal/observability"
)

// Store persists notifications. InsertIfAbsent must evaluate the cooldown
// check and the insert against a consistent snapshot, serialized per
// (member, kind), so concurrent calls cannot both insert.
type Store interface {
	// InsertIfAbsent returns the created notification, or nil when an entry of
	// the same kind for the same member already exists inside the cooldown.
	InsertIfAbsent(ctx context.Context, memberID string, kind domain.NotificationKind, message string, cooldown time.Duration) (*domain.Notification, error)
}

// Outcome reports whether a notification was raised or suppressed.
type Outcome struct {
	Created      bool
	Notification *domain.Notification
}

// Deduplicator decides per (member, kind) whether an alert may be raised.
type Deduplicator struct {
	store    Store
	cooldown time.Duration
}

// NewDeduplicator constructs a Deduplicator with the given cooldown window.
func NewDeduplicator(store Store, cooldown time.Duration) *Deduplicator {
	return &Deduplicator{store: store, cooldown: cooldown}
}

// Notify inserts a notification unless one of the same kind was created for
// the member within the cooldown window. Suppression is a normal outcome,
// not an error.
func (d *Deduplicator) Notify(ctx context.Context, memberID string, kind domain.NotificationKind, message string) (Outcome, error) {
	if memberID == "" {
		return Outcome{}, fmt.Errorf("%w: member id is required", domain.ErrValidation)
	}
	if message == "" {
		return Outcome{}, fmt.Errorf("%w: message is required", domain.ErrValidation)
	}

	created, err := d.store.InsertIfAbsent(ctx, memberID, kind, message, d.cooldown)
	if err != nil {
		return Outcome{}, err
	}
	if created == nil {
		observability.RecordNotification(string(kind), "suppressed")
		return Outcome{}, nil
	}

	observability.RecordNotification(string(kind), "created")
	return Outcome{Created: true, Notification: created}, nil
}

// Suppressed reports whether history already contains a notification of the
// given kind created inside the cooldown window ending at now. It is the
// pure decision underlying InsertIfAbsent implementations.
func Suppressed(history []domain.Notification, kind domain.NotificationKind, now time.Time, cooldown time.Duration) bool {
	cutoff := now.Add(-cooldown)
	for _, n := range history {
		if n.Kind == kind && n.CreatedAt.After(cutoff) {
			return true
		}
	}
	return false
}
