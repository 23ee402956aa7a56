package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/gymfit/internal/domain"
	"example.com/gymfit/internal/persistence/memory"
)

func seedSession(store *memory.Store, capacity int, startsAt time.Time) domain.Session {
	return store.AddSession(domain.Session{
		TrainerID:   "trainer-1",
		StartsAt:    startsAt,
		DurationMin: 60,
		Capacity:    capacity,
		Details:     "Strength Basics",
	})
}

func TestBookCreatesReservation(t *testing.T) {
	store := memory.NewStore()
	startsAt := time.Now().Add(48 * time.Hour).UTC()
	session := seedSession(store, 5, startsAt)
	coordinator := NewCoordinator(store)

	reservation, err := coordinator.Book(context.Background(), "member-1", session.ID)

	require.NoError(t, err)
	require.NotEmpty(t, reservation.ID)
	require.Equal(t, session.ID, reservation.SessionID)
	require.Equal(t, "Strength Basics", reservation.SessionDetails)
	require.True(t, reservation.SessionStartsAt.Equal(startsAt))
}

func TestBookUnknownSession(t *testing.T) {
	coordinator := NewCoordinator(memory.NewStore())

	_, err := coordinator.Book(context.Background(), "member-1", "missing")

	require.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestBookValidatesInput(t *testing.T) {
	coordinator := NewCoordinator(memory.NewStore())

	_, err := coordinator.Book(context.Background(), "", "session-1")
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = coordinator.Book(context.Background(), "member-1", "")
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestBookDuplicateRejectedWithoutNewRow(t *testing.T) {
	store := memory.NewStore()
	session := seedSession(store, 5, time.Now().Add(24*time.Hour))
	coordinator := NewCoordinator(store)
	ctx := context.Background()

	_, err := coordinator.Book(ctx, "member-1", session.ID)
	require.NoError(t, err)

	_, err = coordinator.Book(ctx, "member-1", session.ID)
	require.ErrorIs(t, err, domain.ErrDuplicateBooking)

	open, err := coordinator.ListAvailable(ctx, time.Now())
	require.NoError(t, err)
	require.Len(t, open, 1)
	require.Equal(t, 1, open[0].Booked)
}

func TestBookCapacityExceeded(t *testing.T) {
	store := memory.NewStore()
	session := seedSession(store, 2, time.Now().Add(24*time.Hour))
	coordinator := NewCoordinator(store)
	ctx := context.Background()

	_, err := coordinator.Book(ctx, "member-1", session.ID)
	require.NoError(t, err)
	_, err = coordinator.Book(ctx, "member-2", session.ID)
	require.NoError(t, err)

	_, err = coordinator.Book(ctx, "member-3", session.ID)
	require.ErrorIs(t, err, domain.ErrCapacityExceeded)
}

func TestConcurrentBookingLastSlot(t *testing.T) {
	store := memory.NewStore()
	session := seedSession(store, 1, time.Now().Add(24*time.Hour))
	coordinator := NewCoordinator(store)

	const callers = 8
	results := make(chan error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := coordinator.Book(context.Background(), fmt.Sprintf("member-%d", n), session.ID)
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	var booked, full int
	for err := range results {
		switch {
		case err == nil:
			booked++
		case errors.Is(err, domain.ErrCapacityExceeded):
			full++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, booked)
	require.Equal(t, callers-1, full)
}

func TestConcurrentBookingNeverExceedsCapacity(t *testing.T) {
	store := memory.NewStore()
	session := seedSession(store, 3, time.Now().Add(24*time.Hour))
	coordinator := NewCoordinator(store)

	const callers = 12
	var wg sync.WaitGroup
	var mu sync.Mutex
	booked := 0
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if _, err := coordinator.Book(context.Background(), fmt.Sprintf("member-%d", n), session.ID); err == nil {
				mu.Lock()
				booked++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	require.Equal(t, 3, booked)

	open, err := coordinator.ListAvailable(context.Background(), time.Now())
	require.NoError(t, err)
	require.Empty(t, open, "a full session must not be listed as available")
}

func TestCancelFreesCapacity(t *testing.T) {
	store := memory.NewStore()
	session := seedSession(store, 1, time.Now().Add(24*time.Hour))
	coordinator := NewCoordinator(store)
	ctx := context.Background()

	reservation, err := coordinator.Book(ctx, "member-1", session.ID)
	require.NoError(t, err)

	_, err = coordinator.Book(ctx, "member-2", session.ID)
	require.ErrorIs(t, err, domain.ErrCapacityExceeded)

	require.NoError(t, coordinator.Cancel(ctx, "member-1", reservation.ID))

	_, err = coordinator.Book(ctx, "member-2", session.ID)
	require.NoError(t, err)
}

func TestCancelOwnershipEnforced(t *testing.T) {
	store := memory.NewStore()
	session := seedSession(store, 2, time.Now().Add(24*time.Hour))
	coordinator := NewCoordinator(store)
	ctx := context.Background()

	reservation, err := coordinator.Book(ctx, "member-1", session.ID)
	require.NoError(t, err)

	err = coordinator.Cancel(ctx, "member-2", reservation.ID)
	require.ErrorIs(t, err, domain.ErrReservationNotFound)

	require.NoError(t, coordinator.Cancel(ctx, "member-1", reservation.ID))
	err = coordinator.Cancel(ctx, "member-1", reservation.ID)
	require.ErrorIs(t, err, domain.ErrReservationNotFound)
}

func TestListAvailableOrdersBySchedule(t *testing.T) {
	store := memory.NewStore()
	now := time.Now().UTC()
	later := seedSession(store, 5, now.Add(72*time.Hour))
	sooner := seedSession(store, 5, now.Add(24*time.Hour))
	seedSession(store, 5, now.Add(-24*time.Hour)) // past, excluded
	coordinator := NewCoordinator(store)

	open, err := coordinator.ListAvailable(context.Background(), now)

	require.NoError(t, err)
	require.Len(t, open, 2)
	require.Equal(t, sooner.ID, open[0].Session.ID)
	require.Equal(t, later.ID, open[1].Session.ID)
}
