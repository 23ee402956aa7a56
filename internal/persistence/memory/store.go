// Package memory provides an in-memory store for local development and tests.
// It honors the same contracts as the Postgres repository, including the
// atomicity of the booking and deduplication critical sections (a single
// mutex serializes them).
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"example.com/gymfit/internal/domain"
	"example.com/gymfit/internal/notify"
)

// Store keeps all records in process memory.
type Store struct {
	mu            sync.Mutex
	members       map[string]domain.Member
	sessions      map[string]domain.Session
	workouts      []domain.WorkoutRecord
	samples       []domain.HealthSample
	notifications []domain.Notification

	// Now is the clock used for cooldown checks and timestamps. Tests override it.
	Now func() time.Time
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{
		members:  make(map[string]domain.Member),
		sessions: make(map[string]domain.Session),
		Now:      time.Now,
	}
}

// AddMember seeds a member, assigning an ID when absent.
func (s *Store) AddMember(member domain.Member) domain.Member {
	s.mu.Lock()
	defer s.mu.Unlock()
	if member.ID == "" {
		member.ID = uuid.NewString()
	}
	s.members[member.ID] = member
	return member
}

// AddSession seeds a session, assigning an ID when absent.
func (s *Store) AddSession(session domain.Session) domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	s.sessions[session.ID] = session
	return session
}

// GetMember returns the member, or nil when absent.
func (s *Store) GetMember(ctx context.Context, id string) (*domain.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	member, ok := s.members[id]
	if !ok {
		return nil, nil
	}
	return &member, nil
}

// ListExpiringMembers returns active members whose membership ends between
// now and until.
func (s *Store) ListExpiringMembers(ctx context.Context, until time.Time) ([]domain.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.Now()
	out := make([]domain.Member, 0)
	for _, member := range s.members {
		if !member.Active || member.MembershipEndsAt == nil {
			continue
		}
		ends := *member.MembershipEndsAt
		if !ends.Before(now) && !ends.After(until) {
			out = append(out, member)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CreateWorkout appends a logged activity record.
func (s *Store) CreateWorkout(ctx context.Context, record domain.WorkoutRecord) (*domain.WorkoutRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = s.Now().UTC()
	}
	s.workouts = append(s.workouts, record)
	return &record, nil
}

// CreateHealthSample appends a health time-series entry.
func (s *Store) CreateHealthSample(ctx context.Context, sample domain.HealthSample) (*domain.HealthSample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sample.ID == "" {
		sample.ID = uuid.NewString()
	}
	s.samples = append(s.samples, sample)
	return &sample, nil
}

// ListWorkoutsSince returns logged activity (not reservations) on or after
// since, newest first.
func (s *Store) ListWorkoutsSince(ctx context.Context, memberID string, since time.Time) ([]domain.WorkoutRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.WorkoutRecord, 0)
	for _, rec := range s.workouts {
		if rec.MemberID == memberID && !rec.Booking && !rec.Date.Before(since) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

// ListHealthSamplesSince returns health samples on or after since, newest first.
func (s *Store) ListHealthSamplesSince(ctx context.Context, memberID string, since time.Time) ([]domain.HealthSample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.HealthSample, 0)
	for _, sample := range s.samples {
		if sample.MemberID == memberID && !sample.Date.Before(since) {
			out = append(out, sample)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

// ListUpcomingSessions returns sessions the member has reserved that start at
// or after from, soonest first.
func (s *Store) ListUpcomingSessions(ctx context.Context, memberID string, from time.Time, limit int) ([]domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Session, 0)
	for _, rec := range s.workouts {
		if !rec.Booking || rec.MemberID != memberID || rec.SessionID == nil {
			continue
		}
		session, ok := s.sessions[*rec.SessionID]
		if ok && !session.StartsAt.Before(from) {
			out = append(out, session)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// CreateReservation atomically validates capacity and ownership before
// appending the reservation row.
func (s *Store) CreateReservation(ctx context.Context, memberID, sessionID string) (*domain.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}

	booked := 0
	for _, rec := range s.workouts {
		if rec.Booking && rec.SessionID != nil && *rec.SessionID == sessionID {
			if rec.MemberID == memberID {
				return nil, domain.ErrDuplicateBooking
			}
			booked++
		}
	}
	if booked >= session.Capacity {
		return nil, domain.ErrCapacityExceeded
	}

	now := s.Now().UTC()
	record := domain.WorkoutRecord{
		ID:          uuid.NewString(),
		MemberID:    memberID,
		SessionID:   &sessionID,
		Exercise:    domain.BookingExercise,
		Date:        session.StartsAt,
		DurationMin: session.DurationMin,
		Booking:     true,
		CreatedAt:   now,
	}
	s.workouts = append(s.workouts, record)

	return &domain.Reservation{
		ID:              record.ID,
		MemberID:        memberID,
		SessionID:       sessionID,
		SessionStartsAt: session.StartsAt,
		SessionDetails:  session.Details,
		CreatedAt:       now,
	}, nil
}

// DeleteReservation removes the member's reservation row.
func (s *Store) DeleteReservation(ctx context.Context, memberID, reservationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, rec := range s.workouts {
		if rec.ID == reservationID && rec.MemberID == memberID && rec.Booking {
			s.workouts = append(s.workouts[:i], s.workouts[i+1:]...)
			return nil
		}
	}
	return domain.ErrReservationNotFound
}

// ListOpenSessions returns sessions starting at or after from with spare
// capacity, ordered by schedule.
func (s *Store) ListOpenSessions(ctx context.Context, from time.Time) ([]domain.SessionAvailability, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.SessionAvailability, 0)
	for _, session := range s.sessions {
		if session.StartsAt.Before(from) {
			continue
		}
		booked := 0
		for _, rec := range s.workouts {
			if rec.Booking && rec.SessionID != nil && *rec.SessionID == session.ID {
				booked++
			}
		}
		if booked < session.Capacity {
			out = append(out, domain.SessionAvailability{Session: session, Booked: booked})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Session.StartsAt.Equal(out[j].Session.StartsAt) {
			return out[i].Session.StartsAt.Before(out[j].Session.StartsAt)
		}
		return out[i].Session.ID < out[j].Session.ID
	})
	return out, nil
}

// InsertIfAbsent implements the deduplicated notification insert. The store
// mutex serializes the check and the insert per call.
func (s *Store) InsertIfAbsent(ctx context.Context, memberID string, kind domain.NotificationKind, message string, cooldown time.Duration) (*domain.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.Now().UTC()
	history := make([]domain.Notification, 0)
	for _, n := range s.notifications {
		if n.MemberID == memberID {
			history = append(history, n)
		}
	}
	if notify.Suppressed(history, kind, now, cooldown) {
		return nil, nil
	}

	notification := domain.Notification{
		ID:        uuid.NewString(),
		MemberID:  memberID,
		Kind:      kind,
		Message:   message,
		CreatedAt: now,
	}
	s.notifications = append(s.notifications, notification)
	return &notification, nil
}

// ListNotifications returns the member's notifications, newest first.
func (s *Store) ListNotifications(ctx context.Context, memberID string, limit int) ([]domain.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Notification, 0)
	for _, n := range s.notifications {
		if n.MemberID == memberID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// MarkNotificationRead flips the read flag on the member's notification.
func (s *Store) MarkNotificationRead(ctx context.Context, memberID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, n := range s.notifications {
		if n.ID == id && n.MemberID == memberID {
			s.notifications[i].Read = true
			return nil
		}
	}
	return domain.ErrNotificationNotFound
}
