// Package postgres provides the pgx-backed store used in production. The
// booking and notification critical sections run inside transactions with
// row or advisory locks so concurrent callers serialize at the database.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/gymfit/internal/domain"
	"example.com/gymfit/internal/events"
)

// Repository provides Postgres-backed persistence for members, sessions,
// reservations, health data, notifications and outbox events.
type Repository struct {
	pool *pgxpool.Pool

	// now is the clock used for cooldown checks and timestamps.
	now func() time.Time
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, now: time.Now}
}

// CreateMember persists a member. Used by seeding and admin tooling.
func (r *Repository) CreateMember(ctx context.Context, member domain.Member) (*domain.Member, error) {
	if member.ID == "" {
		member.ID = uuid.NewString()
	}
	const stmt = `INSERT INTO members (member_id, name, email, age, join_date, tier, active, membership_end_date)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	_, err := r.pool.Exec(ctx, stmt,
		member.ID, member.Name, member.Email, member.Age, member.JoinDate,
		member.Tier, member.Active, member.MembershipEndsAt,
	)
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// CreateSession persists a trainer session.
func (r *Repository) CreateSession(ctx context.Context, session domain.Session) (*domain.Session, error) {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	const stmt = `INSERT INTO sessions (session_id, trainer_id, starts_at, duration_min, capacity, details)
        VALUES ($1,$2,$3,$4,$5,$6)`
	_, err := r.pool.Exec(ctx, stmt,
		session.ID, session.TrainerID, session.StartsAt, session.DurationMin,
		session.Capacity, session.Details,
	)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// GetMember retrieves a member by ID, or nil when absent.
func (r *Repository) GetMember(ctx context.Context, id string) (*domain.Member, error) {
	const query = `SELECT member_id, name, email, age, join_date, tier, active, membership_end_date
        FROM members WHERE member_id=$1`

	row := r.pool.QueryRow(ctx, query, id)
	var member domain.Member
	if err := row.Scan(&member.ID, &member.Name, &member.Email, &member.Age, &member.JoinDate,
		&member.Tier, &member.Active, &member.MembershipEndsAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &member, nil
}

// ListExpiringMembers returns active members whose membership ends between
// now and until, ordered by member ID.
func (r *Repository) ListExpiringMembers(ctx context.Context, until time.Time) ([]domain.Member, error) {
	const query = `SELECT member_id, name, email, age, join_date, tier, active, membership_end_date
        FROM members
        WHERE active AND membership_end_date IS NOT NULL
          AND membership_end_date >= $1 AND membership_end_date <= $2
        ORDER BY member_id`

	rows, err := r.pool.Query(ctx, query, r.now().UTC(), until)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Member, 0)
	for rows.Next() {
		var member domain.Member
		if err := rows.Scan(&member.ID, &member.Name, &member.Email, &member.Age, &member.JoinDate,
			&member.Tier, &member.Active, &member.MembershipEndsAt); err != nil {
			return nil, err
		}
		out = append(out, member)
	}
	return out, rows.Err()
}

// CreateWorkout persists a logged activity record and emits a workout.recorded
// event inside the same transaction.
func (r *Repository) CreateWorkout(ctx context.Context, record domain.WorkoutRecord) (*domain.WorkoutRecord, error) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = r.now().UTC()
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	const stmt = `INSERT INTO workout_records (record_id, member_id, session_id, exercise, workout_date, duration_min, calories, distance_km, booking, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,FALSE,$9)`
	if _, err := tx.Exec(ctx, stmt,
		record.ID, record.MemberID, record.SessionID, record.Exercise, record.Date,
		record.DurationMin, record.Calories, record.DistanceKm, record.CreatedAt,
	); err != nil {
		return nil, err
	}

	if err := insertOutbox(ctx, tx, "workout", record.ID, "workout.recorded", record.MemberID, events.WorkoutRecorded{
		RecordID:    record.ID,
		MemberID:    record.MemberID,
		Exercise:    record.Exercise,
		Date:        record.Date,
		DurationMin: record.DurationMin,
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &record, nil
}

// CreateHealthSample persists a health time-series entry.
func (r *Repository) CreateHealthSample(ctx context.Context, sample domain.HealthSample) (*domain.HealthSample, error) {
	if sample.ID == "" {
		sample.ID = uuid.NewString()
	}
	const stmt = `INSERT INTO health_samples (sample_id, member_id, sample_date, weight_kg, height_cm, sleep_hours, water_liters, steps)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	_, err := r.pool.Exec(ctx, stmt,
		sample.ID, sample.MemberID, sample.Date, sample.WeightKg, sample.HeightCm,
		sample.SleepHours, sample.WaterLiters, sample.Steps,
	)
	if err != nil {
		return nil, err
	}
	return &sample, nil
}

// ListWorkoutsSince returns logged activity (not reservations) on or after
// since, newest first.
func (r *Repository) ListWorkoutsSince(ctx context.Context, memberID string, since time.Time) ([]domain.WorkoutRecord, error) {
	const query = `SELECT record_id, member_id, session_id, exercise, workout_date, duration_min, calories, distance_km, booking, created_at
        FROM workout_records
        WHERE member_id=$1 AND NOT booking AND workout_date >= $2
        ORDER BY workout_date DESC, record_id DESC`

	rows, err := r.pool.Query(ctx, query, memberID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.WorkoutRecord, 0)
	for rows.Next() {
		var rec domain.WorkoutRecord
		if err := rows.Scan(&rec.ID, &rec.MemberID, &rec.SessionID, &rec.Exercise, &rec.Date,
			&rec.DurationMin, &rec.Calories, &rec.DistanceKm, &rec.Booking, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ListHealthSamplesSince returns health samples on or after since, newest first.
func (r *Repository) ListHealthSamplesSince(ctx context.Context, memberID string, since time.Time) ([]domain.HealthSample, error) {
	const query = `SELECT sample_id, member_id, sample_date, weight_kg, height_cm, sleep_hours, water_liters, steps
        FROM health_samples
        WHERE member_id=$1 AND sample_date >= $2
        ORDER BY sample_date DESC, sample_id DESC`

	rows, err := r.pool.Query(ctx, query, memberID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.HealthSample, 0)
	for rows.Next() {
		var sample domain.HealthSample
		if err := rows.Scan(&sample.ID, &sample.MemberID, &sample.Date, &sample.WeightKg,
			&sample.HeightCm, &sample.SleepHours, &sample.WaterLiters, &sample.Steps); err != nil {
			return nil, err
		}
		out = append(out, sample)
	}
	return out, rows.Err()
}

// ListUpcomingSessions returns sessions the member has reserved that start at
// or after from, soonest first.
func (r *Repository) ListUpcomingSessions(ctx context.Context, memberID string, from time.Time, limit int) ([]domain.Session, error) {
	query := `SELECT s.session_id, s.trainer_id, s.starts_at, s.duration_min, s.capacity, s.details
        FROM sessions s
        JOIN workout_records w ON w.session_id = s.session_id AND w.booking
        WHERE w.member_id=$1 AND s.starts_at >= $2
        ORDER BY s.starts_at, s.session_id`
	args := []interface{}{memberID, from}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Session, 0)
	for rows.Next() {
		var session domain.Session
		if err := rows.Scan(&session.ID, &session.TrainerID, &session.StartsAt,
			&session.DurationMin, &session.Capacity, &session.Details); err != nil {
			return nil, err
		}
		out = append(out, session)
	}
	return out, rows.Err()
}

// CreateReservation books a slot inside a single transaction. The session row
// is locked with FOR UPDATE so the duplicate and capacity checks and the
// insert are atomic under concurrency.
func (r *Repository) CreateReservation(ctx context.Context, memberID, sessionID string) (*domain.Reservation, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	const lockSession = `SELECT starts_at, duration_min, capacity, details
        FROM sessions WHERE session_id=$1 FOR UPDATE`
	var (
		startsAt    time.Time
		durationMin int
		capacity    int
		details     string
	)
	if err := tx.QueryRow(ctx, lockSession, sessionID).Scan(&startsAt, &durationMin, &capacity, &details); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}

	const countBooked = `SELECT
        COUNT(*),
        COUNT(*) FILTER (WHERE member_id=$2)
        FROM workout_records WHERE session_id=$1 AND booking`
	var booked, own int
	if err := tx.QueryRow(ctx, countBooked, sessionID, memberID).Scan(&booked, &own); err != nil {
		return nil, err
	}
	if own > 0 {
		return nil, domain.ErrDuplicateBooking
	}
	if booked >= capacity {
		return nil, domain.ErrCapacityExceeded
	}

	now := r.now().UTC()
	reservationID := uuid.NewString()

	const insert = `INSERT INTO workout_records (record_id, member_id, session_id, exercise, workout_date, duration_min, booking, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,TRUE,$7)`
	if _, err := tx.Exec(ctx, insert,
		reservationID, memberID, sessionID, domain.BookingExercise, startsAt, durationMin, now,
	); err != nil {
		return nil, err
	}

	if err := insertOutbox(ctx, tx, "reservation", reservationID, "reservation.created", memberID, events.ReservationCreated{
		ReservationID:   reservationID,
		MemberID:        memberID,
		SessionID:       sessionID,
		SessionStartsAt: startsAt,
		CreatedAt:       now,
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return &domain.Reservation{
		ID:              reservationID,
		MemberID:        memberID,
		SessionID:       sessionID,
		SessionStartsAt: startsAt,
		SessionDetails:  details,
		CreatedAt:       now,
	}, nil
}

// DeleteReservation removes the member's reservation row and emits a
// reservation.cancelled event in the same transaction.
func (r *Repository) DeleteReservation(ctx context.Context, memberID, reservationID string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const del = `DELETE FROM workout_records
        WHERE record_id=$1 AND member_id=$2 AND booking
        RETURNING session_id`
	var sessionID *string
	if err := tx.QueryRow(ctx, del, reservationID, memberID).Scan(&sessionID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrReservationNotFound
		}
		return err
	}

	sid := ""
	if sessionID != nil {
		sid = *sessionID
	}
	if err := insertOutbox(ctx, tx, "reservation", reservationID, "reservation.cancelled", memberID, events.ReservationCancelled{
		ReservationID: reservationID,
		MemberID:      memberID,
		SessionID:     sid,
		OccurredAt:    r.now().UTC(),
	}); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// ListOpenSessions returns sessions starting at or after from with spare
// capacity, ordered by schedule.
func (r *Repository) ListOpenSessions(ctx context.Context, from time.Time) ([]domain.SessionAvailability, error) {
	const query = `SELECT s.session_id, s.trainer_id, s.starts_at, s.duration_min, s.capacity, s.details, COUNT(w.record_id) AS booked
        FROM sessions s
        LEFT JOIN workout_records w ON w.session_id = s.session_id AND w.booking
        WHERE s.starts_at >= $1
        GROUP BY s.session_id
        HAVING COUNT(w.record_id) < s.capacity
        ORDER BY s.starts_at, s.session_id`

	rows, err := r.pool.Query(ctx, query, from)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.SessionAvailability, 0)
	for rows.Next() {
		var avail domain.SessionAvailability
		if err := rows.Scan(&avail.Session.ID, &avail.Session.TrainerID, &avail.Session.StartsAt,
			&avail.Session.DurationMin, &avail.Session.Capacity, &avail.Session.Details, &avail.Booked); err != nil {
			return nil, err
		}
		out = append(out, avail)
	}
	return out, rows.Err()
}

// InsertIfAbsent implements the deduplicated notification insert. A
// transaction-scoped advisory lock on (member, kind) serializes concurrent
// senders; the cooldown check and the insert happen under that lock. Returns
// nil when a notification of the same kind exists within the cooldown window.
func (r *Repository) InsertIfAbsent(ctx context.Context, memberID string, kind domain.NotificationKind, message string, cooldown time.Duration) (*domain.Notification, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	lockKey := fmt.Sprintf("%s:%s", memberID, kind)
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, lockKey); err != nil {
		return nil, err
	}

	now := r.now().UTC()
	const recent = `SELECT EXISTS (
        SELECT 1 FROM notifications
        WHERE member_id=$1 AND kind=$2 AND created_at > $3)`
	var exists bool
	if err := tx.QueryRow(ctx, recent, memberID, kind, now.Add(-cooldown)).Scan(&exists); err != nil {
		return nil, err
	}
	if exists {
		return nil, tx.Commit(ctx)
	}

	notification := domain.Notification{
		ID:        uuid.NewString(),
		MemberID:  memberID,
		Kind:      kind,
		Message:   message,
		CreatedAt: now,
	}
	const insert = `INSERT INTO notifications (notification_id, member_id, kind, message, is_read, created_at)
        VALUES ($1,$2,$3,$4,FALSE,$5)`
	if _, err := tx.Exec(ctx, insert,
		notification.ID, notification.MemberID, notification.Kind, notification.Message, notification.CreatedAt,
	); err != nil {
		return nil, err
	}

	if err := insertOutbox(ctx, tx, "notification", notification.ID, "notification.created", memberID, events.NotificationCreated{
		NotificationID: notification.ID,
		MemberID:       memberID,
		Kind:           string(kind),
		CreatedAt:      now,
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &notification, nil
}

// ListNotifications returns the member's notifications, newest first.
func (r *Repository) ListNotifications(ctx context.Context, memberID string, limit int) ([]domain.Notification, error) {
	query := `SELECT notification_id, member_id, kind, message, is_read, created_at
        FROM notifications WHERE member_id=$1
        ORDER BY created_at DESC, notification_id DESC`
	args := []interface{}{memberID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Notification, 0)
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.MemberID, &n.Kind, &n.Message, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkNotificationRead flips the read flag on the member's notification.
func (r *Repository) MarkNotificationRead(ctx context.Context, memberID, id string) error {
	const stmt = `UPDATE notifications SET is_read=TRUE WHERE notification_id=$1 AND member_id=$2`
	tag, err := r.pool.Exec(ctx, stmt, id, memberID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotificationNotFound
	}
	return nil
}

func insertOutbox(ctx context.Context, tx pgx.Tx, aggregateType, aggregateID, eventType, partitionKey string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	topic := eventTopics[eventType]
	if topic == "" {
		return fmt.Errorf("unknown event type: %s", eventType)
	}

	const stmt = `INSERT INTO outbox (aggregate_type, aggregate_id, event_type, topic, partition_key, payload)
        VALUES ($1,$2,$3,$4,$5,$6)`
	_, err = tx.Exec(ctx, stmt, aggregateType, aggregateID, eventType, topic, partitionKey, body)
	return err
}

var eventTopics = map[string]string{
	"workout.recorded":      "gymfit.workouts",
	"reservation.created":   "gymfit.reservations",
	"reservation.cancelled": "gymfit.reservations",
	"notification.created":  "gymfit.notifications",
}
