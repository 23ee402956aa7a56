// Package events defines the payloads published through the outbox.
package events

import "time"

// ReservationCreated is emitted when a member books a session slot.
type ReservationCreated struct {
	ReservationID   string    `json:"reservation_id"`
	MemberID        string    `json:"member_id"`
	SessionID       string    `json:"session_id"`
	SessionStartsAt time.Time `json:"session_starts_at"`
	CreatedAt       time.Time `json:"created_at"`
}

// ReservationCancelled is emitted when a member releases a booked slot.
type ReservationCancelled struct {
	ReservationID string    `json:"reservation_id"`
	MemberID      string    `json:"member_id"`
	SessionID     string    `json:"session_id"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// WorkoutRecorded is emitted when a member logs a completed workout.
type WorkoutRecorded struct {
	RecordID    string    `json:"record_id"`
	MemberID    string    `json:"member_id"`
	Exercise    string    `json:"exercise"`
	Date        time.Time `json:"date"`
	DurationMin int       `json:"duration_min"`
}

// NotificationCreated is emitted when a deduplicated notification is stored.
type NotificationCreated struct {
	NotificationID string    `json:"notification_id"`
	MemberID       string    `json:"member_id"`
	Kind           string    `json:"kind"`
	CreatedAt      time.Time `json:"created_at"`
}
