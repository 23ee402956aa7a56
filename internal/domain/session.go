package domain

import "time"

// Session is a trainer-led, time-scheduled activity slot with fixed capacity.
type Session struct {
	ID          string
	TrainerID   string
	StartsAt    time.Time
	DurationMin int
	Capacity    int
	Details     string
}

// Reservation is a member's claim on one unit of a session's capacity.
// The session snapshot fields are filled from the row locked during booking.
type Reservation struct {
	ID              string
	MemberID        string
	SessionID       string
	SessionStartsAt time.Time
	SessionDetails  string
	CreatedAt       time.Time
}

// SessionAvailability pairs a session with its current reservation count.
type SessionAvailability struct {
	Session Session
	Booked  int
}
