package domain

import "time"

// BookingExercise labels workout rows that represent a session reservation
// rather than logged activity.
const BookingExercise = "Session Booking"

// WorkoutRecord is a logged activity, or a session reservation when Booking is set.
// Records are immutable once created; reservation rows are deleted on cancellation.
type WorkoutRecord struct {
	ID          string
	MemberID    string
	SessionID   *string
	Exercise    string
	Date        time.Time
	DurationMin int
	Calories    *float64
	DistanceKm  *float64
	Booking     bool
	CreatedAt   time.Time
}

// HealthSample is one append-only entry of a member's health time series.
// Absent measurements stay nil rather than defaulting to zero.
type HealthSample struct {
	ID          string
	MemberID    string
	Date        time.Time
	WeightKg    *float64
	HeightCm    *float64
	SleepHours  *float64
	WaterLiters *float64
	Steps       *int
}
