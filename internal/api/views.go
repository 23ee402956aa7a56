package api

import (
	"errors"
	"strings"
	"time"

	"example.com/gymfit/internal/domain"
	"example.com/gymfit/internal/insights"
)

// LogWorkoutRequest is the payload for POST /v1/workouts.
type LogWorkoutRequest struct {
	MemberID    string    `json:"member_id,omitempty"`
	Exercise    string    `json:"exercise"`
	Date        time.Time `json:"date"`
	DurationMin int       `json:"duration_min"`
	Calories    *float64  `json:"calories,omitempty"`
	DistanceKm  *float64  `json:"distance_km,omitempty"`
}

// Validate ensures request correctness.
func (r LogWorkoutRequest) Validate() error {
	if strings.TrimSpace(r.Exercise) == "" {
		return errors.New("exercise is required")
	}
	if r.Date.IsZero() {
		return errors.New("date is required")
	}
	if r.DurationMin <= 0 {
		return errors.New("duration_min must be > 0")
	}
	if r.Calories != nil && *r.Calories < 0 {
		return errors.New("calories must be >= 0")
	}
	if r.DistanceKm != nil && *r.DistanceKm < 0 {
		return errors.New("distance_km must be >= 0")
	}
	return nil
}

// LogHealthSampleRequest is the payload for POST /v1/health-samples.
type LogHealthSampleRequest struct {
	MemberID    string    `json:"member_id,omitempty"`
	Date        time.Time `json:"date"`
	WeightKg    *float64  `json:"weight_kg,omitempty"`
	HeightCm    *float64  `json:"height_cm,omitempty"`
	SleepHours  *float64  `json:"sleep_hours,omitempty"`
	WaterLiters *float64  `json:"water_liters,omitempty"`
	Steps       *int      `json:"steps,omitempty"`
}

// Validate ensures request correctness. At least one measurement must be set.
func (r LogHealthSampleRequest) Validate() error {
	if r.Date.IsZero() {
		return errors.New("date is required")
	}
	if r.WeightKg == nil && r.HeightCm == nil && r.SleepHours == nil && r.WaterLiters == nil && r.Steps == nil {
		return errors.New("at least one measurement is required")
	}
	if r.WeightKg != nil && *r.WeightKg <= 0 {
		return errors.New("weight_kg must be > 0")
	}
	if r.SleepHours != nil && (*r.SleepHours < 0 || *r.SleepHours > 24) {
		return errors.New("sleep_hours must be between 0 and 24")
	}
	if r.Steps != nil && *r.Steps < 0 {
		return errors.New("steps must be >= 0")
	}
	return nil
}

// BookSessionRequest is the payload for POST /v1/sessions/book.
type BookSessionRequest struct {
	MemberID  string `json:"member_id,omitempty"`
	SessionID string `json:"session_id"`
}

// CancelReservationRequest is the payload for POST /v1/sessions/cancel.
type CancelReservationRequest struct {
	MemberID      string `json:"member_id,omitempty"`
	ReservationID string `json:"reservation_id"`
}

// ChatRequest is the payload for POST /v1/members/{id}/chat.
type ChatRequest struct {
	Question string `json:"question"`
}

// ChatResponse carries the assistant's answer. Fallback marks a locally
// generated summary used when the collaborator was unavailable.
type ChatResponse struct {
	Answer   string `json:"answer"`
	Fallback bool   `json:"fallback"`
}

// WorkoutView exposes a stored activity record.
type WorkoutView struct {
	RecordID    string    `json:"record_id"`
	MemberID    string    `json:"member_id"`
	Exercise    string    `json:"exercise"`
	Date        time.Time `json:"date"`
	DurationMin int       `json:"duration_min"`
	Calories    *float64  `json:"calories,omitempty"`
	DistanceKm  *float64  `json:"distance_km,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// HealthSampleView exposes a stored health sample.
type HealthSampleView struct {
	SampleID    string    `json:"sample_id"`
	MemberID    string    `json:"member_id"`
	Date        time.Time `json:"date"`
	WeightKg    *float64  `json:"weight_kg,omitempty"`
	HeightCm    *float64  `json:"height_cm,omitempty"`
	SleepHours  *float64  `json:"sleep_hours,omitempty"`
	WaterLiters *float64  `json:"water_liters,omitempty"`
	Steps       *int      `json:"steps,omitempty"`
}

// SessionAvailabilityView exposes a bookable session with remaining capacity.
type SessionAvailabilityView struct {
	SessionID   string    `json:"session_id"`
	TrainerID   string    `json:"trainer_id"`
	StartsAt    time.Time `json:"starts_at"`
	DurationMin int       `json:"duration_min"`
	Capacity    int       `json:"capacity"`
	Details     string    `json:"details"`
	SpotsLeft   int       `json:"spots_left"`
}

// ListSessionsResponse packages availability results.
type ListSessionsResponse struct {
	Items []SessionAvailabilityView `json:"items"`
}

// ReservationView exposes a confirmed booking.
type ReservationView struct {
	ReservationID   string    `json:"reservation_id"`
	MemberID        string    `json:"member_id"`
	SessionID       string    `json:"session_id"`
	SessionStartsAt time.Time `json:"session_starts_at"`
	SessionDetails  string    `json:"session_details"`
	CreatedAt       time.Time `json:"created_at"`
}

// StatsView exposes the member's rolling-window statistics.
type StatsView struct {
	WorkoutCount   int      `json:"workout_count"`
	AvgDurationMin float64  `json:"avg_duration_min"`
	AvgCalories    float64  `json:"avg_calories"`
	TotalCalories  float64  `json:"total_calories"`
	Exercises      []string `json:"exercises"`
	WeightTrend    string   `json:"weight_trend"`
	WeightChangeKg float64  `json:"weight_change_kg"`
	LatestWeightKg *float64 `json:"latest_weight_kg,omitempty"`
	LatestSteps    *int     `json:"latest_steps,omitempty"`
}

// RecommendationView exposes one rule-engine suggestion.
type RecommendationView struct {
	Kind        string `json:"kind"`
	Message     string `json:"message"`
	Exercise    string `json:"exercise"`
	DurationMin int    `json:"duration_min"`
}

// ListRecommendationsResponse packages recommendation results.
type ListRecommendationsResponse struct {
	Items []RecommendationView `json:"items"`
}

// NotificationView exposes a stored member alert.
type NotificationView struct {
	NotificationID string    `json:"notification_id"`
	Kind           string    `json:"kind"`
	Message        string    `json:"message"`
	Read           bool      `json:"read"`
	CreatedAt      time.Time `json:"created_at"`
}

// ListNotificationsResponse packages notification results.
type ListNotificationsResponse struct {
	Items []NotificationView `json:"items"`
}

func toWorkoutView(rec domain.WorkoutRecord) WorkoutView {
	return WorkoutView{
		RecordID:    rec.ID,
		MemberID:    rec.MemberID,
		Exercise:    rec.Exercise,
		Date:        rec.Date,
		DurationMin: rec.DurationMin,
		Calories:    rec.Calories,
		DistanceKm:  rec.DistanceKm,
		CreatedAt:   rec.CreatedAt,
	}
}

func toHealthSampleView(sample domain.HealthSample) HealthSampleView {
	return HealthSampleView{
		SampleID:    sample.ID,
		MemberID:    sample.MemberID,
		Date:        sample.Date,
		WeightKg:    sample.WeightKg,
		HeightCm:    sample.HeightCm,
		SleepHours:  sample.SleepHours,
		WaterLiters: sample.WaterLiters,
		Steps:       sample.Steps,
	}
}

func toStatsView(snap insights.Snapshot) StatsView {
	view := StatsView{
		WorkoutCount:   snap.WorkoutCount,
		AvgDurationMin: snap.AvgDurationMin,
		AvgCalories:    snap.AvgCalories,
		TotalCalories:  snap.TotalCalories,
		Exercises:      snap.Exercises,
		WeightTrend:    string(snap.WeightTrend),
		WeightChangeKg: snap.WeightChangeKg,
	}
	if snap.LatestSample != nil {
		view.LatestWeightKg = snap.LatestSample.WeightKg
		view.LatestSteps = snap.LatestSample.Steps
	}
	return view
}
