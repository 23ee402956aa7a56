// Package insights computes rolling-window statistics and rule-based
// workout recommendations from a member's logged history.
package insights

import (
	"example.com/gymfit/internal/domain"
)

// WeightTrend classifies the weight delta between the newest and oldest
// samples inside the lookback window.
type WeightTrend string

const (
	TrendStable     WeightTrend = "stable"
	TrendIncreasing WeightTrend = "increasing"
	TrendDecreasing WeightTrend = "decreasing"
)

// trendThresholdKg is the minimum absolute delta before a trend is reported.
const trendThresholdKg = 0.5

// Snapshot holds statistics for one member over the lookback window.
type Snapshot struct {
	WorkoutCount   int
	AvgDurationMin float64
	AvgCalories    float64
	TotalCalories  float64
	Exercises      []string
	LatestSample   *domain.HealthSample
	WeightTrend    WeightTrend
	WeightChangeKg float64
}

// Aggregate computes a Snapshot from window-restricted history. Both slices
// are expected newest first, the order the storage layer returns them in.
// Empty input yields a zeroed snapshot; averages are guarded against empty sets.
func Aggregate(records []domain.WorkoutRecord, samples []domain.HealthSample) Snapshot {
	snap := Snapshot{
		Exercises:   make([]string, 0, 4),
		WeightTrend: TrendStable,
	}

	seen := make(map[string]struct{})
	var totalDuration int
	for _, rec := range records {
		snap.WorkoutCount++
		totalDuration += rec.DurationMin
		if rec.Calories != nil {
			snap.TotalCalories += *rec.Calories
		}
		if _, ok := seen[rec.Exercise]; !ok {
			seen[rec.Exercise] = struct{}{}
			snap.Exercises = append(snap.Exercises, rec.Exercise)
		}
	}

	if snap.WorkoutCount > 0 {
		snap.AvgDurationMin = float64(totalDuration) / float64(snap.WorkoutCount)
		snap.AvgCalories = snap.TotalCalories / float64(snap.WorkoutCount)
	}

	if len(samples) > 0 {
		snap.LatestSample = &samples[0]
	}
	snap.WeightTrend, snap.WeightChangeKg = weightTrend(samples)

	return snap
}

// weightTrend compares the newest weighted sample against the oldest one.
func weightTrend(samples []domain.HealthSample) (WeightTrend, float64) {
	var newest, oldest *float64
	for i := range samples {
		if samples[i].WeightKg == nil {
			continue
		}
		if newest == nil {
			newest = samples[i].WeightKg
		}
		oldest = samples[i].WeightKg
	}
	if newest == nil || oldest == nil || newest == oldest {
		return TrendStable, 0
	}

	change := *newest - *oldest
	switch {
	case change < -trendThresholdKg:
		return TrendDecreasing, change
	case change > trendThresholdKg:
		return TrendIncreasing, change
	default:
		return TrendStable, change
	}
}
