package insights

import (
	"example.com/gymfit/internal/domain"
)

// MaxRecommendations caps the rule engine output.
const MaxRecommendations = 3

// Inputs feeds the rule engine. WeeklyWorkouts counts activity in the last
// seven days, independent of the snapshot's longer lookback.
type Inputs struct {
	Snapshot       Snapshot
	WeeklyWorkouts int
}

type rule struct {
	name string
	eval func(Inputs) *domain.Recommendation
}

// rules are evaluated in priority order; each may or may not fire.
var rules = []rule{
	{name: "steps", eval: stepRule},
	{name: "sleep", eval: sleepRule},
	{name: "frequency", eval: frequencyRule},
	{name: "variety", eval: varietyRule},
	{name: "intensity", eval: intensityRule},
}

// Recommend evaluates the heuristics in fixed order and returns at most
// MaxRecommendations suggestions, dropping the lowest-priority matches.
// The result is never empty: an all-healthy snapshot yields the single
// maintain-routine suggestion.
func Recommend(in Inputs) []domain.Recommendation {
	out := make([]domain.Recommendation, 0, MaxRecommendations)
	for _, r := range rules {
		rec := r.eval(in)
		if rec == nil {
			continue
		}
		out = append(out, *rec)
		if len(out) == MaxRecommendations {
			break
		}
	}

	if len(out) == 0 {
		out = append(out, domain.Recommendation{
			Kind:        domain.RecommendationGeneral,
			Message:     "You're doing great! Keep maintaining your current routine and consider progressive overload.",
			Exercise:    "Current Routine",
			DurationMin: 45,
		})
	}
	return out
}

func stepRule(in Inputs) *domain.Recommendation {
	sample := in.Snapshot.LatestSample
	if sample == nil || sample.Steps == nil {
		return nil
	}
	switch {
	case *sample.Steps < 5000:
		return &domain.Recommendation{
			Kind:        domain.RecommendationCardio,
			Message:     "Your step count is below the recommended 10,000 daily steps. Try adding a 30-minute brisk walk.",
			Exercise:    "Brisk Walking",
			DurationMin: 30,
		}
	case *sample.Steps < 8000:
		return &domain.Recommendation{
			Kind:        domain.RecommendationCardio,
			Message:     "Great progress on steps! Aim for 10,000 steps daily with an additional 20-minute walk.",
			Exercise:    "Walking",
			DurationMin: 20,
		}
	}
	return nil
}

func sleepRule(in Inputs) *domain.Recommendation {
	sample := in.Snapshot.LatestSample
	if sample == nil || sample.SleepHours == nil || *sample.SleepHours >= 6 {
		return nil
	}
	return &domain.Recommendation{
		Kind:        domain.RecommendationRecovery,
		Message:     "Your sleep is below optimal levels. Consider a light yoga session to improve sleep quality.",
		Exercise:    "Evening Yoga",
		DurationMin: 20,
	}
}

func frequencyRule(in Inputs) *domain.Recommendation {
	switch {
	case in.WeeklyWorkouts < 3:
		return &domain.Recommendation{
			Kind:        domain.RecommendationGeneral,
			Message:     "You've worked out less than 3 times this week. Try adding a 45-minute cardio or strength training session.",
			Exercise:    "Mixed Cardio & Strength",
			DurationMin: 45,
		}
	case in.WeeklyWorkouts >= 5:
		return &domain.Recommendation{
			Kind:        domain.RecommendationRecovery,
			Message:     "Excellent workout frequency! Consider a recovery session with stretching or light yoga.",
			Exercise:    "Recovery Stretching",
			DurationMin: 30,
		}
	}
	return nil
}

func varietyRule(in Inputs) *domain.Recommendation {
	if in.Snapshot.WorkoutCount == 0 || len(in.Snapshot.Exercises) >= 2 {
		return nil
	}
	return &domain.Recommendation{
		Kind:        domain.RecommendationVariety,
		Message:     "Mix up your routine! Try adding strength training or HIIT to complement your current workouts.",
		Exercise:    "HIIT Training",
		DurationMin: 30,
	}
}

func intensityRule(in Inputs) *domain.Recommendation {
	if in.Snapshot.WorkoutCount == 0 || in.Snapshot.AvgCalories >= 200 {
		return nil
	}
	return &domain.Recommendation{
		Kind:        domain.RecommendationIntensity,
		Message:     "Increase your workout intensity to burn more calories. Try interval training.",
		Exercise:    "Interval Training",
		DurationMin: 40,
	}
}
