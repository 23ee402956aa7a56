package insights

import (
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/gymfit/internal/domain"
)

func TestRecommendAllHealthyYieldsSingleGeneric(t *testing.T) {
	in := Inputs{
		Snapshot: Snapshot{
			WorkoutCount:  12,
			AvgCalories:   320,
			TotalCalories: 3840,
			Exercises:     []string{"Running", "Swimming", "Weights"},
			LatestSample: &domain.HealthSample{
				Steps:      intp(11000),
				SleepHours: float(7.5),
			},
		},
		WeeklyWorkouts: 4,
	}

	recs := Recommend(in)

	require.Len(t, recs, 1)
	require.Equal(t, domain.RecommendationGeneral, recs[0].Kind)
	require.Equal(t, "Current Routine", recs[0].Exercise)
}

func TestRecommendLowStepsSleepAndFrequency(t *testing.T) {
	// Weekly workouts 2, steps 4000, sleep 5h: cardio first, recovery second,
	// then the frequency suggestion, capped at three.
	in := Inputs{
		Snapshot: Snapshot{
			WorkoutCount: 2,
			AvgCalories:  150,
			Exercises:    []string{"Running"},
			LatestSample: &domain.HealthSample{
				Steps:      intp(4000),
				SleepHours: float(5),
			},
		},
		WeeklyWorkouts: 2,
	}

	recs := Recommend(in)

	require.Len(t, recs, MaxRecommendations)
	require.Equal(t, domain.RecommendationCardio, recs[0].Kind)
	require.Equal(t, "Brisk Walking", recs[0].Exercise)
	require.Equal(t, domain.RecommendationRecovery, recs[1].Kind)
	require.Equal(t, "Evening Yoga", recs[1].Exercise)
	require.Equal(t, domain.RecommendationGeneral, recs[2].Kind)
}

func TestRecommendModerateSteps(t *testing.T) {
	in := Inputs{
		Snapshot: Snapshot{
			WorkoutCount: 5,
			AvgCalories:  300,
			Exercises:    []string{"Running", "Rowing"},
			LatestSample: &domain.HealthSample{Steps: intp(6500), SleepHours: float(8)},
		},
		WeeklyWorkouts: 3,
	}

	recs := Recommend(in)

	require.Len(t, recs, 1)
	require.Equal(t, "Walking", recs[0].Exercise)
	require.Equal(t, 20, recs[0].DurationMin)
}

func TestRecommendHighFrequencySuggestsRecovery(t *testing.T) {
	in := Inputs{
		Snapshot: Snapshot{
			WorkoutCount: 20,
			AvgCalories:  400,
			Exercises:    []string{"Running", "Cycling", "Weights"},
		},
		WeeklyWorkouts: 6,
	}

	recs := Recommend(in)

	require.Len(t, recs, 1)
	require.Equal(t, domain.RecommendationRecovery, recs[0].Kind)
	require.Equal(t, "Recovery Stretching", recs[0].Exercise)
}

func TestRecommendLowCaloriesTriggersIntensity(t *testing.T) {
	in := Inputs{
		Snapshot: Snapshot{
			WorkoutCount: 8,
			AvgCalories:  150,
			Exercises:    []string{"Walking", "Yoga"},
		},
		WeeklyWorkouts: 3,
	}

	recs := Recommend(in)

	require.Len(t, recs, 1)
	require.Equal(t, domain.RecommendationIntensity, recs[0].Kind)
	require.Equal(t, "Interval Training", recs[0].Exercise)
}

func TestRecommendLowVarietyBeforeIntensity(t *testing.T) {
	in := Inputs{
		Snapshot: Snapshot{
			WorkoutCount: 6,
			AvgCalories:  150,
			Exercises:    []string{"Treadmill"},
		},
		WeeklyWorkouts: 3,
	}

	recs := Recommend(in)

	require.Len(t, recs, 2)
	require.Equal(t, domain.RecommendationVariety, recs[0].Kind)
	require.Equal(t, domain.RecommendationIntensity, recs[1].Kind)
}

func TestRecommendIsDeterministic(t *testing.T) {
	in := Inputs{
		Snapshot: Snapshot{
			WorkoutCount: 2,
			AvgCalories:  120,
			Exercises:    []string{"Running"},
			LatestSample: &domain.HealthSample{Steps: intp(3000), SleepHours: float(5)},
		},
		WeeklyWorkouts: 1,
	}

	first := Recommend(in)
	for i := 0; i < 10; i++ {
		require.Equal(t, first, Recommend(in))
	}
	require.LessOrEqual(t, len(first), MaxRecommendations)
}

func TestRecommendNeverEmpty(t *testing.T) {
	recs := Recommend(Inputs{WeeklyWorkouts: 4})
	require.NotEmpty(t, recs)
}
