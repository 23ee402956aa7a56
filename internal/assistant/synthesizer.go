// Package assistant packages member statistics into a bounded briefing for
// the external text-generation collaborator, with a deterministic fallback
// when that collaborator is unavailable.
package assistant

import (
	"fmt"
	"strings"

	"example.com/gymfit/internal/domain"
	"example.com/gymfit/internal/insights"
)

const (
	maxRecentWorkouts   = 5
	maxUpcomingSessions = 3
)

// Facts is the bounded context payload synthesized for one chat request.
type Facts struct {
	Member           domain.Member
	Snapshot         insights.Snapshot
	WeeklyWorkouts   int
	RecentWorkouts   []domain.WorkoutRecord
	UpcomingSessions []domain.Session
}

// BuildBriefing renders the system-level briefing for the chat collaborator.
func BuildBriefing(f Facts) string {
	var b strings.Builder

	b.WriteString("You are an expert fitness coach assistant for GymFit. ")
	b.WriteString("Answer with personalized, actionable advice grounded in the member's data below. ")
	b.WriteString("Reference actual numbers, stay supportive and concise.\n\n")

	fmt.Fprintf(&b, "Member profile:\n- Name: %s\n- Age: %d\n- Membership: %s (member since %s)\n\n",
		f.Member.Name, f.Member.Age, f.Member.Tier, f.Member.JoinDate.Format("January 2006"))

	snap := f.Snapshot
	fmt.Fprintf(&b, "Recent activity (last 30 days):\n")
	fmt.Fprintf(&b, "- Total workouts: %d\n", snap.WorkoutCount)
	fmt.Fprintf(&b, "- Average workout duration: %.1f minutes\n", snap.AvgDurationMin)
	fmt.Fprintf(&b, "- Total calories burned: %.0f kcal\n", snap.TotalCalories)
	fmt.Fprintf(&b, "- Average calories per workout: %.0f kcal\n", snap.AvgCalories)
	fmt.Fprintf(&b, "- Exercise variety: %s\n", exerciseList(snap.Exercises))
	fmt.Fprintf(&b, "- Workouts this week: %d\n\n", f.WeeklyWorkouts)

	if len(f.RecentWorkouts) > 0 {
		b.WriteString("Recent workouts:\n")
		for _, rec := range f.RecentWorkouts {
			fmt.Fprintf(&b, "- %s on %s, %d min%s\n",
				rec.Exercise, rec.Date.Format("2006-01-02"), rec.DurationMin, caloriesSuffix(rec.Calories))
		}
		b.WriteString("\n")
	}

	b.WriteString("Current health metrics:\n")
	if sample := snap.LatestSample; sample != nil {
		fmt.Fprintf(&b, "- Weight: %s kg (trend: %s, change: %.1f kg)\n",
			formatFloat(sample.WeightKg), snap.WeightTrend, snap.WeightChangeKg)
		fmt.Fprintf(&b, "- Daily steps: %s\n", formatInt(sample.Steps))
		fmt.Fprintf(&b, "- Sleep hours: %s\n", formatFloat(sample.SleepHours))
		fmt.Fprintf(&b, "- Water intake: %s liters\n\n", formatFloat(sample.WaterLiters))
	} else {
		b.WriteString("- No health samples recorded\n\n")
	}

	if len(f.UpcomingSessions) > 0 {
		b.WriteString("Upcoming sessions:\n")
		for _, session := range f.UpcomingSessions {
			fmt.Fprintf(&b, "- %s on %s\n", session.Details, session.StartsAt.Format("2006-01-02 15:04"))
		}
	} else {
		b.WriteString("Upcoming sessions: none booked\n")
	}

	return b.String()
}

func exerciseList(exercises []string) string {
	if len(exercises) == 0 {
		return "No recent workouts"
	}
	return strings.Join(exercises, ", ")
}

func caloriesSuffix(calories *float64) string {
	if calories == nil {
		return ""
	}
	return fmt.Sprintf(", %.0f kcal", *calories)
}

func formatFloat(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.1f", *v)
}

func formatInt(v *int) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%d", *v)
}
