package assistant

import (
	"fmt"
	"strings"
)

// fallbackRule pairs question keywords with a response template. Rules are
// evaluated in fixed priority order; the last rule has no keywords and
// always matches.
type fallbackRule struct {
	keywords []string
	render   func(Facts) string
}

var fallbackRules = []fallbackRule{
	{
		keywords: []string{"progress", "doing", "performance", "improvement"},
		render: func(f Facts) string {
			if f.Snapshot.WorkoutCount >= 12 {
				return "You are doing great! Keep up the consistent effort."
			}
			return "Try to increase your workout frequency to at least 3-4 times per week for better results."
		},
	},
	{
		keywords: []string{"weight", "lose", "gain", "body"},
		render: func(f Facts) string {
			snap := f.Snapshot
			if snap.LatestSample == nil || snap.LatestSample.WeightKg == nil {
				return "I need more health metric data to analyze your weight progress. Please log your weight regularly."
			}
			return fmt.Sprintf("Current weight: %.1f kg, trend %s (change %.1f kg). Aim for 150 minutes of moderate cardio per week and 7-8 hours of sleep.",
				*snap.LatestSample.WeightKg, snap.WeightTrend, snap.WeightChangeKg)
		},
	},
	{
		keywords: []string{"workout", "exercise", "train", "routine"},
		render: func(f Facts) string {
			if len(f.Snapshot.Exercises) < 3 {
				return fmt.Sprintf("Recent exercises: %s. Consider adding more variety to your routine for balanced fitness.",
					exerciseList(f.Snapshot.Exercises))
			}
			return fmt.Sprintf("Recent exercises: %s. Great exercise variety, keep mixing cardio with strength work.",
				exerciseList(f.Snapshot.Exercises))
		},
	},
	{
		keywords: []string{"session", "class", "trainer", "book"},
		render: func(f Facts) string {
			if len(f.UpcomingSessions) == 0 {
				return "You don't have any upcoming sessions booked. Book one to get personalized guidance from expert trainers."
			}
			lines := make([]string, 0, len(f.UpcomingSessions))
			for _, s := range f.UpcomingSessions {
				lines = append(lines, fmt.Sprintf("%s on %s", s.Details, s.StartsAt.Format("January 2, 2006")))
			}
			return "Your upcoming sessions: " + strings.Join(lines, "; ") + ". Attend regularly to stay motivated."
		},
	},
	{
		keywords: []string{"sleep", "rest", "recovery"},
		render: func(f Facts) string {
			sample := f.Snapshot.LatestSample
			if sample != nil && sample.SleepHours != nil && *sample.SleepHours >= 7 {
				return "Your sleep is on track. Keep aiming for 7-9 hours for optimal recovery."
			}
			return "Aim for 7-9 hours of sleep; recovery is as important as the workout itself."
		},
	},
	{
		// Default: always matches.
		render: func(f Facts) string {
			return fmt.Sprintf("Hello %s! Ask me about your progress, workouts, weight, sessions or sleep and I'll answer from your logged data.",
				f.Member.Name)
		},
	},
}

// FallbackAnswer regenerates a deterministic summary from the same facts the
// briefing was built from. Every answer carries the member's computed totals
// so callers always receive their numbers even when the collaborator is down.
func FallbackAnswer(question string, f Facts) string {
	snap := f.Snapshot
	header := fmt.Sprintf(
		"I'm having trouble reaching the coaching service right now, but here is what your data shows.\n\n"+
			"Your stats (last 30 days):\n"+
			"- Workouts: %d\n"+
			"- Average duration: %.1f minutes\n"+
			"- Total calories: %.0f kcal\n\n",
		snap.WorkoutCount, snap.AvgDurationMin, snap.TotalCalories,
	)

	normalized := strings.ToLower(question)
	for _, rule := range fallbackRules {
		if len(rule.keywords) == 0 || matchesAny(normalized, rule.keywords) {
			return header + rule.render(f)
		}
	}
	return header
}

func matchesAny(question string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(question, kw) {
			return true
		}
	}
	return false
}
