package domain

// RecommendationKind classifies a suggestion emitted by the rule engine.
type RecommendationKind string

const (
	RecommendationCardio    RecommendationKind = "cardio"
	RecommendationRecovery  RecommendationKind = "recovery"
	RecommendationGeneral   RecommendationKind = "general"
	RecommendationVariety   RecommendationKind = "variety"
	RecommendationIntensity RecommendationKind = "intensity"
)

// Recommendation is an ephemeral value recomputed per request, never persisted.
type Recommendation struct {
	Kind        RecommendationKind
	Message     string
	Exercise    string
	DurationMin int
}
