package assistant

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"example.com/gymfit/internal/domain"
	"example.com/gymfit/internal/insights"
	"example.com/gymfit/internal/observability"
)

// Store supplies the member history the synthesizer packages. Lists are
// returned newest first; ListUpcomingSessions soonest first.
type Store interface {
	GetMember(ctx context.Context, id string) (*domain.Member, error)
	ListWorkoutsSince(ctx context.Context, memberID string, since time.Time) ([]domain.WorkoutRecord, error)
	ListHealthSamplesSince(ctx context.Context, memberID string, since time.Time) ([]domain.HealthSample, error)
	ListUpcomingSessions(ctx context.Context, memberID string, from time.Time, limit int) ([]domain.Session, error)
}

// Service answers member questions through the chat collaborator, falling
// back to a deterministic templated summary on failure. Access is gated to
// Gold members.
type Service struct {
	store    Store
	client   ChatClient
	lookback time.Duration
	timeout  time.Duration
	now      func() time.Time
}

// NewService constructs a Service. lookback bounds the statistics window;
// timeout bounds the collaborator call, after which the fallback is used.
func NewService(store Store, client ChatClient, lookback, timeout time.Duration) *Service {
	return &Service{
		store:    store,
		client:   client,
		lookback: lookback,
		timeout:  timeout,
		now:      time.Now,
	}
}

// Answer is the chat result. Fallback marks a locally generated summary.
type Answer struct {
	Text     string
	Fallback bool
}

// Chat validates access, synthesizes the context payload and queries the
// collaborator. Collaborator failures are never surfaced: the caller always
// receives an answer built from the member's own statistics.
func (s *Service) Chat(ctx context.Context, memberID, question string) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is required", domain.ErrValidation)
	}

	member, err := s.store.GetMember(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, domain.ErrMemberNotFound
	}
	if member.Tier != domain.TierGold {
		return nil, fmt.Errorf("%w: the assistant is available to Gold members only", domain.ErrForbidden)
	}

	facts, err := s.gatherFacts(ctx, *member)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	text, err := s.client.Complete(callCtx, BuildBriefing(facts), question)
	if err != nil {
		log.Printf("assistant: collaborator failed for member %s, using fallback: %v", memberID, err)
		observability.RecordAssistant("fallback")
		return &Answer{Text: FallbackAnswer(question, facts), Fallback: true}, nil
	}

	observability.RecordAssistant("ok")
	return &Answer{Text: text}, nil
}

func (s *Service) gatherFacts(ctx context.Context, member domain.Member) (Facts, error) {
	now := s.now().UTC()
	since := now.Add(-s.lookback)

	records, err := s.store.ListWorkoutsSince(ctx, member.ID, since)
	if err != nil {
		return Facts{}, err
	}
	samples, err := s.store.ListHealthSamplesSince(ctx, member.ID, since)
	if err != nil {
		return Facts{}, err
	}
	upcoming, err := s.store.ListUpcomingSessions(ctx, member.ID, now, maxUpcomingSessions)
	if err != nil {
		return Facts{}, err
	}

	recent := records
	if len(recent) > maxRecentWorkouts {
		recent = recent[:maxRecentWorkouts]
	}

	weekCutoff := now.AddDate(0, 0, -7)
	weekly := 0
	for _, rec := range records {
		if !rec.Date.Before(weekCutoff) {
			weekly++
		}
	}

	return Facts{
		Member:           member,
		Snapshot:         insights.Aggregate(records, samples),
		WeeklyWorkouts:   weekly,
		RecentWorkouts:   recent,
		UpcomingSessions: upcoming,
	}, nil
}
