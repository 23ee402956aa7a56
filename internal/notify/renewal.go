package notify

import (
	"context"
	"fmt"
	"log"
	"time"

	"example.com/gymfit/internal/domain"
)

// MemberSource lists members whose membership ends within a horizon.
type MemberSource interface {
	ListExpiringMembers(ctx context.Context, until time.Time) ([]domain.Member, error)
}

// RenewalChecker raises renewal alerts for members whose membership is about
// to lapse, one per cooldown window thanks to the deduplicator.
type RenewalChecker struct {
	members MemberSource
	dedup   *Deduplicator
	horizon time.Duration
}

// NewRenewalChecker constructs a RenewalChecker. horizon bounds how far ahead
// an expiry must fall to trigger an alert.
func NewRenewalChecker(members MemberSource, dedup *Deduplicator, horizon time.Duration) *RenewalChecker {
	return &RenewalChecker{members: members, dedup: dedup, horizon: horizon}
}

// Run checks all expiring memberships and returns how many notifications
// were created. Suppressed alerts do not count.
func (c *RenewalChecker) Run(ctx context.Context, now time.Time) (int, error) {
	expiring, err := c.members.ListExpiringMembers(ctx, now.Add(c.horizon))
	if err != nil {
		return 0, err
	}

	created := 0
	for _, member := range expiring {
		if member.MembershipEndsAt == nil {
			continue
		}
		daysLeft := int(member.MembershipEndsAt.Sub(now).Hours() / 24)
		message := fmt.Sprintf(
			"Your %s membership expires in %d day(s) on %s. Please renew to continue enjoying our services.",
			member.Tier, daysLeft, member.MembershipEndsAt.Format("January 2, 2006"),
		)

		outcome, err := c.dedup.Notify(ctx, member.ID, domain.KindRenewal, message)
		if err != nil {
			return created, err
		}
		if outcome.Created {
			created++
		}
	}

	log.Printf("renewal check completed: %d notification(s) created", created)
	return created, nil
}
