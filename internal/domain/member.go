// Package domain defines the records and contracts of the engagement engine.
package domain

import "time"

// MembershipTier gates premium features such as the coaching assistant.
type MembershipTier string

const (
	TierBasic  MembershipTier = "Basic"
	TierSilver MembershipTier = "Silver"
	TierGold   MembershipTier = "Gold"
)

// Member is the canonical member row stored in Postgres.
type Member struct {
	ID               string
	Name             string
	Email            string
	Age              int
	JoinDate         time.Time
	Tier             MembershipTier
	Active           bool
	MembershipEndsAt *time.Time
}
