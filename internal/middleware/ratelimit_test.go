package middleware

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPerMemberLimiterBurstThenDeny(t *testing.T) {
	limiter := NewPerMemberLimiter(6, 2)
	defer limiter.Stop()

	require.True(t, limiter.Allow("member-1"))
	require.True(t, limiter.Allow("member-1"))
	require.False(t, limiter.Allow("member-1"), "burst exhausted")
}

func TestPerMemberLimiterIsolatesMembers(t *testing.T) {
	limiter := NewPerMemberLimiter(6, 1)
	defer limiter.Stop()

	require.True(t, limiter.Allow("member-1"))
	require.False(t, limiter.Allow("member-1"))
	require.True(t, limiter.Allow("member-2"))
}
