// Package middleware holds request-level policies shared by handlers.
package middleware

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// memberLimiter pairs a token bucket with its last access time so stale
// entries can be evicted.
type memberLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// PerMemberLimiter rate-limits expensive operations (the assistant call)
// per member identifier.
type PerMemberLimiter struct {
	ratePerMin float64
	burst      int

	mu       sync.Mutex
	limiters map[string]*memberLimiter

	cleanupInterval time.Duration
	stopCh          chan struct{}
}

// NewPerMemberLimiter constructs a limiter allowing ratePerMin requests per
// minute with the given burst, and starts background eviction of idle entries.
func NewPerMemberLimiter(ratePerMin float64, burst int) *PerMemberLimiter {
	l := &PerMemberLimiter{
		ratePerMin:      ratePerMin,
		burst:           burst,
		limiters:        make(map[string]*memberLimiter),
		cleanupInterval: 5 * time.Minute,
		stopCh:          make(chan struct{}),
	}
	go l.cleanupLoop()
	return l
}

// Allow reports whether the member may proceed now.
func (l *PerMemberLimiter) Allow(memberID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.limiters[memberID]
	if !ok {
		entry = &memberLimiter{
			limiter: rate.NewLimiter(rate.Limit(l.ratePerMin/60.0), l.burst),
		}
		l.limiters[memberID] = entry
	}
	entry.lastAccess = time.Now()
	return entry.limiter.Allow()
}

// Stop halts the background cleanup goroutine.
func (l *PerMemberLimiter) Stop() {
	close(l.stopCh)
}

func (l *PerMemberLimiter) cleanupLoop() {
	ticker := time.NewTicker(l.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.cleanup()
		case <-l.stopCh:
			return
		}
	}
}

func (l *PerMemberLimiter) cleanup() {
	ttl := l.cleanupInterval * 2
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()
	for id, entry := range l.limiters {
		if now.Sub(entry.lastAccess) > ttl {
			delete(l.limiters, id)
		}
	}
}
