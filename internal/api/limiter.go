package api

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// limiterSet hands out one token bucket per user. Buckets idle for longer than
// idleAfter are dropped on the next sweep.
type limiterSet struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	idleAfter time.Duration
	lastSweep time.Time
	buckets   map[string]*bucket
	now       func() time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newLimiterSet(perSecond float64, burst int) *limiterSet {
	if perSecond <= 0 {
		perSecond = 0.5
	}
	if burst <= 0 {
		burst = 3
	}
	return &limiterSet{
		limit:     rate.Limit(perSecond),
		burst:     burst,
		idleAfter: 30 * time.Minute,
		buckets:   make(map[string]*bucket),
		now:       time.Now,
	}
}

func (l *limiterSet) allow(userID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > l.idleAfter {
		for id, b := range l.buckets {
			if now.Sub(b.lastSeen) > l.idleAfter {
				delete(l.buckets, id)
			}
		}
		l.lastSweep = now
	}

	b, ok := l.buckets[userID]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[userID] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}
