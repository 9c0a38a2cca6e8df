package http

import (
	"sync"

	"golang.org/x/time/rate"
)

// maxTrackedCallers caps the limiter table. When it is full the table is
// reset, which at worst grants every caller a fresh burst.
const maxTrackedCallers = 10000

// callerLimiter keeps one token bucket per caller key.
type callerLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func newCallerLimiter(rps float64, burst int) *callerLimiter {
	if rps <= 0 {
		return nil
	}
	return &callerLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(rps),
		burst:    burst,
	}
}

// Allow reports whether key may make a request now. A nil limiter allows
// everything.
func (l *callerLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	lim, ok := l.limiters[key]
	if !ok {
		if len(l.limiters) >= maxTrackedCallers {
			l.limiters = make(map[string]*rate.Limiter)
		}
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[key] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}
