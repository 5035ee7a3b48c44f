package api

import (
	"sync"
	"time"
)

// rateLimiter caps how many debates a user may start per hour
type rateLimiter struct {
	mu     sync.Mutex
	limit  int
	starts map[string][]time.Time
}

func newRateLimiter(limit int) *rateLimiter {
	return &rateLimiter{
		limit:  limit,
		starts: make(map[string][]time.Time),
	}
}

// allow records a session start for the user if they are under the limit
func (rl *rateLimiter) allow(userID string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-time.Hour)

	var recent []time.Time
	for _, t := range rl.starts[userID] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= rl.limit {
		rl.starts[userID] = recent
		return false
	}

	rl.starts[userID] = append(recent, time.Now())
	return true
}
