// Package ratelimit enforces a per-session cooldown between analysis requests.
//
// The limiter throttles how often a single session may call the Gemini key;
// it is distinct from any quota enforcement the upstream service applies.
package ratelimit

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Decision is the outcome of a limiter check.
type Decision struct {
	// Allowed reports whether the request may proceed.
	Allowed bool
	// RetryAfter is how long the caller must wait before the next attempt.
	// Zero when Allowed is true.
	RetryAfter time.Duration
}

// Limiter tracks the last accepted request per session and refuses requests
// arriving inside the cooldown interval. Safe for concurrent use.
type Limiter struct {
	interval time.Duration

	mu   sync.Mutex
	last map[string]time.Time

	// now is swappable for tests.
	now func() time.Time
}

// New creates a Limiter with the given cooldown interval.
func New(interval time.Duration) *Limiter {
	return &Limiter{
		interval: interval,
		last:     make(map[string]time.Time),
		now:      time.Now,
	}
}

// CheckAndRecord decides whether a request from sessionID may proceed.
// An allowed request is recorded immediately so a concurrent duplicate from
// the same session is refused. A refused request does NOT reset the window;
// hammering the endpoint never pushes the allowed time further out.
func (l *Limiter) CheckAndRecord(sessionID string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if prev, ok := l.last[sessionID]; ok {
		elapsed := now.Sub(prev)
		if elapsed < l.interval {
			wait := l.interval - elapsed
			log.Debug().
				Str("sessionId", sessionID).
				Dur("retryAfter", wait).
				Msg("Request refused by cooldown")
			return Decision{Allowed: false, RetryAfter: wait}
		}
	}

	l.last[sessionID] = now
	return Decision{Allowed: true}
}
