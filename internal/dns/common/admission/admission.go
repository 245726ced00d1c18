// Package admission gates inbound connection acceptance with a token bucket.
package admission

import "golang.org/x/time/rate"

// Limiter is a non-blocking token-bucket gate shared across all accept
// attempts. Tokens refill continuously at the configured per-second rate,
// with burst capacity equal to the rate. A denied attempt consumes nothing.
type Limiter struct {
	bucket *rate.Limiter
}

// New creates a Limiter admitting up to perSecond new connections per second.
func New(perSecond int) *Limiter {
	return &Limiter{
		bucket: rate.NewLimiter(rate.Limit(perSecond), perSecond),
	}
}

// Allow reports whether one more connection may be admitted right now,
// consuming a token when it returns true. It never blocks.
func (l *Limiter) Allow() bool {
	return l.bucket.Allow()
}
