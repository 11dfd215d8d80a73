package telegram

import "github.com/garyellow/rentcar-bot/internal/ratelimit"

// newDrainedLimiter returns a limiter with no tokens and no refill.
func newDrainedLimiter() *ratelimit.Limiter {
	l := ratelimit.New(1, 0)
	l.Allow()
	return l
}
