package adviceslip

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// DefaultMinInterval is the minimum spacing between outbound requests.
const DefaultMinInterval = 200 * time.Millisecond

// Limiter spaces outbound requests at least interval apart. The first call
// proceeds immediately.
type Limiter struct {
	interval time.Duration
	lim      *rate.Limiter
}

// NewLimiter builds a Limiter. A non-positive interval disables limiting.
func NewLimiter(interval time.Duration) *Limiter {
	if interval <= 0 {
		return &Limiter{lim: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Limiter{
		interval: interval,
		lim:      rate.NewLimiter(rate.Every(interval), 1),
	}
}

// Interval returns the configured spacing.
func (l *Limiter) Interval() time.Duration {
	return l.interval
}

// Acquire blocks until the next request may be issued or ctx is done.
func (l *Limiter) Acquire(ctx context.Context) error {
	if l == nil {
		return nil
	}
	return l.lim.Wait(ctx)
}
