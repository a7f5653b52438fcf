package cache

import (
	"context"
	"time"

	"github.com/five82/slip/internal/adviceslip"
)

const (
	defaultMaxRetries = 3
	defaultBaseDelay  = time.Second
	maxBackoff        = 30 * time.Second
)

// RetryPolicy controls how failed fetches are retried inside GetOrFetch.
type RetryPolicy struct {
	MaxRetries  int           // retries after the first attempt; negative disables retries
	BaseDelay   time.Duration // delay before the first retry
	MaxDelay    time.Duration // cap for the doubled delay
	ShouldRetry func(error) bool
}

// DefaultRetryPolicy retries timeouts, transport and unexpected failures up to
// three times, waiting 1s, 2s, 4s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:  defaultMaxRetries,
		BaseDelay:   defaultBaseDelay,
		MaxDelay:    maxBackoff,
		ShouldRetry: adviceslip.Retryable,
	}
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.BaseDelay <= 0 {
		p.BaseDelay = defaultBaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = maxBackoff
	}
	if p.ShouldRetry == nil {
		p.ShouldRetry = adviceslip.Retryable
	}
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	return p
}

// calculateBackoff returns the delay before retry number failures+1:
// base * 2^failures, capped at maxDelay.
func calculateBackoff(failures int, base, maxDelay time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	backoff := base
	for i := 0; i < failures; i++ {
		backoff *= 2
		if backoff >= maxDelay {
			return maxDelay
		}
	}
	return backoff
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
