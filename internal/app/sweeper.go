package app

import (
	"context"
	"time"

	"github.com/five82/slip/internal/cache"
)

// StartSweeper launches a background goroutine that drops expired cache
// entries at a fixed cadence. It returns immediately; a non-positive
// interval starts nothing. The goroutine exits when ctx is done.
func StartSweeper(ctx context.Context, c *cache.Cache, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				c.Sweep(now)
			}
		}
	}()
}
