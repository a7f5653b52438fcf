// Package prefetch keeps a small pool of random advice ready so a new-advice
// gesture can be answered without waiting on the network.
package prefetch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/five82/slip/internal/adviceslip"
	"github.com/five82/slip/internal/cache"
	"github.com/five82/slip/internal/metrics"
)

const (
	DefaultDelay    = 100 * time.Millisecond
	DefaultMaxSlots = 2
)

// Result is the outcome of RequestNewAdvice.
type Result struct {
	Advice    adviceslip.Advice
	UsedCache bool // served from a prefetched slot
}

// Option customizes a Coordinator.
type Option func(*Coordinator)

// WithDelay sets how long SchedulePrefetch waits before fetching.
func WithDelay(d time.Duration) Option {
	return func(c *Coordinator) {
		if d >= 0 {
			c.delay = d
		}
	}
}

// WithMaxSlots bounds the number of prefetch slots held at once. Zero
// disables prefetching.
func WithMaxSlots(n int) Option {
	return func(c *Coordinator) {
		if n >= 0 {
			c.maxSlots = n
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// Coordinator fetches advice through a cache.Cache and manages prefetch
// slots in it. It is safe for concurrent use.
type Coordinator struct {
	cache    *cache.Cache
	fetcher  adviceslip.Fetcher
	delay    time.Duration
	maxSlots int
	logger   *zap.Logger
	metrics  *metrics.Metrics
	newNonce func() string

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	timers map[uint64]*time.Timer
	nextID uint64
	closed bool
	wg     sync.WaitGroup

	// slotMu serializes the slot count check with the fetch that fills it.
	slotMu sync.Mutex
}

// New builds a Coordinator. Call Close when done to stop scheduled prefetches.
func New(c *cache.Cache, f adviceslip.Fetcher, opts ...Option) *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	co := &Coordinator{
		cache:    c,
		fetcher:  f,
		delay:    DefaultDelay,
		maxSlots: DefaultMaxSlots,
		logger:   zap.NewNop(),
		newNonce: uuid.NewString,
		ctx:      ctx,
		cancel:   cancel,
		timers:   make(map[uint64]*time.Timer),
	}
	for _, opt := range opts {
		opt(co)
	}
	return co
}

// SchedulePrefetch fills one prefetch slot after the configured delay.
// Failures are logged and counted, never returned.
func (c *Coordinator) SchedulePrefetch() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	c.nextID++
	id := c.nextID
	c.wg.Add(1)
	c.timers[id] = time.AfterFunc(c.delay, func() {
		defer c.wg.Done()

		c.mu.Lock()
		_, live := c.timers[id]
		delete(c.timers, id)
		c.mu.Unlock()
		if !live || c.ctx.Err() != nil {
			return
		}

		if err := c.Prefetch(c.ctx); err != nil {
			c.logger.Debug("prefetch failed", zap.Error(err))
		}
	})
}

// Prefetch fetches one random advice into a new slot. It does nothing when
// the slot limit is reached. A failed slot is removed from the cache.
func (c *Coordinator) Prefetch(ctx context.Context) error {
	c.slotMu.Lock()
	defer c.slotMu.Unlock()

	if n := c.cache.PrefetchCount(); n >= c.maxSlots {
		c.metrics.ObservePrefetch(metrics.PrefetchSkipped)
		c.logger.Debug("prefetch skipped", zap.Int("slots", n))
		return nil
	}

	key := cache.PrefetchKey(c.newNonce())
	advice, err := c.cache.GetOrFetch(ctx, key, c.fetcher.FetchRandom)
	if err != nil {
		c.cache.Remove(key)
		c.metrics.ObservePrefetch(metrics.PrefetchFailed)
		return fmt.Errorf("prefetch %s: %w", key, err)
	}

	c.metrics.ObservePrefetch(metrics.PrefetchStored)
	c.logger.Debug("prefetch stored",
		zap.String("key", key.String()),
		zap.Int("advice_id", advice.ID))
	return nil
}

// ClaimPrefetched promotes the oldest ready prefetch slot to the canonical
// random slot and returns it.
func (c *Coordinator) ClaimPrefetched() (adviceslip.Advice, bool) {
	return c.cache.ClaimOldestPrefetch(cache.RandomKey())
}

// RequestNewAdvice answers a new-advice gesture. A prefetched slot is used
// when one is ready; otherwise a fresh random advice is fetched. Either way a
// replacement prefetch is scheduled on success.
func (c *Coordinator) RequestNewAdvice(ctx context.Context) (Result, error) {
	if advice, ok := c.ClaimPrefetched(); ok {
		c.seed(advice)
		c.SchedulePrefetch()
		return Result{Advice: advice, UsedCache: true}, nil
	}

	c.cache.Invalidate(cache.RandomKey())
	advice, err := c.RandomAdvice(ctx)
	if err != nil {
		return Result{}, err
	}
	return Result{Advice: advice}, nil
}

// RandomAdvice fetches through the canonical random slot and schedules a
// prefetch on success.
func (c *Coordinator) RandomAdvice(ctx context.Context) (adviceslip.Advice, error) {
	advice, err := c.cache.GetOrFetch(ctx, cache.RandomKey(), c.fetcher.FetchRandom)
	if err != nil {
		return adviceslip.Advice{}, err
	}
	c.seed(advice)
	c.SchedulePrefetch()
	return advice, nil
}

// AdviceByID returns the advice with id, served from cache while fresh.
func (c *Coordinator) AdviceByID(ctx context.Context, id int) (adviceslip.Advice, error) {
	return c.cache.GetOrFetch(ctx, cache.ByIDKey(id), func(ctx context.Context) (adviceslip.Advice, error) {
		return c.fetcher.FetchByID(ctx, id)
	})
}

// Fallback returns the last advice held in the canonical random slot.
func (c *Coordinator) Fallback() (adviceslip.Advice, bool) {
	return c.cache.Fallback(cache.RandomKey())
}

func (c *Coordinator) seed(a adviceslip.Advice) {
	c.cache.Set(cache.ByIDKey(a.ID), a)
}

// Wait blocks until every scheduled prefetch has finished.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// Close stops pending prefetches, cancels running ones, and waits for them.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.wg.Wait()
		return
	}
	c.closed = true
	for id, t := range c.timers {
		if t.Stop() {
			delete(c.timers, id)
			c.wg.Done()
		}
	}
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
}
