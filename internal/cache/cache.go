package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/five82/slip/internal/adviceslip"
	"github.com/five82/slip/internal/metrics"
)

// State is the lifecycle stage of an entry.
type State int

const (
	StatePending State = iota
	StateResolved
	StateError
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateResolved:
		return "resolved"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Entry is a copy of one cache slot.
type Entry struct {
	Key         Key
	Data        adviceslip.Advice
	HasData     bool
	FetchedAt   time.Time // last successful fetch or Set
	UpdatedAt   time.Time // last state change
	State       State
	Err         error // last failure while State is StateError
	Invalidated bool
	Waiters     int // callers attached to the in-flight fetch
}

// Policy is the freshness and retention of one kind of slot.
type Policy struct {
	StaleTime time.Duration // resolved data younger than this is served without fetching
	TTL       time.Duration // entries untouched for longer are swept; zero keeps them
}

// Options configure a Cache. Zero values fall back to the defaults below.
type Options struct {
	Random   Policy
	ByID     Policy
	Prefetch Policy
	Retry    RetryPolicy
	Now      func() time.Time
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
}

// Default policies.
var (
	DefaultRandomPolicy   = Policy{StaleTime: 0, TTL: 5 * time.Minute}
	DefaultByIDPolicy     = Policy{StaleTime: 5 * time.Minute, TTL: 10 * time.Minute}
	DefaultPrefetchPolicy = Policy{StaleTime: 2 * time.Minute, TTL: 2 * time.Minute}
)

// DefaultOptions returns the stock policies with no logger or metrics.
func DefaultOptions() Options {
	return Options{
		Random:   DefaultRandomPolicy,
		ByID:     DefaultByIDPolicy,
		Prefetch: DefaultPrefetchPolicy,
		Retry:    DefaultRetryPolicy(),
	}
}

// FetchFunc loads the advice for one key.
type FetchFunc func(ctx context.Context) (adviceslip.Advice, error)

// call is an in-flight fetch shared by every waiter on the key.
type call struct {
	done chan struct{}
	val  adviceslip.Advice
	err  error
}

type entry struct {
	Entry
	call *call
	seq  uint64
}

// Cache stores advice by key and coalesces concurrent fetches of the same
// key into one call. It is safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries map[Key]*entry
	seq     uint64

	random   Policy
	byID     Policy
	prefetch Policy
	retry    RetryPolicy
	now      func() time.Time
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// New builds a Cache.
func New(opts Options) *Cache {
	c := &Cache{
		entries:  make(map[Key]*entry),
		random:   opts.Random,
		byID:     opts.ByID,
		prefetch: opts.Prefetch,
		retry:    opts.Retry.withDefaults(),
		now:      opts.Now,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c
}

func (c *Cache) policy(k Key) Policy {
	switch {
	case k.IsPrefetch():
		return c.prefetch
	case k.Category == CategoryByID:
		return c.byID
	default:
		return c.random
	}
}

// Get returns a copy of the entry for key.
func (c *Cache) Get(key Key) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return Entry{}, false
	}
	return e.Entry, true
}

// Fallback returns the last data stored under key regardless of freshness.
func (c *Cache) Fallback(key Key) (adviceslip.Advice, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || !e.HasData {
		return adviceslip.Advice{}, false
	}
	return e.Data, true
}

// GetOrFetch returns fresh data for key, joins an in-flight fetch, or starts
// a new one. The fetch runs detached from ctx: a caller whose ctx ends stops
// waiting, but the fetch still completes and updates the entry.
func (c *Cache) GetOrFetch(ctx context.Context, key Key, fetch FetchFunc) (adviceslip.Advice, error) {
	if err := ctx.Err(); err != nil {
		return adviceslip.Advice{}, err
	}

	c.mu.Lock()
	now := c.now()
	c.sweepLocked(now)

	e := c.entries[key]
	if e != nil && e.State == StateResolved && c.freshLocked(e, now) {
		data := e.Data
		c.mu.Unlock()
		c.metrics.ObserveLookup(metrics.LookupHit)
		return data, nil
	}
	if e != nil && e.call != nil {
		cl := e.call
		e.Waiters++
		c.mu.Unlock()
		c.metrics.ObserveLookup(metrics.LookupCoalesced)
		return c.wait(ctx, key, cl)
	}

	if e == nil {
		c.seq++
		e = &entry{Entry: Entry{Key: key}, seq: c.seq}
		c.entries[key] = e
	}
	cl := &call{done: make(chan struct{})}
	e.call = cl
	e.State = StatePending
	e.Invalidated = false
	e.UpdatedAt = now
	e.Waiters = 1
	c.mu.Unlock()
	c.metrics.ObserveLookup(metrics.LookupMiss)

	go c.run(context.WithoutCancel(ctx), key, e, cl, fetch)
	return c.wait(ctx, key, cl)
}

func (c *Cache) wait(ctx context.Context, key Key, cl *call) (adviceslip.Advice, error) {
	select {
	case <-cl.done:
		return cl.val, cl.err
	case <-ctx.Done():
		c.mu.Lock()
		if e, ok := c.entries[key]; ok && e.call == cl && e.Waiters > 0 {
			e.Waiters--
		}
		c.mu.Unlock()
		return adviceslip.Advice{}, ctx.Err()
	}
}

func (c *Cache) run(ctx context.Context, key Key, e *entry, cl *call, fetch FetchFunc) {
	val, err := c.fetchWithRetry(ctx, key, fetch)

	c.mu.Lock()
	now := c.now()
	if c.entries[key] == e && e.call == cl {
		e.call = nil
		e.Waiters = 0
		e.UpdatedAt = now
		if err != nil {
			e.State = StateError
			e.Err = err
		} else {
			e.State = StateResolved
			e.Data = val
			e.HasData = true
			e.FetchedAt = now
			e.Err = nil
		}
	}
	cl.val, cl.err = val, err
	close(cl.done)
	c.mu.Unlock()
}

func (c *Cache) fetchWithRetry(ctx context.Context, key Key, fetch FetchFunc) (adviceslip.Advice, error) {
	for attempt := 0; ; attempt++ {
		start := time.Now()
		val, err := fetch(ctx)
		if err == nil {
			c.metrics.ObserveFetch("ok", time.Since(start))
			return val, nil
		}
		c.metrics.ObserveFetch(adviceslip.KindOf(err).String(), time.Since(start))

		if attempt >= c.retry.MaxRetries || !c.retry.ShouldRetry(err) {
			c.logger.Debug("fetch failed",
				zap.String("key", key.String()),
				zap.Int("attempts", attempt+1),
				zap.Error(err))
			return adviceslip.Advice{}, err
		}

		delay := calculateBackoff(attempt, c.retry.BaseDelay, c.retry.MaxDelay)
		c.logger.Debug("retrying fetch",
			zap.String("key", key.String()),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err))
		c.metrics.ObserveRetry()
		if err := sleepContext(ctx, delay); err != nil {
			return adviceslip.Advice{}, err
		}
	}
}

func (c *Cache) freshLocked(e *entry, now time.Time) bool {
	if e.Invalidated || !e.HasData {
		return false
	}
	stale := c.policy(e.Key).StaleTime
	return stale > 0 && now.Sub(e.FetchedAt) < stale
}

// Invalidate forces the next GetOrFetch for key to fetch.
func (c *Cache) Invalidate(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.Invalidated = true
	}
}

// Set stores advice under key as freshly resolved. An in-flight fetch for the
// key is detached: its waiters still get its result, but it no longer
// updates the entry.
func (c *Cache) Set(key Key, advice adviceslip.Advice) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setLocked(key, advice, c.now())
}

func (c *Cache) setLocked(key Key, advice adviceslip.Advice, now time.Time) {
	e, ok := c.entries[key]
	if !ok {
		c.seq++
		e = &entry{Entry: Entry{Key: key}, seq: c.seq}
		c.entries[key] = e
	}
	e.Data = advice
	e.HasData = true
	e.FetchedAt = now
	e.UpdatedAt = now
	e.Invalidated = false
	e.Err = nil
	e.call = nil
	e.Waiters = 0
	e.State = StateResolved
}

// Remove deletes the entry for key. Waiters on an in-flight fetch still
// receive its result.
func (c *Cache) Remove(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// PrefetchCount returns the number of prefetch slots, pending ones included.
func (c *Cache) PrefetchCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for k := range c.entries {
		if k.IsPrefetch() {
			n++
		}
	}
	return n
}

// ClaimOldestPrefetch moves the oldest resolved prefetch slot into the slot
// into and removes it. It reports false when no prefetch is ready.
func (c *Cache) ClaimOldestPrefetch(into Key) (adviceslip.Advice, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.sweepLocked(now)

	var oldest *entry
	for k, e := range c.entries {
		if !k.IsPrefetch() || e.State != StateResolved || !e.HasData {
			continue
		}
		if oldest == nil ||
			e.FetchedAt.Before(oldest.FetchedAt) ||
			(e.FetchedAt.Equal(oldest.FetchedAt) && e.seq < oldest.seq) {
			oldest = e
		}
	}
	if oldest == nil {
		c.metrics.ObserveClaim(false)
		return adviceslip.Advice{}, false
	}

	delete(c.entries, oldest.Key)
	c.setLocked(into, oldest.Data, now)
	c.metrics.ObserveClaim(true)
	return oldest.Data, true
}

// Sweep removes entries that outlived their TTL and returns how many were
// removed. Pending entries are never swept.
func (c *Cache) Sweep(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sweepLocked(now)
}

func (c *Cache) sweepLocked(now time.Time) int {
	removed := 0
	for k, e := range c.entries {
		if e.call != nil {
			continue
		}
		ttl := c.policy(k).TTL
		if ttl <= 0 {
			continue
		}
		touched := e.FetchedAt
		if touched.IsZero() {
			touched = e.UpdatedAt
		}
		if now.Sub(touched) > ttl {
			delete(c.entries, k)
			removed++
		}
	}
	if removed > 0 {
		c.logger.Debug("cache swept", zap.Int("removed", removed))
		c.metrics.ObserveSwept(removed)
	}
	return removed
}
