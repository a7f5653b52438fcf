package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/five82/slip/internal/adviceslip"
	"github.com/five82/slip/internal/prefetch"
	"github.com/five82/slip/internal/state"
)

// Minimum busy windows of a new-advice gesture, measured from the gesture.
const (
	defaultSettleCached = 200 * time.Millisecond
	defaultSettleFresh  = time.Second
)

// Controller turns user intents into coordinator calls and store updates.
// The UI reads the result through Snapshot.
type Controller struct {
	coord        *prefetch.Coordinator
	store        *state.Store
	logger       *zap.Logger
	settleCached time.Duration
	settleFresh  time.Duration
	now          func() time.Time
}

// ControllerOptions configure a Controller.
type ControllerOptions struct {
	SettleCached time.Duration
	SettleFresh  time.Duration
	Logger       *zap.Logger
}

// NewController wires a coordinator and a store.
func NewController(coord *prefetch.Coordinator, store *state.Store, opts ControllerOptions) *Controller {
	c := &Controller{
		coord:        coord,
		store:        store,
		logger:       opts.Logger,
		settleCached: opts.SettleCached,
		settleFresh:  opts.SettleFresh,
		now:          time.Now,
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.settleCached < 0 {
		c.settleCached = defaultSettleCached
	}
	if c.settleFresh < 0 {
		c.settleFresh = defaultSettleFresh
	}
	return c
}

// Load fetches the first advice. The placeholder stays on screen until it
// lands; on failure the error is recorded and returned.
func (c *Controller) Load(ctx context.Context) error {
	c.store.SetLoading()
	advice, err := c.coord.RandomAdvice(ctx)
	if err != nil {
		c.fail("initial load failed", err)
		return err
	}
	c.store.SetUsedCache(false)
	c.store.SetAdvice(advice)
	c.logger.Debug("initial advice loaded", zap.Int("advice_id", advice.ID))
	return nil
}

// RequestNewAdvice shows the next advice, preferring a prefetched one. The
// animating flag stays up for at least the cached or fresh settle window.
func (c *Controller) RequestNewAdvice(ctx context.Context) error {
	start := c.now()
	if !c.store.Snapshot().IsInitialized {
		c.store.SetLoading()
	}
	c.store.StartAnimation()

	res, err := c.coord.RequestNewAdvice(ctx)
	if err != nil {
		c.fail("new advice failed", err)
		c.store.EndAnimation()
		return err
	}

	c.store.SetUsedCache(res.UsedCache)
	c.store.SetAdvice(res.Advice)

	settle := c.settleFresh
	if res.UsedCache {
		settle = c.settleCached
	}
	c.store.EndAnimationAfter(settle - c.now().Sub(start))
	c.logger.Debug("new advice",
		zap.Int("advice_id", res.Advice.ID),
		zap.Bool("used_cache", res.UsedCache))
	return nil
}

// ShowAdvice displays the advice with id.
func (c *Controller) ShowAdvice(ctx context.Context, id int) error {
	start := c.now()
	c.store.StartAnimation()

	advice, err := c.coord.AdviceByID(ctx, id)
	if err != nil {
		c.fail("advice lookup failed", err, zap.Int("advice_id", id))
		c.store.EndAnimation()
		return err
	}

	c.store.SetUsedCache(false)
	c.store.SetAdvice(advice)
	c.store.EndAnimationAfter(c.settleCached - c.now().Sub(start))
	return nil
}

// Retry repeats the failed action: the first load when nothing is shown
// yet, otherwise a new-advice request.
func (c *Controller) Retry(ctx context.Context) error {
	if !c.store.Snapshot().IsInitialized {
		return c.Load(ctx)
	}
	return c.RequestNewAdvice(ctx)
}

func (c *Controller) fail(msg string, err error, fields ...zap.Field) {
	c.store.SetError(err)
	fields = append(fields,
		zap.String("kind", adviceslip.KindOf(err).String()),
		zap.Error(err))
	c.logger.Warn(msg, fields...)
}

// Snapshot returns the current view state.
func (c *Controller) Snapshot() state.Snapshot {
	return c.store.Snapshot()
}

// CurrentAdvice returns the advice on screen, the placeholder before the
// first load.
func (c *Controller) CurrentAdvice() adviceslip.Advice {
	return c.store.Snapshot().Current
}

// IsAnimating reports whether a fade or a gesture is in progress.
func (c *Controller) IsAnimating() bool {
	return c.store.Snapshot().IsAnimating
}

// Close stops background prefetching.
func (c *Controller) Close() {
	c.coord.Close()
}
