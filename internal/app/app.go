package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/five82/slip/internal/adviceslip"
	"github.com/five82/slip/internal/cache"
	"github.com/five82/slip/internal/config"
	"github.com/five82/slip/internal/metrics"
	"github.com/five82/slip/internal/prefetch"
	"github.com/five82/slip/internal/state"
	"github.com/five82/slip/internal/ui"
)

// Options configure the slip application.
type Options struct {
	Config config.Config
	Logger *zap.Logger
}

// Components is the wired core shared by the TUI and the one-shot commands.
type Components struct {
	Client      *adviceslip.Client
	Cache       *cache.Cache
	Coordinator *prefetch.Coordinator
	Store       *state.Store
	Controller  *Controller
}

// Build constructs the client, cache, coordinator, store and controller
// from cfg. m may be nil. Call Close on the result when done.
func Build(cfg config.Config, logger *zap.Logger, m *metrics.Metrics) (*Components, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := adviceslip.NewClient(cfg.API.URL,
		adviceslip.WithTimeout(cfg.API.Timeout),
		adviceslip.WithLimiter(adviceslip.NewLimiter(cfg.API.MinInterval)),
		adviceslip.WithUserAgent(cfg.API.UserAgent),
	)
	if err != nil {
		return nil, fmt.Errorf("init advice client: %w", err)
	}

	adviceCache := cache.New(cache.Options{
		Random:   cache.Policy{StaleTime: cfg.Cache.RandomStale, TTL: cfg.Cache.RandomTTL},
		ByID:     cache.Policy{StaleTime: cfg.Cache.ByIDStale, TTL: cfg.Cache.ByIDTTL},
		Prefetch: cache.Policy{StaleTime: cfg.Cache.PrefetchTTL, TTL: cfg.Cache.PrefetchTTL},
		Retry: cache.RetryPolicy{
			MaxRetries:  cfg.Retry.MaxRetries,
			BaseDelay:   cfg.Retry.BaseDelay,
			MaxDelay:    cfg.Retry.MaxDelay,
			ShouldRetry: adviceslip.Retryable,
		},
		Logger:  logger.Named("cache"),
		Metrics: m,
	})

	coord := prefetch.New(adviceCache, client,
		prefetch.WithDelay(cfg.Prefetch.Delay),
		prefetch.WithMaxSlots(cfg.Prefetch.MaxSlots),
		prefetch.WithLogger(logger.Named("prefetch")),
		prefetch.WithMetrics(m),
	)

	store := state.NewStore(cfg.Animation.Fade)
	ctl := NewController(coord, store, ControllerOptions{
		SettleCached: cfg.Animation.SettleCached,
		SettleFresh:  cfg.Animation.SettleFresh,
		Logger:       logger.Named("controller"),
	})

	return &Components{
		Client:      client,
		Cache:       adviceCache,
		Coordinator: coord,
		Store:       store,
		Controller:  ctl,
	}, nil
}

// Close stops background work.
func (c *Components) Close() {
	c.Coordinator.Close()
}

// Run boots the slip TUI until the user quits or ctx is cancelled. The cache
// is swept in the background and, when a metrics address is configured,
// /metrics is served alongside.
func Run(ctx context.Context, opts Options) error {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	core, err := Build(opts.Config, logger, m)
	if err != nil {
		return err
	}
	defer core.Close()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	StartSweeper(gctx, core.Cache, opts.Config.Cache.SweepInterval)

	if addr := opts.Config.Metrics.Addr; addr != "" {
		g.Go(func() error {
			logger.Info("serving metrics", zap.String("addr", addr))
			if err := metrics.Serve(gctx, addr, reg); err != nil {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		defer cancel()
		return ui.Run(ui.Options{
			Context:    gctx,
			Controller: core.Controller,
			ThemeName:  opts.Config.UI.Theme,
			Refresh:    opts.Config.UI.Refresh,
			Logger:     logger.Named("ui"),
		})
	})

	return g.Wait()
}
