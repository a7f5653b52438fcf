package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/five82/slip/internal/adviceslip"
	"github.com/five82/slip/internal/app"
	"github.com/five82/slip/internal/config"
	"github.com/five82/slip/internal/logging"
)

var (
	version = "dev"
	commit  = "unknown"
)

// Globals are flags shared by every command.
type Globals struct {
	Config   string `help:"Config file path (defaults to ~/.config/slip/config.toml)." placeholder:"PATH"`
	LogFile  string `help:"Write logs to this file." placeholder:"PATH"`
	LogLevel string `help:"Log level: debug, info, warn or error." placeholder:"LEVEL"`
}

// CLI is the top-level command structure for slip.
type CLI struct {
	Globals

	Version kong.VersionFlag `help:"Show version." short:"V"`
	TUI     TUICmd           `cmd:"" name:"tui" default:"1" help:"Open the advice card (default)."`
	Random  RandomCmd        `cmd:"" help:"Print one random piece of advice."`
	Get     GetCmd           `cmd:"" help:"Print advice by id."`
}

// TUICmd runs the interactive advice card.
type TUICmd struct {
	Theme   string `help:"Color theme: Nightfox, Kanagawa or Slate." placeholder:"NAME"`
	Metrics string `help:"Serve Prometheus metrics on this address." placeholder:"ADDR"`
}

// Run launches the Bubble Tea program.
func (c *TUICmd) Run(ctx context.Context, g *Globals) error {
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return errors.New("tui: requires a terminal (TTY); try `slip random`")
	}

	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	if c.Theme != "" {
		cfg.UI.Theme = c.Theme
	}
	if c.Metrics != "" {
		cfg.Metrics.Addr = c.Metrics
	}

	// Logs go to a file so they never tear the alt screen.
	logger, err := logging.New(logging.Options{File: cfg.Log.File, Level: cfg.Log.Level})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting slip", zap.String("version", version), zap.String("api", cfg.API.URL))
	return app.Run(ctx, app.Options{Config: cfg, Logger: logger})
}

// RandomCmd prints a single random advice and exits.
type RandomCmd struct{}

// Run fetches one random advice.
func (c *RandomCmd) Run(ctx context.Context, g *Globals) error {
	return c.run(ctx, g, os.Stdout)
}

func (c *RandomCmd) run(ctx context.Context, g *Globals, w io.Writer) error {
	core, logger, err := g.buildCore()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	defer core.Close()

	advice, err := core.Coordinator.RandomAdvice(ctx)
	if err != nil {
		return fmt.Errorf("random: %w", err)
	}
	printAdvice(w, advice)
	return nil
}

// GetCmd prints one or more advice by id.
type GetCmd struct {
	IDs []int `arg:"" name:"id" help:"Advice ids to print."`
}

// Run fetches every id concurrently and prints them in argument order.
func (c *GetCmd) Run(ctx context.Context, g *Globals) error {
	return c.run(ctx, g, os.Stdout)
}

func (c *GetCmd) run(ctx context.Context, g *Globals, w io.Writer) error {
	for _, id := range c.IDs {
		if id < 0 {
			return fmt.Errorf("get: invalid id %d", id)
		}
	}

	core, logger, err := g.buildCore()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	defer core.Close()

	results := make([]adviceslip.Advice, len(c.IDs))
	group, gctx := errgroup.WithContext(ctx)
	for i, id := range c.IDs {
		i, id := i, id
		group.Go(func() error {
			advice, err := core.Coordinator.AdviceByID(gctx, id)
			if err != nil {
				return fmt.Errorf("get %d: %w", id, err)
			}
			results[i] = advice
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}

	for _, advice := range results {
		printAdvice(w, advice)
	}
	return nil
}

// loadConfig layers .env, the config file, SLIP_* variables and flags.
func (g *Globals) loadConfig() (config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		return config.Config{}, err
	}
	cfg, err := config.Load(g.Config)
	if err != nil {
		return config.Config{}, err
	}
	cfg.ApplyEnv()
	if g.LogFile != "" {
		cfg.Log.File = g.LogFile
	}
	if g.LogLevel != "" {
		cfg.Log.Level = g.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// buildCore wires the core for one-shot commands. Logs go to stderr at
// warn unless a level or file was asked for, and prefetching is off.
func (g *Globals) buildCore() (*app.Components, *zap.Logger, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	cfg.Prefetch.MaxSlots = 0

	opts := logging.Options{Level: "warn"}
	if g.LogLevel != "" || os.Getenv(config.EnvLogLevel) != "" {
		opts.Level = cfg.Log.Level
	}
	if g.LogFile != "" || os.Getenv(config.EnvLogFile) != "" {
		opts.File = cfg.Log.File
	}
	logger, err := logging.New(opts)
	if err != nil {
		return nil, nil, err
	}

	core, err := app.Build(cfg, logger, nil)
	if err != nil {
		return nil, nil, err
	}
	return core, logger, nil
}

func printAdvice(w io.Writer, a adviceslip.Advice) {
	_, _ = fmt.Fprintf(w, "#%d  %s\n", a.ID, a.Text)
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("slip"),
		kong.Description("A small advice card backed by the Advice Slip API."),
		kong.UsageOnError(),
		kong.Vars{"version": version + " " + commit},
		kong.BindTo(ctx, (*context.Context)(nil)),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "slip: %v\n", err)
		return 1
	}

	kctx, err := parser.Parse(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "slip: %v\n", err)
		return 1
	}

	if err := kctx.Run(&cli.Globals); err != nil {
		fmt.Fprintf(os.Stderr, "slip: %v\n", err)
		return 1
	}
	return 0
}
