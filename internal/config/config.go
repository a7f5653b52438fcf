package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// Config holds every tunable of slip. Zero values are never used directly;
// Load and Default always return a fully populated Config.
type Config struct {
	API       APIConfig
	Cache     CacheConfig
	Retry     RetryConfig
	Prefetch  PrefetchConfig
	Animation AnimationConfig
	UI        UIConfig
	Log       LogConfig
	Metrics   MetricsConfig
}

type APIConfig struct {
	URL         string
	Timeout     time.Duration
	MinInterval time.Duration
	UserAgent   string
}

type CacheConfig struct {
	RandomStale time.Duration
	RandomTTL   time.Duration
	ByIDStale   time.Duration
	ByIDTTL     time.Duration
	PrefetchTTL time.Duration

	// SweepInterval drives the background sweep; zero leaves sweeping to
	// cache reads.
	SweepInterval time.Duration
}

type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

type PrefetchConfig struct {
	Delay    time.Duration
	MaxSlots int
}

// AnimationConfig sets the fade window and the minimum busy time of a
// new-advice gesture, for cached and fresh results.
type AnimationConfig struct {
	Fade         time.Duration
	SettleCached time.Duration
	SettleFresh  time.Duration
}

type UIConfig struct {
	Theme   string
	Refresh time.Duration
}

type LogConfig struct {
	File  string
	Level string
}

// MetricsConfig enables the Prometheus listener when Addr is set.
type MetricsConfig struct {
	Addr string
}

const (
	defaultConfigPath = "~/.config/slip/config.toml"
	defaultLogFile    = "~/.local/state/slip/slip.log"
	defaultAPIURL     = "https://api.adviceslip.com"
	defaultUserAgent  = "slip/0.1"
	defaultTheme      = "Nightfox"
	defaultLogLevel   = "info"
)

// Environment variables that override file values.
const (
	EnvAPIURL      = "SLIP_API_URL"
	EnvLogLevel    = "SLIP_LOG_LEVEL"
	EnvLogFile     = "SLIP_LOG_FILE"
	EnvMetricsAddr = "SLIP_METRICS_ADDR"
	EnvTheme       = "SLIP_THEME"
)

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		API: APIConfig{
			URL:         defaultAPIURL,
			Timeout:     5 * time.Second,
			MinInterval: 200 * time.Millisecond,
			UserAgent:   defaultUserAgent,
		},
		Cache: CacheConfig{
			RandomStale:   0,
			RandomTTL:     5 * time.Minute,
			ByIDStale:     5 * time.Minute,
			ByIDTTL:       10 * time.Minute,
			PrefetchTTL:   2 * time.Minute,
			SweepInterval: time.Minute,
		},
		Retry: RetryConfig{
			MaxRetries: 3,
			BaseDelay:  time.Second,
			MaxDelay:   30 * time.Second,
		},
		Prefetch: PrefetchConfig{
			Delay:    100 * time.Millisecond,
			MaxSlots: 2,
		},
		Animation: AnimationConfig{
			Fade:         150 * time.Millisecond,
			SettleCached: 200 * time.Millisecond,
			SettleFresh:  time.Second,
		},
		UI: UIConfig{
			Theme:   defaultTheme,
			Refresh: 50 * time.Millisecond,
		},
		Log: LogConfig{
			File:  mustExpand(defaultLogFile),
			Level: defaultLogLevel,
		},
	}
}

// rawConfig mirrors the TOML file. Durations are Go duration strings.
type rawConfig struct {
	API struct {
		URL         string `toml:"url"`
		Timeout     string `toml:"timeout"`
		MinInterval string `toml:"min_interval"`
		UserAgent   string `toml:"user_agent"`
	} `toml:"api"`
	Cache struct {
		RandomStale   string `toml:"random_stale"`
		RandomTTL     string `toml:"random_ttl"`
		ByIDStale     string `toml:"by_id_stale"`
		ByIDTTL       string `toml:"by_id_ttl"`
		PrefetchTTL   string `toml:"prefetch_ttl"`
		SweepInterval string `toml:"sweep_interval"`
	} `toml:"cache"`
	Retry struct {
		MaxRetries *int   `toml:"max_retries"`
		BaseDelay  string `toml:"base_delay"`
		MaxDelay   string `toml:"max_delay"`
	} `toml:"retry"`
	Prefetch struct {
		Delay    string `toml:"delay"`
		MaxSlots *int   `toml:"max_slots"`
	} `toml:"prefetch"`
	Animation struct {
		Fade         string `toml:"fade"`
		SettleCached string `toml:"settle_cached"`
		SettleFresh  string `toml:"settle_fresh"`
	} `toml:"animation"`
	UI struct {
		Theme   string `toml:"theme"`
		Refresh string `toml:"refresh"`
	} `toml:"ui"`
	Log struct {
		File  string `toml:"file"`
		Level string `toml:"level"`
	} `toml:"log"`
	Metrics struct {
		Addr string `toml:"addr"`
	} `toml:"metrics"`
}

// Load reads the config file at path, falling back to defaults when it is
// missing. An empty path means ~/.config/slip/config.toml.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw rawConfig
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.merge(raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

func (c *Config) merge(raw rawConfig) error {
	setString(&c.API.URL, raw.API.URL)
	setString(&c.API.UserAgent, raw.API.UserAgent)
	setString(&c.UI.Theme, raw.UI.Theme)
	setString(&c.Log.Level, raw.Log.Level)
	setString(&c.Metrics.Addr, raw.Metrics.Addr)
	if f := strings.TrimSpace(raw.Log.File); f != "" {
		c.Log.File = mustExpand(f)
	}
	if raw.Retry.MaxRetries != nil {
		c.Retry.MaxRetries = *raw.Retry.MaxRetries
	}
	if raw.Prefetch.MaxSlots != nil {
		c.Prefetch.MaxSlots = *raw.Prefetch.MaxSlots
	}

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"api.timeout", raw.API.Timeout, &c.API.Timeout},
		{"api.min_interval", raw.API.MinInterval, &c.API.MinInterval},
		{"cache.random_stale", raw.Cache.RandomStale, &c.Cache.RandomStale},
		{"cache.random_ttl", raw.Cache.RandomTTL, &c.Cache.RandomTTL},
		{"cache.by_id_stale", raw.Cache.ByIDStale, &c.Cache.ByIDStale},
		{"cache.by_id_ttl", raw.Cache.ByIDTTL, &c.Cache.ByIDTTL},
		{"cache.prefetch_ttl", raw.Cache.PrefetchTTL, &c.Cache.PrefetchTTL},
		{"cache.sweep_interval", raw.Cache.SweepInterval, &c.Cache.SweepInterval},
		{"retry.base_delay", raw.Retry.BaseDelay, &c.Retry.BaseDelay},
		{"retry.max_delay", raw.Retry.MaxDelay, &c.Retry.MaxDelay},
		{"prefetch.delay", raw.Prefetch.Delay, &c.Prefetch.Delay},
		{"animation.fade", raw.Animation.Fade, &c.Animation.Fade},
		{"animation.settle_cached", raw.Animation.SettleCached, &c.Animation.SettleCached},
		{"animation.settle_fresh", raw.Animation.SettleFresh, &c.Animation.SettleFresh},
		{"ui.refresh", raw.UI.Refresh, &c.UI.Refresh},
	}
	for _, d := range durations {
		if err := setDuration(d.dst, d.key, d.raw); err != nil {
			return err
		}
	}
	return nil
}

func setString(dst *string, raw string) {
	if v := strings.TrimSpace(raw); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key, raw string) error {
	v := strings.TrimSpace(raw)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

// LoadDotEnv loads variables from the given .env files into the process
// environment without overriding variables that are already set. Missing
// files are ignored. With no paths it reads ./.env.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overrides file values with SLIP_* environment variables.
func (c *Config) ApplyEnv() {
	setString(&c.API.URL, os.Getenv(EnvAPIURL))
	setString(&c.Log.Level, os.Getenv(EnvLogLevel))
	setString(&c.Metrics.Addr, os.Getenv(EnvMetricsAddr))
	setString(&c.UI.Theme, os.Getenv(EnvTheme))
	if f := strings.TrimSpace(os.Getenv(EnvLogFile)); f != "" {
		c.Log.File = mustExpand(f)
	}
}

// Validate reports the first setting that cannot work.
func (c Config) Validate() error {
	if strings.TrimSpace(c.API.URL) == "" {
		return errors.New("api.url is empty")
	}
	positive := []struct {
		key string
		d   time.Duration
	}{
		{"api.timeout", c.API.Timeout},
		{"ui.refresh", c.UI.Refresh},
		{"retry.base_delay", c.Retry.BaseDelay},
		{"retry.max_delay", c.Retry.MaxDelay},
	}
	for _, p := range positive {
		if p.d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", p.key, p.d)
		}
	}
	nonNegative := []struct {
		key string
		d   time.Duration
	}{
		{"api.min_interval", c.API.MinInterval},
		{"cache.random_stale", c.Cache.RandomStale},
		{"cache.random_ttl", c.Cache.RandomTTL},
		{"cache.by_id_stale", c.Cache.ByIDStale},
		{"cache.by_id_ttl", c.Cache.ByIDTTL},
		{"cache.prefetch_ttl", c.Cache.PrefetchTTL},
		{"cache.sweep_interval", c.Cache.SweepInterval},
		{"prefetch.delay", c.Prefetch.Delay},
		{"animation.fade", c.Animation.Fade},
		{"animation.settle_cached", c.Animation.SettleCached},
		{"animation.settle_fresh", c.Animation.SettleFresh},
	}
	for _, n := range nonNegative {
		if n.d < 0 {
			return fmt.Errorf("%s must not be negative, got %s", n.key, n.d)
		}
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry.max_retries must not be negative, got %d", c.Retry.MaxRetries)
	}
	if c.Prefetch.MaxSlots < 0 {
		return fmt.Errorf("prefetch.max_slots must not be negative, got %d", c.Prefetch.MaxSlots)
	}
	return nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
