package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoad_MissingConfigFallsBackToDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load(filepath.Join(home, "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.API.URL != defaultAPIURL {
		t.Fatalf("API.URL = %q, want %q", cfg.API.URL, defaultAPIURL)
	}
	if cfg.API.Timeout != 5*time.Second || cfg.API.MinInterval != 200*time.Millisecond {
		t.Fatalf("API timings = %v/%v, want 5s/200ms", cfg.API.Timeout, cfg.API.MinInterval)
	}
	if cfg.Animation.Fade != 150*time.Millisecond {
		t.Fatalf("Animation.Fade = %v, want 150ms", cfg.Animation.Fade)
	}

	wantLog, err := expandPath(defaultLogFile)
	if err != nil {
		t.Fatalf("expandPath(defaultLogFile) returned error: %v", err)
	}
	if cfg.Log.File != wantLog {
		t.Fatalf("Log.File = %q, want %q", cfg.Log.File, wantLog)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoad_ParsesAndTrimsConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := writeConfig(t, `
[api]
url = "  http://127.0.0.1:9999  "
timeout = "2s"

[cache]
by_id_stale = "1m"
sweep_interval = "0s"

[retry]
max_retries = 0

[prefetch]
max_slots = 4

[ui]
theme = " Kanagawa "

[log]
file = "  ~/.slip/slip.log  "
level = "debug"

[metrics]
addr = "127.0.0.1:9464"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.API.URL != "http://127.0.0.1:9999" {
		t.Fatalf("API.URL = %q", cfg.API.URL)
	}
	if cfg.API.Timeout != 2*time.Second {
		t.Fatalf("API.Timeout = %v, want 2s", cfg.API.Timeout)
	}
	if cfg.Cache.ByIDStale != time.Minute {
		t.Fatalf("Cache.ByIDStale = %v, want 1m", cfg.Cache.ByIDStale)
	}
	if cfg.Cache.ByIDTTL != 10*time.Minute {
		t.Fatalf("Cache.ByIDTTL = %v, want default 10m", cfg.Cache.ByIDTTL)
	}
	if cfg.Cache.SweepInterval != 0 {
		t.Fatalf("Cache.SweepInterval = %v, want explicit 0", cfg.Cache.SweepInterval)
	}
	if cfg.Retry.MaxRetries != 0 {
		t.Fatalf("Retry.MaxRetries = %d, want explicit 0", cfg.Retry.MaxRetries)
	}
	if cfg.Prefetch.MaxSlots != 4 {
		t.Fatalf("Prefetch.MaxSlots = %d, want 4", cfg.Prefetch.MaxSlots)
	}
	if cfg.UI.Theme != "Kanagawa" {
		t.Fatalf("UI.Theme = %q, want Kanagawa", cfg.UI.Theme)
	}
	if !strings.HasPrefix(cfg.Log.File, home) {
		t.Fatalf("Log.File = %q, want it under HOME %q", cfg.Log.File, home)
	}
	if cfg.Log.Level != "debug" || cfg.Metrics.Addr != "127.0.0.1:9464" {
		t.Fatalf("log level %q metrics addr %q", cfg.Log.Level, cfg.Metrics.Addr)
	}
}

func TestLoad_EmptyValuesUseDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	path := writeConfig(t, `
[api]
url = "   "
timeout = ""
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.API.URL != defaultAPIURL {
		t.Fatalf("API.URL = %q, want %q", cfg.API.URL, defaultAPIURL)
	}
	if cfg.API.Timeout != 5*time.Second {
		t.Fatalf("API.Timeout = %v, want 5s", cfg.API.Timeout)
	}
}

func TestLoad_InvalidTOMLFails(t *testing.T) {
	path := writeConfig(t, `[api`)
	_, err := Load(path)
	if err == nil {
		t.Fatalf("Load returned nil error, want parse error")
	}
	if !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("Load error = %q, want it to mention parse config", err.Error())
	}
}

func TestLoad_InvalidDurationFails(t *testing.T) {
	path := writeConfig(t, "[animation]\nfade = \"soon\"\n")
	_, err := Load(path)
	if err == nil {
		t.Fatalf("Load returned nil error, want duration error")
	}
	if !strings.Contains(err.Error(), "animation.fade") {
		t.Fatalf("Load error = %q, want it to name animation.fade", err.Error())
	}
}

func TestApplyEnv_OverridesFileValues(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(EnvAPIURL, "http://localhost:8080")
	t.Setenv(EnvLogLevel, "warn")
	t.Setenv(EnvLogFile, "~/env.log")
	t.Setenv(EnvMetricsAddr, ":9100")
	t.Setenv(EnvTheme, "Slate")

	cfg := Default()
	cfg.ApplyEnv()

	if cfg.API.URL != "http://localhost:8080" {
		t.Fatalf("API.URL = %q", cfg.API.URL)
	}
	if cfg.Log.Level != "warn" {
		t.Fatalf("Log.Level = %q", cfg.Log.Level)
	}
	if cfg.Log.File != filepath.Join(home, "env.log") {
		t.Fatalf("Log.File = %q", cfg.Log.File)
	}
	if cfg.Metrics.Addr != ":9100" || cfg.UI.Theme != "Slate" {
		t.Fatalf("metrics %q theme %q", cfg.Metrics.Addr, cfg.UI.Theme)
	}
}

func TestApplyEnv_BlankVariablesAreIgnored(t *testing.T) {
	t.Setenv(EnvAPIURL, "   ")
	cfg := Default()
	cfg.ApplyEnv()
	if cfg.API.URL != defaultAPIURL {
		t.Fatalf("API.URL = %q, want default", cfg.API.URL)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("SLIP_THEME=Kanagawa\nSLIP_LOG_LEVEL=debug\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv(EnvTheme, "")
	os.Unsetenv(EnvTheme)
	t.Setenv(EnvLogLevel, "error")

	if err := LoadDotEnv(filepath.Join(dir, "missing.env"), path); err != nil {
		t.Fatalf("LoadDotEnv returned error: %v", err)
	}
	if got := os.Getenv(EnvTheme); got != "Kanagawa" {
		t.Fatalf("%s = %q, want Kanagawa", EnvTheme, got)
	}
	if got := os.Getenv(EnvLogLevel); got != "error" {
		t.Fatalf("%s = %q, existing variables must not be overridden", EnvLogLevel, got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"empty url", func(c *Config) { c.API.URL = " " }, "api.url"},
		{"zero timeout", func(c *Config) { c.API.Timeout = 0 }, "api.timeout"},
		{"negative interval", func(c *Config) { c.API.MinInterval = -time.Millisecond }, "api.min_interval"},
		{"zero interval allowed", func(c *Config) { c.API.MinInterval = 0 }, ""},
		{"negative retries", func(c *Config) { c.Retry.MaxRetries = -1 }, "retry.max_retries"},
		{"negative slots", func(c *Config) { c.Prefetch.MaxSlots = -1 }, "prefetch.max_slots"},
		{"negative sweep", func(c *Config) { c.Cache.SweepInterval = -time.Second }, "cache.sweep_interval"},
		{"zero refresh", func(c *Config) { c.UI.Refresh = 0 }, "ui.refresh"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() = %v, want error mentioning %q", err, tt.wantErr)
			}
		})
	}
}

func TestExpandPath_ExpandsTildeAndReturnsAbs(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := expandPath("~/a/b")
	if err != nil {
		t.Fatalf("expandPath returned error: %v", err)
	}
	want := filepath.Join(home, "a/b")
	if got != want {
		t.Fatalf("expandPath = %q, want %q", got, want)
	}
}

func TestExpandPath_EmptyErrors(t *testing.T) {
	if _, err := expandPath("   "); err == nil {
		t.Fatalf("expandPath returned nil error, want error")
	}
}
