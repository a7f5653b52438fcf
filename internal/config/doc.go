// Package config loads slip's settings from a TOML file and the environment.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/slip/config.toml (default)
//  3. If the config file doesn't exist, fall back to built-in defaults
//  4. If the file exists but fields are missing/empty, use defaults
//
// After Load, callers apply LoadDotEnv and ApplyEnv so SLIP_* variables
// (from the process or a .env file) win over file values, then Validate.
//
// # TOML Format
//
// Every key is optional. Durations use Go syntax ("150ms", "5m").
//
//	[api]
//	url = "https://api.adviceslip.com"
//	timeout = "5s"
//	min_interval = "200ms"
//
//	[cache]
//	random_stale = "0s"
//	random_ttl = "5m"
//	by_id_stale = "5m"
//	by_id_ttl = "10m"
//	prefetch_ttl = "2m"
//	sweep_interval = "1m"
//
//	[retry]
//	max_retries = 3
//	base_delay = "1s"
//	max_delay = "30s"
//
//	[prefetch]
//	delay = "100ms"
//	max_slots = 2
//
//	[animation]
//	fade = "150ms"
//	settle_cached = "200ms"
//	settle_fresh = "1s"
//
//	[ui]
//	theme = "Nightfox"
//	refresh = "50ms"
//
//	[log]
//	file = "~/.local/state/slip/slip.log"
//	level = "info"
//
//	[metrics]
//	addr = "127.0.0.1:9464"
//
// # Error Handling
//
// Load returns errors for:
//   - Path expansion failures (e.g., cannot determine home directory)
//   - File read errors (except os.ErrNotExist, which triggers defaults)
//   - TOML parsing errors and malformed durations
//
// Missing config files are NOT an error. slip works out of the box.
package config
