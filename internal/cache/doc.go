// Package cache holds fetched advice keyed by slot, with request coalescing,
// per-category staleness, retry with exponential backoff, and opportunistic
// garbage collection.
//
// # Keys
//
//	advice/random          canonical random slot (always stale, kept as fallback data)
//	advice/byId/{id}       one advice id (fresh for 5 minutes)
//	advice/prefetch/{uuid} speculative random slots waiting to be claimed
//
// # Entry Lifecycle
//
//	(absent) ──GetOrFetch──→ pending ──ok──→ resolved
//	                            │
//	                            └──err──→ error ──GetOrFetch──→ pending ...
//
// While an entry is pending it owns exactly one in-flight fetch. Any caller
// asking for the same key attaches to that fetch instead of starting another.
// A caller may give up waiting through its context; the fetch keeps running
// and still updates the entry for later readers.
//
// # Retries
//
// Timeouts, transport failures and unexpected responses are retried up to
// three times with delays of 1s, 2s and 4s (doubling, capped at 30s).
// Not-found and rate-limited responses are returned at once.
//
// # Sweeping
//
// Sweep removes resolved and failed entries that outlived their TTL. It runs
// on every GetOrFetch and claim rather than on a timer.
package cache
