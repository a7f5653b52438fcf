// Package app wires configuration, the advice client, cache, prefetch
// coordinator, view store and UI into the slip application.
//
// # Components
//
//   - app.go: Build (composition root shared by every command) and Run (TUI)
//   - controller.go: Controller, which turns user intents into coordinator
//     calls and view store updates
//   - sweeper.go: StartSweeper, the periodic cache expiry loop
//
// # Data Flow
//
//	┌──────────────┐
//	│   Run()      │ Initialize everything
//	└──────┬───────┘
//	       │
//	       ├─────> Build()             client, cache, coordinator, store
//	       ├─────> StartSweeper()      drop expired cache entries
//	       ├─────> metrics.Serve()     optional /metrics listener
//	       └─────> ui.Run()            Start TUI (blocks)
//
//	Gesture (space):
//	┌─────────────────────────────────────────────┐
//	│ Controller.RequestNewAdvice()               │
//	│  ├─> store.StartAnimation()                 │
//	│  ├─> coordinator.RequestNewAdvice()         │
//	│  │     claim prefetch, else fetch random    │
//	│  ├─> store.SetAdvice()   (fade, then swap)  │
//	│  └─> store.EndAnimationAfter(settle)        │
//	└─────────────────────────────────────────────┘
//	UI reads store.Snapshot() on every refresh tick.
//
// # Busy Windows
//
// The animating flag stays up for at least 200ms after a gesture answered
// from a prefetched slot and at least 1s after one answered by the network,
// measured from the key press. Both are configurable under [animation].
//
// # Error Handling
//
// Fatal errors (returned from Run):
//   - Invalid API URL
//   - Metrics listener failure
//   - UI failure
//
// Recoverable errors (stored in the snapshot, shown by the UI):
//   - Failed first load or new-advice request
//   - Unknown advice id
//
// Prefetch failures are only logged.
package app
