// Package state holds the advice currently shown by the UI.
//
// # Overview
//
// The Store is the meeting point between the controller, which fetches
// advice in background goroutines, and the Bubble Tea model, which renders
// on its own tick. Writers call SetAdvice, StartAnimation and friends; the
// UI only ever reads Snapshot.
//
// # Transitions
//
//	              SetAdvice(a)                 SetAdvice(b), b.ID != current
//	placeholder ───────────────→ showing a ─────────────────────────────────┐
//	(not initialized)            (no fade)                                  │
//	                                ↑                                       ↓
//	                                └────────── after fade ────────── fading to b
//	                                                                 (IsAnimating)
//
// While fading, a newer SetAdvice replaces the target and restarts the
// fade. SetAdvice with the id already on screen cancels the fade.
//
// # Animating Flag
//
// IsAnimating is true while a fade is pending or while a user gesture is in
// progress (StartAnimation until EndAnimation or EndAnimationAfter). Ending
// the gesture does not cut a fade short.
//
// # Usage Example
//
//	store := state.NewStore(state.DefaultFade)
//
//	// Controller goroutine:
//	store.StartAnimation()
//	res, err := coord.RequestNewAdvice(ctx)
//	if err != nil {
//		store.SetError(err)
//	} else {
//		store.SetAdvice(res.Advice)
//	}
//	store.EndAnimationAfter(200 * time.Millisecond)
//
//	// UI goroutine:
//	snap := store.Snapshot()
//	render(snap)
package state
