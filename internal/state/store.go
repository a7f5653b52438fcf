package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/five82/slip/internal/adviceslip"
)

// DefaultFade is the fade-out window before displayed advice is replaced.
const DefaultFade = 150 * time.Millisecond

// Phase is the load state shown by the UI.
type Phase int

const (
	PhaseLoading Phase = iota
	PhaseReady
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseReady:
		return "ready"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Snapshot represents the latest data available to the UI.
type Snapshot struct {
	Current       adviceslip.Advice
	IsAnimating   bool
	IsInitialized bool
	Phase         Phase
	LastError     error
	UsedCache     bool // Current came from a prefetched slot
	LastUpdated   time.Time
}

// HasAdvice reports whether Current is real advice rather than the placeholder.
func (s Snapshot) HasAdvice() bool {
	return s.IsInitialized && s.Current.Valid()
}

// Store holds the displayed advice and mediates transitions between advice
// so the text never changes without a fade window.
type Store struct {
	mu   sync.RWMutex
	fade time.Duration
	snap Snapshot

	// busy is set around a user gesture; fading while a swap is pending.
	busy   bool
	fading bool

	target  adviceslip.Advice
	swap    *time.Timer
	swapGen uint64

	settle    *time.Timer
	settleGen uint64
}

// NewStore returns a store showing the placeholder. A fade of zero or less
// swaps advice immediately.
func NewStore(fade time.Duration) *Store {
	s := &Store{fade: fade}
	s.snap = initialSnapshot()
	return s
}

func initialSnapshot() Snapshot {
	return Snapshot{Current: adviceslip.Placeholder, Phase: PhaseLoading}
}

// SetAdvice displays a. The first advice is shown at once. Later advice with
// a different id is swapped in after the fade; a newer call supersedes a
// pending swap, and a call with the currently displayed id cancels it.
func (s *Store) SetAdvice(a adviceslip.Advice) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.snap.Phase = PhaseReady
	s.snap.LastError = nil
	s.snap.LastUpdated = now

	switch {
	case !s.snap.IsInitialized:
		s.cancelSwapLocked()
		s.snap.Current = a
		s.snap.IsInitialized = true
	case s.fading && a.ID == s.target.ID:
		s.target = a
	case a.ID == s.snap.Current.ID:
		s.cancelSwapLocked()
		s.snap.Current = a
	case s.fade <= 0:
		s.cancelSwapLocked()
		s.snap.Current = a
	default:
		s.cancelSwapLocked()
		s.target = a
		s.fading = true
		gen := s.swapGen
		s.swap = time.AfterFunc(s.fade, func() { s.finishSwap(gen) })
	}
	s.syncAnimatingLocked()
}

func (s *Store) finishSwap(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.swapGen || !s.fading {
		return
	}
	s.snap.Current = s.target
	s.snap.LastUpdated = time.Now()
	s.fading = false
	s.swap = nil
	s.syncAnimatingLocked()
}

func (s *Store) cancelSwapLocked() {
	s.swapGen++
	if s.swap != nil {
		s.swap.Stop()
		s.swap = nil
	}
	s.fading = false
	s.target = adviceslip.Advice{}
}

func (s *Store) cancelSettleLocked() {
	s.settleGen++
	if s.settle != nil {
		s.settle.Stop()
		s.settle = nil
	}
}

func (s *Store) syncAnimatingLocked() {
	s.snap.IsAnimating = s.busy || s.fading
}

// StartAnimation marks the start of a user gesture. It cancels any pending
// EndAnimationAfter.
func (s *Store) StartAnimation() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelSettleLocked()
	s.busy = true
	s.syncAnimatingLocked()
}

// EndAnimation ends the gesture. A pending fade still runs to completion.
func (s *Store) EndAnimation() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelSettleLocked()
	s.busy = false
	s.syncAnimatingLocked()
}

// EndAnimationAfter ends the gesture after d, replacing any earlier request.
func (s *Store) EndAnimationAfter(d time.Duration) {
	if d <= 0 {
		s.EndAnimation()
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelSettleLocked()
	gen := s.settleGen
	s.settle = time.AfterFunc(d, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if gen != s.settleGen {
			return
		}
		s.settle = nil
		s.busy = false
		s.syncAnimatingLocked()
	})
}

// SetLoading marks a foreground load in progress and clears the last error.
func (s *Store) SetLoading() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snap.Phase = PhaseLoading
	s.snap.LastError = nil
	s.snap.LastUpdated = time.Now()
}

// SetError records a failed foreground load. The displayed advice is kept.
func (s *Store) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snap.Phase = PhaseFailed
	s.snap.LastError = err
	s.snap.LastUpdated = time.Now()
}

// SetUsedCache records whether the latest advice came from a prefetched slot.
func (s *Store) SetUsedCache(used bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.UsedCache = used
}

// Reset returns the store to the placeholder and cancels pending timers.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelSwapLocked()
	s.cancelSettleLocked()
	s.busy = false
	s.snap = initialSnapshot()
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snap
	if s.snap.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snap.LastError)
	}
	return snap
}
