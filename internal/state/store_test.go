package state

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/five82/slip/internal/adviceslip"
)

const testFade = 20 * time.Millisecond

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func adv(id int, text string) adviceslip.Advice {
	return adviceslip.Advice{ID: id, Text: text}
}

func TestStore_InitialSnapshot(t *testing.T) {
	s := NewStore(testFade)

	snap := s.Snapshot()
	if snap.Current != adviceslip.Placeholder {
		t.Fatalf("Current = %#v, want placeholder", snap.Current)
	}
	if snap.IsInitialized || snap.IsAnimating {
		t.Fatalf("initialized=%v animating=%v, want both false", snap.IsInitialized, snap.IsAnimating)
	}
	if snap.Phase != PhaseLoading {
		t.Fatalf("Phase = %v, want loading", snap.Phase)
	}
	if snap.HasAdvice() {
		t.Fatal("HasAdvice() = true for placeholder")
	}
}

func TestStore_FirstAdviceSkipsFade(t *testing.T) {
	s := NewStore(time.Hour)

	s.SetAdvice(adv(1, "first"))

	snap := s.Snapshot()
	if snap.Current.ID != 1 || !snap.IsInitialized {
		t.Fatalf("snapshot = %#v, want id 1 initialized", snap)
	}
	if snap.IsAnimating {
		t.Fatal("first paint should not animate")
	}
	if snap.Phase != PhaseReady {
		t.Fatalf("Phase = %v, want ready", snap.Phase)
	}
}

func TestStore_SameIDIsNoop(t *testing.T) {
	s := NewStore(testFade)
	s.SetAdvice(adv(1, "first"))

	s.SetAdvice(adv(1, "first"))
	s.SetAdvice(adv(1, "first"))

	snap := s.Snapshot()
	if snap.Current.ID != 1 || snap.IsAnimating {
		t.Fatalf("snapshot = %#v, want id 1 not animating", snap)
	}
}

func TestStore_DifferentIDFadesThenSwaps(t *testing.T) {
	s := NewStore(testFade)
	s.SetAdvice(adv(1, "first"))

	before := time.Now()
	s.SetAdvice(adv(2, "second"))

	snap := s.Snapshot()
	if !snap.IsAnimating {
		t.Fatal("IsAnimating = false during fade")
	}
	if snap.Current.ID != 1 {
		t.Fatalf("Current.ID = %d during fade, want 1", snap.Current.ID)
	}

	waitFor(t, "swap", func() bool { return s.Snapshot().Current.ID == 2 })
	if elapsed := time.Since(before); elapsed < testFade {
		t.Fatalf("swap after %v, want >= %v", elapsed, testFade)
	}
	if s.Snapshot().IsAnimating {
		t.Fatal("IsAnimating = true after swap")
	}
}

func TestStore_LatestSetAdviceWins(t *testing.T) {
	s := NewStore(testFade)
	s.SetAdvice(adv(1, "first"))

	s.SetAdvice(adv(2, "second"))
	s.SetAdvice(adv(3, "third"))

	waitFor(t, "swap", func() bool { return !s.Snapshot().IsAnimating })
	// Give a superseded timer time to fire if it was not cancelled.
	time.Sleep(2 * testFade)

	if got := s.Snapshot().Current.ID; got != 3 {
		t.Fatalf("Current.ID = %d, want 3", got)
	}
}

func TestStore_ReturningToCurrentCancelsSwap(t *testing.T) {
	s := NewStore(testFade)
	s.SetAdvice(adv(1, "first"))

	s.SetAdvice(adv(2, "second"))
	s.SetAdvice(adv(1, "first"))

	snap := s.Snapshot()
	if snap.IsAnimating {
		t.Fatal("IsAnimating = true after reverting to current advice")
	}
	time.Sleep(2 * testFade)
	if got := s.Snapshot().Current.ID; got != 1 {
		t.Fatalf("Current.ID = %d, want 1", got)
	}
}

func TestStore_SameTargetKeepsPendingTimer(t *testing.T) {
	s := NewStore(100 * time.Millisecond)
	s.SetAdvice(adv(1, "first"))

	start := time.Now()
	s.SetAdvice(adv(2, "second"))
	time.Sleep(60 * time.Millisecond)
	s.SetAdvice(adv(2, "second, again"))

	waitFor(t, "swap", func() bool { return s.Snapshot().Current.ID == 2 })
	if elapsed := time.Since(start); elapsed >= 155*time.Millisecond {
		t.Fatalf("swap took %v; repeated target should not restart the fade", elapsed)
	}
	if got := s.Snapshot().Current.Text; got != "second, again" {
		t.Fatalf("Current.Text = %q, want latest text", got)
	}
}

func TestStore_AnimationWindow(t *testing.T) {
	s := NewStore(testFade)
	s.SetAdvice(adv(1, "first"))

	s.StartAnimation()
	if !s.Snapshot().IsAnimating {
		t.Fatal("StartAnimation did not set IsAnimating")
	}
	s.EndAnimation()
	if s.Snapshot().IsAnimating {
		t.Fatal("EndAnimation did not clear IsAnimating")
	}

	s.StartAnimation()
	s.SetAdvice(adv(2, "second"))
	s.EndAnimation()
	if !s.Snapshot().IsAnimating {
		t.Fatal("EndAnimation cut a pending fade short")
	}
	waitFor(t, "fade", func() bool { return !s.Snapshot().IsAnimating })
}

func TestStore_EndAnimationAfter(t *testing.T) {
	s := NewStore(testFade)
	s.SetAdvice(adv(1, "first"))

	s.StartAnimation()
	s.EndAnimationAfter(testFade)
	if !s.Snapshot().IsAnimating {
		t.Fatal("IsAnimating cleared before the delay")
	}
	waitFor(t, "settle", func() bool { return !s.Snapshot().IsAnimating })

	// A new gesture cancels an older settle timer.
	s.StartAnimation()
	s.EndAnimationAfter(testFade)
	s.StartAnimation()
	time.Sleep(3 * testFade)
	if !s.Snapshot().IsAnimating {
		t.Fatal("stale EndAnimationAfter ended a newer gesture")
	}
	s.EndAnimationAfter(0)
	if s.Snapshot().IsAnimating {
		t.Fatal("EndAnimationAfter(0) should end immediately")
	}
}

func TestStore_SetErrorKeepsAdvice(t *testing.T) {
	s := NewStore(testFade)
	s.SetAdvice(adv(1, "first"))

	origErr := &adviceslip.Error{Kind: adviceslip.KindRateLimited}
	s.SetError(origErr)

	snap := s.Snapshot()
	if snap.Current.ID != 1 {
		t.Fatalf("Current.ID = %d, want 1", snap.Current.ID)
	}
	if snap.Phase != PhaseFailed {
		t.Fatalf("Phase = %v, want failed", snap.Phase)
	}
	if !errors.Is(snap.LastError, adviceslip.ErrRateLimited) {
		t.Fatalf("LastError = %v, want rate limited", snap.LastError)
	}
	if reflect.ValueOf(snap.LastError).Pointer() == reflect.ValueOf(origErr).Pointer() {
		t.Fatal("Snapshot should clone error instance")
	}

	s.SetLoading()
	snap = s.Snapshot()
	if snap.Phase != PhaseLoading || snap.LastError != nil {
		t.Fatalf("after SetLoading: phase=%v err=%v", snap.Phase, snap.LastError)
	}
}

func TestStore_Reset(t *testing.T) {
	s := NewStore(testFade)
	s.SetAdvice(adv(1, "first"))
	s.SetAdvice(adv(2, "second"))
	s.StartAnimation()
	s.SetUsedCache(true)

	s.Reset()
	time.Sleep(2 * testFade)

	snap := s.Snapshot()
	if snap.Current != adviceslip.Placeholder || snap.IsInitialized || snap.IsAnimating || snap.UsedCache {
		t.Fatalf("snapshot after Reset = %#v, want initial state", snap)
	}
}

func TestStore_ZeroFadeSwapsImmediately(t *testing.T) {
	s := NewStore(0)
	s.SetAdvice(adv(1, "first"))
	s.SetAdvice(adv(2, "second"))

	snap := s.Snapshot()
	if snap.Current.ID != 2 || snap.IsAnimating {
		t.Fatalf("snapshot = %#v, want id 2 not animating", snap)
	}
}

func TestPhaseString(t *testing.T) {
	tests := []struct {
		phase Phase
		want  string
	}{
		{PhaseLoading, "loading"},
		{PhaseReady, "ready"},
		{PhaseFailed, "failed"},
		{Phase(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.phase.String(); got != tt.want {
			t.Errorf("Phase(%d).String() = %q, want %q", tt.phase, got, tt.want)
		}
	}
}
