package cache

import (
	"testing"
	"time"
)

func TestCalculateBackoff(t *testing.T) {
	base := time.Second

	tests := []struct {
		name     string
		failures int
		want     time.Duration
	}{
		{"zero failures", 0, 1 * time.Second},
		{"negative failures", -1, 1 * time.Second},
		{"one failure", 1, 2 * time.Second},
		{"two failures", 2, 4 * time.Second},
		{"four failures", 4, 16 * time.Second},
		{"five failures capped", 5, 30 * time.Second}, // Would be 32s, capped to 30s
		{"many failures capped", 40, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calculateBackoff(tt.failures, base, maxBackoff)
			if got != tt.want {
				t.Errorf("calculateBackoff(%d, %v) = %v, want %v", tt.failures, base, got, tt.want)
			}
		})
	}
}

func TestCalculateBackoff_MaxCap(t *testing.T) {
	for failures := 0; failures <= 64; failures++ {
		got := calculateBackoff(failures, time.Second, maxBackoff)
		if got > maxBackoff {
			t.Errorf("calculateBackoff(%d) = %v, exceeds maxBackoff %v", failures, got, maxBackoff)
		}
	}
}

func TestRetryPolicyDefaults(t *testing.T) {
	p := RetryPolicy{MaxRetries: -2}.withDefaults()
	if p.MaxRetries != 0 {
		t.Fatalf("MaxRetries = %d, want 0", p.MaxRetries)
	}
	if p.BaseDelay != defaultBaseDelay || p.MaxDelay != maxBackoff {
		t.Fatalf("delays = %v/%v, want %v/%v", p.BaseDelay, p.MaxDelay, defaultBaseDelay, maxBackoff)
	}
	if p.ShouldRetry == nil {
		t.Fatalf("ShouldRetry should default to adviceslip.Retryable")
	}
}
