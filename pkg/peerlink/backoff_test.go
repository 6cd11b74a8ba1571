package peerlink

import (
	"testing"
	"time"
)

func TestBackoffSequence(t *testing.T) {
	b := NewBackoffWithConfig(BackoffConfig{
		Initial:    100 * time.Millisecond,
		Max:        500 * time.Millisecond,
		Multiplier: 2.0,
		Jitter:     0, // deterministic
	})

	expected := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		500 * time.Millisecond, // capped
		500 * time.Millisecond,
	}
	for i, want := range expected {
		if got := b.Next(); got != want {
			t.Errorf("Next() #%d = %v, want %v", i, got, want)
		}
	}
	if b.Attempts() != len(expected) {
		t.Errorf("Attempts() = %d, want %d", b.Attempts(), len(expected))
	}
}

func TestBackoffJitterRange(t *testing.T) {
	b := NewBackoff()

	// First delay is the initial value plus up to 25% jitter.
	for i := 0; i < 10; i++ {
		b.Reset()
		d := b.Next()
		if d < InitialBackoff || d > InitialBackoff+InitialBackoff/4 {
			t.Errorf("jittered delay %v outside [%v, %v]", d, InitialBackoff, InitialBackoff+InitialBackoff/4)
		}
	}
}

func TestBackoffReset(t *testing.T) {
	b := NewBackoffWithConfig(BackoffConfig{Jitter: 0})
	for i := 0; i < 4; i++ {
		b.Next()
	}
	if b.Current() <= InitialBackoff {
		t.Error("backoff did not advance")
	}

	b.Reset()
	if b.Current() != InitialBackoff || b.Attempts() != 0 {
		t.Errorf("after Reset: current = %v, attempts = %d", b.Current(), b.Attempts())
	}
}
