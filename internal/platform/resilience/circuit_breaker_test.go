package resilience

import (
	"testing"
	"time"
)

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	t.Parallel()

	b := NewCircuitBreaker(3, 50*time.Millisecond, 1)
	for i := 0; i < 3; i++ {
		if err := b.Allow(); err != nil {
			t.Fatalf("unexpected reject before threshold: %v", err)
		}
		b.RecordFailure()
	}

	if err := b.Allow(); err != ErrCircuitOpen {
		t.Fatalf("expected circuit open, got %v", err)
	}
	if got := b.State(); got != CircuitStateOpen {
		t.Fatalf("expected state open, got %s", got)
	}
}

func TestCircuitBreaker_HalfOpenRecoversOnSuccess(t *testing.T) {
	t.Parallel()

	b := NewCircuitBreaker(1, 10*time.Millisecond, 1)
	if err := b.Allow(); err != nil {
		t.Fatalf("unexpected reject: %v", err)
	}
	b.RecordFailure()

	time.Sleep(20 * time.Millisecond)

	if err := b.Allow(); err != nil {
		t.Fatalf("expected half-open to allow a probe: %v", err)
	}
	b.RecordSuccess()

	if got := b.State(); got != CircuitStateClosed {
		t.Fatalf("expected closed after half-open success, got %s", got)
	}
}

func TestCircuitBreaker_HalfOpenReopensOnFailure(t *testing.T) {
	t.Parallel()

	b := NewCircuitBreaker(1, 10*time.Millisecond, 1)
	if err := b.Allow(); err != nil {
		t.Fatalf("unexpected reject: %v", err)
	}
	b.RecordFailure()
	time.Sleep(20 * time.Millisecond)

	if err := b.Allow(); err != nil {
		t.Fatalf("expected half-open probe to be allowed: %v", err)
	}
	b.RecordFailure()

	if got := b.State(); got != CircuitStateOpen {
		t.Fatalf("expected open after half-open failure, got %s", got)
	}
}
