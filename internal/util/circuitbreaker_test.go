package util

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestCircuitBreakerOpensAndRecovers(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker("test", 3, 30*time.Second, zap.NewNop()).WithClock(func() time.Time { return now })

	cb.RecordFailure()
	cb.RecordFailure()
	if !cb.Allow() {
		t.Fatalf("expected breaker closed below threshold")
	}

	cb.RecordFailure()
	if cb.Allow() || cb.State() != CircuitStateOpen {
		t.Fatalf("expected breaker open at threshold, got %s", cb.State())
	}
	if status := cb.Status(); status.RetryAt == nil || !status.RetryAt.Equal(now.Add(30*time.Second)) {
		t.Fatalf("unexpected status: %+v", status)
	}

	now = now.Add(30 * time.Second)
	if cb.State() != CircuitStateHalfOpen {
		t.Fatalf("expected half-open after reset timeout, got %s", cb.State())
	}

	cb.RecordFailure()
	if cb.State() != CircuitStateOpen {
		t.Fatalf("expected failure in half-open to reopen, got %s", cb.State())
	}

	now = now.Add(31 * time.Second)
	cb.RecordSuccess()
	if cb.State() != CircuitStateClosed || cb.Status().FailureCount != 0 {
		t.Fatalf("expected success in half-open to close, got %+v", cb.Status())
	}
}

func TestCircuitBreakerSuccessResetsCount(t *testing.T) {
	cb := NewCircuitBreaker("test", 2, time.Minute, zap.NewNop())

	cb.RecordFailure()
	cb.RecordSuccess()
	cb.RecordFailure()
	if cb.State() != CircuitStateClosed {
		t.Fatalf("expected non-consecutive failures to keep breaker closed")
	}

	cb.RecordFailure()
	cb.Reset()
	if !cb.Allow() {
		t.Fatalf("expected Reset to close breaker")
	}
}
