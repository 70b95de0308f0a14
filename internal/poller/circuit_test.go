package poller

import (
	"testing"
	"time"
)

func TestCircuitBreaker_StateTransitions(t *testing.T) {
	c := NewCircuitBreaker(2, 100*time.Millisecond)
	now := time.Now()

	if c.State() != CircuitClosed {
		t.Fatalf("expected closed, got %s", c.State())
	}

	c.RecordFailure(now)
	if c.State() != CircuitClosed {
		t.Fatalf("expected closed after first failure, got %s", c.State())
	}

	c.RecordFailure(now)
	if c.State() != CircuitOpen {
		t.Fatalf("expected open after threshold failures, got %s", c.State())
	}

	if c.Allow(now.Add(10 * time.Millisecond)) {
		t.Fatal("expected deny while cooldown not elapsed")
	}
	if !c.Allow(now.Add(120 * time.Millisecond)) {
		t.Fatal("expected allow after cooldown")
	}
	if c.State() != CircuitHalfOpen {
		t.Fatalf("expected half_open, got %s", c.State())
	}

	c.RecordSuccess()
	if c.State() != CircuitClosed {
		t.Fatalf("expected closed after trial success, got %s", c.State())
	}
}

func TestCircuitBreaker_FailedTrialReopens(t *testing.T) {
	c := NewCircuitBreaker(1, 50*time.Millisecond)
	now := time.Now()

	c.RecordFailure(now)
	if !c.Allow(now.Add(60 * time.Millisecond)) {
		t.Fatal("expected trial to be allowed")
	}
	trialAt := now.Add(60 * time.Millisecond)
	c.RecordFailure(trialAt)
	if c.State() != CircuitOpen {
		t.Fatalf("expected open after failed trial, got %s", c.State())
	}
	if c.Allow(trialAt.Add(10 * time.Millisecond)) {
		t.Fatal("expected a fresh cooldown after failed trial")
	}
}

func TestCircuitBreaker_SuccessResetsCount(t *testing.T) {
	c := NewCircuitBreaker(2, time.Second)
	now := time.Now()
	c.RecordFailure(now)
	c.RecordSuccess()
	c.RecordFailure(now)
	if c.State() != CircuitClosed {
		t.Fatalf("expected closed, failures should not accumulate across a success")
	}
}

func TestNewCircuitBreaker_Defaults(t *testing.T) {
	c := NewCircuitBreaker(0, 0)
	if c.Threshold != 5 || c.Cooldown != 30*time.Second {
		t.Fatalf("unexpected defaults: %d %s", c.Threshold, c.Cooldown)
	}
}
