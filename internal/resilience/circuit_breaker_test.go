package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestBreaker(maxFailures int, reset time.Duration) (*CircuitBreaker, *time.Time) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker("test", maxFailures, reset)
	cb.now = func() time.Time { return now }
	return cb, &now
}

func TestCircuitBreaker_StateClosed(t *testing.T) {
	cb, _ := newTestBreaker(3, time.Second)

	if cb.GetState() != StateClosed {
		t.Errorf("Expected initial state to be Closed, got %s", cb.GetState())
	}

	called := false
	if err := cb.Call(func() error { called = true; return nil }); err != nil {
		t.Fatalf("Expected call to pass, got %v", err)
	}
	if !called {
		t.Error("Expected function to run in Closed state")
	}
}

func TestCircuitBreaker_OpenAfterFailures(t *testing.T) {
	cb, _ := newTestBreaker(3, time.Second)
	boom := errors.New("boom")

	_ = cb.Call(func() error { return boom })
	_ = cb.Call(func() error { return boom })
	if cb.GetState() != StateClosed {
		t.Error("Expected state to still be Closed after 2 failures")
	}

	_ = cb.Call(func() error { return boom })
	if cb.GetState() != StateOpen {
		t.Fatal("Expected state to be Open after 3 failures")
	}

	called := false
	err := cb.Call(func() error { called = true; return nil })
	if !errors.Is(err, ErrOpen) {
		t.Errorf("Expected ErrOpen, got %v", err)
	}
	if called {
		t.Error("Expected function not to run while Open")
	}
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb, _ := newTestBreaker(2, time.Second)

	cb.RecordResult(false)
	cb.RecordResult(true)
	cb.RecordResult(false)

	if cb.GetState() != StateClosed {
		t.Errorf("Expected non-consecutive failures to keep the circuit Closed, got %s", cb.GetState())
	}
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	cb, now := newTestBreaker(1, 100*time.Millisecond)

	cb.RecordResult(false)
	if cb.GetState() != StateOpen {
		t.Fatal("Expected circuit to be Open")
	}

	*now = now.Add(150 * time.Millisecond)

	if err := cb.Call(func() error { return nil }); err != nil {
		t.Fatalf("Expected trial call to be allowed after reset timeout, got %v", err)
	}
	if cb.GetState() != StateClosed {
		t.Errorf("Expected successful trial call to close the circuit, got %s", cb.GetState())
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb, now := newTestBreaker(1, 100*time.Millisecond)

	cb.RecordResult(false)
	*now = now.Add(150 * time.Millisecond)

	_ = cb.Call(func() error { return errors.New("still down") })
	if cb.GetState() != StateOpen {
		t.Errorf("Expected failed trial call to reopen the circuit, got %s", cb.GetState())
	}
}

func TestCircuitBreaker_Observer(t *testing.T) {
	cb, _ := newTestBreaker(1, time.Second)

	var gotState CircuitState
	var gotFailed bool
	cb.SetObserver(func(name string, state CircuitState, failed bool) {
		if name != "test" {
			t.Errorf("Expected observer name 'test', got '%s'", name)
		}
		gotState, gotFailed = state, failed
	})

	cb.RecordResult(false)
	if gotState != StateOpen || !gotFailed {
		t.Errorf("Expected observer to see Open/failed, got %s/%v", gotState, gotFailed)
	}

	state, requests, failures := cb.GetStats()
	if state != StateOpen || requests != 1 || failures != 1 {
		t.Errorf("Unexpected stats: %s %d %d", state, requests, failures)
	}
}

func TestCircuitBreaker_DisabledWhenMaxFailuresZero(t *testing.T) {
	cb, _ := newTestBreaker(0, time.Second)

	for i := 0; i < 10; i++ {
		cb.RecordResult(false)
	}
	if cb.GetState() != StateClosed {
		t.Errorf("Expected breaker with maxFailures=0 never to open, got %s", cb.GetState())
	}
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb, _ := newTestBreaker(1, time.Hour)
	cb.RecordResult(false)
	cb.Reset()

	if cb.GetState() != StateClosed {
		t.Errorf("Expected Reset to close the circuit, got %s", cb.GetState())
	}
}

func TestCircuitBreaker_CancelledCallsNotCounted(t *testing.T) {
	cb, _ := newTestBreaker(2, time.Second)

	for i := 0; i < 5; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := cb.CallContext(ctx, func() error { return ctx.Err() })
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Expected context.Canceled, got %v", err)
		}
	}

	if cb.GetState() != StateClosed {
		t.Errorf("Expected state to stay Closed after cancelled calls, got %s", cb.GetState())
	}
	if _, requests, failures := cb.GetStats(); requests != 0 || failures != 0 {
		t.Errorf("Expected no recorded results, got %d requests and %d failures", requests, failures)
	}

	boom := errors.New("boom")
	_ = cb.CallContext(context.Background(), func() error { return boom })
	_ = cb.CallContext(context.Background(), func() error { return boom })
	if cb.GetState() != StateOpen {
		t.Errorf("Expected live failures to still open the circuit, got %s", cb.GetState())
	}
}

func TestCircuitBreaker_CancelledTrialReleasesSlot(t *testing.T) {
	cb, now := newTestBreaker(1, time.Second)
	_ = cb.Call(func() error { return errors.New("boom") })
	*now = now.Add(2 * time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = cb.CallContext(ctx, func() error { return ctx.Err() })
	if cb.GetState() != StateHalfOpen {
		t.Fatalf("Expected HalfOpen after a cancelled trial call, got %s", cb.GetState())
	}

	called := false
	err := cb.CallContext(context.Background(), func() error { called = true; return nil })
	if err != nil || !called {
		t.Errorf("Expected a new trial call to be allowed, got err=%v called=%t", err, called)
	}
	if cb.GetState() != StateClosed {
		t.Errorf("Expected Closed after a successful trial call, got %s", cb.GetState())
	}
}
