package clients

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errUpstream = errors.New("upstream failed")

func failN(t *testing.T, cb *CircuitBreaker, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_ = cb.Call(context.Background(), func(context.Context) error { return errUpstream })
	}
}

func TestCircuitBreaker_StartsInClosedState(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig("start"))
	if cb.State() != StateClosed {
		t.Fatalf("expected CLOSED, got %s", cb.State())
	}
	if cb.Name() != "start" {
		t.Fatalf("unexpected name %q", cb.Name())
	}
}

func TestCircuitBreaker_DoesNotTripBelowFailureThreshold(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:         "below-threshold",
		MinRequests:  10,
		FailureRatio: 0.5,
		Timeout:      100 * time.Millisecond,
	})

	failN(t, cb, 4)
	for i := 0; i < 6; i++ {
		_ = cb.Call(context.Background(), func(context.Context) error { return nil })
	}

	if cb.State() != StateClosed {
		t.Fatalf("expected CLOSED below threshold, got %s", cb.State())
	}
}

func TestCircuitBreaker_OpensAndRejects(t *testing.T) {
	var transitions []string
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:         "reject",
		MinRequests:  3,
		FailureRatio: 0.5,
		Timeout:      time.Second,
		OnStateChange: func(_ string, _, to CircuitBreakerState) {
			transitions = append(transitions, to.String())
		},
	})

	failN(t, cb, 3)
	if cb.State() != StateOpen {
		t.Fatalf("expected OPEN, got %s", cb.State())
	}
	if len(transitions) == 0 || transitions[0] != "open" {
		t.Fatalf("expected open transition, got %v", transitions)
	}

	called := false
	err := cb.Call(context.Background(), func(context.Context) error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrOpen) {
		t.Fatalf("expected ErrOpen, got %v", err)
	}
	if called {
		t.Fatalf("expected upstream not to be called while open")
	}
}

func TestCircuitBreaker_HalfOpenProbeCloses(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:         "half-open",
		MinRequests:  3,
		FailureRatio: 0.5,
		Timeout:      50 * time.Millisecond,
	})
	failN(t, cb, 3)

	time.Sleep(60 * time.Millisecond)

	if err := cb.Call(context.Background(), func(context.Context) error { return nil }); err != nil {
		t.Fatalf("expected probe to succeed, got %v", err)
	}
	if cb.State() != StateClosed {
		t.Fatalf("expected CLOSED after probe, got %s", cb.State())
	}
}

func TestCircuitBreaker_CanceledCallsDoNotTrip(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:         "canceled",
		MinRequests:  3,
		FailureRatio: 0.5,
		Timeout:      time.Second,
	})

	for i := 0; i < 5; i++ {
		_ = cb.Call(context.Background(), func(context.Context) error { return context.Canceled })
	}
	if cb.State() != StateClosed {
		t.Fatalf("expected canceled calls to be ignored, got %s", cb.State())
	}
}

func TestRunReturnsValue(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig("run"))

	got, err := Run(context.Background(), cb, func(context.Context) (string, error) {
		return "ok", nil
	})
	if err != nil || got != "ok" {
		t.Fatalf("expected ok, got %q, %v", got, err)
	}

	got, err = Run(context.Background(), nil, func(context.Context) (string, error) {
		return "direct", errUpstream
	})
	if got != "direct" || !errors.Is(err, errUpstream) {
		t.Fatalf("expected passthrough without breaker, got %q, %v", got, err)
	}
}
