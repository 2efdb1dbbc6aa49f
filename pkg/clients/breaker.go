package clients

import (
	"context"
	"errors"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"

	"tastesync/pkg/logging"
)

// ErrOpen is returned without calling upstream while the breaker is open.
var ErrOpen = circuitbreaker.ErrOpen

// CircuitBreakerState represents the state of the circuit breaker.
type CircuitBreakerState int

const (
	StateClosed CircuitBreakerState = iota
	StateHalfOpen
	StateOpen
)

func (s CircuitBreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig configures the circuit breaker.
type CircuitBreakerConfig struct {
	// Name identifies this circuit breaker in logs and metrics
	Name string

	// MaxRequests is the number of successful half-open probes needed to close.
	MaxRequests uint32

	// Timeout is how long the circuit stays open before probing again.
	Timeout time.Duration

	// FailureRatio trips the circuit once MinRequests have been observed.
	FailureRatio float64
	MinRequests  uint32

	Logger logging.Logger

	// OnStateChange is invoked after the transition is logged and recorded.
	OnStateChange func(name string, from, to CircuitBreakerState)
}

// DefaultCircuitBreakerConfig returns the settings used for hosted APIs.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:         name,
		MaxRequests:  1,
		Timeout:      30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  10,
	}
}

// CircuitBreaker wraps failsafe-go's circuit breaker. It never retries: a
// failed call is reported to the caller as-is.
type CircuitBreaker struct {
	cb   circuitbreaker.CircuitBreaker[any]
	name string
}

// NewCircuitBreaker creates a new circuit breaker with the given configuration.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.Name == "" {
		cfg.Name = "circuit-breaker"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.FailureRatio == 0 {
		cfg.FailureRatio = 0.5
	}
	if cfg.MinRequests == 0 {
		cfg.MinRequests = 10
	}
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = 1
	}

	// e.g. 50% of 10 requests = 5 failures
	failureThreshold := uint(float64(cfg.MinRequests) * cfg.FailureRatio)
	if failureThreshold < 1 {
		failureThreshold = 1
	}

	builder := circuitbreaker.NewBuilder[any]().
		HandleIf(func(_ any, err error) bool { return countsAsFailure(err) }).
		WithFailureThresholdRatio(failureThreshold, uint(cfg.MinRequests)).
		WithDelay(cfg.Timeout).
		WithSuccessThreshold(uint(cfg.MaxRequests)).
		OnStateChanged(func(event circuitbreaker.StateChangedEvent) {
			from, to := convertState(event.OldState), convertState(event.NewState)
			RecordCircuitBreakerTransition(cfg.Name, from, to)
			if cfg.Logger != nil {
				cfg.Logger.WithFields(logging.Fields{
					"circuit_breaker": cfg.Name,
					"from_state":      from.String(),
					"to_state":        to.String(),
				}).Warn("circuit breaker state change")
			}
			if cfg.OnStateChange != nil {
				cfg.OnStateChange(cfg.Name, from, to)
			}
		})

	return &CircuitBreaker{cb: builder.Build(), name: cfg.Name}
}

// A caller giving up is not evidence that upstream is unhealthy.
func countsAsFailure(err error) bool {
	return err != nil && !errors.Is(err, context.Canceled)
}

func convertState(state circuitbreaker.State) CircuitBreakerState {
	switch state {
	case circuitbreaker.HalfOpenState:
		return StateHalfOpen
	case circuitbreaker.OpenState:
		return StateOpen
	default:
		return StateClosed
	}
}

// Call executes fn through the circuit breaker.
func (cb *CircuitBreaker) Call(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := Run(ctx, cb, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Run executes fn through cb and returns its typed result. A nil breaker runs
// fn directly.
func Run[T any](ctx context.Context, cb *CircuitBreaker, fn func(ctx context.Context) (T, error)) (T, error) {
	if cb == nil {
		return fn(ctx)
	}
	var out T
	_, err := failsafe.With(cb.cb).WithContext(ctx).Get(func() (any, error) {
		v, err := fn(ctx)
		out = v
		return nil, err
	})
	return out, err
}

// State returns the current state of the circuit breaker.
func (cb *CircuitBreaker) State() CircuitBreakerState {
	return convertState(cb.cb.State())
}

// Name returns the name of the circuit breaker.
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

func (cb *CircuitBreaker) IsOpen() bool {
	return cb.cb.IsOpen()
}
