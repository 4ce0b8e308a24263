// Package flowerrors wraps fallible per-item functions with retries,
// circuit breaking, fallbacks and error collection, ready to be used as
// TryMap, Map or FilterMap stages.
package flowerrors

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when a circuit breaker is in the open state.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Operation is a fallible per-item function.
type Operation[T, U any] func(T) (U, error)

// BackoffStrategy defines how to calculate delay between retries.
type BackoffStrategy func(attempt int) time.Duration

// ConstantBackoff returns a BackoffStrategy that always waits the same duration.
func ConstantBackoff(delay time.Duration) BackoffStrategy {
	return func(int) time.Duration {
		return delay
	}
}

// LinearBackoff returns a BackoffStrategy that increases delay linearly.
func LinearBackoff(initialDelay time.Duration) BackoffStrategy {
	return func(attempt int) time.Duration {
		return time.Duration(attempt+1) * initialDelay
	}
}

// ExponentialBackoff returns a BackoffStrategy that doubles delay each attempt.
// The delay is capped at maxDelay if provided (use 0 for no cap).
func ExponentialBackoff(initialDelay, maxDelay time.Duration) BackoffStrategy {
	return func(attempt int) time.Duration {
		delay := initialDelay * time.Duration(math.Pow(2, float64(attempt)))
		if maxDelay > 0 && delay > maxDelay {
			return maxDelay
		}
		return delay
	}
}

// RetryOption configures Retry.
type RetryOption func(*retryConfig)

type retryConfig struct {
	backoff     BackoffStrategy
	shouldRetry func(err error, attempt int) bool
}

// WithBackoff waits between attempts according to b.
func WithBackoff(b BackoffStrategy) RetryOption {
	return func(c *retryConfig) {
		c.backoff = b
	}
}

// WithRetryIf retries only errors for which pred returns true.
func WithRetryIf(pred func(err error, attempt int) bool) RetryOption {
	return func(c *retryConfig) {
		c.shouldRetry = pred
	}
}

// Retry wraps op so that a failing call is retried up to maxRetries
// times. The last error is returned once retries run out. Waiting between
// attempts ends early when ctx is done, returning ctx.Err().
//
// op runs concurrently on several workers and must be safe for it.
func Retry[T, U any](ctx context.Context, maxRetries int, op Operation[T, U], opts ...RetryOption) Operation[T, U] {
	cfg := retryConfig{
		backoff:     ConstantBackoff(0),
		shouldRetry: func(error, int) bool { return true },
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	maxRetries = max(maxRetries, 0)

	return func(item T) (U, error) {
		var (
			result U
			err    error
		)
		for attempt := 0; ; attempt++ {
			result, err = op(item)
			if err == nil || attempt >= maxRetries || !cfg.shouldRetry(err, attempt) {
				return result, err
			}
			if err := sleep(ctx, cfg.backoff(attempt)); err != nil {
				return result, err
			}
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Fallback turns op into an infallible function: failing items are
// replaced by fallbackFn's result.
func Fallback[T, U any](op Operation[T, U], fallbackFn func(T, error) U) func(T) U {
	return func(item T) U {
		result, err := op(item)
		if err != nil {
			return fallbackFn(item, err)
		}
		return result
	}
}

// FallbackValue is Fallback with a constant replacement.
func FallbackValue[T, U any](op Operation[T, U], value U) func(T) U {
	return Fallback(op, func(T, error) U { return value })
}

// CircuitState represents the state of a circuit breaker.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// CircuitBreaker wraps an operation with the circuit breaker pattern. It is
// shared by all workers of a computation.
//   - failureThreshold: consecutive failures before opening the circuit
//   - resetTimeout: duration to wait before trying half-open state
//   - halfOpenSuccesses: successes in half-open before fully closing
type CircuitBreaker[T, U any] struct {
	operation         Operation[T, U]
	failureThreshold  int
	resetTimeout      time.Duration
	halfOpenSuccesses int
	now               func() time.Time

	mu          sync.Mutex
	state       CircuitState
	failures    int
	successes   int
	lastFailure time.Time
}

// NewCircuitBreaker creates a new circuit breaker with the given configuration.
// Non-positive values select 5 failures, 30 seconds and 1 success.
func NewCircuitBreaker[T, U any](
	operation Operation[T, U],
	failureThreshold int,
	resetTimeout time.Duration,
	halfOpenSuccesses int,
) *CircuitBreaker[T, U] {
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	if resetTimeout <= 0 {
		resetTimeout = 30 * time.Second
	}
	if halfOpenSuccesses <= 0 {
		halfOpenSuccesses = 1
	}

	return &CircuitBreaker[T, U]{
		operation:         operation,
		failureThreshold:  failureThreshold,
		resetTimeout:      resetTimeout,
		halfOpenSuccesses: halfOpenSuccesses,
		now:               time.Now,
	}
}

// Execute runs the operation through the circuit breaker. It has the
// Operation signature, so cb.Execute can be passed to TryMap directly.
func (cb *CircuitBreaker[T, U]) Execute(item T) (U, error) {
	cb.mu.Lock()
	if cb.state == CircuitOpen && cb.now().Sub(cb.lastFailure) >= cb.resetTimeout {
		cb.state = CircuitHalfOpen
		cb.successes = 0
	}
	if cb.state == CircuitOpen {
		cb.mu.Unlock()
		var zero U
		return zero, ErrCircuitOpen
	}
	cb.mu.Unlock()

	result, err := cb.operation(item)

	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		cb.failures++
		cb.lastFailure = cb.now()
		if cb.state == CircuitHalfOpen || cb.failures >= cb.failureThreshold {
			cb.state = CircuitOpen
		}
		return result, err
	}

	if cb.state == CircuitHalfOpen {
		cb.successes++
		if cb.successes >= cb.halfOpenSuccesses {
			cb.state = CircuitClosed
			cb.failures = 0
		}
	} else {
		cb.failures = 0
	}
	return result, nil
}

// State returns the current circuit state.
func (cb *CircuitBreaker[T, U]) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
