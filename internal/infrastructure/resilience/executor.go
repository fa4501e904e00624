package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/kirillkom/writing-assistant/internal/core/domain"
)

// RetryEvent describes a failed attempt that will be retried after Delay.
type RetryEvent struct {
	Operation string
	Attempt   int
	Delay     time.Duration
	Err       *domain.APIError
}

type ExecuteOption func(*executeOptions)

type executeOptions struct {
	onRetry func(RetryEvent)
}

// OnRetry registers a hook called before each backoff wait.
func OnRetry(fn func(RetryEvent)) ExecuteOption {
	return func(o *executeOptions) {
		o.onRetry = fn
	}
}

type Option func(*Executor)

// WithSleeper replaces the backoff wait, mainly for tests.
func WithSleeper(sleep func(context.Context, time.Duration) error) Option {
	return func(e *Executor) {
		if sleep != nil {
			e.sleep = sleep
		}
	}
}

// Executor runs an operation with a per-attempt timeout, exponential backoff
// between retryable failures, optional throttling, and a circuit breaker per
// operation name.
//
// A timed-out attempt is abandoned: its context is cancelled and its result is
// discarded even if the operation ignores the cancellation and finishes later.
type Executor struct {
	cfg     Config
	sleep   func(context.Context, time.Duration) error
	limiter *rate.Limiter

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[any]
}

func NewExecutor(cfg Config, opts ...Option) *Executor {
	e := &Executor{
		cfg:      cfg.normalize(),
		sleep:    sleepContext,
		breakers: make(map[string]*gobreaker.CircuitBreaker[any]),
	}
	if e.cfg.RateLimitRPS > 0 {
		e.limiter = rate.NewLimiter(rate.Limit(e.cfg.RateLimitRPS), e.cfg.RateLimitBurst)
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Executor) Config() Config {
	return e.cfg
}

// Execute runs fn until it succeeds, fails with a non-retryable error, or
// MaxRetries+1 attempts are used. Failures are returned as *domain.APIError.
func (e *Executor) Execute(
	ctx context.Context,
	operation string,
	fn func(context.Context) error,
	classifier ErrorClassifier,
	opts ...ExecuteOption,
) error {
	if fn == nil {
		return fmt.Errorf("resilience: operation callback is nil")
	}
	_, err := Do(ctx, e, operation, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	}, classifier, opts...)
	return err
}

// Do is Execute for operations that produce a value.
func Do[T any](
	ctx context.Context,
	e *Executor,
	operation string,
	fn func(context.Context) (T, error),
	classifier ErrorClassifier,
	opts ...ExecuteOption,
) (T, error) {
	var zero T
	if fn == nil {
		return zero, fmt.Errorf("resilience: operation callback is nil")
	}
	op := strings.TrimSpace(operation)
	if op == "" {
		op = "unknown"
	}
	if classifier == nil {
		classifier = defaultClassifier
	}
	var options executeOptions
	for _, opt := range opts {
		opt(&options)
	}

	if !e.cfg.BreakerEnabled {
		return executeWithRetry(ctx, e, op, fn, classifier, options)
	}

	breaker := e.circuitBreaker(op, classifier)
	out, err := breaker.Execute(func() (any, error) {
		return executeWithRetry(ctx, e, op, fn, classifier, options)
	})
	if err != nil {
		return zero, classify(classifier, err)
	}
	value, _ := out.(T)
	return value, nil
}

func executeWithRetry[T any](
	ctx context.Context,
	e *Executor,
	operation string,
	fn func(context.Context) (T, error),
	classifier ErrorClassifier,
	options executeOptions,
) (T, error) {
	var zero T
	maxAttempts := e.cfg.MaxRetries + 1

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, classify(classifier, err)
		}
		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				return zero, classify(classifier, err)
			}
		}

		value, err := runAttempt(ctx, e.cfg.AttemptTimeout, fn)
		if err == nil {
			return value, nil
		}

		apiErr := classify(classifier, err)
		if !apiErr.Retryable || attempt == maxAttempts-1 {
			return zero, apiErr
		}

		wait := e.cfg.Backoff(attempt)
		slog.Warn("retry_attempt",
			"operation", operation,
			"attempt", attempt+1,
			"max_attempts", maxAttempts,
			"backoff_ms", float64(wait.Microseconds())/1000.0,
			"code", string(apiErr.Code),
			"error", err,
		)
		if options.onRetry != nil {
			options.onRetry(RetryEvent{
				Operation: operation,
				Attempt:   attempt,
				Delay:     wait,
				Err:       apiErr,
			})
		}

		if err := e.sleep(ctx, wait); err != nil {
			return zero, classify(classifier, err)
		}
	}

	return zero, defaultClassifier(fmt.Errorf("resilience: no attempts made for %s", operation))
}

func runAttempt[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)
	go func() {
		value, err := fn(attemptCtx)
		done <- result{value: value, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil && ctx.Err() == nil && attemptCtx.Err() == context.DeadlineExceeded {
			return res.value, &attemptTimeoutError{timeout: timeout}
		}
		return res.value, res.err
	case <-attemptCtx.Done():
		var zero T
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		return zero, &attemptTimeoutError{timeout: timeout}
	}
}

func (e *Executor) circuitBreaker(operation string, classifier ErrorClassifier) *gobreaker.CircuitBreaker[any] {
	e.mu.Lock()
	defer e.mu.Unlock()

	if breaker, ok := e.breakers[operation]; ok {
		return breaker
	}

	settings := gobreaker.Settings{
		Name:        operation,
		MaxRequests: e.cfg.BreakerHalfOpenMaxCalls,
		Timeout:     e.cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < e.cfg.BreakerMinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= e.cfg.BreakerFailureRatio
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			return !classify(classifier, err).Retryable
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			slog.Warn("circuit_breaker_state_change", "operation", name, "from", from.String(), "to", to.String())
		},
	}

	breaker := gobreaker.NewCircuitBreaker[any](settings)
	e.breakers[operation] = breaker
	return breaker
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
