package retry

import (
	"context"
	"slices"
	"time"
)

// Policy controls how an operation is retried. It is a value object: build
// one per call site and pass it to Execute. The zero value attempts the
// operation exactly once.
type Policy struct {
	// MaxRetries is the number of retries allowed after the initial attempt,
	// so the operation runs at most MaxRetries+1 times. Zero means a single
	// attempt with no retry.
	MaxRetries int

	// InitialDelay is the sleep before the first retry.
	InitialDelay time.Duration

	// BackoffMultiplier scales the delay after every retry. Values at or
	// below zero are treated as 1 (constant delay).
	BackoffMultiplier float64

	// RetryOn lists the failure kinds eligible for retry. Empty means every
	// failure is retryable. When the list is non-empty, a failure whose kind
	// is not in it (including unclassified errors) stops the loop
	// immediately without sleeping.
	RetryOn []Kind
}

func (p Policy) retryable(err error) bool {
	if len(p.RetryOn) == 0 {
		return true
	}
	return slices.Contains(p.RetryOn, KindOf(err))
}

// Disposition says how an Execute call ended.
type Disposition int

const (
	// Succeeded means an attempt returned without error.
	Succeeded Disposition = iota
	// Exhausted means every allowed attempt failed.
	Exhausted
	// NonRetryable means an attempt failed with a kind outside the policy's
	// retryable set.
	NonRetryable
	// Canceled means the context ended before the operation could succeed.
	Canceled
)

func (d Disposition) String() string {
	switch d {
	case Succeeded:
		return "succeeded"
	case Exhausted:
		return "exhausted"
	case NonRetryable:
		return "non-retryable"
	case Canceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Outcome is the result of executing an operation under a retry policy.
// On failure, Err is the error from the last attempt, verbatim; it is never
// wrapped, so callers can inspect it with errors.Is/As directly.
type Outcome[T any] struct {
	Value       T
	Err         error
	Attempts    int
	Disposition Disposition
}

// Success reports whether the operation eventually returned without error.
func (o Outcome[T]) Success() bool {
	return o.Disposition == Succeeded
}

// Operation is a fallible unit of work. It should honor ctx cancellation if
// it blocks.
type Operation[T any] func(ctx context.Context) (T, error)

// AttemptInfo describes one finished attempt, delivered to observers.
type AttemptInfo struct {
	// Attempt is the 1-based attempt number.
	Attempt int
	// Err is the attempt's error, nil on success.
	Err error
	// NextDelay is the sleep that will precede the next attempt, zero when
	// no attempt follows.
	NextDelay time.Duration
	// WillRetry is true when another attempt follows this one.
	WillRetry bool
}

// Logger matches the framework package's debug logger so per-test output can
// capture retry activity.
type Logger interface {
	Printf(message string, args ...any)
}

// Executor runs operations under retry policies. It holds no per-call state,
// so one Executor may be shared by any number of concurrent Execute calls.
// The zero value is ready to use.
type Executor struct {
	// Logger receives one line per failed attempt. Nil disables logging.
	Logger Logger

	// OnAttempt, when set, is invoked after every attempt, successful or not.
	OnAttempt func(AttemptInfo)

	// Sleep replaces the wait between attempts. Tests substitute a recorder
	// here to observe exact delays without waiting. The function must return
	// promptly with ctx.Err() when ctx is canceled. Nil selects a real,
	// cancellation-aware sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

var defaultExecutor Executor

// Execute runs op under the given policy. The first attempt starts
// immediately; before each retry the executor sleeps for the current delay,
// then multiplies it by the policy's backoff multiplier. The outcome carries
// the total number of attempts made and, on failure, the last error exactly
// as the operation returned it.
func Execute[T any](ctx context.Context, ex *Executor, policy Policy, op Operation[T]) Outcome[T] {
	if ex == nil {
		ex = &defaultExecutor
	}
	sleep := ex.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	multiplier := policy.BackoffMultiplier
	if multiplier <= 0 {
		multiplier = 1
	}

	delay := policy.InitialDelay
	attempts := 0
	for {
		if err := ctx.Err(); err != nil {
			return Outcome[T]{Err: err, Attempts: attempts, Disposition: Canceled}
		}

		attempts++
		value, err := op(ctx)
		if err == nil {
			ex.observe(AttemptInfo{Attempt: attempts})
			return Outcome[T]{Value: value, Attempts: attempts, Disposition: Succeeded}
		}

		if !policy.retryable(err) {
			ex.logf("attempt %d failed with non-retryable error: %s", attempts, err)
			ex.observe(AttemptInfo{Attempt: attempts, Err: err})
			return Outcome[T]{Err: err, Attempts: attempts, Disposition: NonRetryable}
		}
		if attempts > policy.MaxRetries {
			ex.logf("attempt %d failed, no retries left: %s", attempts, err)
			ex.observe(AttemptInfo{Attempt: attempts, Err: err})
			return Outcome[T]{Err: err, Attempts: attempts, Disposition: Exhausted}
		}

		ex.logf("attempt %d failed, retrying in %s: %s", attempts, delay, err)
		ex.observe(AttemptInfo{Attempt: attempts, Err: err, NextDelay: delay, WillRetry: true})
		if sleepErr := sleep(ctx, delay); sleepErr != nil {
			return Outcome[T]{Err: err, Attempts: attempts, Disposition: Canceled}
		}
		delay = time.Duration(float64(delay) * multiplier)
	}
}

// Do is Execute for operations that produce no value.
func Do(ctx context.Context, ex *Executor, policy Policy, op func(ctx context.Context) error) Outcome[struct{}] {
	return Execute(ctx, ex, policy, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
}

func (ex *Executor) logf(format string, args ...any) {
	if ex.Logger != nil {
		ex.Logger.Printf(format, args...)
	}
}

func (ex *Executor) observe(info AttemptInfo) {
	if ex.OnAttempt != nil {
		ex.OnAttempt(info)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
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
