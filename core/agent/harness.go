package agent

import (
	"context"
	"time"

	"github.com/leofalp/prosearch/providers/observability"
)

// Harness holds the retry policy and observer shared by calls.
type Harness struct {
	policy   RetryPolicy
	observer observability.Provider
}

// Option configures a Harness.
type Option func(*Harness)

func WithRetryPolicy(policy RetryPolicy) Option {
	return func(h *Harness) { h.policy = policy }
}

func WithObserver(observer observability.Provider) Option {
	return func(h *Harness) { h.observer = observer }
}

// NewHarness returns a Harness using DefaultRetryPolicy unless overridden.
func NewHarness(opts ...Option) *Harness {
	harness := &Harness{policy: DefaultRetryPolicy()}
	for _, opt := range opts {
		opt(harness)
	}
	return harness
}

// Policy returns the harness retry policy.
func (h *Harness) Policy() RetryPolicy {
	return h.policy
}

// Result is the outcome of a call. Err is nil on success; otherwise Value is
// the zero value and Err is a *CallError.
type Result[T any] struct {
	Value    T
	Attempts int
	Err      *CallError
}

// OK reports whether the call produced a value.
func (r Result[T]) OK() bool {
	return r.Err == nil
}

// AttemptFunc performs one independent attempt.
type AttemptFunc[T any] func(ctx context.Context) (T, error)

// Do runs attempt until it succeeds, the policy is spent, a non-retryable
// error occurs or ctx is done. A nil harness uses DefaultRetryPolicy.
func Do[T any](ctx context.Context, harness *Harness, name string, attempt AttemptFunc[T]) Result[T] {
	if harness == nil {
		harness = NewHarness()
	}
	policy := harness.policy
	maxAttempts := policy.attempts()
	observer := observability.Resolve(ctx, harness.observer)

	var span observability.Span
	if observer != nil {
		ctx, span = observer.StartSpan(ctx, observability.SpanAgentCall,
			observability.String(observability.AttrCallName, name),
			observability.Int(observability.AttrCallMaxAttempts, maxAttempts),
		)
		defer span.End()
	}

	var lastErr error
	attempts := 0
	for attempts < maxAttempts {
		if attempts > 0 {
			if !sleep(ctx, policy.wait(attempts)) {
				lastErr = ctx.Err()
				break
			}
		}
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}

		attempts++
		value, err := attempt(ctx)
		if err == nil {
			if observer != nil {
				observer.Counter(observability.MetricAgentAttempts).Add(ctx, 1,
					observability.String(observability.AttrCallName, name),
					observability.String(observability.AttrCallOutcome, "ok"))
				observer.Debug(ctx, "call succeeded",
					observability.String(observability.AttrCallName, name),
					observability.Int(observability.AttrCallAttempt, attempts))
				span.SetStatus(observability.StatusOK, "")
			}
			return Result[T]{Value: value, Attempts: attempts}
		}

		lastErr = err
		if observer != nil {
			observer.Counter(observability.MetricAgentAttempts).Add(ctx, 1,
				observability.String(observability.AttrCallName, name),
				observability.String(observability.AttrCallOutcome, "failed"))
			observer.Warn(ctx, "call attempt failed",
				observability.String(observability.AttrCallName, name),
				observability.Int(observability.AttrCallAttempt, attempts),
				observability.Int(observability.AttrCallMaxAttempts, maxAttempts),
				observability.Error(err))
		}
		if !policy.retryable(err) {
			break
		}
	}

	callErr := &CallError{Name: name, Attempts: attempts, Last: lastErr}
	if observer != nil {
		observer.Counter(observability.MetricAgentExhausted).Add(ctx, 1,
			observability.String(observability.AttrCallName, name),
			observability.String(observability.AttrErrorKind, string(callErr.Kind())))
		observer.Error(ctx, "call gave up",
			observability.String(observability.AttrCallName, name),
			observability.Int(observability.AttrCallAttempt, attempts),
			observability.String(observability.AttrErrorKind, string(callErr.Kind())),
			observability.Error(lastErr))
		span.RecordError(callErr)
		span.SetStatus(observability.StatusError, callErr.Error())
	}
	return Result[T]{Attempts: attempts, Err: callErr}
}

// sleep waits d and reports false if ctx finished first.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
