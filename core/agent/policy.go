package agent

import (
	"math"
	"time"
)

// DefaultMaxAttempts is the attempt budget of DefaultRetryPolicy.
const DefaultMaxAttempts = 10

// Backoff returns the wait before the given retry (1 for the first retry).
type Backoff func(retry int) time.Duration

// RetryPolicy bounds how often a call is attempted.
type RetryPolicy struct {
	// MaxAttempts counts the first attempt. Values below 1 mean one attempt.
	MaxAttempts int
	// Backoff defaults to NoBackoff.
	Backoff Backoff
	// Retryable reports whether an error deserves another attempt. nil retries
	// every error.
	Retryable func(error) bool
}

// DefaultRetryPolicy makes up to ten immediate attempts.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: DefaultMaxAttempts, Backoff: NoBackoff}
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

func (p RetryPolicy) wait(retry int) time.Duration {
	if p.Backoff == nil {
		return 0
	}
	return p.Backoff(retry)
}

func (p RetryPolicy) retryable(err error) bool {
	return p.Retryable == nil || p.Retryable(err)
}

// NoBackoff retries immediately.
func NoBackoff(int) time.Duration { return 0 }

// ConstantBackoff waits d before every retry.
func ConstantBackoff(d time.Duration) Backoff {
	return func(int) time.Duration { return d }
}

// ExponentialBackoff doubles initial on every retry, capped at limit.
func ExponentialBackoff(initial, limit time.Duration) Backoff {
	return func(retry int) time.Duration {
		if retry < 1 {
			retry = 1
		}
		wait := float64(initial) * math.Pow(2, float64(retry-1))
		if limit > 0 && wait > float64(limit) {
			return limit
		}
		return time.Duration(wait)
	}
}
