package agent

import (
	"errors"
	"fmt"
)

var (
	// ErrRetryExhausted is wrapped by every CallError.
	ErrRetryExhausted = errors.New("agent: attempts exhausted")
	// ErrMalformedOutput marks a response the post-processor could not use.
	ErrMalformedOutput = errors.New("agent: malformed structured output")
)

// ErrorKind classifies why a call produced no value.
type ErrorKind string

const (
	KindTransientFailure ErrorKind = "transient_call_failure"
	KindMalformedOutput  ErrorKind = "malformed_structured_output"
)

// CallError describes a call that never produced a usable value.
type CallError struct {
	Name     string
	Attempts int
	Last     error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("%s: %s after %d attempt(s): %v", e.Name, ErrRetryExhausted.Error(), e.Attempts, e.Last)
}

// Unwrap exposes both ErrRetryExhausted and the last attempt's error.
func (e *CallError) Unwrap() []error {
	return []error{ErrRetryExhausted, e.Last}
}

// Kind reports whether the last attempt failed in transport or in parsing.
func (e *CallError) Kind() ErrorKind {
	if errors.Is(e.Last, ErrMalformedOutput) {
		return KindMalformedOutput
	}
	return KindTransientFailure
}
