package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/leofalp/prosearch/core/parse"
	"github.com/leofalp/prosearch/providers/ai"
)

// PostProcessor turns raw model text into the step's value. An error consumes
// the attempt.
type PostProcessor[T any] func(raw string) (T, error)

// Raw returns the response unchanged.
func Raw() PostProcessor[string] {
	return func(raw string) (string, error) { return raw, nil }
}

// Fenced extracts the body of a "```<kind>" block, falling back to the
// trimmed response when the model skipped the fence.
func Fenced(kind parse.FenceKind) PostProcessor[string] {
	return func(raw string) (string, error) {
		if body, ok := parse.ExtractFenced(raw, kind); ok {
			return body, nil
		}
		return strings.TrimSpace(raw), nil
	}
}

// JSON decodes a "```json" block, or the whole response when there is none,
// into T. Decoding failures wrap ErrMalformedOutput.
func JSON[T any]() PostProcessor[T] {
	return func(raw string) (T, error) {
		body, ok := parse.ExtractFenced(raw, parse.FenceJSON)
		if !ok {
			body = raw
		}
		value, err := parse.ParseStringAs[T](body)
		if err != nil {
			return value, fmt.Errorf("%w: %w", ErrMalformedOutput, err)
		}
		return value, nil
	}
}

// Step is one templated model call.
type Step[T any] struct {
	Name      string
	Template  string
	Model     string
	Generator ai.Generator
	Post      PostProcessor[T]
}

// Run formats the template once and retries generation plus post-processing
// under the harness policy.
func (s Step[T]) Run(ctx context.Context, harness *Harness, values Values) Result[T] {
	prompt := FormatPrompt(s.Template, values)
	post := s.Post
	if post == nil {
		post = func(raw string) (T, error) { return parse.ParseStringAs[T](raw) }
	}
	return Do(ctx, harness, s.Name, func(ctx context.Context) (T, error) {
		raw, err := s.Generator.Complete(ctx, s.Model, prompt)
		if err != nil {
			var zero T
			return zero, err
		}
		return post(raw)
	})
}
