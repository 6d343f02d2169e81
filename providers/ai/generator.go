package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/leofalp/prosearch/providers/observability"
)

// DefaultSystemPrompt is sent with every single-turn completion.
const DefaultSystemPrompt = "You are a helpful assistant."

// ErrEmptyCompletion is returned when the model answered with no content.
var ErrEmptyCompletion = errors.New("ai: empty completion")

// Generator completes a single prompt with the named model.
type Generator interface {
	Complete(ctx context.Context, model, prompt string) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, model, prompt string) (string, error)

func (f GeneratorFunc) Complete(ctx context.Context, model, prompt string) (string, error) {
	return f(ctx, model, prompt)
}

// GeneratorOption configures NewGenerator.
type GeneratorOption func(*ProviderGenerator)

// WithSystemPrompt replaces DefaultSystemPrompt.
func WithSystemPrompt(prompt string) GeneratorOption {
	return func(g *ProviderGenerator) { g.systemPrompt = prompt }
}

// WithGenerationConfig applies config to every request.
func WithGenerationConfig(config GenerationConfig) GeneratorOption {
	return func(g *ProviderGenerator) { g.config = &config }
}

// WithObserver reports requests through observer.
func WithObserver(observer observability.Provider) GeneratorOption {
	return func(g *ProviderGenerator) { g.observer = observer }
}

// WithRateLimit makes every call wait on limiter first.
func WithRateLimit(limiter *rate.Limiter) GeneratorOption {
	return func(g *ProviderGenerator) { g.limiter = limiter }
}

// ProviderGenerator turns a chat Provider into a Generator: each prompt becomes
// one user message after the system prompt.
type ProviderGenerator struct {
	provider     Provider
	systemPrompt string
	config       *GenerationConfig
	observer     observability.Provider
	limiter      *rate.Limiter
}

var _ Generator = (*ProviderGenerator)(nil)

// NewGenerator wraps provider.
func NewGenerator(provider Provider, opts ...GeneratorOption) *ProviderGenerator {
	generator := &ProviderGenerator{provider: provider, systemPrompt: DefaultSystemPrompt}
	for _, opt := range opts {
		opt(generator)
	}
	return generator
}

// Complete sends prompt to model and returns the response content.
func (g *ProviderGenerator) Complete(ctx context.Context, model, prompt string) (string, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limiter: %w", err)
		}
	}

	observer := observability.Resolve(ctx, g.observer)
	attrs := []observability.Attribute{
		observability.String(observability.AttrLLMProvider, g.provider.Name()),
		observability.String(observability.AttrLLMModel, model),
	}
	var span observability.Span
	if observer != nil {
		ctx, span = observer.StartSpan(ctx, observability.SpanLLMRequest, attrs...)
		defer span.End()
	}

	started := time.Now()
	response, err := g.provider.SendMessage(ctx, ChatRequest{
		Model:            model,
		SystemPrompt:     g.systemPrompt,
		Messages:         []Message{{Role: RoleUser, Content: prompt}},
		GenerationConfig: g.config,
	})
	if err == nil && (response == nil || response.Content == "") {
		err = ErrEmptyCompletion
	}

	if observer != nil {
		observer.Histogram(observability.MetricLLMDuration).Record(ctx, time.Since(started).Seconds(), attrs...)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(observability.StatusError, err.Error())
		} else {
			if response.Usage != nil {
				span.SetAttributes(
					observability.Int(observability.AttrLLMTokensIn, response.Usage.PromptTokens),
					observability.Int(observability.AttrLLMTokensOut, response.Usage.CompletionTokens),
				)
			}
			span.SetStatus(observability.StatusOK, "")
		}
	}

	if err != nil {
		return "", err
	}
	return response.Content, nil
}
