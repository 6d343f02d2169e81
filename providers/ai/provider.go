package ai

import (
	"context"
	"net/http"
)

// Provider sends chat requests to a model API.
type Provider interface {
	// SendMessage returns the completed response, or an error when the call,
	// the context or response decoding fails.
	SendMessage(ctx context.Context, request ChatRequest) (*ChatResponse, error)

	// Name identifies the provider in logs and metrics.
	Name() string

	WithAPIKey(apiKey string) Provider
	WithBaseURL(baseURL string) Provider
	WithHttpClient(httpClient *http.Client) Provider
}
