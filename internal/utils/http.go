package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/leofalp/prosearch/providers/observability"
)

// maxErrorBody bounds how much of a failed response ends up in an error message.
const maxErrorBody = 500

// StatusError reports a non-2xx response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("non-2xx status %d: %s", e.StatusCode, TruncateString(e.Body, maxErrorBody))
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == code
}

// DoPostJSON sends body as JSON and decodes a JSON response into Out. A
// non-empty bearer token is sent in the Authorization header.
func DoPostJSON[Out any](ctx context.Context, client *http.Client, endpoint, bearer string, body any) (*Out, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("error marshaling body: %w", err)
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		request.Header.Set("Authorization", "Bearer "+bearer)
	}
	return DoJSON[Out](ctx, client, request)
}

// DoGetJSON issues a GET with the given query parameters and decodes the JSON response.
func DoGetJSON[Out any](ctx context.Context, client *http.Client, endpoint string, query url.Values) (*Out, error) {
	target, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("error parsing url: %w", err)
	}
	if len(query) > 0 {
		target.RawQuery = query.Encode()
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	request.Header.Set("Accept", "application/json")
	return DoJSON[Out](ctx, client, request)
}

// DoJSON sends a prepared request and decodes the JSON response into Out.
// Callers that need custom headers build the request themselves.
func DoJSON[Out any](ctx context.Context, client *http.Client, request *http.Request) (*Out, error) {
	if client == nil {
		client = http.DefaultClient
	}
	span := observability.SpanFromContext(ctx)

	started := time.Now()
	response, err := client.Do(request)
	elapsed := time.Since(started)
	if err != nil {
		if span != nil {
			span.AddEvent("http.request.error", observability.Error(err), observability.Duration(observability.AttrDuration, elapsed))
		}
		return nil, fmt.Errorf("error sending request: %w", err)
	}
	defer CloseWithLog(ctx, response.Body, request.URL.Host)

	raw, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}
	if span != nil {
		span.AddEvent("http.response.received",
			observability.String(observability.AttrHTTPMethod, request.Method),
			observability.Int(observability.AttrHTTPStatusCode, response.StatusCode),
			observability.Duration(observability.AttrDuration, elapsed),
		)
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: response.StatusCode, Body: string(raw)}
	}

	var out Out
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("error unmarshaling response (status %d): %w\nResponse preview: %s", response.StatusCode, err, TruncateString(string(raw), maxErrorBody))
	}
	return &out, nil
}

// CloseWithLog closes c and reports a failure through the context's observer.
func CloseWithLog(ctx context.Context, c io.Closer, what string) {
	if err := c.Close(); err != nil {
		if observer := observability.ObserverFromContext(ctx); observer != nil {
			observer.Warn(ctx, "failed to close "+what, observability.Error(err))
		}
	}
}
