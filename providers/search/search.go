// Package search defines the web search contract used by the research
// workflow, plus decorators that add throttling to any implementation.
//
// Adapters live in sub-packages: tavily, duckduckgo and the rediscache
// decorator.
package search

import (
	"context"
	"errors"
)

// ErrEmptyQuery is returned by adapters for a blank query.
var ErrEmptyQuery = errors.New("search: empty query")

// Result is one hit returned by a search provider.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Provider runs a web search and returns at most count results.
type Provider interface {
	Search(ctx context.Context, query string, count int) ([]Result, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, query string, count int) ([]Result, error)

func (f ProviderFunc) Search(ctx context.Context, query string, count int) ([]Result, error) {
	return f(ctx, query, count)
}

// URLs returns the URL of every result, in order.
func URLs(results []Result) []string {
	urls := make([]string, len(results))
	for i, result := range results {
		urls[i] = result.URL
	}
	return urls
}

// Limit truncates results to count when count is positive.
func Limit(results []Result, count int) []Result {
	if count > 0 && len(results) > count {
		return results[:count]
	}
	return results
}
