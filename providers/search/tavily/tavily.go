// Package tavily adapts the Tavily search API to search.Provider.
package tavily

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/leofalp/prosearch/internal/utils"
	"github.com/leofalp/prosearch/providers/search"
)

// EnvAPIKey holds the Tavily API key read by New.
const EnvAPIKey = "TAVILY_API_KEY"

const (
	defaultBaseURL = "https://api.tavily.com"
	defaultResults = 10
	maxResults     = 20
)

// Provider queries Tavily.
type Provider struct {
	apiKey      string
	baseURL     string
	searchDepth string
	client      *http.Client
}

var _ search.Provider = (*Provider)(nil)

// Option configures a Provider.
type Option func(*Provider)

func WithAPIKey(apiKey string) Option { return func(p *Provider) { p.apiKey = apiKey } }

func WithBaseURL(baseURL string) Option {
	return func(p *Provider) { p.baseURL = strings.TrimRight(baseURL, "/") }
}

func WithHTTPClient(client *http.Client) Option { return func(p *Provider) { p.client = client } }

// WithSearchDepth selects "basic" (default) or "advanced".
func WithSearchDepth(depth string) Option { return func(p *Provider) { p.searchDepth = depth } }

// New reads the API key from TAVILY_API_KEY unless overridden.
func New(opts ...Option) *Provider {
	provider := &Provider{
		apiKey:      os.Getenv(EnvAPIKey),
		baseURL:     defaultBaseURL,
		searchDepth: "basic",
		client:      &http.Client{},
	}
	for _, opt := range opts {
		opt(provider)
	}
	return provider
}

type searchRequest struct {
	APIKey      string `json:"api_key"`
	Query       string `json:"query"`
	SearchDepth string `json:"search_depth"`
	MaxResults  int    `json:"max_results"`
}

type searchResponse struct {
	Query   string `json:"query"`
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
	ResponseTime float64 `json:"response_time"`
}

// Search posts query to /search.
func (p *Provider) Search(ctx context.Context, query string, count int) ([]search.Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, search.ErrEmptyQuery
	}
	if p.apiKey == "" {
		return nil, fmt.Errorf("%s environment variable is not set", EnvAPIKey)
	}
	switch {
	case count <= 0:
		count = defaultResults
	case count > maxResults:
		count = maxResults
	}

	response, err := utils.DoPostJSON[searchResponse](ctx, p.client, p.baseURL+"/search", "", searchRequest{
		APIKey:      p.apiKey,
		Query:       query,
		SearchDepth: p.searchDepth,
		MaxResults:  count,
	})
	if err != nil {
		return nil, fmt.Errorf("tavily search: %w", err)
	}

	results := make([]search.Result, 0, len(response.Results))
	for _, hit := range response.Results {
		results = append(results, search.Result{Title: hit.Title, URL: hit.URL, Snippet: hit.Content})
	}
	return search.Limit(results, count), nil
}
