// Package exa adapts Exa's neural search API to search.Provider.
package exa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/leofalp/prosearch/internal/utils"
	"github.com/leofalp/prosearch/providers/search"
)

// EnvAPIKey holds the Exa API key read by New.
const EnvAPIKey = "EXA_API_KEY"

const (
	defaultBaseURL = "https://api.exa.ai"
	defaultResults = 10
	maxResults     = 100
)

// Provider queries Exa.
type Provider struct {
	apiKey     string
	baseURL    string
	searchType string
	category   string
	client     *http.Client
}

var _ search.Provider = (*Provider)(nil)

// Option configures a Provider.
type Option func(*Provider)

func WithAPIKey(apiKey string) Option { return func(p *Provider) { p.apiKey = apiKey } }

func WithBaseURL(baseURL string) Option {
	return func(p *Provider) { p.baseURL = strings.TrimRight(baseURL, "/") }
}

func WithHTTPClient(client *http.Client) Option { return func(p *Provider) { p.client = client } }

// WithSearchType selects "auto" (default), "neural", "fast" or "deep".
func WithSearchType(searchType string) Option { return func(p *Provider) { p.searchType = searchType } }

// WithCategory focuses the search, e.g. "news" or "research paper".
func WithCategory(category string) Option { return func(p *Provider) { p.category = category } }

// New reads the API key from EXA_API_KEY unless overridden.
func New(opts ...Option) *Provider {
	provider := &Provider{
		apiKey:     os.Getenv(EnvAPIKey),
		baseURL:    defaultBaseURL,
		searchType: "auto",
		client:     &http.Client{},
	}
	for _, opt := range opts {
		opt(provider)
	}
	return provider
}

type highlightOptions struct {
	NumSentences     int `json:"numSentences"`
	HighlightsPerURL int `json:"highlightsPerUrl"`
}

type searchRequest struct {
	Query      string `json:"query"`
	Type       string `json:"type"`
	NumResults int    `json:"numResults"`
	Category   string `json:"category,omitempty"`
	Contents   struct {
		Highlights highlightOptions `json:"highlights"`
	} `json:"contents"`
}

type searchResponse struct {
	Results []struct {
		Title      string   `json:"title"`
		URL        string   `json:"url"`
		Text       string   `json:"text,omitempty"`
		Highlights []string `json:"highlights,omitempty"`
	} `json:"results"`
	RequestID string `json:"requestId,omitempty"`
}

// Search posts query to /search asking for sentence highlights, which become
// the result snippets.
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

	body := searchRequest{Query: query, Type: p.searchType, NumResults: count, Category: p.category}
	body.Contents.Highlights = highlightOptions{NumSentences: 3, HighlightsPerURL: 3}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("error marshaling body: %w", err)
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/search", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/json")
	request.Header.Set("x-api-key", p.apiKey)

	response, err := utils.DoJSON[searchResponse](ctx, p.client, request)
	if err != nil {
		return nil, fmt.Errorf("exa search: %w", err)
	}

	results := make([]search.Result, 0, len(response.Results))
	for _, hit := range response.Results {
		snippet := strings.Join(hit.Highlights, " ")
		if snippet == "" {
			snippet = excerpt(hit.Text)
		}
		results = append(results, search.Result{Title: hit.Title, URL: hit.URL, Snippet: snippet})
	}
	return search.Limit(results, count), nil
}

// snippetLimit bounds the page text used when Exa returns no highlights.
const snippetLimit = 500

func excerpt(text string) string {
	text = strings.TrimSpace(text)
	if len(text) <= snippetLimit {
		return text
	}
	return text[:snippetLimit] + "..."
}
