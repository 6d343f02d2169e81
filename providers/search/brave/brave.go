// Package brave adapts the Brave Search web endpoint to search.Provider.
package brave

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/leofalp/prosearch/internal/utils"
	"github.com/leofalp/prosearch/providers/search"
)

// EnvAPIKey holds the subscription token read by New.
const EnvAPIKey = "BRAVE_SEARCH_API_KEY"

const (
	defaultBaseURL = "https://api.search.brave.com/res/v1"
	defaultResults = 10
	maxResults     = 20
)

// Provider queries Brave Search.
type Provider struct {
	apiKey     string
	baseURL    string
	country    string
	safeSearch string
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

// WithCountry restricts results to a two-letter country code such as "US".
func WithCountry(country string) Option { return func(p *Provider) { p.country = country } }

// WithSafeSearch sets "off", "moderate" or "strict".
func WithSafeSearch(level string) Option { return func(p *Provider) { p.safeSearch = level } }

// New reads the token from BRAVE_SEARCH_API_KEY unless overridden.
func New(opts ...Option) *Provider {
	provider := &Provider{
		apiKey:  os.Getenv(EnvAPIKey),
		baseURL: defaultBaseURL,
		client:  &http.Client{},
	}
	for _, opt := range opts {
		opt(provider)
	}
	return provider
}

type webResponse struct {
	Web *struct {
		Results []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Description string `json:"description"`
			Age         string `json:"age,omitempty"`
		} `json:"results"`
	} `json:"web,omitempty"`
}

// Search issues GET /web/search restricted to web results.
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

	params := url.Values{}
	params.Set("q", query)
	params.Set("count", strconv.Itoa(count))
	params.Set("result_filter", "web")
	if p.country != "" {
		params.Set("country", p.country)
	}
	if p.safeSearch != "" {
		params.Set("safesearch", p.safeSearch)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/web/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	request.Header.Set("Accept", "application/json")
	request.Header.Set("X-Subscription-Token", p.apiKey)

	response, err := utils.DoJSON[webResponse](ctx, p.client, request)
	if err != nil {
		return nil, fmt.Errorf("brave search: %w", err)
	}
	if response.Web == nil {
		return nil, nil
	}

	results := make([]search.Result, 0, len(response.Web.Results))
	for _, hit := range response.Web.Results {
		results = append(results, search.Result{Title: hit.Title, URL: hit.URL, Snippet: stripHighlights(hit.Description)})
	}
	return search.Limit(results, count), nil
}

var highlightTags = strings.NewReplacer("<strong>", "", "</strong>", "", "<em>", "", "</em>", "", "<b>", "", "</b>", "")

// stripHighlights drops the emphasis markup Brave wraps around matched terms.
func stripHighlights(s string) string {
	return highlightTags.Replace(s)
}
