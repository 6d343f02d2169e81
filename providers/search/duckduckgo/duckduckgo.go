// Package duckduckgo adapts the DuckDuckGo Instant Answer API to
// search.Provider. The API is free and keyless; it answers with an abstract
// plus related topics, which are flattened into results. Topic snippets are
// delivered as HTML and converted to Markdown so links survive into prompts.
package duckduckgo

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/leofalp/prosearch/internal/utils"
	"github.com/leofalp/prosearch/providers/search"
)

const defaultEndpoint = "https://api.duckduckgo.com/"

// Provider queries DuckDuckGo.
type Provider struct {
	endpoint string
	client   *http.Client
}

var _ search.Provider = (*Provider)(nil)

// Option configures a Provider.
type Option func(*Provider)

func WithEndpoint(endpoint string) Option { return func(p *Provider) { p.endpoint = endpoint } }

func WithHTTPClient(client *http.Client) Option { return func(p *Provider) { p.client = client } }

// New creates a Provider.
func New(opts ...Option) *Provider {
	provider := &Provider{endpoint: defaultEndpoint, client: &http.Client{}}
	for _, opt := range opts {
		opt(provider)
	}
	return provider
}

type instantAnswer struct {
	Heading        string  `json:"Heading"`
	AbstractText   string  `json:"AbstractText"`
	AbstractSource string  `json:"AbstractSource"`
	AbstractURL    string  `json:"AbstractURL"`
	Results        []topic `json:"Results"`
	RelatedTopics  []topic `json:"RelatedTopics"`
}

// topic is either a leaf (FirstURL set) or a named group of leaves.
type topic struct {
	FirstURL string  `json:"FirstURL"`
	Result   string  `json:"Result"`
	Text     string  `json:"Text"`
	Name     string  `json:"Name"`
	Topics   []topic `json:"Topics"`
}

// Search returns the abstract first, then direct results, then related topics.
func (p *Provider) Search(ctx context.Context, query string, count int) ([]search.Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, search.ErrEmptyQuery
	}
	answer, err := utils.DoGetJSON[instantAnswer](ctx, p.client, p.endpoint, url.Values{
		"q":             {query},
		"format":        {"json"},
		"skip_disambig": {"1"},
	})
	if err != nil {
		return nil, fmt.Errorf("duckduckgo search: %w", err)
	}

	var results []search.Result
	if answer.AbstractURL != "" && answer.AbstractText != "" {
		title := answer.Heading
		if answer.AbstractSource != "" {
			title = answer.Heading + " - " + answer.AbstractSource
		}
		results = append(results, search.Result{Title: title, URL: answer.AbstractURL, Snippet: answer.AbstractText})
	}
	for _, leaf := range flatten(append(answer.Results, answer.RelatedTopics...)) {
		results = append(results, leaf.toResult())
	}
	return search.Limit(results, count), nil
}

func flatten(topics []topic) []topic {
	var leaves []topic
	for _, t := range topics {
		if t.FirstURL != "" {
			leaves = append(leaves, t)
			continue
		}
		leaves = append(leaves, flatten(t.Topics)...)
	}
	return leaves
}

func (t topic) toResult() search.Result {
	title := t.Text
	if head, _, found := strings.Cut(t.Text, " - "); found {
		title = head
	}
	snippet := t.Text
	if t.Result != "" {
		if markdown, err := htmltomarkdown.ConvertString(t.Result); err == nil && strings.TrimSpace(markdown) != "" {
			snippet = strings.TrimSpace(markdown)
		}
	}
	return search.Result{Title: title, URL: absoluteURL(t.FirstURL), Snippet: snippet}
}

func absoluteURL(path string) string {
	if strings.HasPrefix(path, "/") {
		return "https://duckduckgo.com" + path
	}
	return path
}
