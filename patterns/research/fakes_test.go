package research

import (
	"context"
	"fmt"
	"math/rand/v2"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/leofalp/prosearch/core/agent"
	"github.com/leofalp/prosearch/providers/search"
)

// testPrompts start with a keyword so the fake generator can tell calls apart.
var testPrompts = Prompts{
	Plan:        "PLAN {plan}\n{research_topic}",
	PlanReview:  "REVIEW {feedback}",
	QueryWriter: "QUERY {current_date}|{number_queries}\n{research_topic}",
	WebSearcher: "SUMMARIZE {query}\n{web_search_result}",
	Reflection:  "REFLECT {number_queries}\n{summaries}",
	Answer:      "ANSWER {research_topic}\n{summaries}",
}

var shortIDPattern = regexp.MustCompile(`https://search\.com/id/\d+-\d+`)

// responder answers the n-th (1-based) call of kind.
type responder func(kind, prompt string, n int) (string, error)

type fakeGenerator struct {
	mu      sync.Mutex
	prompts map[string][]string
	models  map[string][]string
	respond responder
}

func newFakeGenerator(respond responder) *fakeGenerator {
	return &fakeGenerator{
		prompts: make(map[string][]string),
		models:  make(map[string][]string),
		respond: respond,
	}
}

func (f *fakeGenerator) Complete(ctx context.Context, model, prompt string) (string, error) {
	kind, _, _ := strings.Cut(prompt, " ")
	f.mu.Lock()
	f.prompts[kind] = append(f.prompts[kind], prompt)
	f.models[kind] = append(f.models[kind], model)
	n := len(f.prompts[kind])
	f.mu.Unlock()
	return f.respond(kind, prompt, n)
}

func (f *fakeGenerator) calls(kind string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts[kind])
}

func (f *fakeGenerator) prompt(kind string, n int) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.prompts[kind][n-1]
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

// defaultResponder plays a well-behaved model: two useful queries out of
// three, summaries citing their first source, reflection always asking for
// more and an answer citing every short id it was shown.
func defaultResponder(kind, prompt string, n int) (string, error) {
	switch kind {
	case "PLAN":
		return fmt.Sprintf("Here you go:\n```markdown\n1. Survey the field (draft %d)\n```", n), nil
	case "REVIEW":
		return `{"is_satisfied": true, "rationale": "approved"}`, nil
	case "QUERY":
		return "```json\n{\"rationale\": \"cover it\", \"query\": [\"alpha\", \"beta\", \"gamma\"]}\n```", nil
	case "SUMMARIZE":
		query := firstLine(strings.TrimPrefix(prompt, "SUMMARIZE "))
		return fmt.Sprintf("```text\n%s is covered [src](%s)\n```", query, shortIDPattern.FindString(prompt)), nil
	case "REFLECT":
		return `{"is_sufficient": false, "knowledge_gap": "depth", "follow_up_queries": ["delta", "epsilon", "zeta"]}`, nil
	case "ANSWER":
		return "# Report\n" + strings.Join(shortIDPattern.FindAllString(prompt, -1), "\n"), nil
	}
	return "", fmt.Errorf("unexpected prompt %q", kind)
}

// withOverride replaces the answer for one kind of call.
func withOverride(kind string, override responder) responder {
	return func(k, prompt string, n int) (string, error) {
		if k == kind {
			return override(k, prompt, n)
		}
		return defaultResponder(k, prompt, n)
	}
}

func fakeResults(query string) []search.Result {
	slug := strings.ReplaceAll(query, " ", "-")
	return []search.Result{
		{Title: query + " A", URL: "https://example.com/" + slug + "/a", Snippet: "about " + query},
		{Title: query + " B", URL: "https://example.com/" + slug + "/b", Snippet: "more on " + query},
		{Title: query + " A again", URL: "https://example.com/" + slug + "/a", Snippet: "repeat"},
	}
}

type fakeSearch struct {
	mu      sync.Mutex
	queries []string
	fail    bool
}

func (f *fakeSearch) Search(ctx context.Context, query string, count int) ([]search.Result, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()
	// jitter so branches finish out of order
	time.Sleep(time.Duration(rand.IntN(3)) * time.Millisecond)
	if f.fail {
		return nil, fmt.Errorf("search backend unavailable")
	}
	return search.Limit(fakeResults(query), count), nil
}

func (f *fakeSearch) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

var fixedDate = time.Date(2025, time.March, 5, 10, 0, 0, 0, time.UTC)

func newTestWorkflow(t *testing.T, generator *fakeGenerator, searcher search.Provider, opts ...Option) *Workflow {
	t.Helper()
	config := DefaultConfiguration()
	config.NumberOfInitialQueries = 2
	base := []Option{
		WithConfiguration(config),
		WithPrompts(testPrompts),
		WithClock(func() time.Time { return fixedDate }),
		WithRetryPolicy(agent.RetryPolicy{MaxAttempts: 3}),
	}
	workflow, err := New(generator, searcher, append(base, opts...)...)
	require.NoError(t, err)
	return workflow
}
