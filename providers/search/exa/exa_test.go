package exa

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leofalp/prosearch/providers/search"
)

func TestSearch_UsesHighlightsAsSnippets(testCase *testing.T) {
	var received searchRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(testCase, "/search", r.URL.Path)
		assert.Equal(testCase, "exa-key", r.Header.Get("x-api-key"))
		assert.NoError(testCase, json.NewDecoder(r.Body).Decode(&received))
		_, _ = w.Write([]byte(`{"requestId":"r1","results":[
			{"title":"Paper","url":"https://arxiv.org/abs/1","highlights":["First point.","Second point."]},
			{"title":"Blog","url":"https://blog.example/post","text":"  full page text  "}
		]}`))
	}))
	defer server.Close()

	provider := New(WithAPIKey("exa-key"), WithBaseURL(server.URL), WithHTTPClient(server.Client()), WithCategory("research paper"))
	results, err := provider.Search(context.Background(), "transformers", 5)

	require.NoError(testCase, err)
	assert.Equal(testCase, []search.Result{
		{Title: "Paper", URL: "https://arxiv.org/abs/1", Snippet: "First point. Second point."},
		{Title: "Blog", URL: "https://blog.example/post", Snippet: "full page text"},
	}, results)
	assert.Equal(testCase, "transformers", received.Query)
	assert.Equal(testCase, "auto", received.Type)
	assert.Equal(testCase, 5, received.NumResults)
	assert.Equal(testCase, "research paper", received.Category)
	assert.Equal(testCase, 3, received.Contents.Highlights.NumSentences)
}

func TestSearch_ClampsCount(testCase *testing.T) {
	var received searchRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(testCase, json.NewDecoder(r.Body).Decode(&received))
		_, _ = w.Write([]byte(`{"results":[]}`))
	}))
	defer server.Close()

	provider := New(WithAPIKey("k"), WithBaseURL(server.URL), WithSearchType("neural"))
	_, err := provider.Search(context.Background(), "q", 1000)
	require.NoError(testCase, err)
	assert.Equal(testCase, maxResults, received.NumResults)
	assert.Equal(testCase, "neural", received.Type)

	_, err = provider.Search(context.Background(), "q", 0)
	require.NoError(testCase, err)
	assert.Equal(testCase, defaultResults, received.NumResults)
}

func TestSearch_Errors(testCase *testing.T) {
	testCase.Setenv(EnvAPIKey, "")

	_, err := New().Search(context.Background(), "q", 1)
	require.Error(testCase, err)

	_, err = New(WithAPIKey("k")).Search(context.Background(), " ", 1)
	require.ErrorIs(testCase, err, search.ErrEmptyQuery)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"bad key"}`))
	}))
	defer server.Close()

	_, err = New(WithAPIKey("k"), WithBaseURL(server.URL)).Search(context.Background(), "q", 1)
	require.Error(testCase, err)
	assert.Contains(testCase, err.Error(), "bad key")
}

func TestExcerpt(testCase *testing.T) {
	assert.Equal(testCase, "short", excerpt(" short "))
	long := strings.Repeat("x", snippetLimit+10)
	assert.Equal(testCase, strings.Repeat("x", snippetLimit)+"...", excerpt(long))
}
