package research

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/leofalp/prosearch/core/agent"
	"github.com/leofalp/prosearch/core/citation"
	"github.com/leofalp/prosearch/core/parse"
	"github.com/leofalp/prosearch/internal/utils"
	"github.com/leofalp/prosearch/providers/ai"
	"github.com/leofalp/prosearch/providers/observability"
	"github.com/leofalp/prosearch/providers/search"
)

// ErrMissingBranch is returned when web_research runs outside a fan-out.
var ErrMissingBranch = errors.New("research: web_research needs a branch input")

// Harness call names.
const (
	callWebSearch = "web_search"
	callSummarize = "summarize_search"
	callPlanCheck = "plan_review"
)

type queryList struct {
	Rationale string   `json:"rationale"`
	Query     []string `json:"query"`
}

// citedResult is a search hit as shown to the summarizer: the URL is already
// replaced by its short id.
type citedResult struct {
	Snippet string `json:"snippet"`
	Title   string `json:"title"`
	URL     string `json:"url"`
}

// cleanQueries trims queries and drops blank ones.
func cleanQueries(queries []string) []string {
	out := make([]string, 0, len(queries))
	for _, query := range queries {
		if query = strings.TrimSpace(query); query != "" {
			out = append(out, query)
		}
	}
	return out
}

func truncate(queries []string, limit int) []string {
	if limit > 0 && len(queries) > limit {
		return queries[:limit]
	}
	return queries
}

// nonEmpty rejects blank output so the harness tries again.
func nonEmpty(post agent.PostProcessor[string]) agent.PostProcessor[string] {
	return func(raw string) (string, error) {
		value, err := post(raw)
		if err == nil && strings.TrimSpace(value) == "" {
			err = fmt.Errorf("%w: empty body", agent.ErrMalformedOutput)
		}
		return value, err
	}
}

func queryListOutput() agent.PostProcessor[queryList] {
	decode := agent.JSON[queryList]()
	return func(raw string) (queryList, error) {
		list, err := decode(raw)
		if err != nil {
			return list, err
		}
		list.Query = cleanQueries(list.Query)
		if len(list.Query) == 0 {
			return list, fmt.Errorf("%w: no search queries", agent.ErrMalformedOutput)
		}
		return list, nil
	}
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "None."
	}
	return s
}

// generateQuery writes the first round of search queries.
func (w *Workflow) generateQuery(ctx context.Context, state State) (Update, error) {
	count := w.queryCount(state)
	result := agent.Step[queryList]{
		Name:      NodeGenerateQuery,
		Template:  w.prompts.QueryWriter,
		Model:     w.config.QueryGeneratorModel,
		Generator: w.generator,
		Post:      queryListOutput(),
	}.Run(ctx, w.harness, agent.Values{
		"current_date":   w.currentDate(),
		"research_topic": w.researchTopic(state),
		"number_queries": count,
		"plan":           orNone(state.Plan),
	})

	queries := []string{}
	if result.OK() {
		queries = append(queries, truncate(result.Value.Query, count)...)
	} else {
		w.warn(ctx, "query generation gave up, falling back to the user message",
			observability.Int(observability.AttrCallAttempt, result.Attempts),
			observability.Error(result.Err))
	}
	w.info(ctx, "search queries generated",
		observability.Strings(observability.AttrResearchQueries, queries))

	return Update{InitialSearchQueryCount: count, GeneratedQueries: queries}, nil
}

// webResearch searches one query, shortens the result URLs with the branch id
// and has the model condense the hits into cited prose.
func (w *Workflow) webResearch(ctx context.Context, state State) (Update, error) {
	branch := state.Branch
	if branch == nil {
		return Update{}, ErrMissingBranch
	}
	query := branch.SearchQuery
	update := Update{SearchQuery: []string{query}, WebResearchResult: []string{""}}

	found := agent.Do(ctx, w.harness, callWebSearch, func(ctx context.Context) ([]search.Result, error) {
		return w.searcher.Search(ctx, query, w.config.SearchResultCount)
	})
	if !found.OK() {
		w.warn(ctx, "search gave up",
			observability.String(observability.AttrSearchQuery, query),
			observability.Error(found.Err))
		update.FailedQueries = []string{query}
		return update, nil
	}
	results := search.Limit(found.Value, w.config.SearchResultCount)
	if len(results) == 0 {
		w.info(ctx, "search returned nothing", observability.String(observability.AttrSearchQuery, query))
		return update, nil
	}

	shortIDs := w.resolver.Resolve(search.URLs(results), branch.ID)
	sources := make([]citation.Source, len(results))
	cited := make([]citedResult, len(results))
	for i, result := range results {
		shortID := shortIDs[result.URL]
		sources[i] = citation.Source{ShortID: shortID, URL: result.URL, Label: result.Title}
		cited[i] = citedResult{Snippet: result.Snippet, Title: result.Title, URL: shortID}
	}
	update.SourcesGathered = citation.Dedupe(sources)

	summary := agent.Step[string]{
		Name:      callSummarize,
		Template:  w.prompts.WebSearcher,
		Model:     w.config.QueryGeneratorModel,
		Generator: w.generator,
		Post:      nonEmpty(agent.Fenced(parse.FenceText)),
	}.Run(ctx, w.harness, agent.Values{
		"current_date":      w.currentDate(),
		"query":             query,
		"web_search_result": utils.JSONToString(cited, true),
	})
	if !summary.OK() {
		w.warn(ctx, "summary gave up",
			observability.String(observability.AttrSearchQuery, query),
			observability.Error(summary.Err))
		update.FailedQueries = []string{query}
		return update, nil
	}
	update.WebResearchResult = []string{summary.Value}

	w.info(ctx, "web research done",
		observability.String(observability.AttrSearchQuery, query),
		observability.Int(observability.AttrSearchResults, len(results)),
		observability.Int(observability.AttrGraphBranch, branch.ID))
	return update, nil
}

// reflection judges whether the summaries answer the topic. It counts one
// loop whether or not the model call succeeds.
func (w *Workflow) reflection(ctx context.Context, state State) (Update, error) {
	count := w.queryCount(state)
	ran := len(state.SearchQuery)

	result := agent.Step[Reflection]{
		Name:      NodeReflection,
		Template:  w.prompts.Reflection,
		Model:     reasoningModel(state, w.config.ReflectionModel),
		Generator: w.generator,
		Post:      agent.JSON[Reflection](),
	}.Run(ctx, w.harness, agent.Values{
		"current_date":   w.currentDate(),
		"research_topic": w.researchTopic(state),
		"number_queries": count,
		"summaries":      state.summaries("\n\n---\n\n"),
	})

	verdict := result.Value
	if !result.OK() {
		w.warn(ctx, "reflection gave up, treating research as insufficient", observability.Error(result.Err))
	}
	verdict.FollowUpQueries = truncate(cleanQueries(verdict.FollowUpQueries), count)

	w.info(ctx, "reflection done",
		observability.Int(observability.AttrResearchLoop, state.ResearchLoopCount+1),
		observability.Bool(observability.AttrResearchSufficient, verdict.IsSufficient),
		observability.Strings(observability.AttrResearchQueries, verdict.FollowUpQueries))

	return Update{
		ResearchLoopCount:  1,
		Reflection:         &verdict,
		NumberOfRanQueries: &ran,
		MaxResearchLoops:   w.config.MaxResearchLoops,
	}, nil
}

// finalizeAnswer writes the report, expands the short ids it cites and keeps
// only the sources that were cited.
func (w *Workflow) finalizeAnswer(ctx context.Context, state State) (Update, error) {
	result := agent.Step[string]{
		Name:      NodeFinalizeAnswer,
		Template:  w.prompts.Answer,
		Model:     reasoningModel(state, w.config.AnswerModel),
		Generator: w.generator,
		Post:      agent.Raw(),
	}.Run(ctx, w.harness, agent.Values{
		"current_date":   w.currentDate(),
		"research_topic": w.researchTopic(state),
		"summaries":      state.summaries("\n---\n\n"),
	})
	if !result.OK() {
		w.warn(ctx, "answer gave up, returning an empty report", observability.Error(result.Err))
	}

	content, cited := citation.Expand(result.Value, state.SourcesGathered)
	w.info(ctx, "answer finalized",
		observability.Int(observability.AttrResearchSources, len(cited)),
		observability.Int(observability.AttrResearchLoop, state.ResearchLoopCount))

	return Update{
		Messages:     []ai.Message{{Role: ai.RoleAssistant, Content: content}},
		CitedSources: &cited,
	}, nil
}
