package research

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leofalp/prosearch/core/citation"
	"github.com/leofalp/prosearch/internal/utils"
	"github.com/leofalp/prosearch/patterns/graph"
	"github.com/leofalp/prosearch/providers/ai"
)

func testGraph(t *testing.T) *graph.Graph[State, Update] {
	t.Helper()
	noop := func(ctx context.Context, state State) (Update, error) { return Update{}, nil }
	g, err := addReducers(graph.NewBuilder[State, Update]("reducers")).
		AddNode("noop", noop).
		AddEdge(graph.Start, "noop").
		AddEdge("noop", graph.End).
		Build()
	require.NoError(t, err)
	return g
}

func TestReducers_AppendAndDedupeSources(testCase *testing.T) {
	g := testGraph(testCase)
	state := State{SourcesGathered: []citation.Source{{ShortID: "id/0-0", URL: "a"}}}

	merged := g.Merge(state,
		Update{SourcesGathered: []citation.Source{{ShortID: "id/0-0", URL: "a-dup"}, {ShortID: "id/0-1", URL: "b"}}},
		Update{SourcesGathered: []citation.Source{{ShortID: "id/1-0", URL: "a"}}},
	)

	assert.Equal(testCase, []citation.Source{
		{ShortID: "id/0-0", URL: "a"},
		{ShortID: "id/0-1", URL: "b"},
		{ShortID: "id/1-0", URL: "a"},
	}, merged.SourcesGathered)

	cited := []citation.Source{{ShortID: "id/0-1", URL: "b"}}
	final := g.Merge(merged, Update{CitedSources: &cited})
	assert.Equal(testCase, cited, final.SourcesGathered)
}

func TestReducers_ListsAppendInUpdateOrder(testCase *testing.T) {
	g := testGraph(testCase)

	merged := g.Merge(State{SearchQuery: []string{"seed"}},
		Update{SearchQuery: []string{"a"}, WebResearchResult: []string{"ra"}},
		Update{SearchQuery: []string{"b"}, WebResearchResult: []string{""}, FailedQueries: []string{"b"}},
	)

	assert.Equal(testCase, []string{"seed", "a", "b"}, merged.SearchQuery)
	assert.Equal(testCase, []string{"ra", ""}, merged.WebResearchResult)
	assert.Equal(testCase, []string{"b"}, merged.FailedQueries)
	assert.Equal(testCase, "ra", merged.summaries("|"))
}

func TestReducers_AppendNeverAliasesInput(testCase *testing.T) {
	g := testGraph(testCase)
	base := make([]string, 1, 4)
	base[0] = "seed"
	state := State{SearchQuery: base}

	left := g.Merge(state, Update{SearchQuery: []string{"left"}})
	right := g.Merge(state, Update{SearchQuery: []string{"right"}})

	assert.Equal(testCase, []string{"seed", "left"}, left.SearchQuery)
	assert.Equal(testCase, []string{"seed", "right"}, right.SearchQuery)
}

func TestReducers_ScalarsAndSetOnce(testCase *testing.T) {
	g := testGraph(testCase)
	state := State{InitialSearchQueryCount: 5, ResearchLoopCount: 1}

	merged := g.Merge(state,
		Update{InitialSearchQueryCount: 3, MaxResearchLoops: 2, ResearchLoopCount: 1},
		Update{MaxResearchLoops: 7, Reflection: &Reflection{KnowledgeGap: "gap", FollowUpQueries: []string{"x"}}},
		Update{NumberOfRanQueries: utils.Ptr(4), Plan: utils.Ptr("draft"), PlanStatus: PlanConfirmed},
		Update{AwaitingConfirmation: utils.Ptr(true)},
	)

	assert.Equal(testCase, 5, merged.InitialSearchQueryCount)
	assert.Equal(testCase, 2, merged.MaxResearchLoops)
	assert.Equal(testCase, 2, merged.ResearchLoopCount)
	assert.Equal(testCase, "gap", merged.KnowledgeGap)
	assert.Equal(testCase, []string{"x"}, merged.FollowUpQueries)
	assert.False(testCase, merged.IsSufficient)
	assert.Equal(testCase, 4, merged.NumberOfRanQueries)
	assert.Equal(testCase, "draft", merged.Plan)
	assert.Equal(testCase, PlanConfirmed, merged.PlanStatus)
	assert.True(testCase, merged.AwaitingConfirmation)

	// an empty update changes nothing
	assert.Equal(testCase, merged, g.Merge(merged, Update{}))
}

func TestResearchTopic(testCase *testing.T) {
	single := []ai.Message{{Role: ai.RoleUser, Content: "What is Go?"}}
	assert.Equal(testCase, "What is Go?", ResearchTopic(single))

	history := []ai.Message{
		{Role: ai.RoleUser, Content: "What is Go?"},
		{Role: ai.RoleAssistant, Content: "PLAN"},
		{Role: ai.RoleAssistant, Content: "A language."},
		{Role: ai.RoleUser, Content: "Who made it?"},
	}
	assert.Equal(testCase, "User: What is Go?\nAssistant: A language.\nUser: Who made it?\n", ResearchTopic(history, "PLAN"))
	assert.Equal(testCase, "", ResearchTopic(nil))
}

func TestState_Helpers(testCase *testing.T) {
	state := State{Messages: []ai.Message{
		{Role: ai.RoleUser, Content: "first"},
		{Role: ai.RoleAssistant, Content: "report"},
		{Role: ai.RoleUser, Content: "second"},
	}}
	assert.Equal(testCase, "second", state.LatestUserMessage())
	assert.Equal(testCase, "report", state.FinalAnswer())
	assert.False(testCase, state.Suspended())

	state.AwaitingConfirmation = true
	assert.True(testCase, state.Suspended())
	assert.Equal(testCase, "", state.FinalAnswer())
}

func TestContainsTrigger(testCase *testing.T) {
	assert.True(testCase, containsTrigger("OK. START RESEARCH!", DefaultTriggerPhrases))
	assert.True(testCase, containsTrigger("那就开始研究吧", DefaultTriggerPhrases))
	assert.False(testCase, containsTrigger("start the research", DefaultTriggerPhrases))
	assert.False(testCase, containsTrigger("anything", []string{""}))
}
