package research

import (
	"context"
	"strings"

	"github.com/leofalp/prosearch/patterns/graph"
	"github.com/leofalp/prosearch/providers/observability"
)

// fanOut starts one web_research branch per query. Branch ids continue from
// base so short ids never repeat within a run.
func fanOut(state State, queries []string, base int) graph.Decision[State] {
	branches := make([]graph.Branch[State], len(queries))
	for i, query := range queries {
		input := state
		input.Branch = &WebSearchState{SearchQuery: query, ID: base + i}
		branches[i] = graph.Send(NodeWebResearch, input)
	}
	return graph.FanOut(branches...)
}

// continueToWebResearch fans out over the generated queries. When none were
// produced the latest user message is searched instead.
func (w *Workflow) continueToWebResearch(ctx context.Context, state State) (graph.Decision[State], error) {
	queries := state.GeneratedQueries
	if len(queries) == 0 {
		if fallback := strings.TrimSpace(state.LatestUserMessage()); fallback != "" {
			queries = []string{fallback}
		}
	}
	return fanOut(state, queries, len(state.SearchQuery)), nil
}

// evaluateResearch finishes when the research is sufficient, the loop budget
// is spent or reflection proposed nothing; otherwise it searches the
// follow-up queries.
func (w *Workflow) evaluateResearch(ctx context.Context, state State) (graph.Decision[State], error) {
	maxLoops := w.maxLoops(state)
	if state.IsSufficient || state.ResearchLoopCount >= maxLoops || len(state.FollowUpQueries) == 0 {
		w.info(ctx, "research complete",
			observability.Bool(observability.AttrResearchSufficient, state.IsSufficient),
			observability.Int(observability.AttrResearchLoop, state.ResearchLoopCount))
		return graph.Goto[State](NodeFinalizeAnswer), nil
	}
	return fanOut(state, state.FollowUpQueries, state.NumberOfRanQueries), nil
}
