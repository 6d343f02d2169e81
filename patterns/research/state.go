package research

import (
	"strings"

	"github.com/leofalp/prosearch/core/citation"
	"github.com/leofalp/prosearch/patterns/graph"
	"github.com/leofalp/prosearch/providers/ai"
)

// PlanStatus tracks whether the user accepted the current plan draft.
type PlanStatus string

const (
	PlanUnconfirmed PlanStatus = "unconfirmed"
	PlanConfirmed   PlanStatus = "confirmed"
)

// WebSearchState is the input of one web_research branch. ID namespaces the
// short citation ids of the branch, so no two branches of a run share one.
type WebSearchState struct {
	SearchQuery string `json:"search_query"`
	ID          int    `json:"id"`
}

// Reflection is the sufficiency verdict produced after each search round.
type Reflection struct {
	IsSufficient    bool     `json:"is_sufficient"`
	KnowledgeGap    string   `json:"knowledge_gap"`
	FollowUpQueries []string `json:"follow_up_queries"`
}

// State is threaded through every node of the workflow. Nodes never modify
// it in place; they return an Update that the reducers fold in.
type State struct {
	Messages     []ai.Message `json:"messages"`
	Plan         string       `json:"plan,omitempty"`
	PlanStatus   PlanStatus   `json:"plan_status,omitempty"`
	PlanMessages []ai.Message `json:"plan_messages,omitempty"`

	GeneratedQueries  []string          `json:"generated_queries,omitempty"`
	SearchQuery       []string          `json:"search_query,omitempty"`
	WebResearchResult []string          `json:"web_research_result,omitempty"`
	SourcesGathered   []citation.Source `json:"sources_gathered,omitempty"`
	FailedQueries     []string          `json:"failed_queries,omitempty"`

	ResearchLoopCount       int    `json:"research_loop_count"`
	InitialSearchQueryCount int    `json:"initial_search_query_count,omitempty"`
	MaxResearchLoops        int    `json:"max_research_loops,omitempty"`
	ReasoningModel          string `json:"reasoning_model,omitempty"`

	IsSufficient       bool     `json:"is_sufficient"`
	KnowledgeGap       string   `json:"knowledge_gap,omitempty"`
	FollowUpQueries    []string `json:"follow_up_queries,omitempty"`
	NumberOfRanQueries int      `json:"number_of_ran_queries"`

	AwaitingConfirmation bool `json:"awaiting_confirmation"`

	// Branch is set only on the copy handed to a web_research branch.
	Branch *WebSearchState `json:"-"`
}

// FinalAnswer returns the report of a completed run: the last assistant
// message, or "" if the run is suspended or produced nothing.
func (s State) FinalAnswer() string {
	if s.AwaitingConfirmation {
		return ""
	}
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == ai.RoleAssistant {
			return s.Messages[i].Content
		}
	}
	return ""
}

// Suspended reports whether the run stopped to wait for plan confirmation.
func (s State) Suspended() bool {
	return s.AwaitingConfirmation
}

// LatestUserMessage returns the content of the most recent user turn.
func (s State) LatestUserMessage() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == ai.RoleUser {
			return s.Messages[i].Content
		}
	}
	return ""
}

// summaries joins the non-empty branch summaries with sep.
func (s State) summaries(sep string) string {
	kept := make([]string, 0, len(s.WebResearchResult))
	for _, result := range s.WebResearchResult {
		if strings.TrimSpace(result) != "" {
			kept = append(kept, result)
		}
	}
	return strings.Join(kept, sep)
}

// Update is the delta returned by a node. Nil slices, nil pointers and zero
// numbers leave the matching field alone.
type Update struct {
	Messages     []ai.Message
	Plan         *string
	PlanStatus   PlanStatus
	PlanMessages []ai.Message

	GeneratedQueries  []string
	SearchQuery       []string
	WebResearchResult []string
	SourcesGathered   []citation.Source
	// CitedSources replaces SourcesGathered outright.
	CitedSources  *[]citation.Source
	FailedQueries []string

	ResearchLoopCount       int
	InitialSearchQueryCount int
	MaxResearchLoops        int

	Reflection         *Reflection
	NumberOfRanQueries *int

	AwaitingConfirmation *bool
}

// Reducer field names, in merge order.
const (
	fieldMessages             = "messages"
	fieldPlan                 = "plan"
	fieldPlanStatus           = "plan_status"
	fieldPlanMessages         = "plan_messages"
	fieldGeneratedQueries     = "generated_queries"
	fieldSearchQuery          = "search_query"
	fieldWebResearchResult    = "web_research_result"
	fieldSourcesGathered      = "sources_gathered"
	fieldFailedQueries        = "failed_queries"
	fieldResearchLoopCount    = "research_loop_count"
	fieldInitialQueryCount    = "initial_search_query_count"
	fieldMaxResearchLoops     = "max_research_loops"
	fieldReflection           = "reflection"
	fieldNumberOfRanQueries   = "number_of_ran_queries"
	fieldAwaitingConfirmation = "awaiting_confirmation"
)

func appendTo[T any](dst, src []T) []T {
	if len(src) == 0 {
		return dst
	}
	// copy so branch snapshots never share a backing array with the result
	out := make([]T, 0, len(dst)+len(src))
	out = append(out, dst...)
	return append(out, src...)
}

// addReducers registers how every State field absorbs an Update.
func addReducers(builder *graph.Builder[State, Update]) *graph.Builder[State, Update] {
	return builder.
		AddReducer(fieldMessages, func(state State, update Update) State {
			state.Messages = appendTo(state.Messages, update.Messages)
			return state
		}).
		AddReducer(fieldPlan, func(state State, update Update) State {
			if update.Plan != nil {
				state.Plan = *update.Plan
			}
			return state
		}).
		AddReducer(fieldPlanStatus, func(state State, update Update) State {
			if update.PlanStatus != "" {
				state.PlanStatus = update.PlanStatus
			}
			return state
		}).
		AddReducer(fieldPlanMessages, func(state State, update Update) State {
			state.PlanMessages = appendTo(state.PlanMessages, update.PlanMessages)
			return state
		}).
		AddReducer(fieldGeneratedQueries, func(state State, update Update) State {
			if update.GeneratedQueries != nil {
				state.GeneratedQueries = update.GeneratedQueries
			}
			return state
		}).
		AddReducer(fieldSearchQuery, func(state State, update Update) State {
			state.SearchQuery = appendTo(state.SearchQuery, update.SearchQuery)
			return state
		}).
		AddReducer(fieldWebResearchResult, func(state State, update Update) State {
			state.WebResearchResult = appendTo(state.WebResearchResult, update.WebResearchResult)
			return state
		}).
		AddReducer(fieldSourcesGathered, func(state State, update Update) State {
			if update.CitedSources != nil {
				state.SourcesGathered = *update.CitedSources
				return state
			}
			if len(update.SourcesGathered) > 0 {
				state.SourcesGathered = citation.Dedupe(appendTo(state.SourcesGathered, update.SourcesGathered))
			}
			return state
		}).
		AddReducer(fieldFailedQueries, func(state State, update Update) State {
			state.FailedQueries = appendTo(state.FailedQueries, update.FailedQueries)
			return state
		}).
		AddReducer(fieldResearchLoopCount, func(state State, update Update) State {
			state.ResearchLoopCount += update.ResearchLoopCount
			return state
		}).
		AddReducer(fieldInitialQueryCount, func(state State, update Update) State {
			if state.InitialSearchQueryCount == 0 {
				state.InitialSearchQueryCount = update.InitialSearchQueryCount
			}
			return state
		}).
		AddReducer(fieldMaxResearchLoops, func(state State, update Update) State {
			if state.MaxResearchLoops == 0 {
				state.MaxResearchLoops = update.MaxResearchLoops
			}
			return state
		}).
		AddReducer(fieldReflection, func(state State, update Update) State {
			if update.Reflection != nil {
				state.IsSufficient = update.Reflection.IsSufficient
				state.KnowledgeGap = update.Reflection.KnowledgeGap
				state.FollowUpQueries = update.Reflection.FollowUpQueries
			}
			return state
		}).
		AddReducer(fieldNumberOfRanQueries, func(state State, update Update) State {
			if update.NumberOfRanQueries != nil {
				state.NumberOfRanQueries = *update.NumberOfRanQueries
			}
			return state
		}).
		AddReducer(fieldAwaitingConfirmation, func(state State, update Update) State {
			if update.AwaitingConfirmation != nil {
				state.AwaitingConfirmation = *update.AwaitingConfirmation
			}
			return state
		})
}
