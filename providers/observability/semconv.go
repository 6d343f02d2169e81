package observability

// Attribute keys.
const (
	AttrError             = "error"
	AttrErrorKind         = "error.kind"
	AttrStatus            = "status"
	AttrStatusDescription = "status_description"
	AttrDuration          = "duration"

	// LLM calls
	AttrLLMProvider  = "llm.provider"
	AttrLLMModel     = "llm.model"
	AttrLLMTokensIn  = "llm.tokens.prompt"     // #nosec G101 -- model tokens, not credentials
	AttrLLMTokensOut = "llm.tokens.completion" // #nosec G101 -- model tokens, not credentials

	// HTTP
	AttrHTTPMethod     = "http.method"
	AttrHTTPStatusCode = "http.status_code"

	// Agent call harness
	AttrCallName        = "call.name"
	AttrCallAttempt     = "call.attempt"
	AttrCallMaxAttempts = "call.max_attempts"
	AttrCallOutcome     = "call.outcome"

	// Graph executor
	AttrGraphName     = "graph.name"
	AttrGraphRunID    = "graph.run_id"
	AttrGraphNode     = "graph.node"
	AttrGraphStep     = "graph.step"
	AttrGraphBranch   = "graph.branch"
	AttrGraphBranches = "graph.branches"
	AttrGraphNext     = "graph.next"

	// Search
	AttrSearchQuery   = "search.query"
	AttrSearchResults = "search.results"

	// Research workflow
	AttrResearchLoop       = "research.loop"
	AttrResearchQueries    = "research.queries"
	AttrResearchSufficient = "research.sufficient"
	AttrResearchSources    = "research.sources"
	AttrPlanStatus         = "research.plan_status"
)

// Span names.
const (
	SpanGraphRun   = "graph.run"
	SpanGraphNode  = "graph.node"
	SpanAgentCall  = "agent.call"
	SpanLLMRequest = "llm.request"
)

// Metric names.
const (
	MetricGraphRuns         = "prosearch.graph.runs"
	MetricGraphNodeRuns     = "prosearch.graph.node.runs"
	MetricGraphNodeDuration = "prosearch.graph.node.duration"
	MetricGraphFanOutWidth  = "prosearch.graph.fan_out.width"
	MetricAgentAttempts     = "prosearch.agent.attempts"
	MetricAgentExhausted    = "prosearch.agent.exhausted"
	MetricLLMDuration       = "prosearch.llm.duration"
	MetricSearchRequests    = "prosearch.search.requests"
	MetricSearchCacheHits   = "prosearch.search.cache.hits"
)
