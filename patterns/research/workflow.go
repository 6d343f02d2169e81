package research

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/leofalp/prosearch/core/agent"
	"github.com/leofalp/prosearch/core/citation"
	"github.com/leofalp/prosearch/patterns/graph"
	"github.com/leofalp/prosearch/providers/ai"
	"github.com/leofalp/prosearch/providers/observability"
	"github.com/leofalp/prosearch/providers/search"
)

// GraphName labels runs in logs and metrics.
const GraphName = "pro-search-agent"

// Node ids.
const (
	NodeGeneratePlan             = "generate_plan"
	NodeReplan                   = "replan"
	NodeAwaitingPlanConfirmation = "awaiting_plan_confirmation"
	NodeGenerateQuery            = "generate_query"
	NodeWebResearch              = "web_research"
	NodeReflection               = "reflection"
	NodeFinalizeAnswer           = "finalize_answer"
)

var (
	ErrNoMessages   = errors.New("research: state has no messages")
	ErrNilGenerator = errors.New("research: generator is required")
	ErrNilSearcher  = errors.New("research: search provider is required")
)

// Workflow runs research requests. It is safe for concurrent use.
type Workflow struct {
	generator ai.Generator
	searcher  search.Provider
	config    Configuration
	prompts   Prompts
	harness   *agent.Harness
	resolver  *citation.Resolver
	observer  observability.Provider
	listener  graph.Listener
	now       func() time.Time
	triggers  []string
	policy    *agent.RetryPolicy
	graph     *graph.Graph[State, Update]
}

// Option configures New.
type Option func(*Workflow)

// WithConfiguration replaces DefaultConfiguration. Unset fields keep their
// defaults.
func WithConfiguration(config Configuration) Option {
	return func(w *Workflow) { w.config = config }
}

func WithObserver(observer observability.Provider) Option {
	return func(w *Workflow) { w.observer = observer }
}

// WithRetryPolicy overrides the policy built from
// Configuration.RetryMaxAttempts.
func WithRetryPolicy(policy agent.RetryPolicy) Option {
	return func(w *Workflow) { w.policy = &policy }
}

// WithClock sets the source of {current_date}.
func WithClock(now func() time.Time) Option {
	return func(w *Workflow) { w.now = now }
}

// WithPlanConfirmation routes runs through the plan sub-machine first.
func WithPlanConfirmation(enabled bool) Option {
	return func(w *Workflow) { w.config.PlanConfirmation = enabled }
}

// WithTriggerPhrases replaces DefaultTriggerPhrases.
func WithTriggerPhrases(phrases ...string) Option {
	return func(w *Workflow) { w.triggers = phrases }
}

// WithPrompts overrides the non-empty templates of prompts.
func WithPrompts(prompts Prompts) Option {
	return func(w *Workflow) { w.prompts = prompts.merge(w.prompts) }
}

// WithListener receives graph progress events.
func WithListener(listener graph.Listener) Option {
	return func(w *Workflow) { w.listener = listener }
}

// New builds a Workflow over a text generator and a search provider.
func New(generator ai.Generator, searcher search.Provider, opts ...Option) (*Workflow, error) {
	if generator == nil {
		return nil, ErrNilGenerator
	}
	if searcher == nil {
		return nil, ErrNilSearcher
	}
	w := &Workflow{
		generator: generator,
		searcher:  searcher,
		config:    DefaultConfiguration(),
		prompts:   DefaultPrompts(),
		now:       time.Now,
		triggers:  DefaultTriggerPhrases,
	}
	for _, opt := range opts {
		opt(w)
	}
	if err := w.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	w.config = w.config.withDefaults()

	policy := agent.DefaultRetryPolicy()
	policy.MaxAttempts = w.config.RetryMaxAttempts
	if w.policy != nil {
		policy = *w.policy
	}
	w.harness = agent.NewHarness(agent.WithRetryPolicy(policy), agent.WithObserver(w.observer))
	w.resolver = citation.NewResolver(w.config.CitationPrefix)

	built, err := w.buildGraph()
	if err != nil {
		return nil, err
	}
	w.graph = built
	return w, nil
}

// Configuration returns the effective configuration.
func (w *Workflow) Configuration() Configuration {
	return w.config
}

// Graph exposes the compiled graph, e.g. to list its nodes.
func (w *Workflow) Graph() *graph.Graph[State, Update] {
	return w.graph
}

func (w *Workflow) buildGraph() (*graph.Graph[State, Update], error) {
	builder := graph.NewBuilder[State, Update](GraphName,
		graph.WithMaxConcurrency(w.config.MaxConcurrency),
		graph.WithObserver(w.observer),
		graph.WithListener(w.listener),
	)
	addReducers(builder)

	builder.
		AddNode(NodeGenerateQuery, w.generateQuery).
		AddNode(NodeWebResearch, w.webResearch).
		AddNode(NodeReflection, w.reflection).
		AddNode(NodeFinalizeAnswer, w.finalizeAnswer).
		AddConditionalEdges(NodeGenerateQuery, w.continueToWebResearch, NodeWebResearch).
		AddEdge(NodeWebResearch, NodeReflection).
		AddConditionalEdges(NodeReflection, w.evaluateResearch, NodeWebResearch, NodeFinalizeAnswer).
		AddEdge(NodeFinalizeAnswer, graph.End)

	if !w.config.PlanConfirmation {
		return builder.AddEdge(graph.Start, NodeGenerateQuery).Build()
	}
	return builder.
		AddNode(NodeGeneratePlan, w.generatePlan).
		AddNode(NodeReplan, w.replan).
		AddNode(NodeAwaitingPlanConfirmation, w.awaitPlanConfirmation).
		AddEdge(graph.Start, NodeGeneratePlan).
		AddConditionalEdges(NodeGeneratePlan, w.evaluatePlan,
			NodeAwaitingPlanConfirmation, NodeReplan, NodeGenerateQuery).
		AddEdge(NodeReplan, NodeGeneratePlan).
		AddEdge(NodeAwaitingPlanConfirmation, graph.End).
		Build()
}

// Invoke runs the workflow from the start. initial must carry at least one
// message and may override InitialSearchQueryCount, MaxResearchLoops and
// ReasoningModel.
func (w *Workflow) Invoke(ctx context.Context, initial State) (State, error) {
	if len(initial.Messages) == 0 {
		return initial, ErrNoMessages
	}
	if initial.PlanStatus == "" {
		initial.PlanStatus = PlanUnconfirmed
	}
	initial.AwaitingConfirmation = false
	initial.Branch = nil
	return w.graph.Run(ctx, initial, graph.Start)
}

// Resume continues a run that stopped for plan confirmation. The user's
// reply is appended and an existing draft is marked confirmed; whether the
// reply actually accepts the plan is decided by evaluate_plan.
func (w *Workflow) Resume(ctx context.Context, prior State, userMessage string) (State, error) {
	prior.Messages = append(prior.Messages[:len(prior.Messages):len(prior.Messages)],
		ai.Message{Role: ai.RoleUser, Content: userMessage})
	if prior.Plan != "" && (prior.PlanStatus == PlanUnconfirmed || prior.PlanStatus == "") {
		prior.PlanStatus = PlanConfirmed
	}
	return w.Invoke(ctx, prior)
}

func (w *Workflow) currentDate() string {
	return w.now().Format(DateLayout)
}

// researchTopic renders the conversation without plan drafts, which reach
// prompts through {plan} instead.
func (w *Workflow) researchTopic(state State) string {
	return ResearchTopic(state.Messages, contents(state.PlanMessages)...)
}

// reasoningModel returns the per-run override or fallback.
func reasoningModel(state State, fallback string) string {
	if state.ReasoningModel != "" {
		return state.ReasoningModel
	}
	return fallback
}

func (w *Workflow) queryCount(state State) int {
	if state.InitialSearchQueryCount > 0 {
		return state.InitialSearchQueryCount
	}
	return w.config.NumberOfInitialQueries
}

func (w *Workflow) maxLoops(state State) int {
	if state.MaxResearchLoops > 0 {
		return state.MaxResearchLoops
	}
	return w.config.MaxResearchLoops
}

func (w *Workflow) info(ctx context.Context, msg string, attrs ...observability.Attribute) {
	if observer := observability.Resolve(ctx, w.observer); observer != nil {
		observer.Info(ctx, msg, attrs...)
	}
}

func (w *Workflow) warn(ctx context.Context, msg string, attrs ...observability.Attribute) {
	if observer := observability.Resolve(ctx, w.observer); observer != nil {
		observer.Warn(ctx, msg, attrs...)
	}
}
