package research

import (
	"context"
	"strings"

	"github.com/leofalp/prosearch/core/agent"
	"github.com/leofalp/prosearch/core/parse"
	"github.com/leofalp/prosearch/internal/utils"
	"github.com/leofalp/prosearch/patterns/graph"
	"github.com/leofalp/prosearch/providers/ai"
	"github.com/leofalp/prosearch/providers/observability"
)

type planReview struct {
	IsSatisfied bool   `json:"is_satisfied"`
	Rationale   string `json:"rationale"`
}

// generatePlan drafts or revises the plan while it is unconfirmed and leaves
// a confirmed plan alone.
func (w *Workflow) generatePlan(ctx context.Context, state State) (Update, error) {
	if state.PlanStatus != PlanUnconfirmed {
		return Update{}, nil
	}

	result := agent.Step[string]{
		Name:      NodeGeneratePlan,
		Template:  w.prompts.Plan,
		Model:     w.config.PlannerModel,
		Generator: w.generator,
		Post:      nonEmpty(agent.Fenced(parse.FenceMarkdown)),
	}.Run(ctx, w.harness, agent.Values{
		"current_date":   w.currentDate(),
		"research_topic": w.researchTopic(state),
		"plan":           orNone(state.Plan),
	})
	if !result.OK() {
		w.warn(ctx, "plan drafting gave up, keeping the previous draft", observability.Error(result.Err))
		return Update{PlanStatus: PlanUnconfirmed}, nil
	}

	draft := result.Value
	message := ai.Message{Role: ai.RoleAssistant, Content: draft}
	w.info(ctx, "plan drafted", observability.String(observability.AttrPlanStatus, string(PlanUnconfirmed)))
	return Update{
		Plan:         &draft,
		PlanStatus:   PlanUnconfirmed,
		Messages:     []ai.Message{message},
		PlanMessages: []ai.Message{message},
	}, nil
}

// evaluatePlan suspends on an unconfirmed plan. A confirmed one goes to
// research when the user's last message holds a trigger phrase or the model
// reads it as approval, and back to drafting otherwise.
func (w *Workflow) evaluatePlan(ctx context.Context, state State) (graph.Decision[State], error) {
	switch {
	case state.PlanStatus == PlanUnconfirmed:
		return graph.Goto[State](NodeAwaitingPlanConfirmation), nil
	case strings.TrimSpace(state.Plan) == "":
		return graph.Goto[State](NodeReplan), nil
	}

	feedback := state.LatestUserMessage()
	if containsTrigger(feedback, w.triggers) {
		w.info(ctx, "trigger phrase found, starting research")
		return graph.Goto[State](NodeGenerateQuery), nil
	}

	review := agent.Step[planReview]{
		Name:      callPlanCheck,
		Template:  w.prompts.PlanReview,
		Model:     w.config.PlannerModel,
		Generator: w.generator,
		Post:      agent.JSON[planReview](),
	}.Run(ctx, w.harness, agent.Values{
		"current_date": w.currentDate(),
		"plan":         state.Plan,
		"feedback":     "User: " + feedback + "\n",
	})
	if review.OK() && review.Value.IsSatisfied {
		return graph.Goto[State](NodeGenerateQuery), nil
	}
	w.info(ctx, "plan needs another draft",
		observability.String("rationale", review.Value.Rationale))
	return graph.Goto[State](NodeReplan), nil
}

// replan sends the plan back to drafting.
func (w *Workflow) replan(ctx context.Context, state State) (Update, error) {
	return Update{PlanStatus: PlanUnconfirmed}, nil
}

// awaitPlanConfirmation ends the invocation until the user answers.
func (w *Workflow) awaitPlanConfirmation(ctx context.Context, state State) (Update, error) {
	w.info(ctx, "waiting for plan confirmation")
	return Update{AwaitingConfirmation: utils.Ptr(true)}, nil
}
