package graph

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/leofalp/prosearch/providers/observability"
)

// run is the mutable bookkeeping of one Run call.
type run[S, U any] struct {
	graph    *Graph[S, U]
	id       string
	started  time.Time
	steps    atomic.Int64
	observer observability.Provider
	span     observability.Span
}

func (r *run[S, U]) nextStep() int { return int(r.steps.Add(1)) }

func (r *run[S, U]) lastStep() int { return int(r.steps.Load()) }

// Run executes the graph from start until End is reached, returning the final
// merged state. start is either Start, to follow the entry edge, or the id of
// a declared node.
//
// The run aborts with an *ExecutionError when a node or routing function
// fails, when a routing function chooses an undeclared target or an empty
// fan-out, or when ctx is done. The state merged so far is returned with the
// error.
func (g *Graph[S, U]) Run(ctx context.Context, initial S, start string) (S, error) {
	r := &run[S, U]{
		graph:    g,
		id:       uuid.NewString(),
		started:  time.Now(),
		observer: observability.Resolve(ctx, g.config.observer),
	}
	ctx = context.WithValue(ctx, runIDKey{}, r.id)

	if start == "" {
		start = Start
	}
	ctx = r.observeRunStart(ctx, start)
	state, err := r.execute(ctx, initial, start)
	r.observeRunEnd(ctx, err)
	return state, err
}

func (r *run[S, U]) execute(ctx context.Context, state S, start string) (S, error) {
	g := r.graph
	decision := Goto[S](g.entry)
	if start != Start {
		if _, ok := g.nodes[start]; !ok {
			return state, r.fail(start, ErrUndeclaredNode)
		}
		decision = Goto[S](start)
	}

	for {
		if err := ctx.Err(); err != nil {
			return state, r.fail("", err)
		}

		switch decision.kind {
		case decisionGoto:
			node := decision.target
			if node == End {
				return state, nil
			}
			update, err := r.runNode(ctx, node, state, -1)
			if err != nil {
				return state, err
			}
			state = g.Merge(state, update)
			if decision, err = r.next(ctx, node, state); err != nil {
				return state, err
			}

		case decisionFanOut:
			updates, err := r.runBranches(ctx, decision.branches)
			if err != nil {
				return state, err
			}
			state = g.Merge(state, updates...)
			if decision, err = r.joinNext(ctx, decision.branches, state); err != nil {
				return state, err
			}

		default:
			return state, r.fail("", ErrEmptyRoute)
		}
	}
}

func (r *run[S, U]) fail(node string, err error) error {
	return &ExecutionError{Graph: r.graph.name, Node: node, Step: r.lastStep(), Err: err}
}

// runNode executes one node, turning panics into errors.
func (r *run[S, U]) runNode(ctx context.Context, node string, state S, branch int) (update U, err error) {
	fn, ok := r.graph.nodes[node]
	if !ok {
		return update, r.fail(node, ErrUndeclaredNode)
	}
	step := r.nextStep()
	ctx, done := r.observeNodeStart(ctx, node, step, branch)
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("%w: %v", ErrNodePanic, recovered)
		}
		if err != nil {
			err = &ExecutionError{Graph: r.graph.name, Node: node, Step: step, Err: err}
		}
		done(err)
	}()
	return fn(ctx, state)
}

// runBranches executes every branch and returns their updates in branch
// order. All branches run to completion even if one fails.
func (r *run[S, U]) runBranches(ctx context.Context, branches []Branch[S]) ([]U, error) {
	started := time.Now()
	updates := make([]U, len(branches))

	var group errgroup.Group
	if limit := r.graph.config.maxConcurrency; limit > 0 {
		group.SetLimit(limit)
	}
	for index, branch := range branches {
		group.Go(func() error {
			update, err := r.runNode(ctx, branch.Node, branch.State, index)
			if err != nil {
				return err
			}
			updates[index] = update
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	r.observeJoin(ctx, len(branches), time.Since(started))
	return updates, nil
}

// next resolves what follows node once its update has been merged.
func (r *run[S, U]) next(ctx context.Context, node string, state S) (Decision[S], error) {
	if to, ok := r.graph.edges[node]; ok {
		return Goto[S](to), nil
	}
	route, ok := r.graph.routes[node]
	if !ok {
		return Decision[S]{}, r.fail(node, ErrUndeclaredNode)
	}

	decision, err := route.router(ctx, state)
	if err != nil {
		return decision, r.fail(node, fmt.Errorf("routing: %w", err))
	}
	if err := r.validate(node, route, decision); err != nil {
		return decision, err
	}
	r.observeRoute(ctx, node, decision)
	if decision.kind == decisionFanOut {
		r.observeFanOut(ctx, node, len(decision.branches))
	}
	return decision, nil
}

func (r *run[S, U]) validate(from string, route conditionalEdge[S], decision Decision[S]) error {
	switch decision.kind {
	case decisionNone:
		return r.fail(from, ErrEmptyRoute)
	case decisionFanOut:
		if len(decision.branches) == 0 {
			return r.fail(from, ErrEmptyFanOut)
		}
	}
	for _, target := range decision.targets() {
		if !route.allowed[target] {
			return r.fail(from, fmt.Errorf("%w: %q", ErrUndeclaredRoutingTarget, target))
		}
		if _, declared := r.graph.nodes[target]; !declared && (target != End || decision.kind == decisionFanOut) {
			return r.fail(from, fmt.Errorf("%w: %q", ErrUndeclaredNode, target))
		}
	}
	return nil
}

// joinNext continues after a fan-out. Every distinct branch node must lead to
// the same place.
func (r *run[S, U]) joinNext(ctx context.Context, branches []Branch[S], state S) (Decision[S], error) {
	var (
		decided  Decision[S]
		decider  string
		resolved bool
	)
	seen := make(map[string]bool, len(branches))
	for _, branch := range branches {
		if seen[branch.Node] {
			continue
		}
		seen[branch.Node] = true

		decision, err := r.next(ctx, branch.Node, state)
		if err != nil {
			return decision, err
		}
		if !resolved {
			decided, decider, resolved = decision, branch.Node, true
			continue
		}
		if decided.kind != decisionGoto || decision.kind != decisionGoto || decided.target != decision.target {
			return decision, r.fail(branch.Node, fmt.Errorf("%w: %q and %q", ErrDivergentJoin, decider, branch.Node))
		}
	}
	return decided, nil
}
