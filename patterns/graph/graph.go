package graph

import (
	"context"
	"slices"
)

const (
	// Start is the virtual entry node. Its single outgoing edge names the
	// first real node.
	Start = "__start__"
	// End is the virtual terminal node.
	End = "__end__"
)

// NodeFunc does the work of a node and returns the update to merge.
type NodeFunc[S, U any] func(ctx context.Context, state S) (U, error)

// RouterFunc picks what runs after a node, looking at the merged state.
type RouterFunc[S any] func(ctx context.Context, state S) (Decision[S], error)

// MergeFunc folds one field of an update into the state.
type MergeFunc[S, U any] func(state S, update U) S

type decisionKind int

const (
	decisionNone decisionKind = iota
	decisionGoto
	decisionFanOut
)

// Decision is the outcome of a routing function: either a single successor
// or a set of parallel branches. The zero Decision is invalid.
type Decision[S any] struct {
	kind     decisionKind
	target   string
	branches []Branch[S]
}

// Branch is one parallel invocation of Node with its own input State.
type Branch[S any] struct {
	Node  string
	State S
}

// Goto continues with node (or End).
func Goto[S any](node string) Decision[S] {
	return Decision[S]{kind: decisionGoto, target: node}
}

// FanOut runs every branch in parallel and joins before continuing.
func FanOut[S any](branches ...Branch[S]) Decision[S] {
	return Decision[S]{kind: decisionFanOut, branches: branches}
}

// Send builds a Branch.
func Send[S any](node string, state S) Branch[S] {
	return Branch[S]{Node: node, State: state}
}

// IsFanOut reports whether the decision spawns branches.
func (d Decision[S]) IsFanOut() bool { return d.kind == decisionFanOut }

// Target is the successor of a Goto decision.
func (d Decision[S]) Target() string { return d.target }

// Branches returns a copy of the branches of a FanOut decision.
func (d Decision[S]) Branches() []Branch[S] { return slices.Clone(d.branches) }

// targets lists every node the decision would start.
func (d Decision[S]) targets() []string {
	if d.kind == decisionGoto {
		return []string{d.target}
	}
	names := make([]string, len(d.branches))
	for i, branch := range d.branches {
		names[i] = branch.Node
	}
	return names
}

type conditionalEdge[S any] struct {
	router  RouterFunc[S]
	allowed map[string]bool
}

type reducer[S, U any] struct {
	field string
	merge MergeFunc[S, U]
}

// Graph is an immutable, validated workflow definition. It is safe to Run
// concurrently.
type Graph[S, U any] struct {
	name      string
	nodes     map[string]NodeFunc[S, U]
	nodeOrder []string
	edges     map[string]string
	routes    map[string]conditionalEdge[S]
	entry     string
	reducers  []reducer[S, U]
	config    graphConfig
}

// Name returns the graph name used in logs.
func (g *Graph[S, U]) Name() string { return g.name }

// Nodes lists node ids in insertion order.
func (g *Graph[S, U]) Nodes() []string { return slices.Clone(g.nodeOrder) }

// Entry is the first node after Start.
func (g *Graph[S, U]) Entry() string { return g.entry }

// Fields lists reducer fields in merge order.
func (g *Graph[S, U]) Fields() []string {
	fields := make([]string, len(g.reducers))
	for i, r := range g.reducers {
		fields[i] = r.field
	}
	return fields
}

// Merge folds updates into state in order, applying every reducer to each
// update.
func (g *Graph[S, U]) Merge(state S, updates ...U) S {
	for _, update := range updates {
		for _, r := range g.reducers {
			state = r.merge(state, update)
		}
	}
	return state
}
