package graph

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

// Builder assembles a Graph. Mistakes are collected while building and
// reported together by Build.
type Builder[S, U any] struct {
	graph       *Graph[S, U]
	buildErrors []error
}

// NewBuilder starts a graph definition.
func NewBuilder[S, U any](name string, opts ...Option) *Builder[S, U] {
	graph := &Graph[S, U]{
		name:   name,
		nodes:  make(map[string]NodeFunc[S, U]),
		edges:  make(map[string]string),
		routes: make(map[string]conditionalEdge[S]),
	}
	for _, opt := range opts {
		opt(&graph.config)
	}
	return &Builder[S, U]{graph: graph}
}

func (builder *Builder[S, U]) fail(format string, args ...any) *Builder[S, U] {
	builder.buildErrors = append(builder.buildErrors, fmt.Errorf(format, args...))
	return builder
}

// AddNode declares a node. Ids must be unique and may not reuse Start or End.
func (builder *Builder[S, U]) AddNode(nodeID string, fn NodeFunc[S, U]) *Builder[S, U] {
	switch {
	case nodeID == "":
		return builder.fail("node ID must not be empty")
	case nodeID == Start || nodeID == End:
		return builder.fail("node ID %q is reserved", nodeID)
	case fn == nil:
		return builder.fail("node function must not be nil for node %q", nodeID)
	}
	if _, exists := builder.graph.nodes[nodeID]; exists {
		return builder.fail("duplicate node ID %q", nodeID)
	}
	builder.graph.nodes[nodeID] = fn
	builder.graph.nodeOrder = append(builder.graph.nodeOrder, nodeID)
	return builder
}

func (builder *Builder[S, U]) hasOutgoing(from string) bool {
	_, plain := builder.graph.edges[from]
	_, routed := builder.graph.routes[from]
	return plain || routed
}

// AddEdge makes to run after from with the merged state. Use Start to set
// the entry node and End to finish the run.
func (builder *Builder[S, U]) AddEdge(from, to string) *Builder[S, U] {
	switch {
	case from == "" || to == "":
		return builder.fail("edge endpoints must not be empty (from=%q, to=%q)", from, to)
	case from == End:
		return builder.fail("edge cannot leave %q", End)
	case to == Start:
		return builder.fail("edge cannot enter %q", Start)
	case builder.hasOutgoing(from):
		return builder.fail("node %q already has an outgoing edge", from)
	}
	builder.graph.edges[from] = to
	return builder
}

// AddConditionalEdges routes the exit of from through router. Every node the
// router may choose, including End, must be listed in targets.
func (builder *Builder[S, U]) AddConditionalEdges(from string, router RouterFunc[S], targets ...string) *Builder[S, U] {
	switch {
	case from == "":
		return builder.fail("conditional edge source must not be empty")
	case from == Start || from == End:
		return builder.fail("conditional edge cannot leave %q", from)
	case router == nil:
		return builder.fail("router must not be nil for node %q", from)
	case len(targets) == 0:
		return builder.fail("conditional edge from %q declares no targets", from)
	case builder.hasOutgoing(from):
		return builder.fail("node %q already has an outgoing edge", from)
	}
	allowed := make(map[string]bool, len(targets))
	for _, target := range targets {
		if target == "" || target == Start {
			return builder.fail("conditional edge from %q has invalid target %q", from, target)
		}
		allowed[target] = true
	}
	builder.graph.routes[from] = conditionalEdge[S]{router: router, allowed: allowed}
	return builder
}

// AddReducer registers the merge function of a state field. Reducers run in
// registration order for every update.
func (builder *Builder[S, U]) AddReducer(field string, merge MergeFunc[S, U]) *Builder[S, U] {
	switch {
	case field == "":
		return builder.fail("reducer field must not be empty")
	case merge == nil:
		return builder.fail("reducer for field %q must not be nil", field)
	}
	for _, existing := range builder.graph.reducers {
		if existing.field == field {
			return builder.fail("duplicate reducer for field %q", field)
		}
	}
	builder.graph.reducers = append(builder.graph.reducers, reducer[S, U]{field: field, merge: merge})
	return builder
}

// Build validates the definition:
//
//  1. no errors were recorded while adding nodes, edges and reducers
//  2. there is at least one node and an entry edge from Start
//  3. every edge and routing target names a declared node or End
//  4. every node has exactly one way out
func (builder *Builder[S, U]) Build() (*Graph[S, U], error) {
	if len(builder.buildErrors) > 0 {
		return nil, fmt.Errorf("graph build errors: %w", errors.Join(builder.buildErrors...))
	}
	graph := builder.graph
	if len(graph.nodes) == 0 {
		return nil, fmt.Errorf("graph %q must contain at least one node", graph.name)
	}

	var problems []error
	known := func(id string) bool {
		_, ok := graph.nodes[id]
		return ok || id == End
	}

	entry, ok := graph.edges[Start]
	if !ok {
		problems = append(problems, fmt.Errorf("graph %q has no entry edge from %q", graph.name, Start))
	} else if entry == End {
		problems = append(problems, fmt.Errorf("entry edge cannot go straight to %q", End))
	}
	for from, to := range graph.edges {
		if from != Start && !known(from) {
			problems = append(problems, fmt.Errorf("edge from undeclared node %q", from))
		}
		if !known(to) {
			problems = append(problems, fmt.Errorf("edge %q -> %q targets an undeclared node", from, to))
		}
	}
	for from, route := range graph.routes {
		if !known(from) {
			problems = append(problems, fmt.Errorf("conditional edge from undeclared node %q", from))
		}
		for target := range route.allowed {
			if !known(target) {
				problems = append(problems, fmt.Errorf("conditional edge %q -> %q targets an undeclared node", from, target))
			}
		}
	}
	for _, id := range graph.nodeOrder {
		if !builder.hasOutgoing(id) {
			problems = append(problems, fmt.Errorf("node %q has no outgoing edge", id))
		}
	}
	if len(problems) > 0 {
		return nil, fmt.Errorf("invalid graph %q: %w", graph.name, errors.Join(problems...))
	}

	built := &Graph[S, U]{
		name:      graph.name,
		nodes:     maps.Clone(graph.nodes),
		nodeOrder: slices.Clone(graph.nodeOrder),
		edges:     maps.Clone(graph.edges),
		routes:    maps.Clone(graph.routes),
		entry:     entry,
		reducers:  slices.Clone(graph.reducers),
		config:    graph.config,
	}
	return built, nil
}
