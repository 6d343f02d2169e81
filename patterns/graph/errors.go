package graph

import (
	"errors"
	"fmt"
)

var (
	ErrUndeclaredNode          = errors.New("graph: node is not declared")
	ErrUndeclaredRoutingTarget = errors.New("graph: routing target is not declared on the conditional edge")
	ErrEmptyFanOut             = errors.New("graph: fan-out has no branches")
	ErrEmptyRoute              = errors.New("graph: routing function returned no decision")
	ErrDivergentJoin           = errors.New("graph: fan-out branches continue to different nodes")
	ErrNodePanic               = errors.New("graph: node panicked")
)

// ExecutionError aborts a run. Err is one of the sentinels above, a routing
// function's error or a node's own error.
type ExecutionError struct {
	Graph string
	Node  string
	Step  int
	Err   error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("graph %q: node %q (step %d): %v", e.Graph, e.Node, e.Step, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}
