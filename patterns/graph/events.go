package graph

import (
	"context"
	"time"
)

// EventType identifies a progress event.
type EventType string

const (
	EventRunStarted    EventType = "run_started"
	EventNodeStarted   EventType = "node_started"
	EventNodeCompleted EventType = "node_completed"
	EventNodeFailed    EventType = "node_failed"
	EventFanOut        EventType = "fan_out"
	EventJoin          EventType = "join"
	EventRunCompleted  EventType = "run_completed"
	EventRunFailed     EventType = "run_failed"
)

// Event describes one step of a run. Branch is -1 outside a fan-out.
type Event struct {
	Type     EventType
	RunID    string
	Node     string
	Step     int
	Branch   int
	Branches int
	Duration time.Duration
	Err      error
}

// Listener is called synchronously for every event. Branch events arrive
// from several goroutines, so listeners must be safe for concurrent use.
type Listener func(ctx context.Context, event Event)

type runIDKey struct{}

// RunIDFromContext returns the id of the run executing the current node.
func RunIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}
