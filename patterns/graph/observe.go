package graph

import (
	"context"
	"time"

	"github.com/leofalp/prosearch/providers/observability"
)

// observeRunStart opens the run span and returns the context nodes receive.
func (r *run[S, U]) observeRunStart(ctx context.Context, start string) context.Context {
	r.emit(ctx, Event{Type: EventRunStarted, Node: start, Branch: -1})
	if r.observer == nil {
		return ctx
	}
	ctx, r.span = r.observer.StartSpan(ctx, observability.SpanGraphRun,
		observability.String(observability.AttrGraphName, r.graph.name),
		observability.String(observability.AttrGraphRunID, r.id),
	)
	ctx = observability.ContextWithObserver(ctx, r.observer)
	r.observer.Info(ctx, "graph run started",
		observability.String(observability.AttrGraphName, r.graph.name),
		observability.String(observability.AttrGraphRunID, r.id),
		observability.String(observability.AttrGraphNode, start),
	)
	return ctx
}

func (r *run[S, U]) observeRunEnd(ctx context.Context, err error) {
	elapsed := time.Since(r.started)
	event := Event{Type: EventRunCompleted, Step: r.lastStep(), Branch: -1, Duration: elapsed}
	if err != nil {
		event.Type = EventRunFailed
		event.Err = err
	}
	r.emit(ctx, event)
	if r.observer == nil {
		return
	}

	status := "ok"
	if err != nil {
		status = "error"
	}
	r.observer.Counter(observability.MetricGraphRuns).Add(ctx, 1,
		observability.String(observability.AttrGraphName, r.graph.name),
		observability.String(observability.AttrStatus, status))

	if err != nil {
		r.observer.Error(ctx, "graph run failed",
			observability.String(observability.AttrGraphRunID, r.id),
			observability.Int(observability.AttrGraphStep, r.lastStep()),
			observability.Duration(observability.AttrDuration, elapsed),
			observability.Error(err))
		r.span.RecordError(err)
		r.span.SetStatus(observability.StatusError, err.Error())
	} else {
		r.observer.Info(ctx, "graph run completed",
			observability.String(observability.AttrGraphRunID, r.id),
			observability.Int(observability.AttrGraphStep, r.lastStep()),
			observability.Duration(observability.AttrDuration, elapsed))
		r.span.SetStatus(observability.StatusOK, "")
	}
	r.span.End()
}

// observeNodeStart opens a node span. The returned func closes it.
func (r *run[S, U]) observeNodeStart(ctx context.Context, node string, step, branch int) (context.Context, func(error)) {
	r.emit(ctx, Event{Type: EventNodeStarted, Node: node, Step: step, Branch: branch})
	started := time.Now()

	var span observability.Span
	if r.observer != nil {
		attrs := []observability.Attribute{
			observability.String(observability.AttrGraphNode, node),
			observability.Int(observability.AttrGraphStep, step),
		}
		if branch >= 0 {
			attrs = append(attrs, observability.Int(observability.AttrGraphBranch, branch))
		}
		ctx, span = r.observer.StartSpan(ctx, observability.SpanGraphNode, attrs...)
		r.observer.Debug(ctx, "node started", attrs...)
	}

	return ctx, func(err error) {
		elapsed := time.Since(started)
		event := Event{Type: EventNodeCompleted, Node: node, Step: step, Branch: branch, Duration: elapsed}
		if err != nil {
			event.Type = EventNodeFailed
			event.Err = err
		}
		r.emit(ctx, event)
		if r.observer == nil {
			return
		}

		status := "ok"
		if err != nil {
			status = "error"
		}
		labels := []observability.Attribute{
			observability.String(observability.AttrGraphName, r.graph.name),
			observability.String(observability.AttrGraphNode, node),
			observability.String(observability.AttrStatus, status),
		}
		r.observer.Counter(observability.MetricGraphNodeRuns).Add(ctx, 1, labels...)
		r.observer.Histogram(observability.MetricGraphNodeDuration).Record(ctx, elapsed.Seconds(), labels...)

		if err != nil {
			r.observer.Error(ctx, "node failed",
				observability.String(observability.AttrGraphNode, node),
				observability.Int(observability.AttrGraphStep, step),
				observability.Error(err))
			span.RecordError(err)
			span.SetStatus(observability.StatusError, err.Error())
		} else {
			r.observer.Debug(ctx, "node completed",
				observability.String(observability.AttrGraphNode, node),
				observability.Duration(observability.AttrDuration, elapsed))
			span.SetStatus(observability.StatusOK, "")
		}
		span.End()
	}
}

func (r *run[S, U]) observeFanOut(ctx context.Context, from string, width int) {
	r.emit(ctx, Event{Type: EventFanOut, Node: from, Branch: -1, Branches: width})
	if r.observer == nil {
		return
	}
	r.observer.Histogram(observability.MetricGraphFanOutWidth).Record(ctx, float64(width),
		observability.String(observability.AttrGraphName, r.graph.name))
	r.observer.Info(ctx, "fan-out",
		observability.String(observability.AttrGraphNode, from),
		observability.Int(observability.AttrGraphBranches, width))
}

func (r *run[S, U]) observeJoin(ctx context.Context, width int, elapsed time.Duration) {
	r.emit(ctx, Event{Type: EventJoin, Branch: -1, Branches: width, Duration: elapsed})
	if r.observer == nil {
		return
	}
	r.observer.Debug(ctx, "branches joined",
		observability.Int(observability.AttrGraphBranches, width),
		observability.Duration(observability.AttrDuration, elapsed))
}

func (r *run[S, U]) observeRoute(ctx context.Context, from string, decision Decision[S]) {
	if r.observer == nil {
		return
	}
	r.observer.Debug(ctx, "route chosen",
		observability.String(observability.AttrGraphNode, from),
		observability.Strings(observability.AttrGraphNext, decision.targets()))
}

func (r *run[S, U]) emit(ctx context.Context, event Event) {
	if r.graph.config.listener == nil {
		return
	}
	event.RunID = r.id
	r.graph.config.listener(ctx, event)
}
