// Package observability defines the tracing, metrics and logging contracts
// used by every prosearch component.
//
// A single [Provider] is injected into the graph executor, the agent call
// harness and the research workflow. It can also travel on a
// [context.Context] via [ContextWithObserver], so nested components pick up
// the caller's observer without extra plumbing. Attribute keys, span names and
// metric names live in semconv.go.
package observability
