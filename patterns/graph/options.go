package graph

import "github.com/leofalp/prosearch/providers/observability"

// Option configures a graph at build time.
type Option func(*graphConfig)

type graphConfig struct {
	maxConcurrency int
	observer       observability.Provider
	listener       Listener
}

// WithMaxConcurrency caps how many fan-out branches run at once. 0, the
// default, runs every branch of a fan-out at the same time.
func WithMaxConcurrency(maxConcurrency int) Option {
	return func(config *graphConfig) {
		config.maxConcurrency = maxConcurrency
	}
}

// WithObserver sets the observability provider. Without it the executor uses
// the provider carried by the run context, if any.
func WithObserver(observer observability.Provider) Option {
	return func(config *graphConfig) {
		config.observer = observer
	}
}

// WithListener receives progress events while a run executes.
func WithListener(listener Listener) Option {
	return func(config *graphConfig) {
		config.listener = listener
	}
}
