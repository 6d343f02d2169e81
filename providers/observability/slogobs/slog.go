package slogobs

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/leofalp/prosearch/providers/observability"
)

// Observer implements observability.Provider with a slog.Logger.
type Observer struct {
	logger *slog.Logger

	mu         sync.Mutex
	counters   map[string]*counter
	histograms map[string]*histogram
}

var _ observability.Provider = (*Observer)(nil)

// New builds an Observer. Without options the format and level come from the
// environment.
//
//	observer := slogobs.New(slogobs.WithLevel(slog.LevelDebug))
func New(opts ...Option) *Observer {
	cfg := applyOptions(opts...)
	logger := cfg.logger
	if logger == nil {
		logger = slog.New(newHandler(cfg))
	}
	return &Observer{
		logger:     logger,
		counters:   make(map[string]*counter),
		histograms: make(map[string]*histogram),
	}
}

// Logger exposes the underlying slog.Logger.
func (o *Observer) Logger() *slog.Logger {
	return o.logger
}

func toSlog(attrs []observability.Attribute) []slog.Attr {
	out := make([]slog.Attr, 0, len(attrs))
	for _, attr := range attrs {
		out = append(out, slog.Any(attr.Key, attr.Value))
	}
	return out
}

func (o *Observer) log(ctx context.Context, level slog.Level, msg string, attrs []observability.Attribute) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !o.logger.Enabled(ctx, level) {
		return
	}
	o.logger.LogAttrs(ctx, level, msg, toSlog(attrs)...)
}

func (o *Observer) Trace(ctx context.Context, msg string, attrs ...observability.Attribute) {
	o.log(ctx, LevelTrace, msg, attrs)
}

func (o *Observer) Debug(ctx context.Context, msg string, attrs ...observability.Attribute) {
	o.log(ctx, slog.LevelDebug, msg, attrs)
}

func (o *Observer) Info(ctx context.Context, msg string, attrs ...observability.Attribute) {
	o.log(ctx, slog.LevelInfo, msg, attrs)
}

func (o *Observer) Warn(ctx context.Context, msg string, attrs ...observability.Attribute) {
	o.log(ctx, slog.LevelWarn, msg, attrs)
}

func (o *Observer) Error(ctx context.Context, msg string, attrs ...observability.Attribute) {
	o.log(ctx, slog.LevelError, msg, attrs)
}

// --- spans ---

// StartSpan logs the span start at debug level and returns a context carrying
// the span.
func (o *Observer) StartSpan(ctx context.Context, name string, attrs ...observability.Attribute) (context.Context, observability.Span) {
	span := &span{observer: o, name: name, start: time.Now(), attrs: append([]observability.Attribute(nil), attrs...)}
	o.Debug(ctx, "span started", append([]observability.Attribute{observability.String("span", name)}, attrs...)...)
	return observability.ContextWithSpan(ctx, span), span
}

type span struct {
	observer *Observer
	name     string
	start    time.Time

	mu    sync.Mutex
	attrs []observability.Attribute
}

func (s *span) End() {
	s.mu.Lock()
	attrs := append([]observability.Attribute{
		observability.String("span", s.name),
		observability.Duration(observability.AttrDuration, time.Since(s.start)),
	}, s.attrs...)
	s.mu.Unlock()
	s.observer.Debug(context.Background(), "span ended", attrs...)
}

func (s *span) SetAttributes(attrs ...observability.Attribute) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attrs = append(s.attrs, attrs...)
}

func (s *span) SetStatus(code observability.StatusCode, description string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attrs = append(s.attrs, observability.String(observability.AttrStatus, code.String()))
	if description != "" {
		s.attrs = append(s.attrs, observability.String(observability.AttrStatusDescription, description))
	}
}

func (s *span) RecordError(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	s.attrs = append(s.attrs, observability.Error(err))
	s.mu.Unlock()
	s.observer.Debug(context.Background(), "span error", observability.String("span", s.name), observability.Error(err))
}

func (s *span) AddEvent(name string, attrs ...observability.Attribute) {
	s.observer.Trace(context.Background(), name, append([]observability.Attribute{observability.String("span", s.name)}, attrs...)...)
}

// --- metrics ---

// Counter returns the named counter, creating it on first use.
func (o *Observer) Counter(name string) observability.Counter {
	o.mu.Lock()
	defer o.mu.Unlock()
	c, ok := o.counters[name]
	if !ok {
		c = &counter{observer: o, name: name}
		o.counters[name] = c
	}
	return c
}

// Histogram returns the named histogram, creating it on first use.
func (o *Observer) Histogram(name string) observability.Histogram {
	o.mu.Lock()
	defer o.mu.Unlock()
	h, ok := o.histograms[name]
	if !ok {
		h = &histogram{observer: o, name: name}
		o.histograms[name] = h
	}
	return h
}

// CounterValue reports the running total of a counter, or 0 if it was never used.
func (o *Observer) CounterValue(name string) int64 {
	o.mu.Lock()
	c, ok := o.counters[name]
	o.mu.Unlock()
	if !ok {
		return 0
	}
	return c.total.Load()
}

type counter struct {
	observer *Observer
	name     string
	total    atomic.Int64
}

func (c *counter) Add(ctx context.Context, value int64, attrs ...observability.Attribute) {
	total := c.total.Add(value)
	c.observer.Trace(ctx, "counter", append([]observability.Attribute{
		observability.String("metric", c.name),
		observability.Int64("delta", value),
		observability.Int64("total", total),
	}, attrs...)...)
}

type histogram struct {
	observer *Observer
	name     string
}

func (h *histogram) Record(ctx context.Context, value float64, attrs ...observability.Attribute) {
	h.observer.Trace(ctx, "histogram", append([]observability.Attribute{
		observability.String("metric", h.name),
		observability.Float64("value", value),
	}, attrs...)...)
}
