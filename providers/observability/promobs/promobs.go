// Package promobs exports prosearch counters and histograms to Prometheus.
//
// Logging and tracing are delegated to a wrapped observability.Provider, so a
// typical setup is promobs.New(slogobs.New(), prometheus.DefaultRegisterer).
package promobs

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/leofalp/prosearch/providers/observability"
)

// DefaultBuckets fits both second-scale LLM latencies and small fan-out widths.
var DefaultBuckets = []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

// Option configures an Observer.
type Option func(*Observer)

// WithNamespace prefixes every metric name.
func WithNamespace(namespace string) Option {
	return func(o *Observer) { o.namespace = namespace }
}

// WithBuckets overrides the histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(o *Observer) { o.buckets = buckets }
}

// Observer sends metrics to Prometheus and everything else to the wrapped provider.
type Observer struct {
	observability.Tracer
	observability.Logger

	registerer prometheus.Registerer
	namespace  string
	buckets    []float64

	mu         sync.Mutex
	counters   map[string]*counter
	histograms map[string]*histogram
}

var _ observability.Provider = (*Observer)(nil)

// New wraps base. A nil registerer means prometheus.DefaultRegisterer.
func New(base observability.Provider, registerer prometheus.Registerer, opts ...Option) *Observer {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	observer := &Observer{
		Tracer:     base,
		Logger:     base,
		registerer: registerer,
		buckets:    DefaultBuckets,
		counters:   make(map[string]*counter),
		histograms: make(map[string]*histogram),
	}
	for _, opt := range opts {
		opt(observer)
	}
	return observer
}

// MetricName converts a dotted metric name into a valid Prometheus name.
func MetricName(namespace, name string) string {
	sanitized := sanitize(name)
	if namespace != "" {
		return sanitize(namespace) + "_" + sanitized
	}
	return sanitized
}

func sanitize(name string) string {
	var builder strings.Builder
	for index, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_', r == ':':
			builder.WriteRune(r)
		case r >= '0' && r <= '9' && index > 0:
			builder.WriteRune(r)
		default:
			builder.WriteRune('_')
		}
	}
	return builder.String()
}

// labelSet fixes the label names of a vector to the attribute keys seen on the
// first observation. Later observations fill missing labels with "" and drop
// unknown ones.
type labelSet struct {
	names []string
}

func newLabelSet(attrs []observability.Attribute) labelSet {
	seen := make(map[string]bool, len(attrs))
	names := make([]string, 0, len(attrs))
	for _, attr := range attrs {
		name := sanitize(attr.Key)
		if seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	sort.Strings(names)
	return labelSet{names: names}
}

func (set labelSet) values(attrs []observability.Attribute) prometheus.Labels {
	labels := make(prometheus.Labels, len(set.names))
	for _, name := range set.names {
		labels[name] = ""
	}
	for _, attr := range attrs {
		name := sanitize(attr.Key)
		if _, ok := labels[name]; ok {
			labels[name] = attr.ValueString()
		}
	}
	return labels
}

// Counter returns a counter backed by a prometheus.CounterVec.
func (o *Observer) Counter(name string) observability.Counter {
	o.mu.Lock()
	defer o.mu.Unlock()
	c, ok := o.counters[name]
	if !ok {
		c = &counter{observer: o, name: MetricName(o.namespace, name)}
		o.counters[name] = c
	}
	return c
}

// Histogram returns a histogram backed by a prometheus.HistogramVec.
func (o *Observer) Histogram(name string) observability.Histogram {
	o.mu.Lock()
	defer o.mu.Unlock()
	h, ok := o.histograms[name]
	if !ok {
		h = &histogram{observer: o, name: MetricName(o.namespace, name)}
		o.histograms[name] = h
	}
	return h
}

type counter struct {
	observer *Observer
	name     string

	once   sync.Once
	labels labelSet
	vec    *prometheus.CounterVec
}

func (c *counter) Add(ctx context.Context, value int64, attrs ...observability.Attribute) {
	c.once.Do(func() {
		c.labels = newLabelSet(attrs)
		vec := prometheus.NewCounterVec(prometheus.CounterOpts{Name: c.name, Help: "prosearch counter " + c.name}, c.labels.names)
		c.vec = register(c.observer, vec)
	})
	c.vec.With(c.labels.values(attrs)).Add(float64(value))
}

type histogram struct {
	observer *Observer
	name     string

	once   sync.Once
	labels labelSet
	vec    *prometheus.HistogramVec
}

func (h *histogram) Record(ctx context.Context, value float64, attrs ...observability.Attribute) {
	h.once.Do(func() {
		h.labels = newLabelSet(attrs)
		vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    h.name,
			Help:    "prosearch histogram " + h.name,
			Buckets: h.observer.buckets,
		}, h.labels.names)
		h.vec = register(h.observer, vec)
	})
	h.vec.With(h.labels.values(attrs)).Observe(value)
}

// register reuses an already registered collector with the same descriptor.
func register[C prometheus.Collector](o *Observer, collector C) C {
	if err := o.registerer.Register(collector); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
		o.Logger.Warn(context.Background(), "prometheus registration failed",
			observability.String("metric", collectorName(collector)), observability.Error(err))
	}
	return collector
}

func collectorName(collector prometheus.Collector) string {
	descs := make(chan *prometheus.Desc, 1)
	go func() {
		collector.Describe(descs)
		close(descs)
	}()
	var name string
	for desc := range descs {
		if name == "" {
			name = desc.String()
		}
	}
	return name
}
