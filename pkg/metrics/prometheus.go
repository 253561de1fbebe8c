package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/weft-ui/weft/pkg/weft"
)

// Config configures the Prometheus observer.
type Config struct {
	// Namespace is the metrics namespace (default: "weft").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for render and flush duration.
	// Default: prometheus.DefBuckets.
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer.
	Registry prometheus.Registerer
}

// Option configures the Prometheus observer.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) { c.Namespace = namespace }
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) { c.Subsystem = subsystem }
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) { c.ConstLabels = labels }
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) { c.Buckets = buckets }
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) { c.Registry = registry }
}

func defaultConfig() Config {
	return Config{
		Namespace: "weft",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// PromObserver is a weft.Observer that exports engine activity to
// Prometheus: renders by lane, commit effects by phase, flush latency.
type PromObserver struct {
	rendersTotal   *prometheus.CounterVec
	renderDuration *prometheus.HistogramVec
	commitEffects  *prometheus.CounterVec
	flushesTotal   prometheus.Counter
	flushDuration  prometheus.Histogram
}

var _ weft.Observer = (*PromObserver)(nil)

// NewPromObserver creates and registers the observer's metrics. Registering
// two observers against the same registry with identical namespace and
// labels will panic, as promauto does.
func NewPromObserver(opts ...Option) *PromObserver {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &PromObserver{
		rendersTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "renders_total",
			Help:        "Component renders by lane",
			ConstLabels: config.ConstLabels,
		}, []string{"lane"}),

		renderDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "render_duration_seconds",
			Help:        "Component render duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"lane"}),

		commitEffects: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "commit_effects_total",
			Help:        "Commit effects applied by phase",
			ConstLabels: config.ConstLabels,
		}, []string{"phase"}),

		flushesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "flushes_total",
			Help:        "Completed engine flushes",
			ConstLabels: config.ConstLabels,
		}),

		flushDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "flush_duration_seconds",
			Help:        "Engine flush duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),
	}
}

// ObserveRender implements weft.Observer.
func (o *PromObserver) ObserveRender(component string, lane weft.Lane, d time.Duration) {
	o.rendersTotal.WithLabelValues(lane.String()).Inc()
	o.renderDuration.WithLabelValues(lane.String()).Observe(d.Seconds())
}

// ObserveCommit implements weft.Observer.
func (o *PromObserver) ObserveCommit(phase weft.CommitPhase, effects int) {
	o.commitEffects.WithLabelValues(phase.String()).Add(float64(effects))
}

// ObserveFlush implements weft.Observer.
func (o *PromObserver) ObserveFlush(d time.Duration) {
	o.flushesTotal.Inc()
	o.flushDuration.Observe(d.Seconds())
}
