package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/weft-ui/weft/pkg/weft"
)

const defaultTracerName = "weft"

// OTelConfig configures the tracing observer.
type OTelConfig struct {
	// TracerName is the name of the tracer (default: "weft").
	TracerName string

	// MinRenderDuration drops render spans shorter than this. Zero traces
	// every render.
	MinRenderDuration time.Duration

	tracer trace.Tracer
}

// OTelOption configures the tracing observer.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) { c.TracerName = name }
}

// WithMinRenderDuration sets the shortest render worth a span.
func WithMinRenderDuration(d time.Duration) OTelOption {
	return func(c *OTelConfig) { c.MinRenderDuration = d }
}

// OTelObserver is a weft.Observer that emits one span per render and per
// flush. Spans carry explicit start timestamps reconstructed from the
// observed duration, so they nest correctly in a trace viewer.
//
// The tracer comes from the global OpenTelemetry tracer provider; configure
// it in main() before mounting roots.
type OTelObserver struct {
	config OTelConfig
}

var _ weft.Observer = (*OTelObserver)(nil)

// NewOTelObserver creates a tracing observer.
func NewOTelObserver(opts ...OTelOption) *OTelObserver {
	config := OTelConfig{TracerName: defaultTracerName}
	for _, opt := range opts {
		opt(&config)
	}
	config.tracer = otel.Tracer(config.TracerName)
	return &OTelObserver{config: config}
}

// ObserveRender implements weft.Observer.
func (o *OTelObserver) ObserveRender(component string, lane weft.Lane, d time.Duration) {
	if d < o.config.MinRenderDuration {
		return
	}
	end := time.Now()
	_, span := o.config.tracer.Start(context.Background(), "weft.render",
		trace.WithTimestamp(end.Add(-d)),
		trace.WithAttributes(
			attribute.String("weft.component", component),
			attribute.String("weft.lane", lane.String()),
		))
	span.End(trace.WithTimestamp(end))
}

// ObserveCommit implements weft.Observer.
func (o *OTelObserver) ObserveCommit(phase weft.CommitPhase, effects int) {
	end := time.Now()
	_, span := o.config.tracer.Start(context.Background(), "weft.commit",
		trace.WithTimestamp(end),
		trace.WithAttributes(
			attribute.String("weft.phase", phase.String()),
			attribute.Int("weft.effects", effects),
		))
	span.End(trace.WithTimestamp(end))
}

// ObserveFlush implements weft.Observer.
func (o *OTelObserver) ObserveFlush(d time.Duration) {
	end := time.Now()
	_, span := o.config.tracer.Start(context.Background(), "weft.flush",
		trace.WithTimestamp(end.Add(-d)))
	span.End(trace.WithTimestamp(end))
}
