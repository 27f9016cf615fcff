package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records scheduler, bus, and bridge metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordSubmit records a submission attempt and whether the tier queue accepted it.
	RecordSubmit(ctx context.Context, tier string, accepted bool)

	// RecordCycle records one processed work item with its latency and error status.
	RecordCycle(ctx context.Context, tier string, duration time.Duration, err error)

	// RecordInterrupt records an escalation raised toward a tier.
	RecordInterrupt(ctx context.Context, tier string)

	// RecordEmit records an envelope emitted on a bus.
	RecordEmit(ctx context.Context, busID, eventType string)

	// RecordHandlerError records a subscriber failure on a bus.
	RecordHandlerError(ctx context.Context, busID, eventType string)

	// RecordForward records a bridge hop.
	RecordForward(ctx context.Context, source, target, eventType string)

	// RecordLoopPrevented records a hop suppressed by genealogy.
	RecordLoopPrevented(ctx context.Context, source, target string)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	submitted      metric.Int64Counter
	dropped        metric.Int64Counter
	cycles         metric.Int64Counter
	cycleLatency   metric.Float64Histogram
	cycleErrors    metric.Int64Counter
	interrupts     metric.Int64Counter
	emitted        metric.Int64Counter
	handlerErrors  metric.Int64Counter
	forwarded      metric.Int64Counter
	loopsPrevented metric.Int64Counter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics lazily initializes the shared instruments.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("cellflow")
	m := &otelMetrics{}

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.submitted, "cellflow.scheduler.submitted", "Work items accepted by a tier queue"},
		{&m.dropped, "cellflow.scheduler.dropped", "Work items rejected by a full tier queue"},
		{&m.cycles, "cellflow.scheduler.cycles", "Work items processed by tier workers"},
		{&m.cycleErrors, "cellflow.scheduler.cycle_errors", "Orchestrator failures inside worker loops"},
		{&m.interrupts, "cellflow.scheduler.interrupts", "Interrupt escalations raised toward a tier"},
		{&m.emitted, "cellflow.bus.emitted", "Envelopes emitted on a bus"},
		{&m.handlerErrors, "cellflow.bus.handler_errors", "Subscriber failures caught at dispatch"},
		{&m.forwarded, "cellflow.bridge.forwarded", "Envelopes forwarded between buses"},
		{&m.loopsPrevented, "cellflow.bridge.loops_prevented", "Forward hops suppressed by genealogy"},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, err
		}
		*c.dst = counter
	}

	latency, err := meter.Float64Histogram("cellflow.scheduler.cycle.latency_ms",
		metric.WithDescription("Worker cycle latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}
	m.cycleLatency = latency

	return m, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

func (m *otelMetrics) RecordSubmit(ctx context.Context, tier string, accepted bool) {
	attrs := metric.WithAttributes(attribute.String("tier", tier))
	if accepted {
		m.submitted.Add(ctx, 1, attrs)
		return
	}
	m.dropped.Add(ctx, 1, attrs)
}

func (m *otelMetrics) RecordCycle(ctx context.Context, tier string, duration time.Duration, err error) {
	attrs := metric.WithAttributes(attribute.String("tier", tier))
	m.cycles.Add(ctx, 1, attrs)
	m.cycleLatency.Record(ctx, float64(duration)/float64(time.Millisecond), attrs)
	if err != nil {
		m.cycleErrors.Add(ctx, 1, attrs)
	}
}

func (m *otelMetrics) RecordInterrupt(ctx context.Context, tier string) {
	m.interrupts.Add(ctx, 1, metric.WithAttributes(attribute.String("tier", tier)))
}

func (m *otelMetrics) RecordEmit(ctx context.Context, busID, eventType string) {
	m.emitted.Add(ctx, 1, metric.WithAttributes(
		attribute.String("bus_id", busID),
		attribute.String("event_type", eventType),
	))
}

func (m *otelMetrics) RecordHandlerError(ctx context.Context, busID, eventType string) {
	m.handlerErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("bus_id", busID),
		attribute.String("event_type", eventType),
	))
}

func (m *otelMetrics) RecordForward(ctx context.Context, source, target, eventType string) {
	m.forwarded.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("target", target),
		attribute.String("event_type", eventType),
	))
}

func (m *otelMetrics) RecordLoopPrevented(ctx context.Context, source, target string) {
	m.loopsPrevented.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("target", target),
	))
}
