package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// NoopMetrics is a MetricsRecorder that does nothing.
type NoopMetrics struct{}

var _ MetricsRecorder = NoopMetrics{}

// RecordSubmit does nothing.
func (NoopMetrics) RecordSubmit(_ context.Context, _ string, _ bool) {}

// RecordCycle does nothing.
func (NoopMetrics) RecordCycle(_ context.Context, _ string, _ time.Duration, _ error) {}

// RecordInterrupt does nothing.
func (NoopMetrics) RecordInterrupt(_ context.Context, _ string) {}

// RecordEmit does nothing.
func (NoopMetrics) RecordEmit(_ context.Context, _, _ string) {}

// RecordHandlerError does nothing.
func (NoopMetrics) RecordHandlerError(_ context.Context, _, _ string) {}

// RecordForward does nothing.
func (NoopMetrics) RecordForward(_ context.Context, _, _, _ string) {}

// RecordLoopPrevented does nothing.
func (NoopMetrics) RecordLoopPrevented(_ context.Context, _, _ string) {}

// NoopSpanManager is a SpanManager that does nothing.
type NoopSpanManager struct{}

var _ SpanManager = NoopSpanManager{}

var noopSpan = noop.Span{}

// StartCycleSpan returns the context unchanged and a no-op span.
func (NoopSpanManager) StartCycleSpan(ctx context.Context, _ string, _ int, _ string) (context.Context, trace.Span) {
	return ctx, noopSpan
}

// StartForwardSpan returns the context unchanged and a no-op span.
func (NoopSpanManager) StartForwardSpan(ctx context.Context, _, _, _ string) (context.Context, trace.Span) {
	return ctx, noopSpan
}

// EndSpanWithError does nothing.
func (NoopSpanManager) EndSpanWithError(_ trace.Span, _ error) {}

// AddSpanEvent does nothing.
func (NoopSpanManager) AddSpanEvent(_ context.Context, _ string, _ ...attribute.KeyValue) {}
