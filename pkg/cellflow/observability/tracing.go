package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracer is the cellflow tracer instance.
// Uses the global OTel tracer provider.
var tracer = otel.Tracer("cellflow")

// SpanManager handles trace span lifecycle.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartCycleSpan starts a span for one work item processed by a tier worker.
	StartCycleSpan(ctx context.Context, tier string, worker int, itemID string) (context.Context, trace.Span)

	// StartForwardSpan starts a span for one bridge hop.
	StartForwardSpan(ctx context.Context, source, target, eventType string) (context.Context, trace.Span)

	// EndSpanWithError completes a span, optionally recording an error.
	EndSpanWithError(span trace.Span, err error)

	// AddSpanEvent adds an event to the current span in context.
	AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue)
}

type otelSpanManager struct{}

// NewSpanManager returns a SpanManager that uses OpenTelemetry.
//
// The span manager uses the global OTel tracer provider. Configure the provider
// before calling this function:
//
//	otel.SetTracerProvider(yourProvider)
func NewSpanManager() SpanManager {
	return &otelSpanManager{}
}

// StartCycleSpan starts a span named after the tier for one work item.
func (m *otelSpanManager) StartCycleSpan(ctx context.Context, tier string, worker int, itemID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "cellflow.cycle."+tier,
		trace.WithAttributes(
			attribute.String("tier", tier),
			attribute.Int("worker", worker),
			attribute.String("item.id", itemID),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartForwardSpan starts a producer span for one bridge hop.
func (m *otelSpanManager) StartForwardSpan(ctx context.Context, source, target, eventType string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "cellflow.bridge.forward",
		trace.WithAttributes(
			attribute.String("bus.source", source),
			attribute.String("bus.target", target),
			attribute.String("event.type", eventType),
		),
		trace.WithSpanKind(trace.SpanKindProducer),
	)
}

// EndSpanWithError completes a span, optionally recording an error.
func (m *otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// AddSpanEvent adds an event to the span in ctx, if one is recording.
func (m *otelSpanManager) AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if span == nil || !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
