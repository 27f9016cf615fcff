package cli

import (
	"context"
	"sort"

	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// telemetry installs in-process OpenTelemetry providers so a run can
// report its own counters and spans without an exporter.
type telemetry struct {
	reader *sdkmetric.ManualReader
	meters *sdkmetric.MeterProvider
	spans  *tracetest.SpanRecorder
	tracer *sdktrace.TracerProvider
}

func setupTelemetry() *telemetry {
	t := &telemetry{
		reader: sdkmetric.NewManualReader(),
		spans:  tracetest.NewSpanRecorder(),
	}
	t.meters = sdkmetric.NewMeterProvider(sdkmetric.WithReader(t.reader))
	t.tracer = sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(t.spans))
	otel.SetMeterProvider(t.meters)
	otel.SetTracerProvider(t.tracer)
	return t
}

// TelemetrySummary is the collected view of a run.
type TelemetrySummary struct {
	Counters map[string]int64 `json:"counters"`
	Spans    map[string]int   `json:"spans"`
}

func (t *telemetry) summary(ctx context.Context) (TelemetrySummary, error) {
	s := TelemetrySummary{
		Counters: make(map[string]int64),
		Spans:    make(map[string]int),
	}

	var rm metricdata.ResourceMetrics
	if err := t.reader.Collect(ctx, &rm); err != nil {
		return s, err
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					s.Counters[m.Name] += dp.Value
				}
			}
		}
	}

	for _, span := range t.spans.Ended() {
		s.Spans[span.Name()]++
	}
	return s, nil
}

func (t *telemetry) shutdown(ctx context.Context) {
	_ = t.meters.Shutdown(ctx)
	_ = t.tracer.Shutdown(ctx)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
