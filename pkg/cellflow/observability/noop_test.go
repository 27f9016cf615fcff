package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestNoopMetrics_AllMethods(t *testing.T) {
	var m MetricsRecorder = NoopMetrics{}
	ctx := context.Background()

	assert.NotPanics(t, func() {
		m.RecordSubmit(ctx, "reflex", true)
		m.RecordSubmit(ctx, "reflex", false)
		m.RecordCycle(ctx, "micro", time.Millisecond, nil)
		m.RecordCycle(ctx, "micro", time.Millisecond, errors.New("x"))
		m.RecordInterrupt(ctx, "micro")
		m.RecordEmit(ctx, "CORE", "judgment.created")
		m.RecordHandlerError(ctx, "CORE", "judgment.created")
		m.RecordForward(ctx, "CORE", "AGENT", "judgment.created")
		m.RecordLoopPrevented(ctx, "AGENT", "CORE")
	})
}

func TestNoopSpanManager_ReturnsSameContext(t *testing.T) {
	var sm SpanManager = NoopSpanManager{}
	ctx := context.Background()

	cycleCtx, span := sm.StartCycleSpan(ctx, "reflex", 0, "item-1")
	assert.Equal(t, ctx, cycleCtx)
	assert.NotNil(t, span)
	assert.False(t, span.IsRecording())

	fwdCtx, span := sm.StartForwardSpan(ctx, "CORE", "AGENT", "judgment.created")
	assert.Equal(t, ctx, fwdCtx)
	assert.NotNil(t, span)

	assert.NotPanics(t, func() {
		sm.EndSpanWithError(span, errors.New("ignored"))
		sm.EndSpanWithError(nil, nil)
		sm.AddSpanEvent(ctx, "event", attribute.String("k", "v"))
	})
}
