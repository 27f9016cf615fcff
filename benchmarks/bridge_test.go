package benchmarks

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/randalmurphal/cellflow/pkg/cellflow/event"
)

// BenchmarkEmit_NoHandlers measures history and counter bookkeeping alone.
func BenchmarkEmit_NoHandlers(b *testing.B) {
	bus := event.NewBus("CORE", event.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		bus.Emit(ctx, event.New(event.JudgmentCreated, i))
	}
}

// BenchmarkEmit_Fanout measures dispatch to ten handlers, settled per emit.
func BenchmarkEmit_Fanout(b *testing.B) {
	bus := event.NewBus("CORE")
	for i := 0; i < 10; i++ {
		bus.Subscribe(event.JudgmentCreated, func(context.Context, *event.Envelope) error { return nil })
	}
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		bus.Emit(ctx, event.New(event.JudgmentCreated, i))
		_ = bus.Settle(ctx)
	}
}

// BenchmarkBridge_DefaultRules measures one CORE emission routed through the
// default bridge to AGENT and AUTOMATION.
func BenchmarkBridge_DefaultRules(b *testing.B) {
	reg := event.NewRegistry(event.WithHistorySize(0))
	bridge, err := event.NewDefaultBridge(reg, event.WithBridgeLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		b.Fatal(err)
	}
	if err := bridge.Start(); err != nil {
		b.Fatal(err)
	}
	defer bridge.Stop()
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		reg.EmitCore(ctx, event.MetaCycle, i, "bench")
		_ = reg.Settle(ctx)
	}
}

// BenchmarkBridge_CyclicPair measures a forward plus the suppressed return hop.
func BenchmarkBridge_CyclicPair(b *testing.B) {
	reg := event.NewRegistry(event.WithHistorySize(0))
	bridge := event.NewBridge(event.WithBridgeLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	_ = bridge.RegisterBus(reg.Bus("A"))
	_ = bridge.RegisterBus(reg.Bus("B"))
	_ = bridge.AddRule(event.ForwardRule{Source: "A", Target: "B", Types: []string{"x"}})
	_ = bridge.AddRule(event.ForwardRule{Source: "B", Target: "A", Types: []string{"x"}})
	if err := bridge.Start(); err != nil {
		b.Fatal(err)
	}
	defer bridge.Stop()
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		reg.Emit(ctx, "A", "x", i, "bench")
		_ = reg.Settle(ctx)
	}
}
