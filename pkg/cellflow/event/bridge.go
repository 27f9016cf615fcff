package event

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/randalmurphal/cellflow/pkg/cellflow/observability"
	"github.com/randalmurphal/cellflow/pkg/cellflow/registry"
)

// BridgeOption configures a Bridge.
type BridgeOption func(*Bridge)

// WithBridgeLogger sets the bridge logger.
func WithBridgeLogger(logger *slog.Logger) BridgeOption {
	return func(b *Bridge) {
		b.logger = logger
	}
}

// WithBridgeMetrics sets the bridge metrics recorder.
func WithBridgeMetrics(m observability.MetricsRecorder) BridgeOption {
	return func(b *Bridge) {
		b.metrics = m
	}
}

// WithBridgeSpans sets the span manager used for forward hops.
func WithBridgeSpans(s observability.SpanManager) BridgeOption {
	return func(b *Bridge) {
		b.spans = s
	}
}

// Bridge forwards envelopes between buses according to ForwardRules.
//
// Buses and rules are declared before Start. Start subscribes one wildcard
// forwarder on each distinct rule source; Stop removes them. Both are
// idempotent.
type Bridge struct {
	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager

	mu         sync.Mutex
	buses      *registry.Registry[string, *Bus]
	rules      []ForwardRule
	active     bool
	forwarders []*Subscription

	forwarded      atomic.Int64
	loopsPrevented atomic.Int64
}

// NewBridge creates a bridge with no buses and no rules.
func NewBridge(opts ...BridgeOption) *Bridge {
	b := &Bridge{
		buses: registry.New[string, *Bus](),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	if b.metrics == nil {
		b.metrics = observability.NoopMetrics{}
	}
	if b.spans == nil {
		b.spans = observability.NoopSpanManager{}
	}
	return b
}

// RegisterBus makes bus available as a rule source or target. Registering a
// second bus with the same id replaces the first.
func (b *Bridge) RegisterBus(bus *Bus) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.active {
		return misuse("bridge.RegisterBus", ErrBridgeStarted)
	}
	b.buses.Register(bus.ID(), bus)
	return nil
}

// AddRule declares a forward rule.
func (b *Bridge) AddRule(rule ForwardRule) error {
	if err := rule.validate(); err != nil {
		return misuse("bridge.AddRule", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.active {
		return misuse("bridge.AddRule", ErrBridgeStarted)
	}
	rule.Types = slices.Clone(rule.Types)
	b.rules = append(b.rules, rule)
	return nil
}

// Rules returns the declared rules in declaration order.
func (b *Bridge) Rules() []ForwardRule {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.rules)
}

// Start wires the forwarders. Every bus a rule names must be registered.
func (b *Bridge) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.active {
		return nil
	}

	bySource := make(map[string][]compiledRule)
	var sources []string
	for _, r := range b.rules {
		if !b.buses.Has(r.Source) {
			return misuse("bridge.Start", fmt.Errorf("%w: rule source %s", ErrUnknownBus, r.Source))
		}
		target, ok := b.buses.Get(r.Target)
		if !ok {
			return misuse("bridge.Start", fmt.Errorf("%w: rule target %s", ErrUnknownBus, r.Target))
		}
		if _, seen := bySource[r.Source]; !seen {
			sources = append(sources, r.Source)
		}
		bySource[r.Source] = append(bySource[r.Source], compile(r, target))
	}

	for _, id := range sources {
		src, _ := b.buses.Get(id)
		b.forwarders = append(b.forwarders, src.Subscribe(Wildcard, b.forwarder(id, bySource[id])))
	}
	b.active = true

	observability.LogBridgeStart(b.logger, b.buses.Len(), len(b.rules), len(sources))
	return nil
}

// Stop removes the forwarders. Forward hops already launched still complete.
func (b *Bridge) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.active {
		return
	}
	for _, sub := range b.forwarders {
		sub.Unsubscribe()
	}
	b.forwarders = nil
	b.active = false

	b.logger.Info("event bus bridge stopped")
}

// Active reports whether the bridge is started.
func (b *Bridge) Active() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active
}

// forwarder returns the wildcard handler for one source bus. rules is the
// frozen rule set for that source.
func (b *Bridge) forwarder(sourceID string, rules []compiledRule) Handler {
	return func(ctx context.Context, env *Envelope) error {
		for _, r := range rules {
			if !r.admits(env.Type()) {
				continue
			}
			// A hop onto a bus already in the genealogy would revisit it.
			if env.Seen(r.Target) {
				b.preventLoop(ctx, sourceID, r.Target)
				continue
			}
			// A bridged envelope that has already left this bus is being
			// re-emitted here; it must not leave again.
			if env.Bridged() && env.Seen(sourceID) {
				b.preventLoop(ctx, sourceID, r.Target)
				continue
			}
			b.forward(ctx, sourceID, r, env)
		}
		return nil
	}
}

func (b *Bridge) forward(ctx context.Context, sourceID string, r compiledRule, env *Envelope) {
	ctx, span := b.spans.StartForwardSpan(ctx, sourceID, r.Target, env.Type())

	out := env.hop(sourceID)
	if r.Transform != nil {
		lineage := out
		out = r.Transform(out)
		if out == nil {
			b.spans.AddSpanEvent(ctx, "transform_dropped")
			b.spans.EndSpanWithError(span, nil)
			return
		}
		out = out.withLineage(lineage)
	}

	b.forwarded.Add(1)
	b.metrics.RecordForward(ctx, sourceID, r.Target, out.Type())
	r.target.Emit(ctx, out)
	b.spans.EndSpanWithError(span, nil)
}

func (b *Bridge) preventLoop(ctx context.Context, source, target string) {
	b.loopsPrevented.Add(1)
	b.metrics.RecordLoopPrevented(ctx, source, target)
}

// BridgeStats is a point-in-time view of a bridge.
type BridgeStats struct {
	Active         bool     `json:"active"`
	Buses          []string `json:"buses"`
	Rules          int      `json:"rules"`
	Forwarded      int64    `json:"forwarded"`
	LoopsPrevented int64    `json:"loops_prevented"`
}

// Stats returns the bridge counters.
func (b *Bridge) Stats() BridgeStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BridgeStats{
		Active:         b.active,
		Buses:          b.buses.Keys(),
		Rules:          len(b.rules),
		Forwarded:      b.forwarded.Load(),
		LoopsPrevented: b.loopsPrevented.Load(),
	}
}
