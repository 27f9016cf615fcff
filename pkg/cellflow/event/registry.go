package event

import (
	"context"

	"github.com/randalmurphal/cellflow/pkg/cellflow/registry"
)

// Well-known bus ids.
const (
	CoreBus       = "CORE"       // judgment, learning and consciousness events
	AutomationBus = "AUTOMATION" // triggers, ticks and scheduled work
	AgentBus      = "AGENT"      // agent signals, consensus and voting
)

// Registry owns the process's buses. Construct one at startup and pass it to
// every component that needs a bus.
type Registry struct {
	buses   *registry.Registry[string, *Bus]
	opts    []BusOption
	pending *pending
}

// NewRegistry creates an empty registry. opts apply to every bus it creates.
func NewRegistry(opts ...BusOption) *Registry {
	return &Registry{
		buses:   registry.New[string, *Bus](),
		opts:    opts,
		pending: &pending{},
	}
}

// Bus returns the bus with id, creating it on first use.
func (r *Registry) Bus(id string) *Bus {
	return r.buses.GetOrCreate(id, func() *Bus {
		b := NewBus(id, r.opts...)
		b.shared = r.pending
		return b
	})
}

// Lookup returns the bus with id if it exists.
func (r *Registry) Lookup(id string) (*Bus, bool) {
	return r.buses.Get(id)
}

// Core returns the CORE bus.
func (r *Registry) Core() *Bus { return r.Bus(CoreBus) }

// Automation returns the AUTOMATION bus.
func (r *Registry) Automation() *Bus { return r.Bus(AutomationBus) }

// Agent returns the AGENT bus.
func (r *Registry) Agent() *Bus { return r.Bus(AgentBus) }

// IDs returns the bus ids in creation order.
func (r *Registry) IDs() []string {
	return r.buses.Keys()
}

// Stats returns the stats of every bus in creation order.
func (r *Registry) Stats() []BusStats {
	buses := r.buses.Values()
	out := make([]BusStats, 0, len(buses))
	for _, b := range buses {
		out = append(out, b.Stats())
	}
	return out
}

// Reset forgets every bus. Buses handed out earlier keep working but are no
// longer reachable through the registry. Intended for test isolation.
func (r *Registry) Reset() {
	r.buses.Clear()
}

// Settle blocks until no handler launched on any registry bus is running.
// Forwarded emissions start before the forwarding handler returns, so a
// bridge chain is waited for as a whole.
func (r *Registry) Settle(ctx context.Context) error {
	return r.pending.wait(ctx)
}

// Emit builds an envelope and emits it on the bus with id.
func (r *Registry) Emit(ctx context.Context, busID, eventType string, payload any, source string) *Envelope {
	env := New(eventType, payload, WithSource(source))
	r.Bus(busID).Emit(ctx, env)
	return env
}

// EmitCore emits on the CORE bus.
func (r *Registry) EmitCore(ctx context.Context, eventType string, payload any, source string) *Envelope {
	return r.Emit(ctx, CoreBus, eventType, payload, source)
}

// EmitAutomation emits on the AUTOMATION bus.
func (r *Registry) EmitAutomation(ctx context.Context, eventType string, payload any, source string) *Envelope {
	return r.Emit(ctx, AutomationBus, eventType, payload, source)
}

// EmitAgent emits on the AGENT bus.
func (r *Registry) EmitAgent(ctx context.Context, eventType string, payload any, source string) *Envelope {
	return r.Emit(ctx, AgentBus, eventType, payload, source)
}
