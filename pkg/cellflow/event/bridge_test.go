package event_test

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cferrors "github.com/randalmurphal/cellflow/pkg/cellflow/errors"
	"github.com/randalmurphal/cellflow/pkg/cellflow/event"
)

// recorder collects every envelope delivered to a bus.
type recorder struct {
	mu   sync.Mutex
	envs []*event.Envelope
}

func record(bus *event.Bus) *recorder {
	r := &recorder{}
	bus.Subscribe(event.Wildcard, func(_ context.Context, env *event.Envelope) error {
		r.mu.Lock()
		r.envs = append(r.envs, env)
		r.mu.Unlock()
		return nil
	})
	return r
}

func (r *recorder) all() []*event.Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.envs)
}

func (r *recorder) bridged() []*event.Envelope {
	var out []*event.Envelope
	for _, env := range r.all() {
		if env.Bridged() {
			out = append(out, env)
		}
	}
	return out
}

func newBridge(t *testing.T, reg *event.Registry, ids []string, rules ...event.ForwardRule) *event.Bridge {
	t.Helper()
	b := event.NewBridge()
	for _, id := range ids {
		require.NoError(t, b.RegisterBus(reg.Bus(id)))
	}
	for _, r := range rules {
		require.NoError(t, b.AddRule(r))
	}
	require.NoError(t, b.Start())
	t.Cleanup(b.Stop)
	return b
}

func TestBridge_CyclicPairForwardsOnce(t *testing.T) {
	reg := event.NewRegistry()
	a, bb := reg.Bus("A"), reg.Bus("B")
	recA, recB := record(a), record(bb)

	bridge := newBridge(t, reg, []string{"A", "B"},
		event.ForwardRule{Source: "A", Target: "B", Types: []string{"x"}},
		event.ForwardRule{Source: "B", Target: "A", Types: []string{"x"}},
	)

	orig := event.New("x", "payload")
	a.Emit(context.Background(), orig)
	settle(t, reg)

	gotB := recB.all()
	require.Len(t, gotB, 1, "B receives exactly one delivery")
	assert.Equal(t, orig.ID(), gotB[0].ID())
	assert.Equal(t, []string{"A"}, gotB[0].Genealogy())
	assert.True(t, gotB[0].Bridged())

	gotA := recA.all()
	require.Len(t, gotA, 1, "A only sees its own emission")
	assert.False(t, gotA[0].Bridged())

	stats := bridge.Stats()
	assert.Equal(t, int64(1), stats.Forwarded)
	assert.GreaterOrEqual(t, stats.LoopsPrevented, int64(1))
}

func TestBridge_FullMeshTerminates(t *testing.T) {
	reg := event.NewRegistry()
	ids := []string{"A", "B", "C", "D"}
	recs := make(map[string]*recorder)
	var rules []event.ForwardRule
	for _, src := range ids {
		recs[src] = record(reg.Bus(src))
		for _, dst := range ids {
			if src != dst {
				rules = append(rules, event.ForwardRule{Source: src, Target: dst})
			}
		}
	}
	newBridge(t, reg, ids, rules...)

	reg.Bus("A").Emit(context.Background(), event.New("x", nil))
	settle(t, reg)

	for _, id := range ids {
		for _, env := range recs[id].all() {
			g := env.Genealogy()
			assert.NotContains(t, g, id, "bus %s received envelope whose genealogy contains it: %v", id, g)
			assert.LessOrEqual(t, len(g), len(ids)-1)
			// genealogy never repeats a bus
			seen := map[string]bool{}
			for _, hop := range g {
				assert.False(t, seen[hop], "repeated hop %s in %v", hop, g)
				seen[hop] = true
			}
		}
	}
	assert.Len(t, recs["A"].bridged(), 0, "origin bus never receives its envelope back")
}

func TestBridge_TypeFilter(t *testing.T) {
	reg := event.NewRegistry()
	recB := record(reg.Bus("B"))
	newBridge(t, reg, []string{"A", "B"},
		event.ForwardRule{Source: "A", Target: "B", Types: []string{"wanted"}},
	)

	reg.Bus("A").Emit(context.Background(), event.New("wanted", nil))
	reg.Bus("A").Emit(context.Background(), event.New("ignored", nil))
	settle(t, reg)

	got := recB.all()
	require.Len(t, got, 1)
	assert.Equal(t, "wanted", got[0].Type())
}

func TestBridge_ReemittedBridgedEnvelopeStaysPut(t *testing.T) {
	reg := event.NewRegistry()
	a, b := reg.Bus("A"), reg.Bus("B")
	recC := record(reg.Bus("C"))

	// A handler on B echoes what it receives back onto A.
	b.Subscribe("x", func(ctx context.Context, env *event.Envelope) error {
		if env.Bridged() {
			a.Emit(ctx, env)
		}
		return nil
	})

	bridge := newBridge(t, reg, []string{"A", "B", "C"},
		event.ForwardRule{Source: "A", Target: "B"},
		event.ForwardRule{Source: "A", Target: "C"},
	)

	a.Emit(context.Background(), event.New("x", nil))
	settle(t, reg)

	// C gets the original hop only; the echo already left A once.
	require.Len(t, recC.all(), 1)
	stats := bridge.Stats()
	assert.Equal(t, int64(2), stats.Forwarded)
	assert.Equal(t, int64(2), stats.LoopsPrevented, "echo suppressed for both rules")
}

func TestBridge_Transform(t *testing.T) {
	reg := event.NewRegistry()
	recB := record(reg.Bus("B"))
	recC := record(reg.Bus("C"))

	newBridge(t, reg, []string{"A", "B", "C"},
		event.ForwardRule{
			Source: "A", Target: "B",
			Transform: func(env *event.Envelope) *event.Envelope {
				// A fresh envelope has no lineage; the bridge restores it.
				return event.New("renamed", "rewritten", event.WithID(env.ID()))
			},
		},
		event.ForwardRule{
			Source:    "A",
			Target:    "C",
			Transform: func(*event.Envelope) *event.Envelope { return nil },
		},
	)

	reg.Bus("A").Emit(context.Background(), event.New("x", "orig"))
	settle(t, reg)

	got := recB.all()
	require.Len(t, got, 1)
	assert.Equal(t, "renamed", got[0].Type())
	assert.Equal(t, "rewritten", got[0].Payload())
	assert.Equal(t, []string{"A"}, got[0].Genealogy())
	assert.True(t, got[0].Bridged())

	assert.Empty(t, recC.all(), "nil transform drops the hop")
}

func TestBridge_Misuse(t *testing.T) {
	t.Run("self loop rejected", func(t *testing.T) {
		err := event.NewBridge().AddRule(event.ForwardRule{Source: "A", Target: "A"})
		require.Error(t, err)
		assert.ErrorIs(t, err, event.ErrSelfLoop)
		assert.True(t, cferrors.IsMisuse(err))
	})

	t.Run("empty endpoint rejected", func(t *testing.T) {
		err := event.NewBridge().AddRule(event.ForwardRule{Source: "A"})
		assert.ErrorIs(t, err, event.ErrInvalidRule)
	})

	t.Run("add after start", func(t *testing.T) {
		reg := event.NewRegistry()
		b := newBridge(t, reg, []string{"A", "B"}, event.ForwardRule{Source: "A", Target: "B"})

		err := b.AddRule(event.ForwardRule{Source: "B", Target: "A"})
		assert.ErrorIs(t, err, event.ErrBridgeStarted)
		var me *cferrors.MisuseError
		assert.True(t, errors.As(err, &me))

		assert.ErrorIs(t, b.RegisterBus(reg.Bus("C")), event.ErrBridgeStarted)
		assert.Len(t, b.Rules(), 1)
	})

	t.Run("unknown bus at start", func(t *testing.T) {
		b := event.NewBridge()
		require.NoError(t, b.RegisterBus(event.NewBus("A")))
		require.NoError(t, b.AddRule(event.ForwardRule{Source: "A", Target: "Z"}))

		err := b.Start()
		assert.ErrorIs(t, err, event.ErrUnknownBus)
		assert.False(t, b.Active())
	})
}

func TestBridge_StartStopIdempotent(t *testing.T) {
	reg := event.NewRegistry()
	a := reg.Bus("A")
	recB := record(reg.Bus("B"))

	b := event.NewBridge()
	require.NoError(t, b.RegisterBus(a))
	require.NoError(t, b.RegisterBus(reg.Bus("B")))
	require.NoError(t, b.AddRule(event.ForwardRule{Source: "A", Target: "B"}))

	require.NoError(t, b.Start())
	require.NoError(t, b.Start())
	assert.Equal(t, 1, a.Stats().Handlers[event.Wildcard], "one forwarder per source")

	a.Emit(context.Background(), event.New("x", nil))
	settle(t, reg)
	assert.Len(t, recB.all(), 1)

	b.Stop()
	b.Stop()
	assert.Equal(t, 0, a.Stats().Handlers[event.Wildcard])
	assert.False(t, b.Stats().Active)

	a.Emit(context.Background(), event.New("x", nil))
	settle(t, reg)
	assert.Len(t, recB.all(), 1, "stopped bridge forwards nothing")

	// Rules may change again once stopped.
	require.NoError(t, b.AddRule(event.ForwardRule{Source: "B", Target: "A"}))
}

func TestForwardRule_String(t *testing.T) {
	r := event.ForwardRule{Source: "A", Target: "B", Types: []string{"x", "y"}}
	assert.Equal(t, "A -> B [x,y]", r.String())
	assert.Equal(t, "A -> B [*]", event.ForwardRule{Source: "A", Target: "B"}.String())
	assert.True(t, event.ForwardRule{}.Matches("anything"))
	assert.False(t, r.Matches("z"))
}
