package cellflow_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/randalmurphal/cellflow/pkg/cellflow"
	"github.com/randalmurphal/cellflow/pkg/cellflow/config"
	"github.com/randalmurphal/cellflow/pkg/cellflow/event"
	"github.com/randalmurphal/cellflow/pkg/cellflow/journal"
	"github.com/randalmurphal/cellflow/pkg/cellflow/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fastSettings() config.Settings {
	s := config.Defaults()
	s.Scheduler.QueueCapacity = 10
	cadences := []time.Duration{5 * time.Millisecond, 10 * time.Millisecond, 20 * time.Millisecond, 30 * time.Millisecond}
	for i := range s.Scheduler.Tiers {
		s.Scheduler.Tiers[i].Cadence = cadences[i]
	}
	s.Journal.Path = "ring"
	return s
}

type verdictOrch struct {
	verdict scheduler.Verdict
	err     error
	evolved atomic.Int64
}

func (o *verdictOrch) Run(context.Context, *scheduler.WorkItem, scheduler.Tier) (scheduler.Result, error) {
	if o.err != nil {
		return scheduler.Result{}, o.err
	}
	return scheduler.Result{Verdict: o.verdict, Detail: "q=61.8"}, nil
}

type evolvingOrch struct {
	verdictOrch
}

func (o *evolvingOrch) Evolve(context.Context) error {
	o.evolved.Add(1)
	return nil
}

func newKernel(t *testing.T, s config.Settings, orch scheduler.Orchestrator, opts ...cellflow.Option) *cellflow.Kernel {
	t.Helper()
	opts = append([]cellflow.Option{cellflow.WithLogger(quietLogger())}, opts...)
	k, err := cellflow.NewKernel(s, orch, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = k.Stop(context.Background()) })
	return k
}

func settle(t *testing.T, k *cellflow.Kernel) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, k.Buses().Settle(ctx))
}

func TestNewKernel_Defaults(t *testing.T) {
	k, err := cellflow.NewKernel(config.Defaults(), &verdictOrch{verdict: scheduler.Wag},
		cellflow.WithLogger(quietLogger()))
	require.NoError(t, err)

	assert.Nil(t, k.Journal(), "journal disabled by default")
	assert.Len(t, k.Bridge().Rules(), len(event.DefaultRules()))
	assert.Equal(t, scheduler.DefaultPolicy(), k.Scheduler().Policy())

	st := k.Stats()
	assert.False(t, st.Scheduler.Running)
	assert.False(t, st.Bridge.Active)
	assert.Nil(t, st.Journal)
}

func TestNewKernel_InvalidSettings(t *testing.T) {
	s := config.Defaults()
	s.Scheduler.QueueCapacity = 0
	_, err := cellflow.NewKernel(s, &verdictOrch{})
	assert.ErrorIs(t, err, config.ErrInvalidSettings)
}

func TestNewKernel_UnknownProducer(t *testing.T) {
	s := config.Defaults()
	s.Producers = []config.ProducerSettings{{Name: "git", Tier: "micro", Interval: time.Second}}
	_, err := cellflow.NewKernel(s, &verdictOrch{}, cellflow.WithLogger(quietLogger()))
	assert.ErrorIs(t, err, cellflow.ErrUnknownProducer)
}

func TestNewKernel_CustomProducerFactory(t *testing.T) {
	s := config.Defaults()
	s.Producers = []config.ProducerSettings{{
		Name:     "git",
		Tier:     "micro",
		Interval: time.Second,
		Options:  config.New(map[string]any{"kind": "watcher"}),
	}}

	var built scheduler.Tier = -1
	factory := func(ps config.ProducerSettings, tier scheduler.Tier) (scheduler.Producer, error) {
		built = tier
		return scheduler.NewProducer(ps.Name, tier, ps.Interval,
			func(context.Context) (*scheduler.Perception, error) { return nil, nil }), nil
	}
	k, err := cellflow.NewKernel(s, &verdictOrch{},
		cellflow.WithLogger(quietLogger()),
		cellflow.WithProducerFactory("watcher", factory))
	require.NoError(t, err)
	assert.Equal(t, scheduler.Micro, built)
	assert.Equal(t, 1, k.Stats().Scheduler.Producers)

	failing := func(config.ProducerSettings, scheduler.Tier) (scheduler.Producer, error) {
		return nil, errors.New("no repo")
	}
	_, err = cellflow.NewKernel(s, &verdictOrch{},
		cellflow.WithLogger(quietLogger()),
		cellflow.WithProducerFactory("watcher", failing))
	assert.ErrorContains(t, err, "no repo")
}

func TestKernel_StartStopIdempotent(t *testing.T) {
	k := newKernel(t, fastSettings(), &verdictOrch{verdict: scheduler.Wag})

	require.NoError(t, k.Start(context.Background()))
	require.NoError(t, k.Start(context.Background()))
	assert.Len(t, k.Scheduler().Tasks(), 11)
	assert.True(t, k.Bridge().Active())
	assert.NotNil(t, k.Journal())

	require.NoError(t, k.Stop(context.Background()))
	require.NoError(t, k.Stop(context.Background()))
	assert.False(t, k.Scheduler().Running())
	assert.False(t, k.Bridge().Active())
	assert.Nil(t, k.Journal())
}

func TestKernel_StartFailureClosesJournal(t *testing.T) {
	s := fastSettings()
	s.Journal.Path = ":memory:"
	k := newKernel(t, s, &verdictOrch{verdict: scheduler.Wag})
	j := k.Journal()
	require.NotNil(t, j)
	require.NoError(t, k.Bridge().AddRule(event.ForwardRule{Source: event.CoreBus, Target: "NOWHERE"}))

	err := k.Start(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, event.ErrUnknownBus)

	assert.Nil(t, k.Journal())
	assert.False(t, k.Scheduler().Running())
	_, err = j.Recent(1)
	assert.ErrorIs(t, err, journal.ErrStoreClosed)
	require.NoError(t, k.Stop(context.Background()))
}

func TestKernel_CellToBridgedJudgment(t *testing.T) {
	k := newKernel(t, fastSettings(), &verdictOrch{verdict: scheduler.Howl}, cellflow.WithAnnouncements())

	var agentJudgments atomic.Int64
	k.Buses().Agent().Subscribe(event.JudgmentCreated, func(_ context.Context, env *event.Envelope) error {
		if env.Bridged() && env.Seen(event.CoreBus) {
			agentJudgments.Add(1)
		}
		return nil
	})

	require.NoError(t, k.Start(context.Background()))
	ok, err := k.Submit("def foo(): pass", scheduler.WithCostHint(0.001), scheduler.WithItemID("cell-1"))
	require.NoError(t, err)
	require.True(t, ok)

	require.Eventually(t, func() bool { return agentJudgments.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	settle(t, k)

	core := k.Buses().Core().History()
	require.NotEmpty(t, core)
	j, isJudgment := core[0].Payload().(cellflow.Judgment)
	require.True(t, isJudgment)
	assert.Equal(t, "cell-1", j.ItemID)
	assert.Equal(t, "reflex", j.Tier)
	assert.Equal(t, scheduler.Howl, j.Verdict)
	assert.Equal(t, "scheduler.reflex", core[0].Source())

	entries, err := k.Journal().ByType(event.JudgmentCreated, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "CORE original plus AGENT copy")

	st := k.Stats()
	assert.Equal(t, int64(1), st.Bridge.Forwarded)
	require.NotNil(t, st.Journal)
	assert.Equal(t, int64(2), st.Journal.Written)
}

func TestKernel_FailedCycleAnnounced(t *testing.T) {
	k := newKernel(t, fastSettings(), &verdictOrch{err: errors.New("dogs disagree")}, cellflow.WithAnnouncements())

	failures := make(chan *event.Envelope, 1)
	k.Buses().Core().Subscribe(event.JudgmentFailed, func(_ context.Context, env *event.Envelope) error {
		failures <- env
		return nil
	})

	require.NoError(t, k.Start(context.Background()))
	_, err := k.Submit("cell", scheduler.WithTier(scheduler.Micro))
	require.NoError(t, err)

	select {
	case env := <-failures:
		j := env.Payload().(cellflow.Judgment)
		assert.Equal(t, "dogs disagree", j.Detail)
	case <-time.After(2 * time.Second):
		t.Fatal("no judgment.failed event")
	}
}

func TestKernel_EvolutionReachesAllBuses(t *testing.T) {
	orch := &evolvingOrch{}
	k := newKernel(t, fastSettings(), orch, cellflow.WithAnnouncements())

	var automation, agent atomic.Int64
	k.Buses().Automation().Subscribe(event.MetaCycle, func(context.Context, *event.Envelope) error {
		automation.Add(1)
		return nil
	})
	k.Buses().Agent().Subscribe(event.MetaCycle, func(context.Context, *event.Envelope) error {
		agent.Add(1)
		return nil
	})

	require.NoError(t, k.Start(context.Background()))
	require.Eventually(t, func() bool {
		return automation.Load() >= 1 && agent.Load() >= 1
	}, 2*time.Second, 5*time.Millisecond)
}

func TestAnnounce_PreservesEvolver(t *testing.T) {
	reg := event.NewRegistry()
	_, plain := cellflow.Announce(&verdictOrch{}, reg).(scheduler.Evolver)
	assert.False(t, plain)

	_, evolving := cellflow.Announce(&evolvingOrch{}, reg).(scheduler.Evolver)
	assert.True(t, evolving)
}

func TestKernel_HeartbeatProducer(t *testing.T) {
	s := fastSettings()
	s.Producers = []config.ProducerSettings{{
		Name:     "pulse",
		Tier:     "macro",
		Interval: 5 * time.Millisecond,
		Options:  config.New(map[string]any{"kind": cellflow.HeartbeatKind, "every": 2}),
	}}

	var origins atomic.Int64
	k := newKernel(t, s, scheduler.OrchestratorFunc(func(_ context.Context, item *scheduler.WorkItem, tier scheduler.Tier) (scheduler.Result, error) {
		if item.Origin == "pulse" && tier == scheduler.Macro {
			origins.Add(1)
		}
		return scheduler.Result{Verdict: scheduler.Wag}, nil
	}))

	require.NoError(t, k.Start(context.Background()))
	require.Eventually(t, func() bool { return origins.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Contains(t, k.Scheduler().Tasks(), "cellflow.scheduler.producer.pulse")
}

func TestHeartbeat_Every(t *testing.T) {
	p, err := cellflow.Heartbeat(config.ProducerSettings{
		Name:     "beat",
		Interval: time.Second,
		Options:  config.New(map[string]any{"every": 3, "cost": 0.5}),
	}, scheduler.Meta)
	require.NoError(t, err)
	assert.Equal(t, "beat", p.Name())
	assert.Equal(t, scheduler.Meta, p.Tier())

	var sensed []*scheduler.Perception
	for i := 0; i < 6; i++ {
		got, err := p.Sense(context.Background())
		require.NoError(t, err)
		if got != nil {
			sensed = append(sensed, got)
		}
	}
	require.Len(t, sensed, 2)
	assert.Equal(t, 0.5, sensed[0].CostHint)
	assert.Equal(t, map[string]any{"producer": "beat", "beat": int64(1)}, sensed[0].Payload)
}
