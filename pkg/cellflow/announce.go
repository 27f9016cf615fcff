package cellflow

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/randalmurphal/cellflow/pkg/cellflow/config"
	"github.com/randalmurphal/cellflow/pkg/cellflow/event"
	"github.com/randalmurphal/cellflow/pkg/cellflow/scheduler"
)

// Judgment is the payload of the judgment.created events published by an
// announcing orchestrator.
type Judgment struct {
	ItemID  string            `json:"item_id"`
	Tier    string            `json:"tier"`
	Verdict scheduler.Verdict `json:"verdict"`
	Origin  string            `json:"origin"`
	Elapsed time.Duration     `json:"elapsed"`
	Detail  any               `json:"detail,omitempty"`
}

// announcer publishes the outcome of every cycle on CORE.
type announcer struct {
	next  scheduler.Orchestrator
	buses *event.Registry
}

// Announce wraps orch so that each successful cycle emits judgment.created
// on the CORE bus and each failure emits judgment.failed. Evolution ticks
// are passed through (when orch implements scheduler.Evolver) and followed
// by a learning.meta_cycle event.
func Announce(orch scheduler.Orchestrator, buses *event.Registry) scheduler.Orchestrator {
	a := &announcer{next: orch, buses: buses}
	if _, ok := orch.(scheduler.Evolver); ok {
		return &evolvingAnnouncer{announcer: a}
	}
	return a
}

func (a *announcer) Run(ctx context.Context, item *scheduler.WorkItem, tier scheduler.Tier) (scheduler.Result, error) {
	start := time.Now()
	res, err := a.next.Run(ctx, item, tier)
	if ctx.Err() != nil {
		return res, err
	}

	j := Judgment{
		ItemID:  item.ID,
		Tier:    tier.Name(),
		Verdict: res.Verdict,
		Origin:  item.Origin,
		Elapsed: time.Since(start),
		Detail:  res.Detail,
	}
	if err != nil {
		j.Detail = err.Error()
		a.buses.EmitCore(ctx, event.JudgmentFailed, j, "scheduler."+tier.Name())
		return res, err
	}
	a.buses.EmitCore(ctx, event.JudgmentCreated, j, "scheduler."+tier.Name())
	return res, nil
}

type evolvingAnnouncer struct {
	*announcer
}

func (a *evolvingAnnouncer) Evolve(ctx context.Context) error {
	if err := a.next.(scheduler.Evolver).Evolve(ctx); err != nil {
		return err
	}
	a.buses.EmitCore(ctx, event.MetaCycle, map[string]any{"at": time.Now().UTC()}, "scheduler.meta")
	return nil
}

// HeartbeatKind is the producer kind handled by Heartbeat.
const HeartbeatKind = "heartbeat"

// Heartbeat is a ProducerFactory for a producer that senses a numbered beat
// on every poll. Options:
//
//	cost:  cost hint of each beat (default 0)
//	every: emit only every Nth poll (default 1)
func Heartbeat(ps config.ProducerSettings, tier scheduler.Tier) (scheduler.Producer, error) {
	cost := ps.Options.Float("cost", 0)
	every := int64(ps.Options.Int("every", 1))
	if every < 1 {
		every = 1
	}

	var polls atomic.Int64
	name := ps.Name
	return scheduler.NewProducer(name, tier, ps.Interval, func(context.Context) (*scheduler.Perception, error) {
		n := polls.Add(1)
		if n%every != 0 {
			return nil, nil
		}
		return &scheduler.Perception{
			Payload:  map[string]any{"producer": name, "beat": n / every},
			CostHint: cost,
		}, nil
	}), nil
}
