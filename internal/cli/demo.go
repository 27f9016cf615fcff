package cli

import (
	"context"
	"hash/fnv"
	"log/slog"
	"time"

	"github.com/randalmurphal/cellflow/pkg/cellflow/scheduler"
)

// demoOrchestrator stands in for a real scorer. Verdicts are a stable
// function of the item id: 10% BARK, 10% GROWL, 50% WAG, 30% HOWL.
type demoOrchestrator struct {
	logger *slog.Logger
	work   time.Duration
}

func (d *demoOrchestrator) Run(ctx context.Context, item *scheduler.WorkItem, tier scheduler.Tier) (scheduler.Result, error) {
	if d.work > 0 {
		select {
		case <-time.After(d.work):
		case <-ctx.Done():
			return scheduler.Result{}, ctx.Err()
		}
	}

	score := demoScore(item.ID)
	return scheduler.Result{
		Verdict: demoVerdict(score),
		Detail:  map[string]any{"q_score": score, "tier": tier.Name()},
	}, nil
}

func (d *demoOrchestrator) Evolve(context.Context) error {
	d.logger.Info("meta evolution tick")
	return nil
}

func demoScore(id string) float64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return float64(h.Sum32() % 100)
}

func demoVerdict(score float64) scheduler.Verdict {
	switch {
	case score < 10:
		return scheduler.Bark
	case score < 20:
		return scheduler.Growl
	case score < 70:
		return scheduler.Wag
	default:
		return scheduler.Howl
	}
}

// demoCosts cycles submitted cells across every tier under the default
// thresholds.
var demoCosts = []float64{0.001, 0.02, 0.3, 2.0}
