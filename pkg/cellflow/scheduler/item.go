package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DefaultCostHint is the cost assumed when Submit is not given one. It
// routes to the macro tier under the default thresholds.
const DefaultCostHint = 0.05

// DefaultOrigin labels items submitted without WithOrigin.
const DefaultOrigin = "api"

// WorkItem is one unit of work and its routing metadata. It is not
// modified after it is enqueued.
type WorkItem struct {
	ID         string
	Payload    any
	Tier       Tier
	EnqueuedAt time.Time
	Origin     string
	CostHint   float64
}

// Wait returns how long the item has been queued.
func (w *WorkItem) Wait() time.Duration {
	return time.Since(w.EnqueuedAt)
}

type submitConfig struct {
	id       string
	tier     Tier
	hasTier  bool
	costHint float64
	origin   string
}

// SubmitOption configures a single Submit call.
type SubmitOption func(*submitConfig)

// WithTier routes the item to tier, bypassing cost inference.
func WithTier(t Tier) SubmitOption {
	return func(c *submitConfig) {
		c.tier = t
		c.hasTier = true
	}
}

// WithCostHint sets the cost used for tier inference and passed on to the
// orchestrator.
func WithCostHint(cost float64) SubmitOption {
	return func(c *submitConfig) {
		c.costHint = cost
	}
}

// WithOrigin labels where the item came from ("api", a producer name).
func WithOrigin(origin string) SubmitOption {
	return func(c *submitConfig) {
		if origin != "" {
			c.origin = origin
		}
	}
}

// WithItemID sets the item id. Default: a random UUID.
func WithItemID(id string) SubmitOption {
	return func(c *submitConfig) {
		if id != "" {
			c.id = id
		}
	}
}

// Verdict is the severity an orchestrator reports for a processed item.
type Verdict string

// Verdicts from best to worst.
const (
	Howl  Verdict = "HOWL"
	Wag   Verdict = "WAG"
	Growl Verdict = "GROWL"
	Bark  Verdict = "BARK"
)

// Anomalous reports whether v warrants waking the next slower tier.
func (v Verdict) Anomalous() bool {
	return v == Growl || v == Bark
}

// Result is what the scheduler reads back from an orchestrator. Only
// Verdict is inspected; Detail is carried through untouched.
type Result struct {
	Verdict Verdict
	Detail  any
}

// Orchestrator processes one work item on behalf of a tier worker. Run must
// return when ctx is cancelled.
type Orchestrator interface {
	Run(ctx context.Context, item *WorkItem, tier Tier) (Result, error)
}

// OrchestratorFunc adapts a function to Orchestrator.
type OrchestratorFunc func(ctx context.Context, item *WorkItem, tier Tier) (Result, error)

// Run implements Orchestrator.
func (f OrchestratorFunc) Run(ctx context.Context, item *WorkItem, tier Tier) (Result, error) {
	return f(ctx, item, tier)
}

// Evolver is an optional Orchestrator extension. When implemented, the
// first worker of the slowest tier calls Evolve each time its cadence
// elapses without an item.
type Evolver interface {
	Evolve(ctx context.Context) error
}

func newItemID() string {
	return uuid.NewString()
}
