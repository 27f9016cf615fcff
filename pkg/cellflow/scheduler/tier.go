package scheduler

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/randalmurphal/cellflow/pkg/cellflow/config"
)

// Tier is an operating-frequency level. Lower values run faster.
type Tier int

// Tiers from fastest to slowest.
const (
	Reflex Tier = iota
	Micro
	Macro
	Meta
)

// NumTiers is the number of scheduler tiers.
const NumTiers = 4

var tierNames = [NumTiers]string{"reflex", "micro", "macro", "meta"}

// AllTiers returns every tier from fastest to slowest.
func AllTiers() []Tier {
	return []Tier{Reflex, Micro, Macro, Meta}
}

// String returns the upper-case tier name ("REFLEX").
func (t Tier) String() string {
	if !t.Valid() {
		return fmt.Sprintf("TIER(%d)", int(t))
	}
	return strings.ToUpper(tierNames[t])
}

// Name returns the lower-case tier name used in configuration and task names.
func (t Tier) Name() string {
	if !t.Valid() {
		return fmt.Sprintf("tier%d", int(t))
	}
	return tierNames[t]
}

// Valid reports whether t is one of the four tiers.
func (t Tier) Valid() bool {
	return t >= Reflex && t <= Meta
}

// Next returns the next slower tier. The slowest tier has none.
func (t Tier) Next() (Tier, bool) {
	if !t.Valid() || t == Meta {
		return t, false
	}
	return t + 1, true
}

// ParseTier resolves a tier by name, case-insensitively.
func ParseTier(name string) (Tier, error) {
	for i, n := range tierNames {
		if strings.EqualFold(n, name) {
			return Tier(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownTier, name)
}

// ErrInvalidPolicy is wrapped by every Policy.Validate failure.
var ErrInvalidPolicy = errors.New("invalid tier policy")

// TierPolicy is the gate policy of one tier.
type TierPolicy struct {
	Cadence time.Duration
	Workers int
}

// Policy is the fixed tier table of a scheduler.
type Policy struct {
	Tiers [NumTiers]TierPolicy

	// QueueCapacity bounds every tier queue.
	QueueCapacity int

	// CostThresholds are the ascending cost boundaries between adjacent
	// tiers. A cost below CostThresholds[i] lands on tier i.
	CostThresholds [NumTiers - 1]float64
}

// DefaultPolicy returns the stock tier table: 5 reflex workers every 6ms,
// 3 micro workers every 64ms, 2 macro workers every 441ms and a single meta
// worker every 233 minutes, with 55-slot queues.
func DefaultPolicy() Policy {
	return Policy{
		Tiers: [NumTiers]TierPolicy{
			Reflex: {Cadence: 6 * time.Millisecond, Workers: 5},
			Micro:  {Cadence: 64 * time.Millisecond, Workers: 3},
			Macro:  {Cadence: 441 * time.Millisecond, Workers: 2},
			Meta:   {Cadence: 233 * time.Minute, Workers: 1},
		},
		QueueCapacity:  55,
		CostThresholds: [NumTiers - 1]float64{0.01, 0.05, 1.0},
	}
}

// PolicyFromSettings converts validated settings into a Policy.
func PolicyFromSettings(s config.SchedulerSettings) (Policy, error) {
	var p Policy
	p.QueueCapacity = s.QueueCapacity
	if len(s.Tiers) != NumTiers {
		return p, fmt.Errorf("%w: expected %d tiers, got %d", ErrInvalidPolicy, NumTiers, len(s.Tiers))
	}
	for _, ts := range s.Tiers {
		t, err := ParseTier(ts.Name)
		if err != nil {
			return p, fmt.Errorf("%w: %v", ErrInvalidPolicy, err)
		}
		p.Tiers[t] = TierPolicy{Cadence: ts.Cadence, Workers: ts.Workers}
	}
	if len(s.CostThresholds) != NumTiers-1 {
		return p, fmt.Errorf("%w: expected %d cost thresholds, got %d",
			ErrInvalidPolicy, NumTiers-1, len(s.CostThresholds))
	}
	copy(p.CostThresholds[:], s.CostThresholds)
	return p, p.Validate()
}

// Validate checks the tier table: positive capacity, at least one worker
// and a positive cadence per tier, cadences strictly increasing, worker
// counts non-increasing, thresholds strictly ascending.
func (p Policy) Validate() error {
	if p.QueueCapacity < 1 {
		return fmt.Errorf("%w: queue capacity %d", ErrInvalidPolicy, p.QueueCapacity)
	}
	for i, tp := range p.Tiers {
		t := Tier(i)
		if tp.Workers < 1 {
			return fmt.Errorf("%w: %s needs at least one worker", ErrInvalidPolicy, t)
		}
		if tp.Cadence <= 0 {
			return fmt.Errorf("%w: %s cadence must be positive", ErrInvalidPolicy, t)
		}
		if i == 0 {
			continue
		}
		prev := p.Tiers[i-1]
		if tp.Cadence <= prev.Cadence {
			return fmt.Errorf("%w: %s cadence %v not slower than %s", ErrInvalidPolicy, t, tp.Cadence, Tier(i-1))
		}
		if tp.Workers > prev.Workers {
			return fmt.Errorf("%w: %s has more workers than %s", ErrInvalidPolicy, t, Tier(i-1))
		}
	}
	for i := 1; i < len(p.CostThresholds); i++ {
		if p.CostThresholds[i] <= p.CostThresholds[i-1] {
			return fmt.Errorf("%w: cost thresholds must ascend", ErrInvalidPolicy)
		}
	}
	return nil
}

// InferTier maps a cost hint onto a tier.
func (p Policy) InferTier(cost float64) Tier {
	for i, limit := range p.CostThresholds {
		if cost < limit {
			return Tier(i)
		}
	}
	return Meta
}

// TotalWorkers is the sum of workers across tiers.
func (p Policy) TotalWorkers() int {
	n := 0
	for _, tp := range p.Tiers {
		n += tp.Workers
	}
	return n
}
