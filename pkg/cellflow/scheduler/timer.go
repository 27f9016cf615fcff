package scheduler

import (
	"slices"
	"time"

	"github.com/randalmurphal/cellflow/pkg/cellflow/ring"
)

// TimerWindow is the number of latency samples a CycleTimer keeps.
const TimerWindow = 55

// Health grades how a tier's p95 latency compares to its cadence.
type Health string

// Health grades. Boundaries are 0.618x, 1x and 1.618x the cadence.
const (
	HealthUnknown   Health = "UNKNOWN"
	HealthExcellent Health = "EXCELLENT"
	HealthGood      Health = "GOOD"
	HealthDegraded  Health = "DEGRADED"
	HealthCritical  Health = "CRITICAL"
)

const phiInv = 0.618

// CycleTimer tracks a rolling window of cycle latencies for one tier.
// Record is safe to call from every worker of the tier concurrently.
type CycleTimer struct {
	target  time.Duration
	samples *ring.Ring[time.Duration]
}

// NewCycleTimer creates a timer graded against target.
func NewCycleTimer(target time.Duration) *CycleTimer {
	return &CycleTimer{
		target:  target,
		samples: ring.New[time.Duration](TimerWindow),
	}
}

// Record adds one measured cycle.
func (c *CycleTimer) Record(elapsed time.Duration) {
	c.samples.Push(elapsed)
}

// Time runs fn and records how long it took.
func (c *CycleTimer) Time(fn func()) time.Duration {
	start := time.Now()
	fn()
	elapsed := time.Since(start)
	c.Record(elapsed)
	return elapsed
}

// TimerStats is a snapshot of a CycleTimer.
type TimerStats struct {
	Target       time.Duration `json:"target"`
	P50          time.Duration `json:"p50"`
	P95          time.Duration `json:"p95"`
	WithinTarget bool          `json:"within_target"`
	Health       Health        `json:"health"`
	Samples      int           `json:"samples"`
	Total        uint64        `json:"total"`
}

// Stats computes percentiles over the current window.
func (c *CycleTimer) Stats() TimerStats {
	s := c.samples.Snapshot()
	st := TimerStats{
		Target:  c.target,
		Samples: len(s),
		Total:   c.samples.Total(),
		Health:  HealthUnknown,
	}
	if len(s) == 0 {
		return st
	}

	slices.Sort(s)
	st.P50 = s[len(s)/2]
	st.P95 = s[int(float64(len(s))*0.95)]
	st.WithinTarget = st.P95 <= c.target
	st.Health = grade(st.P95, c.target)
	return st
}

func grade(p95, target time.Duration) Health {
	if target <= 0 {
		return HealthUnknown
	}
	ratio := float64(p95) / float64(target)
	switch {
	case ratio <= phiInv:
		return HealthExcellent
	case ratio <= 1.0:
		return HealthGood
	case ratio <= 1.0/phiInv:
		return HealthDegraded
	default:
		return HealthCritical
	}
}

// Reset drops every sample.
func (c *CycleTimer) Reset() {
	c.samples.Reset()
}
