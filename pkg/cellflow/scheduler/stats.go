package scheduler

import "time"

// TierStats is a point-in-time view of one tier.
type TierStats struct {
	Tier        string        `json:"tier"`
	Cadence     time.Duration `json:"cadence"`
	Workers     int           `json:"workers"`
	Depth       int           `json:"depth"`
	Capacity    int           `json:"capacity"`
	Submitted   int64         `json:"submitted"`
	Dropped     int64         `json:"dropped"`
	Processed   int64         `json:"processed"`
	Failed      int64         `json:"failed"`
	Interrupts  int64         `json:"interrupts"`
	Wakes       int64         `json:"wakes"`
	Interrupted bool          `json:"interrupted"`
	Timer       TimerStats    `json:"timer"`
}

// Stats is a point-in-time view of the scheduler.
type Stats struct {
	Running   bool        `json:"running"`
	Workers   int         `json:"workers"`
	Producers int         `json:"producers"`
	Tasks     int         `json:"tasks"`
	Tiers     []TierStats `json:"tiers"`
}

// Processed is the number of items processed across tiers.
func (s Stats) Processed() int64 {
	var n int64
	for _, t := range s.Tiers {
		n += t.Processed
	}
	return n
}

// Tier returns the stats of the named tier.
func (s Stats) Tier(t Tier) (TierStats, bool) {
	for _, ts := range s.Tiers {
		if ts.Tier == t.Name() {
			return ts, true
		}
	}
	return TierStats{}, false
}

// Stats reports queue depths, counters and cycle timers for every tier.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	producers := len(s.producers)
	tasks := len(s.tasks)
	s.mu.Unlock()

	st := Stats{
		Running:   s.running.Load(),
		Workers:   s.policy.TotalWorkers(),
		Producers: producers,
		Tasks:     tasks,
		Tiers:     make([]TierStats, 0, NumTiers),
	}
	for _, ts := range s.tiers {
		st.Tiers = append(st.Tiers, TierStats{
			Tier:        ts.tier.Name(),
			Cadence:     ts.policy.Cadence,
			Workers:     ts.policy.Workers,
			Depth:       ts.queue.depth(),
			Capacity:    ts.queue.capacity(),
			Submitted:   ts.submitted.Load(),
			Dropped:     ts.dropped.Load(),
			Processed:   ts.processed.Load(),
			Failed:      ts.failed.Load(),
			Interrupts:  ts.interrupts.Load(),
			Wakes:       ts.wakes.Load(),
			Interrupted: ts.interrupt.isSet(),
			Timer:       ts.timer.Stats(),
		})
	}
	return st
}
