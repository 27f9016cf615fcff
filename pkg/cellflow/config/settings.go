package config

import (
	"errors"
	"fmt"
	"time"
)

// TierNames lists the scheduler tiers from fastest to slowest. Settings
// always carry one entry per name, in this order.
var TierNames = []string{"reflex", "micro", "macro", "meta"}

// ErrInvalidSettings is wrapped by every Validate failure.
var ErrInvalidSettings = errors.New("invalid settings")

// TierSettings is the gate policy of one scheduler tier.
type TierSettings struct {
	Name    string
	Cadence time.Duration
	Workers int
}

// SchedulerSettings configures queues, tiers and cost routing.
type SchedulerSettings struct {
	QueueCapacity  int
	Tiers          []TierSettings
	CostThresholds []float64
}

// BusSettings configures every bus built by the registry.
type BusSettings struct {
	HistorySize int
}

// JournalSettings selects the journal store.
//
// Path "" disables the journal, "ring" keeps a bounded in-memory ring of
// Capacity envelopes, anything else is a SQLite DSN (":memory:" or a file).
type JournalSettings struct {
	Path     string
	Capacity int
}

// ProducerSettings declares one background producer. Options is handed to
// the producer factory untouched.
type ProducerSettings struct {
	Name     string
	Tier     string
	Interval time.Duration
	Options  Config
}

// Settings is the full process configuration.
type Settings struct {
	Scheduler SchedulerSettings
	Bus       BusSettings
	Journal   JournalSettings
	Producers []ProducerSettings
}

// Defaults returns the stock configuration.
func Defaults() Settings {
	return Settings{
		Scheduler: SchedulerSettings{
			QueueCapacity: 55,
			Tiers: []TierSettings{
				{Name: "reflex", Cadence: 6 * time.Millisecond, Workers: 5},
				{Name: "micro", Cadence: 64 * time.Millisecond, Workers: 3},
				{Name: "macro", Cadence: 441 * time.Millisecond, Workers: 2},
				{Name: "meta", Cadence: 233 * time.Minute, Workers: 1},
			},
			CostThresholds: []float64{0.01, 0.05, 1.0},
		},
		Bus:     BusSettings{HistorySize: 1000},
		Journal: JournalSettings{Capacity: 89},
	}
}

// Parse overlays cfg on Defaults. Unknown keys are ignored; malformed values
// keep their default.
func Parse(cfg Config) Settings {
	s := Defaults()

	sched := cfg.Sub("scheduler")
	s.Scheduler.QueueCapacity = sched.Int("queue_capacity", s.Scheduler.QueueCapacity)
	s.Scheduler.CostThresholds = sched.Floats("cost_thresholds", s.Scheduler.CostThresholds)
	tiers := sched.Sub("tiers")
	for i, t := range s.Scheduler.Tiers {
		tc := tiers.Sub(t.Name)
		s.Scheduler.Tiers[i].Cadence = tc.Duration("cadence", t.Cadence)
		s.Scheduler.Tiers[i].Workers = tc.Int("workers", t.Workers)
	}

	s.Bus.HistorySize = cfg.Sub("bus").Int("history_size", s.Bus.HistorySize)

	journal := cfg.Sub("journal")
	s.Journal.Path = journal.String("path", s.Journal.Path)
	s.Journal.Capacity = journal.Int("capacity", s.Journal.Capacity)

	for _, p := range cfg.List("producers") {
		s.Producers = append(s.Producers, ProducerSettings{
			Name:     p.String("name", ""),
			Tier:     p.String("tier", ""),
			Interval: p.Duration("interval", time.Second),
			Options:  p.Sub("options"),
		})
	}
	return s
}

// Tier returns the settings for the named tier.
func (s SchedulerSettings) Tier(name string) (TierSettings, bool) {
	for _, t := range s.Tiers {
		if t.Name == name {
			return t, true
		}
	}
	return TierSettings{}, false
}

// Validate checks the invariants the scheduler and buses rely on.
func (s Settings) Validate() error {
	if s.Scheduler.QueueCapacity < 1 {
		return fmt.Errorf("%w: scheduler.queue_capacity must be positive, got %d",
			ErrInvalidSettings, s.Scheduler.QueueCapacity)
	}
	if len(s.Scheduler.Tiers) != len(TierNames) {
		return fmt.Errorf("%w: expected %d tiers, got %d",
			ErrInvalidSettings, len(TierNames), len(s.Scheduler.Tiers))
	}
	for i, t := range s.Scheduler.Tiers {
		if t.Name != TierNames[i] {
			return fmt.Errorf("%w: tier %d must be %q, got %q", ErrInvalidSettings, i, TierNames[i], t.Name)
		}
		if t.Workers < 1 {
			return fmt.Errorf("%w: tier %s needs at least one worker", ErrInvalidSettings, t.Name)
		}
		if t.Cadence <= 0 {
			return fmt.Errorf("%w: tier %s cadence must be positive", ErrInvalidSettings, t.Name)
		}
		if i > 0 && t.Cadence <= s.Scheduler.Tiers[i-1].Cadence {
			return fmt.Errorf("%w: tier %s cadence %s not slower than %s",
				ErrInvalidSettings, t.Name, t.Cadence, s.Scheduler.Tiers[i-1].Name)
		}
	}
	th := s.Scheduler.CostThresholds
	if len(th) != len(TierNames)-1 {
		return fmt.Errorf("%w: scheduler.cost_thresholds needs %d values, got %d",
			ErrInvalidSettings, len(TierNames)-1, len(th))
	}
	for i := 1; i < len(th); i++ {
		if th[i] <= th[i-1] {
			return fmt.Errorf("%w: scheduler.cost_thresholds must be ascending", ErrInvalidSettings)
		}
	}
	if s.Bus.HistorySize < 0 {
		return fmt.Errorf("%w: bus.history_size must not be negative", ErrInvalidSettings)
	}
	if s.Journal.Path == "ring" && s.Journal.Capacity < 1 {
		return fmt.Errorf("%w: journal.capacity must be positive for the ring store", ErrInvalidSettings)
	}
	seen := make(map[string]bool, len(s.Producers))
	for _, p := range s.Producers {
		if p.Name == "" {
			return fmt.Errorf("%w: producer without name", ErrInvalidSettings)
		}
		if seen[p.Name] {
			return fmt.Errorf("%w: duplicate producer %q", ErrInvalidSettings, p.Name)
		}
		seen[p.Name] = true
		if _, ok := s.Scheduler.Tier(p.Tier); !ok {
			return fmt.Errorf("%w: producer %s has unknown tier %q", ErrInvalidSettings, p.Name, p.Tier)
		}
		if p.Interval <= 0 {
			return fmt.Errorf("%w: producer %s interval must be positive", ErrInvalidSettings, p.Name)
		}
	}
	return nil
}
