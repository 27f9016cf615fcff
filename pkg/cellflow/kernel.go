package cellflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/randalmurphal/cellflow/pkg/cellflow/config"
	"github.com/randalmurphal/cellflow/pkg/cellflow/event"
	"github.com/randalmurphal/cellflow/pkg/cellflow/journal"
	"github.com/randalmurphal/cellflow/pkg/cellflow/observability"
	"github.com/randalmurphal/cellflow/pkg/cellflow/registry"
	"github.com/randalmurphal/cellflow/pkg/cellflow/scheduler"
)

// ErrUnknownProducer is returned when a configured producer names a kind
// with no registered factory.
var ErrUnknownProducer = errors.New("unknown producer kind")

// ProducerFactory builds a producer from its configuration. The tier has
// already been resolved from ps.Tier.
type ProducerFactory func(ps config.ProducerSettings, tier scheduler.Tier) (scheduler.Producer, error)

type kernelOptions struct {
	logger    *slog.Logger
	metrics   observability.MetricsRecorder
	spans     observability.SpanManager
	factories *registry.Registry[string, ProducerFactory]
	announce  bool
}

// Option configures a Kernel.
type Option func(*kernelOptions)

// WithLogger sets the logger shared by every component.
func WithLogger(logger *slog.Logger) Option {
	return func(o *kernelOptions) {
		o.logger = logger
	}
}

// WithMetrics sets the metrics recorder shared by every component.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(o *kernelOptions) {
		o.metrics = m
	}
}

// WithSpans sets the span manager shared by the scheduler and bridge.
func WithSpans(s observability.SpanManager) Option {
	return func(o *kernelOptions) {
		o.spans = s
	}
}

// WithAnnouncements wraps the orchestrator with Announce on the kernel's
// own bus registry.
func WithAnnouncements() Option {
	return func(o *kernelOptions) {
		o.announce = true
	}
}

// WithProducerFactory registers a factory for producers whose
// options.kind (or, failing that, name) equals kind.
func WithProducerFactory(kind string, f ProducerFactory) Option {
	return func(o *kernelOptions) {
		o.factories.Register(kind, f)
	}
}

// Kernel owns the bus registry, the default bridge, the scheduler and the
// optional journal.
type Kernel struct {
	settings  config.Settings
	logger    *slog.Logger
	buses     *event.Registry
	bridge    *event.Bridge
	scheduler *scheduler.Scheduler
	journal   *journal.Journal

	mu      sync.Mutex
	started bool
}

// NewKernel validates settings and builds every component. Nothing runs
// until Start.
func NewKernel(settings config.Settings, orch scheduler.Orchestrator, opts ...Option) (*Kernel, error) {
	o := kernelOptions{
		factories: registry.New[string, ProducerFactory](),
	}
	o.factories.Register(HeartbeatKind, Heartbeat)
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.metrics == nil {
		o.metrics = observability.NoopMetrics{}
	}
	if o.spans == nil {
		o.spans = observability.NoopSpanManager{}
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	policy, err := scheduler.PolicyFromSettings(settings.Scheduler)
	if err != nil {
		return nil, err
	}

	k := &Kernel{
		settings: settings,
		logger:   o.logger,
		buses: event.NewRegistry(
			event.WithLogger(o.logger),
			event.WithMetrics(o.metrics),
			event.WithHistorySize(settings.Bus.HistorySize),
		),
	}

	k.bridge, err = event.NewDefaultBridge(k.buses,
		event.WithBridgeLogger(o.logger),
		event.WithBridgeMetrics(o.metrics),
		event.WithBridgeSpans(o.spans),
	)
	if err != nil {
		return nil, fmt.Errorf("build bridge: %w", err)
	}

	if o.announce && orch != nil {
		orch = Announce(orch, k.buses)
	}
	k.scheduler, err = scheduler.New(orch,
		scheduler.WithPolicy(policy),
		scheduler.WithLogger(o.logger),
		scheduler.WithMetrics(o.metrics),
		scheduler.WithSpans(o.spans),
	)
	if err != nil {
		return nil, err
	}

	for _, ps := range settings.Producers {
		p, err := buildProducer(o.factories, ps)
		if err != nil {
			return nil, err
		}
		k.scheduler.RegisterProducer(p)
	}

	store, err := journal.Open(settings.Journal.Path, settings.Journal.Capacity)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if store != nil {
		k.journal = journal.New(store, journal.WithLogger(o.logger))
	}

	return k, nil
}

func buildProducer(factories *registry.Registry[string, ProducerFactory], ps config.ProducerSettings) (scheduler.Producer, error) {
	tier, err := scheduler.ParseTier(ps.Tier)
	if err != nil {
		return nil, fmt.Errorf("producer %s: %w", ps.Name, err)
	}
	kind := ps.Options.String("kind", ps.Name)
	factory, ok := factories.Get(kind)
	if !ok {
		return nil, fmt.Errorf("producer %s: %w: %q", ps.Name, ErrUnknownProducer, kind)
	}
	p, err := factory(ps, tier)
	if err != nil {
		return nil, fmt.Errorf("producer %s: %w", ps.Name, err)
	}
	return p, nil
}

// Start attaches the journal, starts the bridge, then the scheduler. A
// second Start is a no-op. If the bridge fails to start the journal is
// closed and the kernel stays stopped.
func (k *Kernel) Start(ctx context.Context) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.started {
		return nil
	}
	if k.journal != nil {
		k.journal.Attach(k.buses.Core(), k.buses.Automation(), k.buses.Agent())
	}
	if err := k.bridge.Start(); err != nil {
		if k.journal != nil {
			err = errors.Join(err, k.journal.Close())
			k.journal = nil
		}
		return err
	}
	k.scheduler.Start(ctx)
	k.started = true
	return nil
}

// Stop halts the scheduler, waits for in-flight bus handlers (bounded by
// ctx), stops the bridge and closes the journal. Stop on a stopped kernel
// does nothing.
func (k *Kernel) Stop(ctx context.Context) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if !k.started {
		return nil
	}
	k.started = false

	k.scheduler.Stop()
	settleErr := k.buses.Settle(ctx)
	if settleErr != nil {
		k.logger.Warn("bus handlers still running at shutdown", slog.String("error", settleErr.Error()))
	}
	k.bridge.Stop()

	var closeErr error
	if k.journal != nil {
		closeErr = k.journal.Close()
		k.journal = nil
	}
	return errors.Join(settleErr, closeErr)
}

// Submit forwards to the scheduler.
func (k *Kernel) Submit(payload any, opts ...scheduler.SubmitOption) (bool, error) {
	return k.scheduler.Submit(payload, opts...)
}

// Settings returns the validated settings the kernel was built from.
func (k *Kernel) Settings() config.Settings { return k.settings }

// Buses returns the bus registry.
func (k *Kernel) Buses() *event.Registry { return k.buses }

// Bridge returns the default bridge.
func (k *Kernel) Bridge() *event.Bridge { return k.bridge }

// Scheduler returns the scheduler.
func (k *Kernel) Scheduler() *scheduler.Scheduler { return k.scheduler }

// Journal returns the journal, or nil when disabled or after Stop.
func (k *Kernel) Journal() *journal.Journal {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.journal
}

// Stats is a point-in-time view of the whole kernel.
type Stats struct {
	Scheduler scheduler.Stats   `json:"scheduler"`
	Buses     []event.BusStats  `json:"buses"`
	Bridge    event.BridgeStats `json:"bridge"`
	Journal   *journal.Stats    `json:"journal,omitempty"`
}

// Stats collects stats from every component.
func (k *Kernel) Stats() Stats {
	st := Stats{
		Scheduler: k.scheduler.Stats(),
		Buses:     k.buses.Stats(),
		Bridge:    k.bridge.Stats(),
	}
	if j := k.Journal(); j != nil {
		js := j.Stats()
		st.Journal = &js
	}
	return st
}
