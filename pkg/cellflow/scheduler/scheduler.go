package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	cferrors "github.com/randalmurphal/cellflow/pkg/cellflow/errors"
	"github.com/randalmurphal/cellflow/pkg/cellflow/observability"
)

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithPolicy replaces DefaultPolicy.
func WithPolicy(p Policy) Option {
	return func(s *Scheduler) {
		s.policy = p
	}
}

// WithLogger sets the scheduler logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(s *Scheduler) {
		s.metrics = m
	}
}

// WithSpans sets the span manager used for worker cycles.
func WithSpans(sm observability.SpanManager) Option {
	return func(s *Scheduler) {
		s.spans = sm
	}
}

// tierState is everything a scheduler keeps per tier.
type tierState struct {
	tier      Tier
	policy    TierPolicy
	queue     *tierQueue
	interrupt *signal
	timer     *CycleTimer

	submitted  atomic.Int64
	dropped    atomic.Int64
	processed  atomic.Int64
	failed     atomic.Int64
	interrupts atomic.Int64
	wakes      atomic.Int64
}

// Scheduler owns the tier queues, their worker pools, the interrupt flags
// and the producer tasks.
type Scheduler struct {
	orch    Orchestrator
	evolver Evolver
	policy  Policy
	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager

	tiers [NumTiers]*tierState

	mu        sync.Mutex
	running   atomic.Bool
	producers []Producer
	tasks     []string
	cancel    context.CancelFunc
	group     *errgroup.Group
}

// New creates a stopped scheduler. Queues exist from construction, so
// Stats reports capacities before Start.
func New(orch Orchestrator, opts ...Option) (*Scheduler, error) {
	if orch == nil {
		return nil, cferrors.Misuse("scheduler.New", ErrNilOrchestrator)
	}

	s := &Scheduler{
		orch:   orch,
		policy: DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.policy.Validate(); err != nil {
		return nil, err
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.metrics == nil {
		s.metrics = observability.NoopMetrics{}
	}
	if s.spans == nil {
		s.spans = observability.NoopSpanManager{}
	}
	if ev, ok := orch.(Evolver); ok {
		s.evolver = ev
	}

	for _, t := range AllTiers() {
		tp := s.policy.Tiers[t]
		s.tiers[t] = &tierState{
			tier:      t,
			policy:    tp,
			queue:     newTierQueue(s.policy.QueueCapacity),
			interrupt: newSignal(),
			timer:     NewCycleTimer(tp.Cadence),
		}
	}
	return s, nil
}

// Policy returns the tier table.
func (s *Scheduler) Policy() Policy {
	return s.policy
}

// RegisterProducer adds a producer to be started with the scheduler. Once
// the scheduler is running the call is a no-op: no task is spawned and the
// producer is not kept for a later Start. It reports whether p was accepted.
func (s *Scheduler) RegisterProducer(p Producer) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running.Load() {
		s.logger.Warn("producer registered after start, ignoring",
			slog.String("producer", p.Name()))
		return false
	}
	s.producers = append(s.producers, p)
	return true
}

// Start spawns every tier's workers and one task per producer. Calling
// Start on a running scheduler logs and returns.
//
// Tasks inherit ctx's values but not its cancellation: only Stop ends them,
// so Running and Tasks always describe live workers.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running.Load() {
		s.logger.Warn("scheduler already running, ignoring start")
		return
	}

	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	g, gctx := errgroup.WithContext(ctx)
	s.cancel = cancel
	s.group = g
	s.tasks = s.tasks[:0]

	for _, ts := range s.tiers {
		for i := 0; i < ts.policy.Workers; i++ {
			s.tasks = append(s.tasks, taskName(ts.tier.Name(), i))
			g.Go(func() error {
				return s.work(gctx, ts, i)
			})
		}
	}
	for _, p := range s.producers {
		s.tasks = append(s.tasks, taskName("producer", p.Name()))
		g.Go(func() error {
			return s.runProducer(gctx, p)
		})
	}

	s.running.Store(true)
	observability.LogSchedulerStart(s.logger, s.policy.TotalWorkers(), len(s.producers), s.policy.QueueCapacity)
}

func taskName(kind string, id any) string {
	return fmt.Sprintf("cellflow.scheduler.%s.%v", kind, id)
}

// Stop cancels every worker and producer and waits for them to return.
// Items still queued stay queued. Stop on a stopped scheduler does nothing.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running.Load() {
		return
	}
	s.running.Store(false)
	s.cancel()
	// Workers never return errors; cancellation is the only exit.
	_ = s.group.Wait()

	s.tasks = nil
	s.cancel = nil
	s.group = nil
	s.logger.Info("scheduler stopped")
}

// Running reports whether Start has been called without a matching Stop.
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// Tasks names every spawned task, e.g. "cellflow.scheduler.micro.2" or
// "cellflow.scheduler.producer.git". Empty while stopped.
func (s *Scheduler) Tasks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// Submit enqueues payload on its tier without blocking. It returns false
// when that tier's queue is full; the item is then dropped. The only error
// is a MisuseError: not running, or an explicit tier out of range.
func (s *Scheduler) Submit(payload any, opts ...SubmitOption) (bool, error) {
	if !s.running.Load() {
		return false, cferrors.Misuse("scheduler.Submit", ErrNotRunning)
	}

	cfg := submitConfig{
		costHint: DefaultCostHint,
		origin:   DefaultOrigin,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	tier := cfg.tier
	if !cfg.hasTier {
		tier = s.policy.InferTier(cfg.costHint)
	}
	if !tier.Valid() {
		return false, cferrors.Misuse("scheduler.Submit", fmt.Errorf("%w: %d", ErrUnknownTier, int(tier)))
	}
	if cfg.id == "" {
		cfg.id = newItemID()
	}

	item := &WorkItem{
		ID:         cfg.id,
		Payload:    payload,
		Tier:       tier,
		EnqueuedAt: time.Now(),
		Origin:     cfg.origin,
		CostHint:   cfg.costHint,
	}

	ts := s.tiers[tier]
	ok := ts.queue.offer(item)
	s.metrics.RecordSubmit(context.Background(), tier.Name(), ok)
	if !ok {
		ts.dropped.Add(1)
		observability.LogQueueFull(s.logger, tier.Name(), ts.queue.depth(), ts.queue.capacity(), item.ID)
		return false, nil
	}
	ts.submitted.Add(1)
	s.logger.Debug("item submitted",
		slog.String("item_id", item.ID),
		slog.String("tier", tier.Name()),
		slog.Int("depth", ts.queue.depth()),
	)
	return true, nil
}

// Interrupt raises tier's wake flag so its first worker stops waiting out
// its cadence. Raising an already raised flag does nothing.
func (s *Scheduler) Interrupt(tier Tier) {
	if !tier.Valid() {
		return
	}
	ts := s.tiers[tier]
	if ts.interrupt.set() {
		ts.interrupts.Add(1)
		s.metrics.RecordInterrupt(context.Background(), tier.Name())
	}
}

// Interrupted reports whether tier's wake flag is raised and not yet observed.
func (s *Scheduler) Interrupted(tier Tier) bool {
	if !tier.Valid() {
		return false
	}
	return s.tiers[tier].interrupt.isSet()
}

// Timer returns the cycle timer of tier.
func (s *Scheduler) Timer(tier Tier) *CycleTimer {
	if !tier.Valid() {
		return nil
	}
	return s.tiers[tier].timer
}

// work is one worker of one tier. The only suspension point is the wait
// for the next item, bounded by the tier cadence. Worker #0 also listens
// on the tier's interrupt flag and is the only one to clear it.
func (s *Scheduler) work(ctx context.Context, ts *tierState, idx int) error {
	logger := observability.EnrichWorkerLogger(s.logger, ts.tier.Name(), idx)

	var wake <-chan struct{}
	if idx == 0 {
		wake = ts.interrupt.C()
	}
	evolves := idx == 0 && ts.tier == Meta && s.evolver != nil

	timer := time.NewTimer(ts.policy.Cadence)
	defer timer.Stop()

	for {
		if ctx.Err() != nil {
			return nil
		}
		timer.Reset(ts.policy.Cadence)

		select {
		case <-ctx.Done():
			return nil
		case item := <-ts.queue.items:
			if ctx.Err() != nil {
				// select picked the item over a simultaneous stop.
				s.putBack(logger, ts, item)
				return nil
			}
			s.process(ctx, logger, ts, idx, item)
		case <-wake:
			ts.wakes.Add(1)
			logger.Debug("woken by interrupt")
		case <-timer.C:
			if evolves {
				s.evolve(ctx, logger, ts)
			}
		}
	}
}

// putBack returns an item claimed during Stop to its queue, at the tail.
func (s *Scheduler) putBack(logger *slog.Logger, ts *tierState, item *WorkItem) {
	if ts.queue.offer(item) {
		return
	}
	ts.dropped.Add(1)
	logger.Warn("queue refilled during stop, dropping item", slog.String("item_id", item.ID))
}

// process runs one item. Errors and panics are logged and counted; the
// worker keeps going.
func (s *Scheduler) process(ctx context.Context, logger *slog.Logger, ts *tierState, idx int, item *WorkItem) {
	spanCtx, span := s.spans.StartCycleSpan(ctx, ts.tier.Name(), idx, item.ID)

	var (
		result Result
		err    error
	)
	elapsed := ts.timer.Time(func() {
		result, err = s.invoke(spanCtx, item, ts.tier)
	})

	s.spans.EndSpanWithError(span, err)
	if ctx.Err() != nil {
		// Stopping: cancellation is not a cycle failure.
		return
	}

	s.metrics.RecordCycle(ctx, ts.tier.Name(), elapsed, err)
	ts.processed.Add(1)
	if err != nil {
		ts.failed.Add(1)
		observability.LogCycleError(logger, item.ID, err)
		return
	}

	logger.Debug("cycle complete",
		slog.String("item_id", item.ID),
		slog.String("verdict", string(result.Verdict)),
		slog.Duration("elapsed", elapsed),
	)

	if ts.tier == Reflex && result.Verdict.Anomalous() {
		if next, ok := ts.tier.Next(); ok {
			s.Interrupt(next)
			logger.Debug("anomaly escalated",
				slog.String("item_id", item.ID),
				slog.String("to", next.Name()),
			)
		}
	}
}

func (s *Scheduler) invoke(ctx context.Context, item *WorkItem, tier Tier) (result Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("orchestrator panic: %v", r)
		}
	}()
	return s.orch.Run(ctx, item, tier)
}

func (s *Scheduler) evolve(ctx context.Context, logger *slog.Logger, ts *tierState) {
	elapsed := ts.timer.Time(func() {
		if err := s.evolver.Evolve(ctx); err != nil && ctx.Err() == nil {
			logger.Warn("evolution tick failed", slog.String("error", err.Error()))
		}
	})
	if ctx.Err() == nil {
		logger.Info("evolution tick complete", slog.Duration("elapsed", elapsed))
	}
}
