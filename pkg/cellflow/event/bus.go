package event

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/randalmurphal/cellflow/pkg/cellflow/observability"
	"github.com/randalmurphal/cellflow/pkg/cellflow/ring"
)

// Wildcard subscribes a handler to every event type on a bus.
const Wildcard = "*"

// DefaultHistorySize is the number of envelopes a bus remembers.
const DefaultHistorySize = 1000

// BusOption configures a Bus.
type BusOption func(*busConfig)

type busConfig struct {
	logger      *slog.Logger
	metrics     observability.MetricsRecorder
	historySize int
	middleware  []Middleware
}

// WithLogger sets the logger for handler failures.
func WithLogger(logger *slog.Logger) BusOption {
	return func(c *busConfig) {
		c.logger = logger
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m observability.MetricsRecorder) BusOption {
	return func(c *busConfig) {
		c.metrics = m
	}
}

// WithHistorySize bounds the rolling history. Zero disables it.
func WithHistorySize(n int) BusOption {
	return func(c *busConfig) {
		c.historySize = n
	}
}

// WithMiddleware wraps every handler subscribed from now on.
func WithMiddleware(mw ...Middleware) BusOption {
	return func(c *busConfig) {
		c.middleware = append(c.middleware, mw...)
	}
}

// Bus is a named publish/subscribe channel.
//
// Handlers may be added or removed at any time, including while the bus is
// emitting. Emit never waits for handlers.
type Bus struct {
	id      string
	logger  *slog.Logger
	metrics observability.MetricsRecorder
	mw      []Middleware

	mu       sync.RWMutex
	handlers map[string][]*Subscription // event type or Wildcard -> subscription order
	seq      uint64

	history *ring.Ring[*Envelope]
	emitted atomic.Int64
	errors  atomic.Int64

	pending *pending
	shared  *pending // registry-wide, may be nil
}

// NewBus creates a bus.
func NewBus(id string, opts ...BusOption) *Bus {
	cfg := busConfig{historySize: DefaultHistorySize}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if cfg.metrics == nil {
		cfg.metrics = observability.NoopMetrics{}
	}

	return &Bus{
		id:       id,
		logger:   observability.EnrichBusLogger(cfg.logger, id),
		metrics:  cfg.metrics,
		mw:       cfg.middleware,
		handlers: make(map[string][]*Subscription),
		history:  ring.New[*Envelope](cfg.historySize),
		pending:  &pending{},
	}
}

// ID returns the bus identifier.
func (b *Bus) ID() string {
	return b.id
}

// Subscription is a handler registered on a bus under one key.
type Subscription struct {
	bus     *Bus
	key     string
	seq     uint64
	handler Handler
}

// Key returns the event type (or Wildcard) the subscription listens on.
func (s *Subscription) Key() string {
	return s.key
}

// Unsubscribe removes the subscription. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.bus.Unsubscribe(s)
}

// Subscribe registers h for key, an event type or Wildcard.
func (b *Bus) Subscribe(key string, h Handler) *Subscription {
	chain := append([]Middleware{Recover()}, b.mw...)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	sub := &Subscription{
		bus:     b,
		key:     key,
		seq:     b.seq,
		handler: Chain(h, chain...),
	}
	b.handlers[key] = append(b.handlers[key], sub)
	return sub
}

// Unsubscribe removes sub and reports whether it was registered.
func (b *Bus) Unsubscribe(sub *Subscription) bool {
	if sub == nil || sub.bus != b {
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.handlers[sub.key]
	i := slices.Index(subs, sub)
	if i < 0 {
		return false
	}
	subs = slices.Delete(subs, i, i+1)
	if len(subs) == 0 {
		delete(b.handlers, sub.key)
	} else {
		b.handlers[sub.key] = subs
	}
	return true
}

// Emit records env in the history and launches every matching handler in its
// own goroutine, exact-type and wildcard subscribers interleaved in
// subscription order. It returns once all handlers are launched.
//
// Handlers receive ctx without its cancellation: once launched they run to
// completion.
func (b *Bus) Emit(ctx context.Context, env *Envelope) {
	if env == nil {
		return
	}
	b.emitted.Add(1)
	b.history.Push(env)
	b.metrics.RecordEmit(ctx, b.id, env.Type())

	subs := b.matching(env.Type())
	if len(subs) == 0 {
		return
	}

	hctx := context.WithoutCancel(ctx)
	for _, sub := range subs {
		b.pending.add(1)
		if b.shared != nil {
			b.shared.add(1)
		}
		go b.run(hctx, sub, env)
	}
}

func (b *Bus) matching(eventType string) []*Subscription {
	b.mu.RLock()
	defer b.mu.RUnlock()

	exact := b.handlers[eventType]
	if eventType == Wildcard {
		return slices.Clone(exact)
	}
	wild := b.handlers[Wildcard]

	out := make([]*Subscription, 0, len(exact)+len(wild))
	i, j := 0, 0
	for i < len(exact) && j < len(wild) {
		if exact[i].seq < wild[j].seq {
			out = append(out, exact[i])
			i++
		} else {
			out = append(out, wild[j])
			j++
		}
	}
	out = append(out, exact[i:]...)
	return append(out, wild[j:]...)
}

func (b *Bus) run(ctx context.Context, sub *Subscription, env *Envelope) {
	defer func() {
		b.pending.add(-1)
		if b.shared != nil {
			b.shared.add(-1)
		}
	}()

	if err := sub.handler(ctx, env); err != nil {
		b.errors.Add(1)
		b.metrics.RecordHandlerError(ctx, b.id, env.Type())
		observability.LogHandlerError(b.logger, b.id, env.Type(), env.ID(), err)
	}
}

// History returns the retained envelopes, oldest first.
func (b *Bus) History() []*Envelope {
	return b.history.Snapshot()
}

// Settle blocks until every handler launched by Emit has returned, or ctx is
// done. Handlers launched while waiting are waited for too.
func (b *Bus) Settle(ctx context.Context) error {
	return b.pending.wait(ctx)
}

// BusStats is a point-in-time view of a bus.
type BusStats struct {
	ID          string         `json:"bus_id"`
	Emitted     int64          `json:"emitted"`
	Errors      int64          `json:"errors"`
	Handlers    map[string]int `json:"handlers"`
	HistorySize int            `json:"history_size"`
	InFlight    int64          `json:"in_flight"`
}

// Stats returns the bus counters.
func (b *Bus) Stats() BusStats {
	b.mu.RLock()
	handlers := make(map[string]int, len(b.handlers))
	for k, v := range b.handlers {
		handlers[k] = len(v)
	}
	b.mu.RUnlock()

	return BusStats{
		ID:          b.id,
		Emitted:     b.emitted.Load(),
		Errors:      b.errors.Load(),
		Handlers:    handlers,
		HistorySize: b.history.Len(),
		InFlight:    b.pending.load(),
	}
}

// pending counts launched handlers that have not returned.
type pending struct {
	n atomic.Int64
}

func (p *pending) add(d int64) { p.n.Add(d) }

func (p *pending) load() int64 { return p.n.Load() }

const settlePoll = time.Millisecond

func (p *pending) wait(ctx context.Context) error {
	if p.n.Load() == 0 {
		return nil
	}
	ticker := time.NewTicker(settlePoll)
	defer ticker.Stop()
	for p.n.Load() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}
