package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	cferrors "github.com/randalmurphal/cellflow/pkg/cellflow/errors"
	"github.com/randalmurphal/cellflow/pkg/cellflow/event"
)

// Option configures a Journal.
type Option func(*Journal)

// WithLogger sets the logger for write failures.
func WithLogger(logger *slog.Logger) Option {
	return func(j *Journal) {
		j.logger = logger
	}
}

// WithRetry overrides the retry policy for store writes.
func WithRetry(cfg cferrors.RetryConfig) Option {
	return func(j *Journal) {
		j.retry = cfg
	}
}

// Journal subscribes to buses with a wildcard handler and appends every
// delivered envelope to a Store.
type Journal struct {
	store  Store
	logger *slog.Logger
	retry  cferrors.RetryConfig

	mu   sync.Mutex
	subs []*event.Subscription

	written atomic.Int64
	failed  atomic.Int64
}

// New creates a journal writing to store.
func New(store Store, opts ...Option) *Journal {
	j := &Journal{
		store: store,
		retry: cferrors.StoreRetry,
	}
	for _, opt := range opts {
		opt(j)
	}
	if j.logger == nil {
		j.logger = slog.Default()
	}
	return j
}

// Attach subscribes the journal to each bus.
func (j *Journal) Attach(buses ...*event.Bus) {
	j.mu.Lock()
	defer j.mu.Unlock()

	for _, b := range buses {
		j.subs = append(j.subs, b.Subscribe(event.Wildcard, j.recorder(b.ID())))
	}
}

// Detach unsubscribes from every bus.
func (j *Journal) Detach() {
	j.mu.Lock()
	defer j.mu.Unlock()

	for _, s := range j.subs {
		s.Unsubscribe()
	}
	j.subs = nil
}

func (j *Journal) recorder(busID string) event.Handler {
	return func(ctx context.Context, env *event.Envelope) error {
		return j.Record(ctx, busID, env)
	}
}

// Record appends env as seen on busID, retrying transient store failures.
func (j *Journal) Record(ctx context.Context, busID string, env *event.Envelope) error {
	entry := Entry{
		EventID:   env.ID(),
		BusID:     busID,
		Type:      env.Type(),
		Category:  CategoryOf(env.Type()),
		Source:    env.Source(),
		Genealogy: env.Genealogy(),
		Bridged:   env.Bridged(),
		Timestamp: env.Timestamp(),
		Payload:   encodePayload(env.Payload()),
	}

	result := cferrors.WithRetryContext(ctx, j.retry, func(context.Context) (Entry, error) {
		return j.store.Append(entry)
	})
	if result.Err != nil {
		j.failed.Add(1)
		j.logger.Warn("journal write failed",
			slog.String("bus_id", busID),
			slog.String("event_id", env.ID()),
			slog.Int("attempts", result.Attempts),
			slog.String("error", result.Err.Error()),
		)
		return fmt.Errorf("journal %s: %w", env.ID(), result.Err)
	}
	j.written.Add(1)
	return nil
}

// encodePayload renders payload as JSON; values that cannot be encoded are
// stored as their Go string form.
func encodePayload(payload any) json.RawMessage {
	if payload == nil {
		return nil
	}
	if data, err := json.Marshal(payload); err == nil {
		return data
	}
	data, _ := json.Marshal(fmt.Sprintf("%v", payload))
	return data
}

// Recent returns up to limit of the newest entries, oldest first.
func (j *Journal) Recent(limit int) ([]Entry, error) {
	return j.store.Recent(limit)
}

// ByType returns up to limit of the newest entries of eventType, oldest first.
func (j *Journal) ByType(eventType string, limit int) ([]Entry, error) {
	return j.store.ByType(eventType, limit)
}

// Stats is a point-in-time view of the journal.
type Stats struct {
	Written int64 `json:"written"`
	Failed  int64 `json:"failed"`
	Buses   int   `json:"buses"`
}

// Stats returns write counters.
func (j *Journal) Stats() Stats {
	j.mu.Lock()
	buses := len(j.subs)
	j.mu.Unlock()
	return Stats{
		Written: j.written.Load(),
		Failed:  j.failed.Load(),
		Buses:   buses,
	}
}

// Close detaches the journal and closes its store.
func (j *Journal) Close() error {
	j.Detach()
	return j.store.Close()
}
