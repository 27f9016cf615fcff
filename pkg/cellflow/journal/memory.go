package journal

import (
	"slices"
	"sync"

	"github.com/randalmurphal/cellflow/pkg/cellflow/ring"
)

// MemoryStore keeps the newest entries in a bounded ring; the oldest entry
// is dropped when a new one arrives at capacity. Data is lost when the
// process exits.
type MemoryStore struct {
	mu      sync.RWMutex
	entries *ring.Ring[Entry]
	seq     int64
	closed  bool
}

// NewMemoryStore creates a ring store. Non-positive capacities use
// DefaultCapacity.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &MemoryStore{entries: ring.New[Entry](capacity)}
}

// Append implements Store.
func (m *MemoryStore) Append(e Entry) (Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return Entry{}, ErrStoreClosed
	}

	m.seq++
	e.Seq = m.seq
	// Copy slices to avoid retaining the caller's backing arrays
	e.Genealogy = slices.Clone(e.Genealogy)
	e.Payload = slices.Clone(e.Payload)
	m.entries.Push(e)
	return e, nil
}

// Recent implements Store.
func (m *MemoryStore) Recent(limit int) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}
	if limit <= 0 {
		return m.entries.Snapshot(), nil
	}
	return m.entries.Last(limit), nil
}

// ByType implements Store.
func (m *MemoryStore) ByType(eventType string, limit int) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	var out []Entry
	for _, e := range m.entries.Snapshot() {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// Count implements Store.
func (m *MemoryStore) Count() (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return 0, ErrStoreClosed
	}
	return m.seq, nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.entries.Reset()
	return nil
}
