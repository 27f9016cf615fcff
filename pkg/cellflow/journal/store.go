// Package journal records every envelope that crosses the buses.
package journal

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultCapacity is the number of entries the ring store keeps.
const DefaultCapacity = 89

// RingPath selects the in-memory ring store in Open.
const RingPath = "ring"

// Store persists journal entries in arrival order.
// Implementations must be safe for concurrent use.
type Store interface {
	// Append records an entry and assigns its sequence number.
	Append(e Entry) (Entry, error)

	// Recent returns up to limit of the newest entries, oldest first.
	// A limit <= 0 returns every retained entry.
	Recent(limit int) ([]Entry, error)

	// ByType returns up to limit of the newest entries with the given type,
	// oldest first.
	ByType(eventType string, limit int) ([]Entry, error)

	// Count returns how many entries were ever appended.
	Count() (int64, error)

	// Close releases any resources (connections, files).
	Close() error
}

// Entry is one observed delivery of an envelope on a bus. An envelope
// forwarded across two buses yields two entries with the same EventID.
type Entry struct {
	Seq       int64           `json:"seq"`
	EventID   string          `json:"event_id"`
	BusID     string          `json:"bus_id"`
	Type      string          `json:"type"`
	Category  string          `json:"category"`
	Source    string          `json:"source,omitempty"`
	Genealogy []string        `json:"genealogy"`
	Bridged   bool            `json:"bridged"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// CategoryOf returns the domain prefix of an event type ("judgment" for
// "judgment.created").
func CategoryOf(eventType string) string {
	if i := strings.IndexByte(eventType, '.'); i > 0 {
		return eventType[:i]
	}
	return eventType
}

// Sentinel errors for journal operations.
var (
	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("journal store closed")
)

// Open returns the store selected by path: "" yields (nil, nil), RingPath an
// in-memory ring of capacity entries, anything else a SQLite database.
func Open(path string, capacity int) (Store, error) {
	switch path {
	case "":
		return nil, nil
	case RingPath:
		return NewMemoryStore(capacity), nil
	default:
		s, err := NewSQLiteStore(path)
		if err != nil {
			return nil, fmt.Errorf("open journal %s: %w", path, err)
		}
		return s, nil
	}
}
