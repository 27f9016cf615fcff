package journal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	cferrors "github.com/randalmurphal/cellflow/pkg/cellflow/errors"
)

// SQLiteStore persists the journal to SQLite. Nothing is evicted.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewSQLiteStore opens (or creates) a journal database.
// The path should be a file path (e.g., "./journal.db") or ":memory:" for testing.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serialises writers.
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		`CREATE TABLE IF NOT EXISTS journal (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			event_id TEXT NOT NULL,
			bus_id TEXT NOT NULL,
			type TEXT NOT NULL,
			category TEXT NOT NULL,
			source TEXT NOT NULL,
			genealogy TEXT NOT NULL,
			bridged INTEGER NOT NULL,
			timestamp TEXT NOT NULL,
			payload BLOB
		)`,
		`CREATE INDEX IF NOT EXISTS idx_journal_type ON journal(type, seq)`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("init journal schema: %w", err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

// Append implements Store.
func (s *SQLiteStore) Append(e Entry) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Entry{}, ErrStoreClosed
	}

	genealogy, err := json.Marshal(nonNil(e.Genealogy))
	if err != nil {
		return Entry{}, fmt.Errorf("encode genealogy: %w", err)
	}

	res, err := s.db.Exec(`
		INSERT INTO journal (event_id, bus_id, type, category, source, genealogy, bridged, timestamp, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.EventID, e.BusID, e.Type, e.Category, e.Source, string(genealogy), e.Bridged,
		e.Timestamp.UTC().Format(time.RFC3339Nano), []byte(e.Payload))
	if err != nil {
		return Entry{}, storeError(err, "append journal entry")
	}

	e.Seq, err = res.LastInsertId()
	if err != nil {
		return Entry{}, fmt.Errorf("read journal sequence: %w", err)
	}
	return e, nil
}

// storeError tags a driver error so callers retry lock contention only.
func storeError(err error, what string) error {
	if cferrors.IsRetryable(err) {
		return cferrors.Transient(err, what)
	}
	return cferrors.Permanent(err, what)
}

// Recent implements Store.
func (s *SQLiteStore) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	return s.query(`
		SELECT * FROM (
			SELECT seq, event_id, bus_id, type, category, source, genealogy, bridged, timestamp, payload
			FROM journal ORDER BY seq DESC LIMIT ?
		) ORDER BY seq
	`, limit)
}

// ByType implements Store.
func (s *SQLiteStore) ByType(eventType string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1
	}
	return s.query(`
		SELECT * FROM (
			SELECT seq, event_id, bus_id, type, category, source, genealogy, bridged, timestamp, payload
			FROM journal WHERE type = ? ORDER BY seq DESC LIMIT ?
		) ORDER BY seq
	`, eventType, limit)
}

// Count implements Store.
func (s *SQLiteStore) Count() (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, ErrStoreClosed
	}

	var n int64
	if err := s.db.QueryRow(`SELECT COALESCE(MAX(seq), 0) FROM journal`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count journal: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) query(q string, args ...any) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e         Entry
			genealogy string
			timestamp string
			payload   []byte
		)
		if err := rows.Scan(&e.Seq, &e.EventID, &e.BusID, &e.Type, &e.Category, &e.Source,
			&genealogy, &e.Bridged, &timestamp, &payload); err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		if err := json.Unmarshal([]byte(genealogy), &e.Genealogy); err != nil {
			return nil, fmt.Errorf("decode genealogy: %w", err)
		}
		if e.Timestamp, err = time.Parse(time.RFC3339Nano, timestamp); err != nil {
			return nil, fmt.Errorf("decode timestamp: %w", err)
		}
		e.Payload = payload
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal: %w", err)
	}
	return entries, nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	return s.db.Close()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
