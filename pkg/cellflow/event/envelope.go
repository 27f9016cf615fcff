package event

import (
	"encoding/json"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Envelope is an immutable event with its bus traversal history.
// Every method that changes a field returns a copy.
type Envelope struct {
	id        string
	eventType string
	payload   any
	source    string
	timestamp time.Time
	genealogy []string
	bridged   bool
}

// Option configures envelope creation.
type Option func(*Envelope)

// WithID sets a specific envelope ID (default: random UUID).
func WithID(id string) Option {
	return func(e *Envelope) {
		e.id = id
	}
}

// WithSource labels the component that emitted the envelope.
func WithSource(source string) Option {
	return func(e *Envelope) {
		e.source = source
	}
}

// WithTimestamp sets a specific timestamp (default: time.Now()).
func WithTimestamp(t time.Time) Option {
	return func(e *Envelope) {
		e.timestamp = t
	}
}

// New creates an envelope with an empty genealogy.
func New(eventType string, payload any, opts ...Option) *Envelope {
	e := &Envelope{
		id:        uuid.NewString(),
		eventType: eventType,
		payload:   payload,
		timestamp: time.Now(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ID returns the envelope id, shared by every bridged copy.
func (e *Envelope) ID() string { return e.id }

// Type returns the event type, e.g. "judgment.created".
func (e *Envelope) Type() string { return e.eventType }

// Payload returns the opaque payload.
func (e *Envelope) Payload() any { return e.payload }

// Source returns the origin label.
func (e *Envelope) Source() string { return e.source }

// Timestamp returns the creation time.
func (e *Envelope) Timestamp() time.Time { return e.timestamp }

// Bridged reports whether the envelope was delivered by a Bridge.
func (e *Envelope) Bridged() bool { return e.bridged }

// Genealogy returns a copy of the bus ids this envelope has traversed,
// oldest first.
func (e *Envelope) Genealogy() []string {
	return slices.Clone(e.genealogy)
}

// Seen reports whether busID is already in the genealogy.
func (e *Envelope) Seen(busID string) bool {
	return slices.Contains(e.genealogy, busID)
}

// WithPayload returns a copy carrying payload. Used by rule transforms.
func (e *Envelope) WithPayload(payload any) *Envelope {
	cp := e.clone()
	cp.payload = payload
	return cp
}

// WithType returns a copy with a different event type. Used by rule transforms.
func (e *Envelope) WithType(eventType string) *Envelope {
	cp := e.clone()
	cp.eventType = eventType
	return cp
}

// hop returns the copy delivered to the next bus: busID appended to the
// genealogy and the bridged flag set.
func (e *Envelope) hop(busID string) *Envelope {
	cp := e.clone()
	cp.genealogy = append(cp.genealogy, busID)
	cp.bridged = true
	return cp
}

// withLineage returns a copy whose genealogy and bridged flag are taken from
// lineage. Transforms cannot rewrite traversal history.
func (e *Envelope) withLineage(lineage *Envelope) *Envelope {
	cp := e.clone()
	cp.genealogy = slices.Clone(lineage.genealogy)
	cp.bridged = lineage.bridged
	return cp
}

func (e *Envelope) clone() *Envelope {
	cp := *e
	cp.genealogy = slices.Clone(e.genealogy)
	return &cp
}

type envelopeJSON struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Source    string    `json:"source,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Genealogy []string  `json:"genealogy"`
	Bridged   bool      `json:"bridged"`
	Payload   any       `json:"payload"`
}

// MarshalJSON implements json.Marshaler.
func (e *Envelope) MarshalJSON() ([]byte, error) {
	genealogy := e.genealogy
	if genealogy == nil {
		genealogy = []string{}
	}
	return json.Marshal(envelopeJSON{
		ID:        e.id,
		Type:      e.eventType,
		Source:    e.source,
		Timestamp: e.timestamp,
		Genealogy: genealogy,
		Bridged:   e.bridged,
		Payload:   e.payload,
	})
}
