// Package metadata defines the envelope carried by every command and,
// optionally, every persisted event.
package metadata

import (
	"time"

	"github.com/google/uuid"
)

// Envelope carries the fields present on every command and, once
// persisted, on every event: a unique id, the correlation id that groups a
// causally related interaction, the id of whatever caused this one, the
// acting user, and a timestamp.
type Envelope struct {
	ID            string    `json:"id"`
	CorrelationID string    `json:"correlationId"`
	CausationID   string    `json:"causationId,omitempty"`
	UserID        string    `json:"userId,omitempty"`
	Timestamp     time.Time `json:"timestamp,omitempty"`
}

// NewEnvelope creates an envelope with a fresh id and, if correlationID is
// empty, uses the new id as its own correlation root.
func NewEnvelope(correlationID, causationID, userID string) Envelope {
	id := NewID()
	if correlationID == "" {
		correlationID = id
	}
	return Envelope{
		ID:            id,
		CorrelationID: correlationID,
		CausationID:   causationID,
		UserID:        userID,
	}
}

// NewID generates a new unique identifier suitable for a command or event id.
func NewID() string {
	return uuid.NewString()
}

// WithServerTimestamp returns a copy of the envelope with Timestamp set to now
// if it was left zero-valued, per SPEC_FULL.md's Open Question decision:
// the client's timestamp is honored only when explicitly provided.
func (e Envelope) WithServerTimestamp(now time.Time) Envelope {
	if e.Timestamp.IsZero() {
		e.Timestamp = now
	}
	return e
}

// Derive produces a child envelope for an event or follow-up command caused
// by this one: same correlation id, causation id set to this envelope's id.
func (e Envelope) Derive() Envelope {
	return Envelope{
		ID:            NewID(),
		CorrelationID: e.CorrelationID,
		CausationID:   e.ID,
		UserID:        e.UserID,
	}
}
