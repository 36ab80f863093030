// Package event defines the persisted event envelope. Events are immutable
// once appended (spec.md §3).
package event

import (
	"time"

	"github.com/jade/eventcore/pkg/metadata"
)

// Event is one immutable fact appended to a stream, tagged by its schema
// URN (spec.md §3, §6).
type Event struct {
	// SchemaURN is the wire type tag, e.g. urn:schema:jade:event:customer:created:2.
	SchemaURN string `json:"schemaUrn"`

	// AggregateID is the id of the aggregate this event belongs to.
	AggregateID string `json:"aggregateId"`

	// Version is the stream position of this event (1-based, contiguous).
	Version int64 `json:"version"`

	// Payload is the domain-specific JSON payload for this event variant.
	Payload []byte `json:"payload"`

	// Metadata is present as persisted. The store adapters write an
	// envelope that carries only the server timestamp of the append; the
	// command's metadata is not copied into it.
	Metadata metadata.Envelope `json:"metadata"`

	// RecordedAt is when the store accepted the append; distinct from
	// Metadata.Timestamp, which describes intent rather than persistence.
	RecordedAt time.Time `json:"recordedAt"`
}

// Variant is implemented by every concrete event payload type a domain
// declares. EventSchemaURN must return the same URN for every value of a
// type: EventTypes.Register reads it off a prototype, and the store adapters
// read it off each event they append.
type Variant interface {
	EventSchemaURN() string
}

