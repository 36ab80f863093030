// Package schema implements the schema URN grammar used to tag every
// command and event variant on the wire:
//
//	urn:schema:jade:command:{aggregate}:{action}:{version}
//	urn:schema:jade:event:{aggregate}:{action}:{version}
//
// The URN is the sole source of truth for a command's target aggregate
// type (spec.md §3, "a command's target aggregate is fully determined by
// its schema URN").
package schema

import (
	"fmt"
	"strings"

	"github.com/asaskevich/govalidator"
)

// Kind distinguishes a command URN from an event URN.
type Kind string

const (
	Command Kind = "command"
	Event   Kind = "event"
)

// namePattern and versionPattern match the grammar bit-exactly (spec.md §6):
// aggregate/action are [a-z][a-z0-9-]*, version is [1-9][0-9]*.
const (
	namePattern    = `[a-z][a-z0-9-]*`
	versionPattern = `[1-9][0-9]*`
)

var urnPattern = fmt.Sprintf(`^urn:schema:jade:(command|event):(%s):(%s):(%s)$`, namePattern, namePattern, versionPattern)

// URN is a validated schema URN.
type URN struct {
	raw       string
	Kind      Kind
	Aggregate string
	Action    string
	Version   string
}

// Parse validates a raw URN string against the grammar and decomposes it.
// A malformed URN is reported with the offending string for diagnostics.
func Parse(raw string) (URN, error) {
	if !govalidator.Matches(raw, urnPattern) {
		return URN{}, fmt.Errorf("malformed schema urn %q: expected urn:schema:jade:(command|event):{aggregate}:{action}:{version}", raw)
	}

	parts := strings.Split(raw, ":")
	if len(parts) != 7 {
		return URN{}, fmt.Errorf("malformed schema urn %q: expected exactly 7 colon-separated segments, got %d", raw, len(parts))
	}

	return URN{
		raw:       raw,
		Kind:      Kind(parts[3]),
		Aggregate: parts[4],
		Action:    parts[5],
		Version:   parts[6],
	}, nil
}

// String returns the canonical wire form.
func (u URN) String() string {
	return u.raw
}

// CommandURN builds a command schema URN.
func CommandURN(aggregate, action, version string) string {
	return fmt.Sprintf("urn:schema:jade:command:%s:%s:%s", aggregate, action, version)
}

// EventURN builds an event schema URN.
func EventURN(aggregate, action, version string) string {
	return fmt.Sprintf("urn:schema:jade:event:%s:%s:%s", aggregate, action, version)
}

// AggregatePrefix validates a stream-prefix token: a lowercase letter
// followed by lowercase letters/digits/hyphens, <= 32 chars (spec.md §4.B).
func AggregatePrefix(prefix string) error {
	if prefix == "" {
		return fmt.Errorf("aggregate prefix must not be empty")
	}
	if len(prefix) > 32 {
		return fmt.Errorf("aggregate prefix %q exceeds 32 characters", prefix)
	}
	if !govalidator.Matches(prefix, `^`+namePattern+`$`) {
		return fmt.Errorf("aggregate prefix %q must match [a-z][a-z0-9-]*", prefix)
	}
	return nil
}

// StreamID returns the stream identifier "{prefix}-{aggregateId}" (spec.md §3).
func StreamID(prefix, aggregateID string) string {
	return prefix + "-" + aggregateID
}
