package store

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/jade/eventcore/pkg/codec"
	"github.com/jade/eventcore/pkg/event"
)

// EventTypes is the per-adapter registration of event variant types under
// their schema URN (spec.md §4.D: "the adapter registers each event
// variant under its URN before use"). It mirrors registry.Registry's
// schema-to-type half, scoped to events rather than commands, since the
// store adapter — not the command registry — owns decoding persisted
// payloads back into domain event variants.
type EventTypes struct {
	mu    sync.RWMutex
	types map[string]reflect.Type
}

// NewEventTypes builds an empty EventTypes registration.
func NewEventTypes() *EventTypes {
	return &EventTypes{types: make(map[string]reflect.Type)}
}

// Register associates each prototype's static schema URN with its runtime
// type.
func (t *EventTypes) Register(prototypes ...event.Variant) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, p := range prototypes {
		t.types[p.EventSchemaURN()] = reflect.TypeOf(p)
	}
}

// Decode unmarshals payload into a new instance of the type registered
// under urn, using policy.
func (t *EventTypes) Decode(policy codec.Policy, urn string, payload []byte) (event.Variant, error) {
	t.mu.RLock()
	typ, ok := t.types[urn]
	t.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("store: no event type registered for schema %q", urn)
	}

	ptr := reflect.New(typ)
	if err := policy.Unmarshal(payload, ptr.Interface()); err != nil {
		return nil, fmt.Errorf("store: decode event %q: %w", urn, err)
	}

	v, ok := ptr.Elem().Interface().(event.Variant)
	if !ok {
		panic("store: registered type " + typ.String() + " no longer implements event.Variant")
	}
	return v, nil
}
