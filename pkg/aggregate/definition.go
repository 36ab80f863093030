package aggregate

import "github.com/jade/eventcore/pkg/event"

// Fold is the init/evolve half of an aggregate: the pure pair that turns a
// stream's events into state. It needs no command type, which is why it is
// split out from Definition — store adapters rehydrate state and never see
// a command.
type Fold[S any] struct {
	// Init produces the initial state from the first event of a stream.
	// Must accept any event that could legally be first.
	Init func(first event.Variant) S

	// Evolve folds one subsequent event into state. Must be total: an
	// event the aggregate doesn't recognize leaves state unchanged, so
	// that new event variants don't break replay of old streams.
	Evolve func(state S, evt event.Variant) S
}

// Definition is the 5-tuple every domain provides: a stream-prefix token,
// the two command-deciding functions, and the Fold that replays state.
// Create and Decide must be free of I/O; all side effects belong to
// repositories and handlers built around a Definition, never inside it.
type Definition[C any, S any] struct {
	// Prefix is not validated here, and the store adapters do not validate
	// it either; schema.AggregatePrefix checks a token against the prefix
	// grammar.
	Prefix string

	// Create decides the events for a command against an aggregate that
	// does not yet exist. Must not require state.
	Create func(cmd C) ([]event.Variant, error)

	// Decide decides the events for a command against an aggregate's
	// current state. Returning (nil, nil) means "no-op, idempotent".
	Decide func(cmd C, state S) ([]event.Variant, error)

	Fold[S]
}
