package aggregate

import (
	"fmt"

	"github.com/jade/eventcore/pkg/event"
)

// Rehydrate folds a stream's events into state with a Fold's Init and
// Evolve. It is deterministic: rehydrate(A, E) == fold(evolve, init(E[0]),
// E[1:]). Events must already be in insertion order; an empty slice is a
// caller error (store adapters should not call Rehydrate for a stream they
// found empty — that's the not-found case, not a zero-event stream).
//
// A panic inside Init or Evolve is recovered and reported as
// ErrCorruptStream rather than propagated, since replay runs deep inside
// store adapters where a bare panic would take down an unrelated request.
func Rehydrate[S any](fold Fold[S], events []event.Variant) (state S, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero S
			state = zero
			err = fmt.Errorf("%w: %v", ErrCorruptStream, r)
		}
	}()

	if len(events) == 0 {
		panic("aggregate: Rehydrate called with no events")
	}

	state = fold.Init(events[0])
	for _, e := range events[1:] {
		state = fold.Evolve(state, e)
	}
	return state, nil
}
