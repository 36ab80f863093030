package cqrs

import (
	"context"

	"github.com/jade/eventcore/pkg/aggregate"
	"github.com/jade/eventcore/pkg/event"
	"github.com/jade/eventcore/pkg/store"
)

// CustomHandler is the non-aggregate side of the handler surface
// (component K): it reads state via a repository, performs an external
// side effect, and on success appends a single result event under the
// state's current version. Unlike an aggregate pipeline it never creates a
// stream and never calls create/decide.
type CustomHandler[C any, S any] struct {
	Repo  store.Repository[S]
	GetID func(cmd C) string

	// AlreadyDone reports whether cmd's effect has already happened, so
	// Handle can return success without repeating the side effect.
	AlreadyDone func(cmd C, state S) bool

	// Precondition checks state before performing the side effect; a
	// non-nil return becomes a DomainRejection.
	Precondition func(cmd C, state S) error

	// Perform does the external side effect and, on success, produces the
	// event to append. A non-nil error becomes ExternalFailure and no
	// event is appended.
	Perform func(ctx context.Context, cmd C, state S) (event.Variant, error)
}

// Handle implements the typed[C] shape Adapt expects.
func (h CustomHandler[C, S]) Handle(ctx context.Context, cmd C) error {
	id := h.GetID(cmd)
	if id == "" {
		return aggregate.ErrBadCommand
	}

	state, version, err := h.Repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if h.AlreadyDone != nil && h.AlreadyDone(cmd, state) {
		return nil
	}

	if h.Precondition != nil {
		if perr := h.Precondition(cmd, state); perr != nil {
			return aggregate.NewDomainRejection(perr.Error())
		}
	}

	resultEvent, perr := h.Perform(ctx, cmd, state)
	if perr != nil {
		return NewExternalFailure(perr)
	}

	return h.Repo.Save(ctx, id, []event.Variant{resultEvent}, version)
}

// AggregateHandler adapts an aggregate.Pipeline into a registry.Handler,
// the factory spec component E' describes for wrapping the rehydration and
// command pipeline (component C) as a registrable handler.
func AggregateHandler[C registry.Command, S any](p aggregate.Pipeline[C, S]) registry.Handler {
	return Adapt[C](p)
}

// CustomHandlerAsHandler adapts a CustomHandler into a registry.Handler.
func CustomHandlerAsHandler[C registry.Command, S any](h CustomHandler[C, S]) registry.Handler {
	return Adapt[C](h)
}
