package aggregate

import (
	"context"
	"errors"

	"github.com/jade/eventcore/pkg/store"
)

// IDFunc extracts the target aggregate id from a command.
type IDFunc[C any] func(cmd C) string

// Pipeline is the generic load -> rehydrate -> create/decide -> append
// algorithm shared by every aggregate. One Pipeline is built per aggregate
// type, closing over that aggregate's Definition, its Repository, and its
// command's id extractor.
type Pipeline[C any, S any] struct {
	Def   Definition[C, S]
	Repo  store.Repository[S]
	GetID IDFunc[C]
}

// NewPipeline builds a Pipeline for one aggregate type.
func NewPipeline[C any, S any](def Definition[C, S], repo store.Repository[S], getID IDFunc[C]) Pipeline[C, S] {
	return Pipeline[C, S]{Def: def, Repo: repo, GetID: getID}
}

// Handle runs the pipeline for one command:
//  1. extract the aggregate id, failing ErrBadCommand if empty.
//  2. load the stream; not-found routes to Create, found routes to Decide.
//  3. append whatever events the aggregate decided, under optimistic
//     concurrency against the version the stream was loaded at.
//
// A decide that yields no events is a no-op success: nothing is appended
// and the stream's version is left unchanged.
func (p Pipeline[C, S]) Handle(ctx context.Context, cmd C) error {
	id := p.GetID(cmd)
	if id == "" {
		return ErrBadCommand
	}

	state, version, err := p.Repo.GetByID(ctx, id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		events, cerr := p.Def.Create(cmd)
		if cerr != nil {
			return NewDomainRejection(cerr.Error())
		}
		if len(events) == 0 {
			return NewDomainRejection("create must yield at least one event")
		}
		return p.Repo.Save(ctx, id, events, 0)

	case err != nil:
		return err

	default:
		events, derr := p.Def.Decide(cmd, state)
		if derr != nil {
			return NewDomainRejection(derr.Error())
		}
		if len(events) == 0 {
			return nil
		}
		return p.Repo.Save(ctx, id, events, version)
	}
}
