package aggregate_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jade/eventcore/pkg/aggregate"
	"github.com/jade/eventcore/pkg/event"
	"github.com/jade/eventcore/pkg/store"
)

// counterState is a tiny aggregate used to exercise the pipeline without
// pulling in a real domain: the first "incremented" event seeds it at 1,
// each later one bumps it.
type counterState struct {
	value int
}

type counterCmd struct {
	id   string
	kind string // "create" or "increment" or "noop"
}

type incrementedEvent struct{}

func (incrementedEvent) EventSchemaURN() string { return "urn:schema:jade:event:counter:incremented:1" }

func counterDefinition() aggregate.Definition[counterCmd, counterState] {
	return aggregate.Definition[counterCmd, counterState]{
		Prefix: "counter",
		Create: func(cmd counterCmd) ([]event.Variant, error) {
			return []event.Variant{incrementedEvent{}}, nil
		},
		Decide: func(cmd counterCmd, state counterState) ([]event.Variant, error) {
			if cmd.kind == "noop" {
				return nil, nil
			}
			return []event.Variant{incrementedEvent{}}, nil
		},
		Init: func(first event.Variant) counterState {
			return counterState{value: 1}
		},
		Evolve: func(state counterState, evt event.Variant) counterState {
			state.value++
			return state
		},
	}
}

// fakeRepo is an in-memory store.Repository[counterState] for pipeline tests.
type fakeRepo struct {
	streams map[string][]event.Variant
	// beforeSave, if set, runs at the start of Save, after the pipeline
	// has loaded the stream.
	beforeSave func()
}

func newFakeRepo() *fakeRepo { return &fakeRepo{streams: map[string][]event.Variant{}} }

func (r *fakeRepo) GetByID(ctx context.Context, id string) (counterState, int64, error) {
	events, ok := r.streams[id]
	if !ok {
		var zero counterState
		return zero, 0, store.ErrNotFound
	}
	def := counterDefinition()
	state, err := aggregate.Rehydrate(def.Fold, events)
	if err != nil {
		return state, 0, store.NewFailure(err)
	}
	return state, int64(len(events)), nil
}

func (r *fakeRepo) Save(ctx context.Context, id string, events []event.Variant, expectedVersion int64) error {
	if r.beforeSave != nil {
		r.beforeSave()
	}
	current := int64(len(r.streams[id]))
	if current != expectedVersion {
		return store.ErrConcurrency
	}
	r.streams[id] = append(r.streams[id], events...)
	return nil
}

func getID(cmd counterCmd) string { return cmd.id }

func TestPipelineHandle(t *testing.T) {
	t.Run("CreatesOnNotFound", func(t *testing.T) {
		repo := newFakeRepo()
		p := aggregate.NewPipeline(counterDefinition(), repo, getID)

		if err := p.Handle(context.Background(), counterCmd{id: "c1", kind: "create"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := len(repo.streams["c1"]); got != 1 {
			t.Fatalf("expected 1 event appended, got %d", got)
		}
	})

	t.Run("DecidesOnFound", func(t *testing.T) {
		repo := newFakeRepo()
		p := aggregate.NewPipeline(counterDefinition(), repo, getID)

		if err := p.Handle(context.Background(), counterCmd{id: "c1", kind: "create"}); err != nil {
			t.Fatalf("seed create failed: %v", err)
		}
		if err := p.Handle(context.Background(), counterCmd{id: "c1", kind: "increment"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := len(repo.streams["c1"]); got != 2 {
			t.Fatalf("expected 2 events, got %d", got)
		}
	})

	t.Run("NoopDecideLeavesVersionUnchanged", func(t *testing.T) {
		repo := newFakeRepo()
		p := aggregate.NewPipeline(counterDefinition(), repo, getID)

		if err := p.Handle(context.Background(), counterCmd{id: "c1", kind: "create"}); err != nil {
			t.Fatalf("seed create failed: %v", err)
		}
		if err := p.Handle(context.Background(), counterCmd{id: "c1", kind: "noop"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := len(repo.streams["c1"]); got != 1 {
			t.Fatalf("noop decide must not append, got %d events", got)
		}
	})

	t.Run("EmptyIDIsBadCommand", func(t *testing.T) {
		repo := newFakeRepo()
		p := aggregate.NewPipeline(counterDefinition(), repo, getID)

		err := p.Handle(context.Background(), counterCmd{id: "", kind: "create"})
		if !errors.Is(err, aggregate.ErrBadCommand) {
			t.Fatalf("expected ErrBadCommand, got %v", err)
		}
	})

	t.Run("EmptyCreateEventsIsDomainRejection", func(t *testing.T) {
		repo := newFakeRepo()
		def := counterDefinition()
		def.Create = func(cmd counterCmd) ([]event.Variant, error) { return nil, nil }
		p := aggregate.NewPipeline(def, repo, getID)

		err := p.Handle(context.Background(), counterCmd{id: "c1", kind: "create"})
		var rejection *aggregate.DomainRejection
		if !errors.As(err, &rejection) {
			t.Fatalf("expected DomainRejection, got %v", err)
		}
	})

	t.Run("ConcurrencyConflictPropagates", func(t *testing.T) {
		repo := newFakeRepo()
		p := aggregate.NewPipeline(counterDefinition(), repo, getID)

		if err := p.Handle(context.Background(), counterCmd{id: "c1", kind: "create"}); err != nil {
			t.Fatalf("seed create failed: %v", err)
		}
		// Simulate a racing writer advancing the stream between load and save.
		repo.beforeSave = func() {
			repo.streams["c1"] = append(repo.streams["c1"], incrementedEvent{})
		}

		err := p.Handle(context.Background(), counterCmd{id: "c1", kind: "increment"})
		if !errors.Is(err, store.ErrConcurrency) {
			t.Fatalf("expected ErrConcurrency, got %v", err)
		}
	})
}

func TestRehydrateDeterministic(t *testing.T) {
	def := counterDefinition()
	events := []event.Variant{incrementedEvent{}, incrementedEvent{}, incrementedEvent{}}

	s1, err := aggregate.Rehydrate(def.Fold, events)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s2, err := aggregate.Rehydrate(def.Fold, events)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s1 != s2 {
		t.Fatalf("rehydrate is not deterministic: %+v vs %+v", s1, s2)
	}
	if s1.value != 3 {
		t.Fatalf("expected value 3 after folding 3 events, got %d", s1.value)
	}
}

func TestRehydrateRecoversPanic(t *testing.T) {
	def := counterDefinition()
	def.Evolve = func(state counterState, evt event.Variant) counterState {
		panic("boom")
	}

	_, err := aggregate.Rehydrate(def.Fold, []event.Variant{incrementedEvent{}, incrementedEvent{}})
	if !errors.Is(err, aggregate.ErrCorruptStream) {
		t.Fatalf("expected ErrCorruptStream, got %v", err)
	}
}
