package cqrs_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jade/eventcore/pkg/aggregate"
	"github.com/jade/eventcore/pkg/cqrs"
	"github.com/jade/eventcore/pkg/event"
	"github.com/jade/eventcore/pkg/store"
)

type orderState struct {
	cancelled   bool
	confirmSent bool
}

type sendConfirmationCmd struct{ OrderID string }

func (sendConfirmationCmd) CommandSchemaURN() string {
	return "urn:schema:jade:command:order:send-confirmation:1"
}

type confirmationSentEvent struct{}

func (confirmationSentEvent) EventSchemaURN() string {
	return "urn:schema:jade:event:order:confirmation-sent:1"
}

type fakeOrderRepo struct {
	state     orderState
	version   int64
	notFound  bool
	savedErr  error
	savedArgs []event.Variant
}

func (r *fakeOrderRepo) GetByID(ctx context.Context, id string) (orderState, int64, error) {
	if r.notFound {
		return orderState{}, 0, store.ErrNotFound
	}
	return r.state, r.version, nil
}

func (r *fakeOrderRepo) Save(ctx context.Context, id string, events []event.Variant, expectedVersion int64) error {
	if r.savedErr != nil {
		return r.savedErr
	}
	r.savedArgs = events
	r.state.confirmSent = true
	return nil
}

func newSendConfirmationHandler(repo store.Repository[orderState], externalErr error) cqrs.CustomHandler[sendConfirmationCmd, orderState] {
	return cqrs.CustomHandler[sendConfirmationCmd, orderState]{
		Repo:  repo,
		GetID: func(cmd sendConfirmationCmd) string { return cmd.OrderID },
		AlreadyDone: func(cmd sendConfirmationCmd, state orderState) bool {
			return state.confirmSent
		},
		Precondition: func(cmd sendConfirmationCmd, state orderState) error {
			if state.cancelled {
				return errors.New("order cancelled")
			}
			return nil
		},
		Perform: func(ctx context.Context, cmd sendConfirmationCmd, state orderState) (event.Variant, error) {
			if externalErr != nil {
				return nil, externalErr
			}
			return confirmationSentEvent{}, nil
		},
	}
}

func TestCustomHandler(t *testing.T) {
	t.Run("PerformsAndSaves", func(t *testing.T) {
		repo := &fakeOrderRepo{version: 3}
		h := newSendConfirmationHandler(repo, nil)

		if err := h.Handle(context.Background(), sendConfirmationCmd{OrderID: "o1"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(repo.savedArgs) != 1 {
			t.Fatalf("expected one event saved, got %d", len(repo.savedArgs))
		}
	})

	t.Run("IdempotentWhenAlreadyDone", func(t *testing.T) {
		repo := &fakeOrderRepo{state: orderState{confirmSent: true}, version: 3}
		h := newSendConfirmationHandler(repo, nil)

		if err := h.Handle(context.Background(), sendConfirmationCmd{OrderID: "o1"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if repo.savedArgs != nil {
			t.Fatal("expected no save when already done")
		}
	})

	t.Run("PreconditionFailureIsDomainRejection", func(t *testing.T) {
		repo := &fakeOrderRepo{state: orderState{cancelled: true}, version: 3}
		h := newSendConfirmationHandler(repo, nil)

		err := h.Handle(context.Background(), sendConfirmationCmd{OrderID: "o1"})
		var rejection *aggregate.DomainRejection
		if !errors.As(err, &rejection) {
			t.Fatalf("expected DomainRejection, got %v", err)
		}
	})

	t.Run("ExternalFailureDoesNotSave", func(t *testing.T) {
		repo := &fakeOrderRepo{version: 3}
		h := newSendConfirmationHandler(repo, errors.New("smtp down"))

		err := h.Handle(context.Background(), sendConfirmationCmd{OrderID: "o1"})
		var ext *cqrs.ExternalFailure
		if !errors.As(err, &ext) {
			t.Fatalf("expected ExternalFailure, got %v", err)
		}
		if repo.savedArgs != nil {
			t.Fatal("expected no save on external failure")
		}
	})

	t.Run("AdaptedIntoRegistryHandler", func(t *testing.T) {
		repo := &fakeOrderRepo{version: 3}
		h := cqrs.CustomHandlerAsHandler[sendConfirmationCmd](newSendConfirmationHandler(repo, nil))
		if err := h.Handle(context.Background(), sendConfirmationCmd{OrderID: "o1"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}
