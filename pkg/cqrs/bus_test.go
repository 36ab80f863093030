package cqrs_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jade/eventcore/pkg/cqrs"
	"github.com/jade/eventcore/pkg/registry"
)

type pingCmd struct{ N int }

func (pingCmd) CommandSchemaURN() string { return "urn:schema:jade:command:ping:send:1" }

func TestBusSend(t *testing.T) {
	t.Run("DispatchesToRegisteredHandler", func(t *testing.T) {
		reg := registry.New()
		var got int
		reg.Register(registry.HandlerFunc(func(ctx context.Context, cmd registry.Command) error {
			got = cmd.(pingCmd).N
			return nil
		}), pingCmd{})

		bus := cqrs.NewBus(reg)
		if err := bus.Send(context.Background(), pingCmd{N: 7}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != 7 {
			t.Fatalf("expected handler invoked with 7, got %d", got)
		}
	})

	t.Run("NoHandlerRegistered", func(t *testing.T) {
		reg := registry.New()
		bus := cqrs.NewBus(reg)

		err := bus.Send(context.Background(), pingCmd{N: 1})
		var noHandler *cqrs.NoHandler
		if !errors.As(err, &noHandler) {
			t.Fatalf("expected *NoHandler, got %v", err)
		}
	})

	t.Run("HandlerErrorWrapsCause", func(t *testing.T) {
		cause := errors.New("boom")
		reg := registry.New()
		reg.Register(registry.HandlerFunc(func(ctx context.Context, cmd registry.Command) error {
			return cause
		}), pingCmd{})

		bus := cqrs.NewBus(reg)
		err := bus.Send(context.Background(), pingCmd{})

		var handlerErr *cqrs.HandlerError
		if !errors.As(err, &handlerErr) {
			t.Fatalf("expected *HandlerError, got %v", err)
		}
		if !errors.Is(err, cause) {
			t.Fatalf("expected wrapped cause to remain in chain")
		}
	})
}
