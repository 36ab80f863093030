package middleware_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/jade/eventcore/pkg/middleware"
	"github.com/jade/eventcore/pkg/registry"
)

type pingCmd struct{}

func (pingCmd) CommandSchemaURN() string { return "urn:schema:jade:command:ping:send:1" }

func TestRecovery(t *testing.T) {
	panicking := registry.HandlerFunc(func(ctx context.Context, cmd registry.Command) error {
		panic("boom")
	})
	wrapped := middleware.Recovery(slog.New(slog.DiscardHandler))(panicking)

	err := wrapped.Handle(context.Background(), pingCmd{})
	if err == nil {
		t.Fatal("expected panic to be converted into an error")
	}
}

func TestLogging(t *testing.T) {
	calls := 0
	inner := registry.HandlerFunc(func(ctx context.Context, cmd registry.Command) error {
		calls++
		return nil
	})
	wrapped := middleware.Logging(slog.New(slog.DiscardHandler))(inner)

	if err := wrapped.Handle(context.Background(), pingCmd{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected inner handler to run once, ran %d times", calls)
	}
}

func TestChain(t *testing.T) {
	var order []string
	track := func(name string) middleware.Middleware {
		return func(next registry.Handler) registry.Handler {
			return registry.HandlerFunc(func(ctx context.Context, cmd registry.Command) error {
				order = append(order, name+":before")
				err := next.Handle(ctx, cmd)
				order = append(order, name+":after")
				return err
			})
		}
	}

	inner := registry.HandlerFunc(func(ctx context.Context, cmd registry.Command) error { return nil })
	wrapped := middleware.Chain(inner, track("outer"), track("inner"))

	if err := wrapped.Handle(context.Background(), pingCmd{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"outer:before", "inner:before", "inner:after", "outer:after"}
	if len(order) != len(want) {
		t.Fatalf("got order %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("got order %v, want %v", order, want)
		}
	}
}

func TestRecoveryPropagatesHandlerError(t *testing.T) {
	cause := errors.New("rejected")
	inner := registry.HandlerFunc(func(ctx context.Context, cmd registry.Command) error { return cause })
	wrapped := middleware.Recovery(slog.New(slog.DiscardHandler))(inner)

	err := wrapped.Handle(context.Background(), pingCmd{})
	if !errors.Is(err, cause) {
		t.Fatalf("expected underlying error to propagate unwrapped by Recovery, got %v", err)
	}
}
