package cqrs

import (
	"context"
	"fmt"

	"github.com/jade/eventcore/pkg/registry"
)

// typed is satisfied by both aggregate.Pipeline[C, S] and CustomHandler[C,
// S]; it is the common shape every concrete command handler has before
// it's adapted into the registry's type-erased registry.Handler.
type typed[C any] interface {
	Handle(ctx context.Context, cmd C) error
}

// Adapt wraps a typed handler as a registry.Handler, recovering the
// concrete command type with a type assertion at the one point it's
// unavoidable: the boundary between the type-erased registry and a
// specific aggregate's or custom handler's typed Handle method.
func Adapt[C registry.Command](h typed[C]) registry.Handler {
	return registry.HandlerFunc(func(ctx context.Context, cmd registry.Command) error {
		typedCmd, ok := cmd.(C)
		if !ok {
			var want C
			panic(fmt.Sprintf("cqrs: adapted handler received %T, expected %T", cmd, want))
		}
		return h.Handle(ctx, typedCmd)
	})
}
