// Package cqrs implements the command bus (component F) and the generic
// handler adapters that let both aggregate pipelines and custom
// (non-aggregate) handlers plug into a registry.Registry.
package cqrs

import (
	"context"
	"log/slog"
	"reflect"

	"github.com/jade/eventcore/pkg/registry"
)

// Bus dispatches a command to its registered handler by the command's
// runtime type. All schema-URN mapping happens in the registry; the bus
// only resolves by type and logs send/result.
type Bus struct {
	registry *registry.Registry
	log      *slog.Logger
}

// Option configures a Bus at construction.
type Option func(*Bus)

// WithLogger overrides the default discard logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bus) { b.log = l }
}

// NewBus builds a Bus resolving handlers from reg.
func NewBus(reg *registry.Registry, opts ...Option) *Bus {
	b := &Bus{registry: reg, log: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Send resolves cmd's handler by its runtime type and invokes it. Returns
// *NoHandler if no handler is registered for the type, or *HandlerError
// wrapping whatever the handler returned.
func (b *Bus) Send(ctx context.Context, cmd registry.Command) error {
	typeName := reflect.TypeOf(cmd).String()

	h, ok := b.registry.GetHandler(reflect.TypeOf(cmd))
	if !ok {
		b.log.WarnContext(ctx, "cqrs: no handler registered", "command_type", typeName)
		return &NoHandler{TypeName: typeName}
	}

	b.log.InfoContext(ctx, "cqrs: sending command", "command_type", typeName)

	if err := h.Handle(ctx, cmd); err != nil {
		b.log.ErrorContext(ctx, "cqrs: command failed", "command_type", typeName, "error", err)
		return &HandlerError{TypeName: typeName, Cause: err}
	}

	b.log.InfoContext(ctx, "cqrs: command succeeded", "command_type", typeName)
	return nil
}
