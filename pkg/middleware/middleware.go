// Package middleware provides cross-cutting wrappers for registry.Handler:
// panic recovery and structured logging, applied at registration time
// rather than inside individual handlers.
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/jade/eventcore/pkg/registry"
)

// Middleware wraps a handler with a cross-cutting concern.
type Middleware func(registry.Handler) registry.Handler

// Chain applies middlewares to h in order, so the first middleware passed
// is the outermost wrapper.
func Chain(h registry.Handler, mws ...Middleware) registry.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// Recovery converts a panic inside h into an error instead of letting it
// unwind into the bus or the queue receiver's loop.
func Recovery(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next registry.Handler) registry.Handler {
		return registry.HandlerFunc(func(ctx context.Context, cmd registry.Command) (err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.ErrorContext(ctx, "command handler panicked",
						"command_type", fmt.Sprintf("%T", cmd),
						"panic", r,
						"stack", string(debug.Stack()),
					)
					err = fmt.Errorf("command handler panicked: %v", r)
				}
			}()
			return next.Handle(ctx, cmd)
		})
	}
}

// Logging records each command's execution with timing information.
func Logging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next registry.Handler) registry.Handler {
		return registry.HandlerFunc(func(ctx context.Context, cmd registry.Command) error {
			start := time.Now()
			typeName := fmt.Sprintf("%T", cmd)

			logger.InfoContext(ctx, "executing command", "command_type", typeName)

			err := next.Handle(ctx, cmd)
			duration := time.Since(start)

			if err != nil {
				logger.ErrorContext(ctx, "command execution failed",
					"command_type", typeName,
					"duration_ms", duration.Milliseconds(),
					"error", err,
				)
				return err
			}

			logger.InfoContext(ctx, "command executed successfully",
				"command_type", typeName,
				"duration_ms", duration.Milliseconds(),
			)
			return nil
		})
	}
}
