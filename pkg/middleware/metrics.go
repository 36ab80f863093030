package middleware

import (
	"context"
	"time"

	"github.com/jade/eventcore/pkg/observability"
	"github.com/jade/eventcore/pkg/registry"
)

// Metrics records each command's outcome and duration to the shared
// Prometheus registry.
func Metrics() Middleware {
	return func(next registry.Handler) registry.Handler {
		return registry.HandlerFunc(func(ctx context.Context, cmd registry.Command) error {
			start := time.Now()
			err := next.Handle(ctx, cmd)

			outcome := "success"
			if err != nil {
				outcome = "error"
			}
			observability.RecordCommand(cmd.CommandSchemaURN(), outcome, time.Since(start))
			return err
		})
	}
}
