package middleware

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jade/eventcore/pkg/registry"
)

// Tracing starts a span around each command's execution. With a nil tracer
// it pulls one from the global provider under tracerName.
func Tracing(tracer trace.Tracer, tracerName string) Middleware {
	if tracer == nil {
		if tracerName == "" {
			tracerName = "eventcore/cqrs"
		}
		tracer = otel.Tracer(tracerName)
	}

	return func(next registry.Handler) registry.Handler {
		return registry.HandlerFunc(func(ctx context.Context, cmd registry.Command) error {
			spanCtx, span := tracer.Start(ctx, fmt.Sprintf("command.%s", cmd.CommandSchemaURN()),
				trace.WithSpanKind(trace.SpanKindInternal),
				trace.WithAttributes(attribute.String("command.schema", cmd.CommandSchemaURN())),
			)
			defer span.End()

			err := next.Handle(spanCtx, cmd)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return err
			}

			span.SetStatus(codes.Ok, "")
			return nil
		})
	}
}
