package cloudevents

import (
	"context"

	"github.com/jade/eventcore/pkg/cqrs"
	"github.com/jade/eventcore/pkg/registry"
)

// Dispatch is the internal procedure shared by the synchronous HTTP mode
// (component G) and the queue receiver (component I): validate the
// envelope, decode the command by schema, resolve its handler, invoke it.
// It is the single place that procedure lives, so the two delivery paths
// can't drift.
func Dispatch(ctx context.Context, reg *registry.Registry, bus *cqrs.Bus, ce CloudEvent) error {
	_, urn, err := Validate(ce)
	if err != nil {
		return err
	}

	cmd, err := reg.DeserializeCommand(urn.String(), ce.Data)
	if err != nil {
		return err
	}

	return bus.Send(ctx, cmd)
}
