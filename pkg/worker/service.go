// Package worker implements the worker host (component J): starting a set
// of queue receivers, running them concurrently, and shutting them down
// gracefully on a stop signal.
package worker

import "context"

// Service is anything the Host can start and stop; queue.postgres.Receiver
// satisfies it, and so does any other long-running component a deployment
// wants managed alongside the receivers (a metrics server, say).
type Service interface {
	// Name identifies the service for logging.
	Name() string

	// Start launches the service and returns once it is running. It must
	// not block for the service's whole lifetime — long-running work
	// happens in a goroutine Start spawns.
	Start(ctx context.Context) error

	// Stop gracefully shuts the service down, respecting ctx's deadline.
	Stop(ctx context.Context) error
}
