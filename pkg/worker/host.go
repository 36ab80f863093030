package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// Host starts a fixed set of services — in practice, one queue.postgres.Receiver
// per queue — and runs them until an external stop signal arrives, then
// shuts them all down concurrently within a deadline.
type Host struct {
	services        []Service
	log             *slog.Logger
	shutdownTimeout time.Duration
	startupTimeout  time.Duration
}

// Option configures a Host at construction.
type Option func(*Host)

// WithLogger overrides the default discard logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Host) { h.log = l }
}

// WithShutdownTimeout overrides the default 30s graceful-shutdown budget.
func WithShutdownTimeout(d time.Duration) Option {
	return func(h *Host) { h.shutdownTimeout = d }
}

// WithStartupTimeout overrides the default 1m per-service startup budget.
func WithStartupTimeout(d time.Duration) Option {
	return func(h *Host) { h.startupTimeout = d }
}

// New builds a Host over services, started in the given order.
func New(services []Service, opts ...Option) *Host {
	h := &Host{
		services:        services,
		log:             slog.New(slog.DiscardHandler),
		shutdownTimeout: 30 * time.Second,
		startupTimeout:  1 * time.Minute,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run starts every service, then blocks until ctx is cancelled or a
// SIGINT/SIGTERM arrives, then stops every started service concurrently.
// Each receiver's Start launches its poll loop in the background
// and returns immediately, so by the time Run's startup loop finishes, all
// receivers are already polling concurrently.
func (h *Host) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	h.log.Info("worker host starting", "services", len(h.services))
	started := make([]Service, 0, len(h.services))

	for _, svc := range h.services {
		startCtx, cancel := context.WithTimeout(ctx, h.startupTimeout)
		err := svc.Start(startCtx)
		cancel()
		if err != nil {
			h.log.Error("worker host: service failed to start", "service", svc.Name(), "error", err)
			h.stopServices(started)
			return fmt.Errorf("start service %s: %w", svc.Name(), err)
		}
		started = append(started, svc)
		h.log.Info("worker host: service started", "service", svc.Name())
	}

	h.log.Info("worker host: all services started")
	<-ctx.Done()

	h.log.Info("worker host: shutting down", "timeout", h.shutdownTimeout)
	return h.stopServices(started)
}

// stopServices stops services concurrently, in no particular order beyond
// "all at once", within h.shutdownTimeout.
func (h *Host) stopServices(services []Service) error {
	if len(services) == 0 {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
	defer cancel()

	var wg sync.WaitGroup
	errCh := make(chan error, len(services))

	for _, svc := range services {
		wg.Add(1)
		go func(s Service) {
			defer wg.Done()
			h.log.Info("worker host: stopping service", "service", s.Name())
			if err := s.Stop(shutdownCtx); err != nil {
				h.log.Error("worker host: service stop failed", "service", s.Name(), "error", err)
				errCh <- fmt.Errorf("stop %s: %w", s.Name(), err)
				return
			}
			h.log.Info("worker host: service stopped", "service", s.Name())
		}(svc)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		close(errCh)
		var errs []error
		for err := range errCh {
			errs = append(errs, err)
		}
		if len(errs) > 0 {
			return fmt.Errorf("shutdown errors: %v", errs)
		}
		return nil
	case <-shutdownCtx.Done():
		return fmt.Errorf("worker host: shutdown timeout exceeded after %s", h.shutdownTimeout)
	}
}
