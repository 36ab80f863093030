package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jade/eventcore/pkg/worker"
)

type fakeService struct {
	name     string
	startErr error
	stopErr  error
	mu       sync.Mutex
	started  bool
	stopped  bool
}

func (s *fakeService) Name() string { return s.name }

func (s *fakeService) Start(ctx context.Context) error {
	if s.startErr != nil {
		return s.startErr
	}
	s.mu.Lock()
	s.started = true
	s.mu.Unlock()
	return nil
}

func (s *fakeService) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	return s.stopErr
}

func (s *fakeService) wasStarted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

func (s *fakeService) wasStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

func TestHostRunStartsAllAndStopsOnCancel(t *testing.T) {
	a := &fakeService{name: "a"}
	b := &fakeService{name: "b"}
	h := worker.New([]worker.Service{a, b}, worker.WithShutdownTimeout(time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	if !a.wasStarted() || !b.wasStarted() {
		t.Fatal("expected both services started")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	if !a.wasStopped() || !b.wasStopped() {
		t.Fatal("expected both services stopped")
	}
}

func TestHostRunFailsStartupRollsBackStartedServices(t *testing.T) {
	a := &fakeService{name: "a"}
	b := &fakeService{name: "b", startErr: errors.New("boom")}
	h := worker.New([]worker.Service{a, b}, worker.WithShutdownTimeout(time.Second))

	err := h.Run(context.Background())
	if err == nil {
		t.Fatal("expected error from failed startup")
	}
	if !a.wasStopped() {
		t.Fatal("expected already-started service to be stopped on rollback")
	}
}
