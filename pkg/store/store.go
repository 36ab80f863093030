// Package store defines the repository contract (component D) that the
// command pipeline depends on: stream naming, optimistic-version append,
// and stream fetch, independent of which relational backend implements it.
package store

import (
	"context"
	"errors"

	"github.com/jade/eventcore/pkg/event"
)

// ErrNotFound means the store has no stream for the requested aggregate id.
var ErrNotFound = errors.New("store: no such stream")

// ErrConcurrency means a Save's expectedVersion did not match the stream's
// actual current version (or the stream already existed when expectedVersion
// was 0).
var ErrConcurrency = errors.New("store: concurrency conflict")

// Failure wraps a driver-level error that is neither ErrNotFound nor
// ErrConcurrency, so callers can still match it with errors.Is(err,
// store.ErrStoreFailure) while retaining the underlying cause in the error
// chain.
type Failure struct {
	Cause error
}

func (f *Failure) Error() string { return "store: " + f.Cause.Error() }
func (f *Failure) Unwrap() error { return f.Cause }
func (f *Failure) Is(target error) bool { return target == ErrStoreFailure }

// ErrStoreFailure is the sentinel matched by Failure.Is; construct an
// instance with NewFailure rather than returning this value directly, so
// the original driver error survives in the chain.
var ErrStoreFailure = errors.New("store: failure")

// NewFailure wraps cause so errors.Is(result, ErrStoreFailure) succeeds.
func NewFailure(cause error) error { return &Failure{Cause: cause} }

// Repository is the contract a relational event-store adapter must satisfy
// for one aggregate's state type S. GetByID folds the stream with the
// aggregate's Init/Evolve (via aggregate.Rehydrate) and returns the last
// event's version; Save appends new events under an optimistic concurrency
// check against expectedVersion.
type Repository[S any] interface {
	// GetByID returns the current state and version of the stream for id.
	// Returns ErrNotFound if no stream exists; any other failure is
	// wrapped with NewFailure.
	GetByID(ctx context.Context, id string) (S, int64, error)

	// Save appends events to the stream for id. expectedVersion == 0
	// starts a new stream; any other value must equal the stream's
	// current last version. Returns ErrConcurrency on mismatch, or a
	// wrapped Failure for any other driver error.
	Save(ctx context.Context, id string, events []event.Variant, expectedVersion int64) error
}
