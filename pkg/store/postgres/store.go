// Package postgres adapts the relational event-store contract (component D)
// onto PostgreSQL via pgx. It is the production-grade counterpart to
// pkg/store/sqlite, sharing the same rehydration and serialization
// machinery from pkg/aggregate, pkg/store, and pkg/codec.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jade/eventcore/pkg/aggregate"
	"github.com/jade/eventcore/pkg/codec"
	"github.com/jade/eventcore/pkg/event"
	"github.com/jade/eventcore/pkg/metadata"
	"github.com/jade/eventcore/pkg/observability"
	"github.com/jade/eventcore/pkg/store"
)

// uniqueViolation is Postgres's SQLSTATE for a unique constraint violation,
// the race-condition path to a concurrency conflict when two writers both
// pass the version check and both attempt the same next version.
const uniqueViolation = "23505"

// Store implements store.Repository[S] for one aggregate's stream prefix
// against a Postgres connection pool.
type Store[S any] struct {
	pool   *pgxpool.Pool
	prefix string
	fold   aggregate.Fold[S]
	types  *store.EventTypes
	codec  codec.Policy
	tracer trace.Tracer
}

// Option configures a Store at construction.
type Option[S any] func(*Store[S])

// WithCodec overrides the JSON policy; defaults to codec.Default.
func WithCodec[S any](p codec.Policy) Option[S] {
	return func(s *Store[S]) { s.codec = p }
}

// New builds a Store for aggregates identified by prefix, whose events are
// known to types.
func New[S any](pool *pgxpool.Pool, prefix string, fold aggregate.Fold[S], types *store.EventTypes, opts ...Option[S]) *Store[S] {
	s := &Store[S]{
		pool:   pool,
		prefix: prefix,
		fold:   fold,
		types:  types,
		codec:  codec.Default,
		tracer: otel.Tracer("eventcore/store/postgres"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetByID loads a stream in insertion order, rehydrates it, and returns the
// state and the last event's version.
func (s *Store[S]) GetByID(ctx context.Context, id string) (state S, version int64, err error) {
	ctx, span := s.tracer.Start(ctx, "postgres.GetByID", trace.WithAttributes(
		attribute.String("aggregate.prefix", s.prefix),
		attribute.String("aggregate.id", id),
	))
	defer span.End()

	streamID := s.streamID(id)

	rows, err := s.pool.Query(ctx, `
		SELECT schema_urn, payload, version
		FROM events
		WHERE stream_id = $1
		ORDER BY version ASC
	`, streamID)
	if err != nil {
		var zero S
		return zero, 0, store.NewFailure(fmt.Errorf("query stream %q: %w", streamID, err))
	}
	defer rows.Close()

	var events []event.Variant
	for rows.Next() {
		var urn string
		var payload []byte
		var v int64
		if err := rows.Scan(&urn, &payload, &v); err != nil {
			var zero S
			return zero, 0, store.NewFailure(fmt.Errorf("scan event row: %w", err))
		}
		variant, derr := s.types.Decode(s.codec, urn, payload)
		if derr != nil {
			var zero S
			return zero, 0, store.NewFailure(derr)
		}
		events = append(events, variant)
		version = v
	}
	if err := rows.Err(); err != nil {
		var zero S
		return zero, 0, store.NewFailure(fmt.Errorf("iterate stream %q: %w", streamID, err))
	}

	if len(events) == 0 {
		var zero S
		return zero, 0, store.ErrNotFound
	}

	state, rerr := aggregate.Rehydrate(s.fold, events)
	if rerr != nil {
		var zero S
		return zero, 0, store.NewFailure(rerr)
	}
	return state, version, nil
}

// Save appends events to the stream for id under a serializable
// transaction, checking expectedVersion against the stream's current
// version before inserting.
func (s *Store[S]) Save(ctx context.Context, id string, events []event.Variant, expectedVersion int64) error {
	ctx, span := s.tracer.Start(ctx, "postgres.Save", trace.WithAttributes(
		attribute.String("aggregate.prefix", s.prefix),
		attribute.String("aggregate.id", id),
		attribute.Int64("expected.version", expectedVersion),
		attribute.Int("event.count", len(events)),
	))
	defer span.End()

	streamID := s.streamID(id)

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return store.NewFailure(fmt.Errorf("begin transaction: %w", err))
	}
	defer tx.Rollback(ctx)

	var currentVersion int64
	if err := tx.QueryRow(ctx, `
		SELECT COALESCE(MAX(version), 0) FROM events WHERE stream_id = $1
	`, streamID).Scan(&currentVersion); err != nil {
		return store.NewFailure(fmt.Errorf("query current version: %w", err))
	}

	if currentVersion != expectedVersion {
		span.SetAttributes(attribute.Int64("actual.version", currentVersion), attribute.Bool("conflict.detected", true))
		observability.RecordConcurrencyConflict(s.prefix)
		return store.ErrConcurrency
	}

	now := time.Now().UTC()
	for i, e := range events {
		payload, merr := s.codec.Marshal(e)
		if merr != nil {
			return store.NewFailure(fmt.Errorf("marshal event %d: %w", i, merr))
		}

		meta, _ := s.codec.Marshal(metadata.Envelope{}.WithServerTimestamp(now))

		_, err := tx.Exec(ctx, `
			INSERT INTO events (stream_id, aggregate_id, schema_urn, payload, metadata, version, recorded_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, streamID, id, e.EventSchemaURN(), payload, meta, expectedVersion+int64(i)+1, now)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				observability.RecordConcurrencyConflict(s.prefix)
				return store.ErrConcurrency
			}
			return store.NewFailure(fmt.Errorf("insert event %d: %w", i, err))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return store.NewFailure(fmt.Errorf("commit transaction: %w", err))
	}
	span.SetAttributes(attribute.Bool("append.success", true))
	return nil
}

func (s *Store[S]) streamID(id string) string {
	return s.prefix + "-" + id
}
