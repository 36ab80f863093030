// Package sqlite adapts the relational event-store contract (component D)
// onto a pure-Go SQLite driver, for local development and tests where
// spinning up Postgres isn't worth it.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jade/eventcore/pkg/aggregate"
	"github.com/jade/eventcore/pkg/codec"
	"github.com/jade/eventcore/pkg/event"
	"github.com/jade/eventcore/pkg/metadata"
	"github.com/jade/eventcore/pkg/observability"
	"github.com/jade/eventcore/pkg/store"
	"github.com/jade/eventcore/pkg/store/sqlite/migrate"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// config holds the options an Open call accepts.
type config struct {
	dsn          string
	maxOpenConns int
	walMode      bool
}

func defaultConfig() config {
	return config{dsn: "eventstore.db", maxOpenConns: 1, walMode: true}
}

// Option configures Open.
type Option func(*config)

// WithDSN sets the data source name (file path or ":memory:").
func WithDSN(dsn string) Option { return func(c *config) { c.dsn = dsn } }

// WithMaxOpenConns caps the connection pool; SQLite serializes writers
// regardless, so this mainly bounds concurrent readers.
func WithMaxOpenConns(n int) Option { return func(c *config) { c.maxOpenConns = n } }

// WithoutWAL disables write-ahead logging (useful for ":memory:" DSNs,
// where WAL mode has no benefit).
func WithoutWAL() Option { return func(c *config) { c.walMode = false } }

// DB wraps a database/sql handle shared by every aggregate's Store.
type DB struct {
	sql *sql.DB
}

// Open connects to dsn, applies the event-store schema, and returns a
// shared DB handle. Each aggregate gets its own Store over the same DB.
func Open(ctx context.Context, opts ...Option) (*DB, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	sqlDB, err := sql.Open("sqlite", cfg.dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", cfg.dsn, err)
	}
	sqlDB.SetMaxOpenConns(cfg.maxOpenConns)

	if cfg.walMode {
		if _, err := sqlDB.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("sqlite: enable WAL: %w", err)
		}
	}
	if _, err := sqlDB.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("sqlite: enable foreign keys: %w", err)
	}

	m := migrate.New(sqlDB, "schema_migrations")
	if err := m.LoadFromFS(migrationsFS, "migrations"); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("sqlite: load migrations: %w", err)
	}
	if err := m.Up(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("sqlite: apply migrations: %w", err)
	}

	return &DB{sql: sqlDB}, nil
}

// Close releases the underlying connection pool.
func (d *DB) Close() error { return d.sql.Close() }

// Store implements store.Repository[S] for one aggregate's stream prefix.
type Store[S any] struct {
	db     *DB
	prefix string
	fold   aggregate.Fold[S]
	types  *store.EventTypes
	codec  codec.Policy
}

// New builds a Store for aggregates identified by prefix, whose events are
// known to types.
func New[S any](db *DB, prefix string, fold aggregate.Fold[S], types *store.EventTypes) *Store[S] {
	return &Store[S]{db: db, prefix: prefix, fold: fold, types: types, codec: codec.Default}
}

// GetByID loads a stream in insertion order, rehydrates it, and returns the
// state and the last event's version.
func (s *Store[S]) GetByID(ctx context.Context, id string) (S, int64, error) {
	streamID := s.streamID(id)

	rows, err := s.db.sql.QueryContext(ctx, `
		SELECT schema_urn, payload, version FROM events WHERE stream_id = ? ORDER BY version ASC
	`, streamID)
	if err != nil {
		var zero S
		return zero, 0, store.NewFailure(fmt.Errorf("query stream %q: %w", streamID, err))
	}
	defer rows.Close()

	var events []event.Variant
	var version int64
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
		return state, 0, store.NewFailure(rerr)
	}
	return state, version, nil
}

// Save appends events to the stream for id inside a transaction, checking
// expectedVersion against the stream's current version before inserting.
// SQLite has no serializable multi-writer isolation the way Postgres does,
// so the version check and the inserts share one transaction and rely on
// SQLite's single-writer lock to make that check-then-act atomic.
func (s *Store[S]) Save(ctx context.Context, id string, events []event.Variant, expectedVersion int64) error {
	streamID := s.streamID(id)

	tx, err := s.db.sql.BeginTx(ctx, nil)
	if err != nil {
		return store.NewFailure(fmt.Errorf("begin transaction: %w", err))
	}
	defer tx.Rollback()

	var currentVersion int64
	if err := tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(version), 0) FROM events WHERE stream_id = ?
	`, streamID).Scan(&currentVersion); err != nil {
		return store.NewFailure(fmt.Errorf("query current version: %w", err))
	}

	if currentVersion != expectedVersion {
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

		_, err := tx.ExecContext(ctx, `
			INSERT INTO events (stream_id, aggregate_id, schema_urn, payload, metadata, version, recorded_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, streamID, id, e.EventSchemaURN(), payload, meta, expectedVersion+int64(i)+1, now)
		if err != nil {
			if isUniqueViolation(err) {
				observability.RecordConcurrencyConflict(s.prefix)
				return store.ErrConcurrency
			}
			return store.NewFailure(fmt.Errorf("insert event %d: %w", i, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return store.NewFailure(fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}

func (s *Store[S]) streamID(id string) string { return s.prefix + "-" + id }

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}
