// Package postgres implements the database-backed queue (components H and
// I): a per-aggregate-type queue table with visibility-timeout polling,
// built on the same pgx pool the relational event store uses.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jade/eventcore/pkg/cloudevents"
	"github.com/jade/eventcore/pkg/codec"
	"github.com/jade/eventcore/pkg/idgen"
	"github.com/jade/eventcore/pkg/schema"
)

const queueSchema = `
CREATE TABLE IF NOT EXISTS queues (
	name TEXT PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS queue_messages (
	id          TEXT PRIMARY KEY,
	queue_name  TEXT NOT NULL REFERENCES queues(name),
	body        BYTEA NOT NULL,
	visible_at  TIMESTAMPTZ NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS queue_messages_poll_idx ON queue_messages (queue_name, visible_at);
`

// EnsureSchema applies the queue tables; safe to call repeatedly.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, queueSchema)
	if err != nil {
		return fmt.Errorf("queue: apply schema: %w", err)
	}
	return nil
}

// Publisher implements cloudevents.Publisher (component H): it ensures the
// target queue exists and durably enqueues the CloudEvent as JSON.
type Publisher struct {
	pool  *pgxpool.Pool
	codec codec.Policy
}

// Option configures a Publisher at construction.
type Option func(*Publisher)

// WithCodec overrides the JSON policy; defaults to codec.Default.
func WithCodec(p codec.Policy) Option { return func(pub *Publisher) { pub.codec = p } }

// NewPublisher builds a Publisher over pool.
func NewPublisher(pool *pgxpool.Pool, opts ...Option) *Publisher {
	p := &Publisher{pool: pool, codec: codec.Default}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish ensures the queue named for ce.DataSchema's aggregate segment
// exists, then enqueues ce as a single message.
func (p *Publisher) Publish(ctx context.Context, ce cloudevents.CloudEvent) error {
	urn, err := schema.Parse(ce.DataSchema)
	if err != nil {
		return &PublishError{Cause: fmt.Errorf("dataschema %q: %w", ce.DataSchema, err)}
	}
	queueName := urn.Aggregate

	if _, err := p.pool.Exec(ctx, `
		INSERT INTO queues (name) VALUES ($1) ON CONFLICT (name) DO NOTHING
	`, queueName); err != nil {
		return &PublishError{Cause: fmt.Errorf("ensure queue %q: %w", queueName, err)}
	}

	body, err := p.codec.Marshal(ce)
	if err != nil {
		return &PublishError{Cause: fmt.Errorf("marshal cloudevent: %w", err)}
	}

	now := time.Now().UTC()
	if _, err := p.pool.Exec(ctx, `
		INSERT INTO queue_messages (id, queue_name, body, visible_at, created_at)
		VALUES ($1, $2, $3, $4, $4)
	`, idgen.NewMessageID(), queueName, body, now); err != nil {
		return &PublishError{Cause: fmt.Errorf("enqueue message: %w", err)}
	}

	return nil
}
