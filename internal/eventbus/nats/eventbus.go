// Package nats publishes successfully appended events to a NATS JetStream
// stream, for read-model projections to consume. Publish-side only: the
// projection daemon that would subscribe to this stream is out of scope.
package nats

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/jade/eventcore/pkg/codec"
	"github.com/jade/eventcore/pkg/event"
)

// Config holds the JetStream stream settings the bus ensures on connect.
type Config struct {
	URL            string
	StreamName     string
	StreamSubjects []string
	MaxAge         time.Duration
	MaxBytes       int64
}

// DefaultConfig returns sensible defaults for a single-node development
// NATS server.
func DefaultConfig() Config {
	return Config{
		URL:            nats.DefaultURL,
		StreamName:     "EVENTS",
		StreamSubjects: []string{"events.>"},
		MaxAge:         7 * 24 * time.Hour,
		MaxBytes:       1024 * 1024 * 1024,
	}
}

// EventBus publishes appended events onto a durable JetStream stream,
// subject-partitioned by aggregate prefix and event schema.
type EventBus struct {
	nc    *nats.Conn
	js    nats.JetStreamContext
	codec codec.Policy
}

// Connect dials url, ensures the configured stream exists, and returns a
// ready-to-use EventBus.
func Connect(cfg Config) (*EventBus, error) {
	nc, err := nats.Connect(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("eventbus: connect to nats: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("eventbus: jetstream context: %w", err)
	}

	bus := &EventBus{nc: nc, js: js, codec: codec.Default}
	if err := bus.ensureStream(cfg); err != nil {
		nc.Close()
		return nil, err
	}
	return bus, nil
}

func (b *EventBus) ensureStream(cfg Config) error {
	streamCfg := &nats.StreamConfig{
		Name:      cfg.StreamName,
		Subjects:  cfg.StreamSubjects,
		Retention: nats.InterestPolicy,
		MaxAge:    cfg.MaxAge,
		MaxBytes:  cfg.MaxBytes,
		Storage:   nats.FileStorage,
		Replicas:  1,
	}

	if _, err := b.js.StreamInfo(cfg.StreamName); err != nil {
		if _, err := b.js.AddStream(streamCfg); err != nil {
			return fmt.Errorf("eventbus: create stream %q: %w", cfg.StreamName, err)
		}
		return nil
	}
	if _, err := b.js.UpdateStream(streamCfg); err != nil {
		return fmt.Errorf("eventbus: update stream %q: %w", cfg.StreamName, err)
	}
	return nil
}

// Publish republishes events appended under aggregatePrefix/aggregateID,
// starting at firstVersion (the stream position of events[0]). Each
// event's schema URN becomes part of its subject, so a projection can
// subscribe narrowly (one event type) or broadly (events.<prefix>.>). The
// stream position doubles as the JetStream dedup key, since the store
// already guarantees each position is assigned exactly once.
func (b *EventBus) Publish(aggregatePrefix, aggregateID string, firstVersion int64, events []event.Variant) error {
	for i, e := range events {
		payload, err := b.codec.Marshal(e)
		if err != nil {
			return fmt.Errorf("eventbus: marshal event for %s/%s: %w", aggregatePrefix, aggregateID, err)
		}
		subject := fmt.Sprintf("events.%s.%s", aggregatePrefix, e.EventSchemaURN())
		dedupeKey := fmt.Sprintf("%s-%s-%d", aggregatePrefix, aggregateID, firstVersion+int64(i))
		if _, err := b.js.Publish(subject, payload, nats.MsgId(dedupeKey)); err != nil {
			return fmt.Errorf("eventbus: publish to %q: %w", subject, err)
		}
	}
	return nil
}

// Close drains and closes the underlying NATS connection.
func (b *EventBus) Close() error {
	return b.nc.Drain()
}
