package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jade/eventcore/pkg/cloudevents"
	"github.com/jade/eventcore/pkg/codec"
	"github.com/jade/eventcore/pkg/cqrs"
	"github.com/jade/eventcore/pkg/observability"
	"github.com/jade/eventcore/pkg/registry"
)

// State is a Receiver's current position in its poll loop, exposed mainly
// for tests and health reporting.
type State string

const (
	Idle       State = "idle"
	Polling    State = "polling"
	Processing State = "processing"
	Acking     State = "acking"
	Stopping   State = "stopping"
	Stopped    State = "stopped"
)

const (
	// DefaultVisibilityTimeout is how long a read message stays hidden
	// from other pollers before it's re-exposed for retry.
	DefaultVisibilityTimeout = 30 * time.Second
	// pollIdle is how long a receiver sleeps after an empty poll.
	pollIdle = 1 * time.Second
	// pollError is the backoff after an unexpected loop error (e.g. a
	// dropped connection), distinct from a processing failure.
	pollError = 5 * time.Second
)

// Receiver polls one queue, decodes each message back into a CloudEvent,
// and dispatches it through the same procedure the synchronous HTTP mode
// uses. It implements worker.Service so a worker host can start and stop a
// set of receivers uniformly (component J).
type Receiver struct {
	pool   *pgxpool.Pool
	queue  string
	reg    *registry.Registry
	bus    *cqrs.Bus
	codec  codec.Policy
	vt     time.Duration
	log    *slog.Logger
	state  State
	cancel context.CancelFunc
	done   chan struct{}
}

// ReceiverOption configures a Receiver at construction.
type ReceiverOption func(*Receiver)

// WithVisibilityTimeout overrides DefaultVisibilityTimeout.
func WithVisibilityTimeout(d time.Duration) ReceiverOption {
	return func(r *Receiver) { r.vt = d }
}

// WithReceiverCodec overrides the JSON policy; defaults to codec.Default.
func WithReceiverCodec(p codec.Policy) ReceiverOption {
	return func(r *Receiver) { r.codec = p }
}

// WithReceiverLogger overrides the default discard logger.
func WithReceiverLogger(l *slog.Logger) ReceiverOption {
	return func(r *Receiver) { r.log = l }
}

// NewReceiver builds a Receiver for queue, dispatching decoded commands
// through reg and bus.
func NewReceiver(pool *pgxpool.Pool, queue string, reg *registry.Registry, bus *cqrs.Bus, opts ...ReceiverOption) *Receiver {
	r := &Receiver{
		pool:  pool,
		queue: queue,
		reg:   reg,
		bus:   bus,
		codec: codec.Default,
		vt:    DefaultVisibilityTimeout,
		log:   slog.New(slog.DiscardHandler),
		state: Idle,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Name implements worker.Service.
func (r *Receiver) Name() string { return "queue-receiver:" + r.queue }

// State reports the receiver's current position in its loop.
func (r *Receiver) State() State { return r.state }

// Start launches the poll loop in the background and returns once it's
// running, per worker.Service's contract. The loop runs until Stop cancels
// it; an in-flight Processing call is allowed to finish, so the receiver
// never acks a message whose handler was cancelled mid-flight.
func (r *Receiver) Start(ctx context.Context) error {
	loopCtx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.done = make(chan struct{})

	r.log.Info("queue receiver starting", "queue", r.queue)
	go func() {
		defer close(r.done)
		r.loop(loopCtx)
	}()
	return nil
}

// Stop cancels the poll loop and waits for it to exit, up to ctx's
// deadline.
func (r *Receiver) Stop(ctx context.Context) error {
	r.state = Stopping
	if r.cancel != nil {
		r.cancel()
	}
	select {
	case <-r.done:
		r.state = Stopped
		r.log.Info("queue receiver stopped", "queue", r.queue)
		return nil
	case <-ctx.Done():
		return fmt.Errorf("queue receiver %q did not stop before deadline: %w", r.queue, ctx.Err())
	}
}

func (r *Receiver) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		r.state = Polling
		msg, ok, err := r.poll(ctx)
		if err != nil {
			observability.RecordQueuePoll(r.queue, "error")
			r.log.Error("queue receiver poll failed", "queue", r.queue, "error", err)
			if !sleepOrDone(ctx, pollError) {
				return
			}
			continue
		}
		if !ok {
			observability.RecordQueuePoll(r.queue, "empty")
			r.state = Idle
			if !sleepOrDone(ctx, pollIdle) {
				return
			}
			continue
		}
		observability.RecordQueuePoll(r.queue, "found")

		r.state = Processing
		if err := r.process(ctx, msg); err != nil {
			r.log.Warn("queue message left for retry", "queue", r.queue, "message_id", msg.id, "error", err)
			continue
		}

		r.state = Acking
		if err := r.ack(ctx, msg.id); err != nil {
			r.log.Error("queue receiver ack failed", "queue", r.queue, "message_id", msg.id, "error", err)
		}
	}
}

type polledMessage struct {
	id   string
	body []byte
}

// poll reads up to one visible message and hides it for r.vt. SELECT ...
// FOR UPDATE SKIP LOCKED lets multiple receivers on the same queue poll
// concurrently without contending on the same row.
func (r *Receiver) poll(ctx context.Context) (polledMessage, bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return polledMessage{}, false, fmt.Errorf("begin poll transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var msg polledMessage
	now := time.Now().UTC()
	err = tx.QueryRow(ctx, `
		SELECT id, body FROM queue_messages
		WHERE queue_name = $1 AND visible_at <= $2
		ORDER BY visible_at ASC
		LIMIT 1
		FOR UPDATE SKIP LOCKED
	`, r.queue, now).Scan(&msg.id, &msg.body)
	if err != nil {
		if isNoRows(err) {
			return polledMessage{}, false, nil
		}
		return polledMessage{}, false, fmt.Errorf("poll queue %q: %w", r.queue, err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE queue_messages SET visible_at = $1 WHERE id = $2
	`, now.Add(r.vt), msg.id); err != nil {
		return polledMessage{}, false, fmt.Errorf("hide message %q: %w", msg.id, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return polledMessage{}, false, fmt.Errorf("commit poll transaction: %w", err)
	}
	return msg, true, nil
}

// process decodes the message and dispatches it. A malformed message is
// treated as a processing failure like any other: it is left for retry
// rather than acked, per §4.I step 2.
func (r *Receiver) process(ctx context.Context, msg polledMessage) error {
	var ce cloudevents.CloudEvent
	if err := r.codec.Unmarshal(msg.body, &ce); err != nil {
		return fmt.Errorf("decode queued cloudevent: %w", err)
	}
	return cloudevents.Dispatch(ctx, r.reg, r.bus, ce)
}

func (r *Receiver) ack(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM queue_messages WHERE id = $1`, id)
	return err
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
