package store

import (
	"context"

	"github.com/jade/eventcore/pkg/event"
)

// Publisher fans appended events out to read-model projections. It is
// deliberately narrow — just enough for PublishingRepository to use — so
// any transport (NATS JetStream, an outbox table, a test spy) can satisfy
// it without pulling in a concrete dependency.
type Publisher interface {
	Publish(aggregatePrefix, aggregateID string, firstVersion int64, events []event.Variant) error
}

// PublishingRepository decorates a Repository so every successful Save
// also publishes the appended events. A publish failure is returned from
// Save but never rolls back the append: the store's durability guarantee and the bus's delivery guarantee
// are separate concerns, and a read model can always catch up once the
// bus is healthy again.
type PublishingRepository[S any] struct {
	Repo      Repository[S]
	Publisher Publisher
	Prefix    string
}

// NewPublishingRepository wraps repo so its Saves also publish to pub
// under the given aggregate prefix.
func NewPublishingRepository[S any](repo Repository[S], pub Publisher, prefix string) *PublishingRepository[S] {
	return &PublishingRepository[S]{Repo: repo, Publisher: pub, Prefix: prefix}
}

// GetByID delegates to the wrapped Repository unchanged.
func (p *PublishingRepository[S]) GetByID(ctx context.Context, id string) (S, int64, error) {
	return p.Repo.GetByID(ctx, id)
}

// Save appends through the wrapped Repository, then publishes on success.
func (p *PublishingRepository[S]) Save(ctx context.Context, id string, events []event.Variant, expectedVersion int64) error {
	if err := p.Repo.Save(ctx, id, events, expectedVersion); err != nil {
		return err
	}
	return p.Publisher.Publish(p.Prefix, id, expectedVersion+1, events)
}
