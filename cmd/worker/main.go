// Command worker runs the queued-mode consumer side (components I and J):
// one queue.postgres.Receiver per aggregate-type queue, decoding and
// dispatching through the same registry and bus the server uses.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jade/eventcore/examples/customer"
	"github.com/jade/eventcore/examples/order"
	"github.com/jade/eventcore/internal/config"
	eventbusnats "github.com/jade/eventcore/internal/eventbus/nats"
	"github.com/jade/eventcore/pkg/aggregate"
	"github.com/jade/eventcore/pkg/cqrs"
	appmiddleware "github.com/jade/eventcore/pkg/middleware"
	"github.com/jade/eventcore/pkg/queue/postgres"
	"github.com/jade/eventcore/pkg/registry"
	"github.com/jade/eventcore/pkg/store"
	storepostgres "github.com/jade/eventcore/pkg/store/postgres"
	"github.com/jade/eventcore/pkg/worker"
)

type noopSender struct{ log *slog.Logger }

func (s noopSender) Send(ctx context.Context, orderID string) error {
	s.log.InfoContext(ctx, "order confirmation sent", "order_id", orderID)
	return nil
}

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("load config", "error", err)
		os.Exit(1)
	}

	if cfg.Database.Driver != "postgres" {
		log.Error("worker: only the postgres driver is wired for this entrypoint", "driver", cfg.Database.Driver)
		os.Exit(1)
	}

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Error("connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		log.Error("ensure queue schema", "error", err)
		os.Exit(1)
	}

	var publisher store.Publisher
	if cfg.EventBus.Enabled {
		bus, err := eventbusnats.Connect(eventbusnats.Config{
			URL:            cfg.EventBus.URL,
			StreamName:     cfg.EventBus.StreamName,
			StreamSubjects: []string{"events.>"},
			MaxAge:         time.Duration(cfg.EventBus.MaxAgeDays) * 24 * time.Hour,
			MaxBytes:       1024 * 1024 * 1024,
		})
		if err != nil {
			log.Error("connect to nats", "error", err)
			os.Exit(1)
		}
		defer bus.Close()
		publisher = bus
	}

	reg := registry.New(registry.WithLogger(log))
	chain := func(h registry.Handler) registry.Handler {
		return appmiddleware.Chain(h,
			appmiddleware.Recovery(log),
			appmiddleware.Tracing(nil, "eventcore/worker"),
			appmiddleware.Metrics(),
			appmiddleware.Logging(log),
		)
	}

	customerTypes := store.NewEventTypes()
	customerTypes.Register(customer.Created{}, customer.Updated{})
	customerRepo := store.Repository[customer.State](storepostgres.New(pool, customer.Prefix, customer.Definition.Fold, customerTypes))
	if publisher != nil {
		customerRepo = store.NewPublishingRepository(customerRepo, publisher, customer.Prefix)
	}
	customerPipeline := aggregate.NewPipeline(customer.Definition, customerRepo, customer.GetID)
	reg.Register(chain(cqrs.AggregateHandler[customer.Command, customer.State](customerPipeline)), customer.Create{}, customer.Update{})

	orderTypes := store.NewEventTypes()
	orderTypes.Register(order.Placed{}, order.Cancelled{}, order.ConfirmationSent{})
	orderRepo := store.Repository[order.State](storepostgres.New(pool, order.Prefix, order.Definition.Fold, orderTypes))
	if publisher != nil {
		orderRepo = store.NewPublishingRepository(orderRepo, publisher, order.Prefix)
	}
	orderPipeline := aggregate.NewPipeline(order.Definition, orderRepo, order.GetID)
	reg.Register(chain(cqrs.AggregateHandler[order.Command, order.State](orderPipeline)), order.Place{}, order.Cancel{})

	confirmationHandler := order.NewSendConfirmationHandler(orderRepo, noopSender{log: log})
	reg.Register(chain(cqrs.CustomHandlerAsHandler[order.SendConfirmation](confirmationHandler)), order.SendConfirmation{})

	bus := cqrs.NewBus(reg, cqrs.WithLogger(log))

	receivers := []worker.Service{
		postgres.NewReceiver(pool, customer.Prefix, reg, bus,
			postgres.WithVisibilityTimeout(cfg.Queue.VisibilityTimeout),
			postgres.WithReceiverLogger(log)),
		postgres.NewReceiver(pool, order.Prefix, reg, bus,
			postgres.WithVisibilityTimeout(cfg.Queue.VisibilityTimeout),
			postgres.WithReceiverLogger(log)),
	}

	host := worker.New(receivers,
		worker.WithLogger(log),
		worker.WithStartupTimeout(cfg.Queue.StartupTimeout),
		worker.WithShutdownTimeout(cfg.Queue.ShutdownTimeout),
	)

	if err := host.Run(ctx); err != nil {
		log.Error("worker host exited with error", "error", err)
		os.Exit(1)
	}
}
