package main

import (
	"context"
	"log"
	"os"
	"runtime/debug"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/sampledesk/sampledesk/internal/server"
	"github.com/sampledesk/sampledesk/modules"
	"github.com/sampledesk/sampledesk/modules/notifications/relay"
	notifservices "github.com/sampledesk/sampledesk/modules/notifications/services"
	"github.com/sampledesk/sampledesk/pkg/application"
	"github.com/sampledesk/sampledesk/pkg/composables"
	"github.com/sampledesk/sampledesk/pkg/configuration"
	"github.com/sampledesk/sampledesk/pkg/eventbus"
	"github.com/sampledesk/sampledesk/pkg/metrics"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			log.Println(r)
			debug.PrintStack()
			os.Exit(1)
		}
	}()

	conf := configuration.Use()
	logger := conf.Logger()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	pool, err := pgxpool.New(ctx, conf.Database.Opts)
	if err != nil {
		panic(err)
	}

	app := application.New(&application.ApplicationOptions{
		Pool:     pool,
		EventBus: eventbus.NewEventPublisher(logger),
		Logger:   logger,
	})
	if err := modules.Load(app, modules.BuiltInModules...); err != nil {
		log.Fatalf("failed to load modules: %v", err)
	}
	if err := app.Migrations().Apply(ctx); err != nil {
		log.Fatalf("failed to apply migrations: %v", err)
	}

	startOutboxBackground(conf, pool, logger, app)

	if conf.Prometheus.Enabled {
		app.RegisterControllers(metrics.NewPrometheusController(conf.Prometheus.Path))
	}

	serverInstance, err := server.Default(&server.DefaultOptions{
		Logger:        logger,
		Configuration: conf,
		Application:   app,
		Pool:          pool,
	})
	if err != nil {
		log.Fatalf("failed to create server: %v", err)
	}
	log.Printf("Listening on: %s\n", conf.SocketAddress)
	if err := serverInstance.Start(conf.SocketAddress); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}

// startOutboxBackground launches the relay and the cleaner. Both run until
// process exit; the context they get carries the pool so drained sends can
// open their own transactions.
func startOutboxBackground(
	conf *configuration.Configuration,
	pool *pgxpool.Pool,
	logger *logrus.Logger,
	app application.Application,
) {
	outboxLog := logger.WithField("component", "outbox")
	mailer := app.Service(notifservices.MailerService{}).(*notifservices.MailerService)
	bgCtx := composables.WithPool(context.Background(), pool)

	if conf.Outbox.RelayEnabled {
		r, err := relay.New(pool, mailer, relay.Options{
			PollInterval: conf.Outbox.RelayPollInterval,
			BatchSize:    conf.Outbox.RelayBatchSize,
			StaleAfter:   conf.Outbox.RelayStaleAfter,
			SingleActive: conf.Outbox.RelaySingleActive,
			Logger:       outboxLog,
		})
		if err != nil {
			outboxLog.WithError(err).Warn("failed to create relay")
		} else {
			go func() {
				if err := r.Run(bgCtx); err != nil {
					outboxLog.WithError(err).Error("relay stopped")
				}
			}()
		}
	}

	if conf.Outbox.CleanerEnabled {
		c, err := relay.NewCleaner(mailer, relay.CleanerOptions{
			Enabled:   true,
			Interval:  conf.Outbox.CleanerInterval,
			Retention: conf.Outbox.CleanerRetention,
			Logger:    outboxLog,
		})
		if err != nil {
			outboxLog.WithError(err).Warn("failed to create cleaner")
		} else {
			go func() {
				if err := c.Run(bgCtx); err != nil {
					outboxLog.WithError(err).Error("cleaner stopped")
				}
			}()
		}
	}
}
