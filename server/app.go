package main

import (
	"fmt"

	"visitly/api/routes"
	"visitly/internal/abuse"
	"visitly/internal/bookings"
	"visitly/internal/checkin"
	"visitly/internal/gateways"
	"visitly/internal/notifications"
	"visitly/internal/outbox"
	"visitly/internal/payments"
	"visitly/internal/refunds"
	"visitly/internal/shared/config"
	"visitly/internal/shared/constants"
	"visitly/internal/shared/database"
	"visitly/internal/slots"
	"visitly/pkg/cache"
	"visitly/pkg/clock"
	"visitly/pkg/logger"
	"visitly/pkg/mq"

	"github.com/gin-gonic/gin"
)

func models() []interface{} {
	return []interface{}{
		&slots.Slot{},
		&bookings.Booking{},
		&outbox.Message{},
	}
}

// application is the wired object graph of the API process.
type application struct {
	router      *routes.Router
	relay       *outbox.Relay
	bookingJobs *bookings.JobProcessor
	closers     []func() error
}

func (a *application) Close() {
	for _, c := range a.closers {
		_ = c()
	}
}

func buildApp(cfg *config.Config, db *database.DB, log *logger.Logger) (*application, error) {
	app := &application{}
	clk := clock.Real()
	pg := db.GetPostgreSQL()

	gw, err := buildGateways(cfg, clk, log, app)
	if err != nil {
		app.Close()
		return nil, err
	}

	var cacheSvc cache.Service
	var idempotency *cache.Idempotency
	if rdb := db.GetRedisClient(); rdb != nil {
		cacheSvc = cache.NewService(rdb)
		if cfg.Jobs.IdempotencyEnabled {
			idempotency = cache.NewIdempotency(cacheSvc, constants.TTL_IDEMPOTENCY_IN, cfg.Redis.IdempotencyTTL)
		}
	}

	slotRepo := slots.NewRepository(pg)
	bookingRepo := bookings.NewRepository(pg)
	outboxRepo := outbox.NewRepository(pg)
	signer := bookings.NewPayloadSigner(cfg.Visits.ScanPayloadSecret, cfg.Visits.ScanPayloadIssuer)

	slotService := slots.NewService(slotRepo, cacheSvc, clk, log)
	bookingService := bookings.NewService(bookings.Dependencies{
		Bookings:    bookingRepo,
		Slots:       slotRepo,
		Outbox:      outboxRepo,
		Payments:    gw.Payments,
		Codes:       bookings.NewCodeGenerator(cfg.Visits.CodeLength, cfg.Visits.CodeMaxAttempts),
		Signer:      signer,
		Cache:       cacheSvc,
		Clock:       clk,
		Logger:      log,
		NoShowGrace: cfg.Visits.CheckInGrace,
	})
	checkinService := checkin.NewService(bookingRepo, slotRepo, signer, cfg.Visits.CheckInGrace, clk, log)
	refundService := refunds.NewService(bookingRepo, slotRepo, outboxRepo,
		refunds.NewKeywordHeuristic(cfg.Visits.FraudPhrases),
		refunds.Config{ProcessingDays: cfg.Visits.RefundProcessingDays}, clk, log)

	app.relay = outbox.NewRelay(outboxRepo, gw, &outbox.RelayConfig{
		Interval:     cfg.Jobs.RelayInterval,
		BatchSize:    cfg.Jobs.RelayBatchSize,
		MaxAttempts:  cfg.Jobs.RelayMaxAttempts,
		RetryBackoff: cfg.Jobs.RelayRetryBackoff,
	}, clk, log)
	app.bookingJobs = bookings.NewJobProcessor(bookingService, &bookings.JobConfig{SweepInterval: cfg.Jobs.SweepInterval}, log)

	app.router = routes.NewRouter(cfg,
		func(c *gin.Context) error { return db.HealthCheck(c.Request.Context()) },
		routes.Controllers{
			Slots:    slots.NewController(slotService),
			Bookings: bookings.NewController(bookingService, idempotency),
			CheckIn:  checkin.NewController(checkinService),
			Refunds:  refunds.NewController(refundService),
		},
		map[string]routes.JobReporter{
			"outbox_relay": app.relay,
			"no_show":      app.bookingJobs,
		})
	return app, nil
}

// buildGateways uses the real integrations that are enabled and logging
// stand-ins for the rest.
func buildGateways(cfg *config.Config, clk clock.Clock, log *logger.Logger, app *application) (outbox.Gateways, error) {
	gw := outbox.Gateways{
		Payments:      gateways.LoggingPayments{Log: log},
		Notifications: gateways.LoggingNotifications{Log: log},
		Abuse:         gateways.LoggingAbuse{Log: log},
	}

	if cfg.Omise.Enabled {
		p, err := payments.NewOmiseGateway(cfg.Omise.PublicKey, cfg.Omise.SecretKey, cfg.Omise.Currency, log)
		if err != nil {
			return gw, fmt.Errorf("payments: %w", err)
		}
		gw.Payments = p
	}

	if cfg.Kafka.Enabled {
		pc := notifications.DefaultProducerConfig()
		pc.Brokers = cfg.Kafka.Brokers
		pc.Topic = cfg.Kafka.NotificationTopic
		n, err := notifications.NewKafkaGateway(pc, clk, log)
		if err != nil {
			return gw, fmt.Errorf("notifications: %w", err)
		}
		gw.Notifications = n
		app.closers = append(app.closers, n.Close)
	}

	if cfg.RabbitMQ.Enabled {
		pub, err := mq.NewPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.AbuseExchange)
		if err != nil {
			return gw, fmt.Errorf("abuse monitor: %w", err)
		}
		gw.Abuse = abuse.NewMonitor(pub, clk)
		app.closers = append(app.closers, pub.Close)
	}

	log.Info("gateways configured",
		"omise", cfg.Omise.Enabled, "kafka", cfg.Kafka.Enabled, "rabbitmq", cfg.RabbitMQ.Enabled)
	return gw, nil
}
