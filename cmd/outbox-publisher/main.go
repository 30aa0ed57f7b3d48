package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pizzalemon/pos-backend/pkg/config"
	"github.com/pizzalemon/pos-backend/pkg/db"
	"github.com/pizzalemon/pos-backend/pkg/instance"
	"github.com/pizzalemon/pos-backend/pkg/kafka"
	"github.com/pizzalemon/pos-backend/pkg/logger"
	"github.com/pizzalemon/pos-backend/pkg/metrics"
	"github.com/pizzalemon/pos-backend/pkg/migrate"
	"github.com/pizzalemon/pos-backend/pkg/outbox"
	"github.com/pizzalemon/pos-backend/pkg/outbox/idempotency"
	"github.com/pizzalemon/pos-backend/pkg/outbox/registry"
	"github.com/pizzalemon/pos-backend/pkg/pubsub"
	"github.com/pizzalemon/pos-backend/pkg/redis"
)

const deliveryGuardTTL = 7 * 24 * time.Hour

func main() {
	showDLQ := flag.Bool("dlq", false, "print dead-lettered events as JSON lines and exit")
	dlqEvent := flag.String("dlq-event", "", "with -dlq, show only this event id")
	dlqReason := flag.String("dlq-reason", "", "with -dlq, filter by reason: max_attempts|non_retryable|unknown_event")
	dlqLimit := flag.Int("dlq-limit", 50, "with -dlq, maximum rows to print")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "outbox-publisher"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "outbox-publisher",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	dlqRepo := outbox.NewDLQRepository(dbClient.DB())
	if *showDLQ {
		query := dlqQuery{EventID: *dlqEvent, Reason: *dlqReason, Limit: *dlqLimit}
		if err := inspectDLQ(context.Background(), dlqRepo, query, os.Stdout); err != nil {
			logg.Error(context.Background(), "dlq inspection failed", err)
			os.Exit(1)
		}
		return
	}

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	sink, err := newSink(context.Background(), cfg, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap outbox sink", err)
		os.Exit(1)
	}
	defer func() {
		if err := sink.Close(); err != nil {
			logg.Error(context.Background(), "error closing outbox sink", err)
		}
	}()

	var guard deliveryGuard
	if cfg.Redis.URL != "" || cfg.Redis.Address != "" {
		redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		manager, err := idempotency.NewManager(redisClient, deliveryGuardTTL)
		if err != nil {
			logg.Error(context.Background(), "failed to build delivery guard", err)
			os.Exit(1)
		}
		guard = manager
	}

	eventRegistry, err := registry.NewEventRegistry(cfg.PubSub)
	if err != nil {
		logg.Error(context.Background(), "failed to build event registry", err)
		os.Exit(1)
	}

	service, err := NewService(ServiceParams{
		Config:        cfg,
		Logger:        logg,
		DB:            dbClient,
		Sink:          sink,
		Repository:    outbox.NewRepository(dbClient.DB()),
		Registry:      eventRegistry,
		DLQRepository: dlqRepo,
		Metrics:       metrics.NewOutboxMetrics(prometheus.DefaultRegisterer),
		Guard:         guard,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox publisher", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"sink":     cfg.Outbox.SinkName(),
		"instance": instance.GetID("outbox-publisher-0"),
	})
	logg.Info(ctx, "starting outbox publisher")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "outbox publisher stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "outbox publisher shutting down gracefully")
}

func newSink(ctx context.Context, cfg *config.Config, logg *logger.Logger) (outbox.Sink, error) {
	if cfg.Outbox.SinkName() == config.OutboxSinkKafka {
		return kafka.NewSink(cfg.Kafka, logg)
	}
	return pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
}
