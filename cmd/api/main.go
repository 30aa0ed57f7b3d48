package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/pizzalemon/pos-backend/api/routes"
	"github.com/pizzalemon/pos-backend/internal/cart"
	"github.com/pizzalemon/pos-backend/internal/customers"
	"github.com/pizzalemon/pos-backend/internal/inventory"
	products "github.com/pizzalemon/pos-backend/internal/products"
	"github.com/pizzalemon/pos-backend/internal/reports"
	"github.com/pizzalemon/pos-backend/internal/sales"
	"github.com/pizzalemon/pos-backend/pkg/config"
	"github.com/pizzalemon/pos-backend/pkg/db"
	"github.com/pizzalemon/pos-backend/pkg/logger"
	"github.com/pizzalemon/pos-backend/pkg/metrics"
	"github.com/pizzalemon/pos-backend/pkg/migrate"
	"github.com/pizzalemon/pos-backend/pkg/outbox"
	"github.com/pizzalemon/pos-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, redisClient.Close()) }()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	handler, err := buildHandler(cfg, logg, dbClient, redisClient, reg)
	if err != nil {
		return err
	}

	addr := ":" + cfg.App.Port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})

	server := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-sigCtx.Done():
	}

	logg.Info(ctx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func buildHandler(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, reg *prometheus.Registry) (http.Handler, error) {
	conn := dbClient.DB()

	inventorySvc, err := inventory.NewService(inventory.NewRepository(conn), dbClient, logg, cfg.Sales.AllowBackorder)
	if err != nil {
		return nil, err
	}
	customerSvc, err := customers.NewService(customers.NewRepository(conn), dbClient, logg)
	if err != nil {
		return nil, err
	}
	productSvc, err := products.NewService(products.NewRepository(conn))
	if err != nil {
		return nil, err
	}
	quoter, err := cart.NewQuoter(productSvc)
	if err != nil {
		return nil, err
	}
	salesSvc, err := sales.NewService(sales.ServiceParams{
		Repo:           sales.NewRepository(conn),
		Tx:             dbClient,
		Inventory:      inventorySvc,
		Loyalty:        customerSvc,
		Outbox:         outbox.NewService(outbox.NewRepository(conn), logg),
		Metrics:        metrics.NewSalesMetrics(reg),
		Logger:         logg,
		QR:             sales.DefaultQRGenerator{BaseURL: cfg.Sales.ReceiptBaseURL},
		Receipts:       sales.NewReceiptGenerator(),
		MaxRetries:     cfg.Sales.CommitMaxRetries,
		RetryBaseDelay: cfg.Sales.CommitRetryBaseDelay,
	})
	if err != nil {
		return nil, err
	}
	reportSvc, err := reports.NewService(reports.ServiceParams{
		Repo:      reports.NewRepository(conn),
		Customers: customers.NewRepository(conn),
		Products:  products.NewRepository(conn),
		Inventory: inventory.NewRepository(conn),
	})
	if err != nil {
		return nil, err
	}

	return routes.NewRouter(routes.Deps{
		Config:      cfg,
		Logger:      logg,
		DB:          dbClient,
		Redis:       redisClient,
		Gatherer:    reg,
		HTTPMetrics: metrics.NewHTTPMetrics(reg),
		Sales:       salesSvc,
		Inventory:   inventorySvc,
		Customers:   customerSvc,
		Products:    productSvc,
		Quoter:      quoter,
		Reports:     reportSvc,
	}), nil
}
