package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/forno-digital/pizzaria-backend/api/controllers"
	"github.com/forno-digital/pizzaria-backend/api/routes"
	"github.com/forno-digital/pizzaria-backend/internal/auth"
	"github.com/forno-digital/pizzaria-backend/internal/cashflow"
	"github.com/forno-digital/pizzaria-backend/internal/orders"
	"github.com/forno-digital/pizzaria-backend/internal/queue"
	"github.com/forno-digital/pizzaria-backend/pkg/config"
	"github.com/forno-digital/pizzaria-backend/pkg/db"
	"github.com/forno-digital/pizzaria-backend/pkg/logger"
	"github.com/forno-digital/pizzaria-backend/pkg/metrics"
	"github.com/forno-digital/pizzaria-backend/pkg/migrate"
	"github.com/forno-digital/pizzaria-backend/pkg/pubsub"
	"github.com/forno-digital/pizzaria-backend/pkg/redis"
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
	})

	var closers []func() error
	defer func() {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				errs = append(errs, err)
			}
		}
		if combined := multierr.Combine(errs...); combined != nil {
			logg.Error(context.Background(), "error closing resources", combined)
		}
	}()

	var dbClient *db.Client
	if cfg.DatabaseRequired() {
		dbClient, err = db.New(context.Background(), cfg.DB, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap database", err)
			os.Exit(1)
		}
		closers = append(closers, dbClient.Close)

		if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
			logg.Error(context.Background(), "failed to run dev migrations", err)
			os.Exit(1)
		}
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(context.Background(), cfg.Redis)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		closers = append(closers, redisClient.Close)
	}

	publisher := cashflow.NewLoggingPublisher(logg)
	if cfg.PubSub.Enabled() {
		pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		closers = append(closers, pubsubClient.Close)

		publisher, err = cashflow.NewPubSubPublisher(pubsubClient.CashEventsPublisher(), cfg.PubSub.PublishTimeout)
		if err != nil {
			logg.Error(context.Background(), "failed to create cash event publisher", err)
			os.Exit(1)
		}
	}

	var ledger cashflow.Ledger
	var uow cashflow.UnitOfWork
	if cfg.CashFlow.UseDatabaseLedger {
		gormLedger, err := cashflow.NewGormLedger(dbClient.DB())
		if err != nil {
			logg.Error(context.Background(), "failed to create cash ledger", err)
			os.Exit(1)
		}
		uow, err = cashflow.NewGormUnitOfWork(dbClient, gormLedger)
		if err != nil {
			logg.Error(context.Background(), "failed to create cash unit of work", err)
			os.Exit(1)
		}
		ledger = gormLedger
	} else {
		httpLedger, err := cashflow.NewHTTPLedger(cfg.CashFlow)
		if err != nil {
			logg.Error(context.Background(), "failed to create cash ledger", err)
			os.Exit(1)
		}
		uow = cashflow.NewHTTPUnitOfWork(httpLedger)
		ledger = httpLedger
	}

	cashOpts := []cashflow.ServiceOption{cashflow.WithPublisher(publisher)}
	if redisClient != nil {
		cashOpts = append(cashOpts, cashflow.WithCache(redisClient))
	}
	cashService, err := cashflow.NewService(ledger, uow, cfg.CashFlow, logg, cashOpts...)
	if err != nil {
		logg.Error(context.Background(), "failed to create cash flow service", err)
		os.Exit(1)
	}

	ordersRepo, err := orders.NewRepository(cfg.Orders, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders repository", err)
		os.Exit(1)
	}
	commandService, err := orders.NewCommandService(cfg.Orders, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create order command service", err)
		os.Exit(1)
	}

	sagaMetrics := metrics.NewPaymentSagaMetrics(prometheus.DefaultRegisterer)
	orchestrator, err := queue.New(ordersRepo, commandService, cashService, logg, queue.WithMetrics(sagaMetrics))
	if err != nil {
		logg.Error(context.Background(), "failed to create queue orchestrator", err)
		os.Exit(1)
	}

	authService, err := auth.NewService(cfg.Admin, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	var dbPinger controllers.Pinger
	if dbClient != nil {
		dbPinger = dbClient
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbPinger, redisClient, authService, ordersRepo, cashService, orchestrator),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
