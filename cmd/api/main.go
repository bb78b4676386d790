package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/tracksubs/tracksubs-backend/api/routes"
	"github.com/tracksubs/tracksubs-backend/internal/auth"
	"github.com/tracksubs/tracksubs-backend/internal/export"
	"github.com/tracksubs/tracksubs-backend/internal/identity"
	"github.com/tracksubs/tracksubs-backend/internal/ledger"
	"github.com/tracksubs/tracksubs-backend/internal/paymentmethods"
	"github.com/tracksubs/tracksubs-backend/internal/services"
	"github.com/tracksubs/tracksubs-backend/internal/subscriptions"
	"github.com/tracksubs/tracksubs-backend/internal/usage"
	"github.com/tracksubs/tracksubs-backend/internal/users"
	"github.com/tracksubs/tracksubs-backend/internal/waitlist"
	"github.com/tracksubs/tracksubs-backend/pkg/auth/session"
	"github.com/tracksubs/tracksubs-backend/pkg/config"
	"github.com/tracksubs/tracksubs-backend/pkg/db"
	"github.com/tracksubs/tracksubs-backend/pkg/logger"
	"github.com/tracksubs/tracksubs-backend/pkg/metrics"
	"github.com/tracksubs/tracksubs-backend/pkg/migrate"
	"github.com/tracksubs/tracksubs-backend/pkg/outbox"
	"github.com/tracksubs/tracksubs-backend/pkg/redis"
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

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}

	defer func() {
		if err := multierr.Combine(redisClient.Close(), dbClient.Close()); err != nil {
			logg.Error(context.Background(), "error closing resources", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	gormDB := dbClient.DB()
	outboxService := outbox.NewService(outbox.NewRepository(gormDB), logg)

	userRepo := users.NewRepository(gormDB)
	usageRepo := usage.NewRepository(gormDB)
	subscriptionRepo := subscriptions.NewRepository(gormDB)
	transactionRepo := ledger.NewRepository(gormDB)
	paymentMethodRepo := paymentmethods.NewRepository(gormDB)

	resolver, err := identity.NewService(identity.ServiceParams{
		UserRepo:          userRepo,
		UsageRepo:         usageRepo,
		TransactionRunner: dbClient,
		Outbox:            outboxService,
		Logger:            logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create identity resolver", err)
		os.Exit(1)
	}

	authService, err := auth.NewService(auth.ServiceParams{
		Resolver: resolver,
		UserRepo: userRepo,
		Sessions: sessionManager,
		JWT:      cfg.JWT,
		Password: cfg.Password,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	usageService, err := usage.NewService(usageRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create usage service", err)
		os.Exit(1)
	}

	usersService, err := users.NewService(users.ServiceParams{
		UserRepo: userRepo,
		Usage:    usageService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create users service", err)
		os.Exit(1)
	}

	subscriptionsService, err := subscriptions.NewService(subscriptions.ServiceParams{
		SubscriptionRepo:  subscriptionRepo,
		UsageRepo:         usageRepo,
		PaymentMethodRepo: paymentMethodRepo,
		OutboxService:     outboxService,
		TransactionRunner: dbClient,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create subscriptions service", err)
		os.Exit(1)
	}

	ledgerService, err := ledger.NewService(ledger.ServiceParams{
		TransactionRepo:   transactionRepo,
		SubscriptionRepo:  subscriptionRepo,
		OutboxService:     outboxService,
		TransactionRunner: dbClient,
		Metrics:           metrics.NewLedgerMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	paymentMethodsService, err := paymentmethods.NewService(paymentmethods.ServiceParams{
		Repo: paymentMethodRepo,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payment methods service", err)
		os.Exit(1)
	}

	catalogService, err := services.NewService(services.ServiceParams{
		Repo: services.NewRepository(gormDB),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	waitlistService, err := waitlist.NewService(waitlist.ServiceParams{
		Repo:   waitlist.NewRepository(gormDB),
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create waitlist service", err)
		os.Exit(1)
	}

	exportService, err := export.NewService(export.ServiceParams{
		SubscriptionRepo: subscriptionRepo,
		TransactionRepo:  transactionRepo,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create export service", err)
		os.Exit(1)
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
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, sessionManager, routes.Services{
			Auth:           authService,
			Users:          usersService,
			Subscriptions:  subscriptionsService,
			Ledger:         ledgerService,
			PaymentMethods: paymentMethodsService,
			Catalog:        catalogService,
			Waitlist:       waitlistService,
			Export:         exportService,
		}),
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-shutdownCtx.Done():
		logg.Info(ctx, "shutting down api server")
		closeCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(closeCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
	}
}
