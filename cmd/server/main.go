// Package main starts the wallet engine's HTTP API and the webhook inbox
// replayer.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"kudi/internal/config"
	"kudi/internal/events"
	"kudi/internal/handlers"
	"kudi/internal/logging"
	"kudi/internal/metrics"
	"kudi/internal/middleware"
	"kudi/internal/providers"
	"kudi/internal/providers/disbursement"
	"kudi/internal/providers/verification"
	"kudi/internal/repositories"
	"kudi/internal/repositories/cache"
	"kudi/internal/routes"
	"kudi/internal/services/analytics"
	"kudi/internal/services/counter"
	"kudi/internal/services/ledger"
	"kudi/internal/services/orchestrator"
	"kudi/internal/services/pricing"
	"kudi/internal/services/revenue"
	"kudi/internal/services/wallet"
	"kudi/internal/services/webhook"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const version = "1.0.0"

func main() {
	config.LoadEnv()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	logger, err := logging.New(cfg.IsProduction(), cfg.Logging.Level)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	db, err := repositories.Open(cfg.Database, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := repositories.Close(db); err != nil {
			logger.Warn("failed to close database", zap.Error(err))
		}
	}()
	if err := repositories.Migrate(db); err != nil {
		return err
	}
	store := repositories.NewStore(db)

	redisClient := cache.NewRedisClient(&cache.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	cacheService := cache.NewCacheService(redisClient, cfg.Redis.CacheTTL)
	defer func() {
		if err := cacheService.Close(); err != nil {
			logger.Warn("failed to close redis", zap.Error(err))
		}
	}()
	if err := cacheService.HealthCheck(ctx); err != nil {
		return fmt.Errorf("failed to reach redis: %w", err)
	}
	locker := cache.NewRedisLocker(redisClient, cfg.Redis.LockTTL)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewPrometheus(registry)

	writer := events.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
	if writer != nil {
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Warn("failed to close kafka writer", zap.Error(err))
			}
		}()
	}
	publisher := events.NewKafkaPublisher(writer, logger)

	loc := cfg.Loyalty.Location()
	wallets := wallet.NewService(store, cacheService, locker, wallet.Config{}, collector, logger)
	ledgerService := ledger.NewService(ledger.NewULIDGenerator(), collector, logger)

	clientOpts := []providers.ClientOption{providers.WithMetrics(collector), providers.WithLogger(logger)}
	verifier := verification.NewClient(providers.NewClient(webhook.ProviderVerification,
		cfg.Providers.Verification.BaseURL, cfg.Providers.Verification.SecretKey, cfg.Providers.Timeout, clientOpts...))
	disburser := disbursement.NewClient(providers.NewClient(webhook.ProviderDisbursement,
		cfg.Providers.Disbursement.BaseURL, cfg.Providers.Disbursement.SecretKey, cfg.Providers.Timeout, clientOpts...))

	engine := orchestrator.NewService(orchestrator.Dependencies{
		Store:        store,
		Wallets:      wallets,
		Ledger:       ledgerService,
		Pricing:      pricing.NewEngine(pricing.ConfigFrom(cfg.Pricing, cfg.Loyalty)),
		Counter:      counter.NewReader(loc),
		Verification: verifier,
		Disbursement: disburser,
		Events:       publisher,
		Metrics:      collector,
		Logger:       logger,
	}, orchestrator.Config{
		ProviderTimeout: cfg.Providers.Timeout,
		Retry: providers.RetryPolicy{
			MaxAttempts:     cfg.Providers.RetryAttempts,
			InitialInterval: 300 * time.Millisecond,
			MaxElapsed:      cfg.Providers.RetryMaxWait,
			AttemptTimeout:  cfg.Providers.LookupTimeout,
		},
	})

	reconciler := webhook.NewReconciler(store, wallets, ledgerService, engine, publisher, collector, logger, webhook.Config{
		Secrets: map[string]string{
			webhook.ProviderVerification: cfg.Webhooks.VerificationSecret,
			webhook.ProviderDisbursement: cfg.Webhooks.DisbursementSecret,
		},
		Schemes:     webhookSchemes(cfg.Webhooks),
		MaxAttempts: cfg.Webhooks.MaxAttempts,
	})
	var replayOpts []webhook.ReplayerOption
	wakeups, closeListener, err := webhook.Listen(cfg.Database.DSN(), logger)
	if err != nil {
		logger.Warn("webhook notifications unavailable, relying on the replay interval", zap.Error(err))
	} else {
		replayOpts = append(replayOpts, webhook.WithWakeups(wakeups))
		defer func() { _ = closeListener() }()
	}
	replayer := webhook.NewReplayer(reconciler, store, cfg.Webhooks.ReplayInterval, logger, replayOpts...)

	revenueService := revenue.NewService(store, ledgerService, engine, locker, revenue.Settlement{
		AccountNumber: cfg.Settlement.AccountNumber,
		BankCode:      cfg.Settlement.BankCode,
		AccountName:   cfg.Settlement.AccountName,
		MinimumAmount: cfg.Settlement.MinCollectionAmount,
	}, publisher, collector, logger)
	reconciler.WithCollections(revenueService)

	opts := routes.Options{
		AllowOrigins: cfg.Server.AllowOrigins,
		RateLimit:    cfg.Server.RateLimit,
		AccessLog:    !cfg.IsProduction(),
	}
	app := routes.NewApp(opts)
	routes.Setup(app, routes.Handlers{
		Transfers: handlers.NewTransferHandler(engine, logger),
		Purchases: handlers.NewPurchaseHandler(engine, logger),
		Wallets:   handlers.NewWalletHandler(wallets, engine, logger),
		Webhooks:  handlers.NewWebhookHandler(reconciler, logger),
		Admin: handlers.NewAdminHandler(revenueService, analytics.NewService(store.Transactions(), loc),
			wallets, replayer, loc, logger),
		Health: handlers.NewHealthHandler(version, map[string]handlers.Check{
			"database": func(ctx context.Context) error {
				sqlDB, err := db.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			},
			"redis": cacheService.HealthCheck,
		}),
		Metrics: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}, middleware.NewAuthMiddleware(cfg.Auth.JWTSecret, logger), opts)

	go replayer.Run(ctx)

	errs := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port), zap.String("env", cfg.Env))
		errs <- app.Listen(":" + cfg.Server.Port)
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	if err := app.ShutdownWithTimeout(15 * time.Second); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}

func webhookSchemes(cfg config.WebhookConfig) map[string]webhook.SignatureScheme {
	schemes := make(map[string]webhook.SignatureScheme)
	if cfg.VerificationScheme != "" {
		schemes[webhook.ProviderVerification] = webhook.SignatureScheme(cfg.VerificationScheme)
	}
	if cfg.DisbursementScheme != "" {
		schemes[webhook.ProviderDisbursement] = webhook.SignatureScheme(cfg.DisbursementScheme)
	}
	return schemes
}
