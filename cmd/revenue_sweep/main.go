// Command revenue_sweep runs one revenue collection and exits. It is meant
// for cron; a run that finds nothing to collect exits 0.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"kudi/internal/config"
	apperrors "kudi/internal/errors"
	"kudi/internal/logging"
	"kudi/internal/providers"
	"kudi/internal/providers/disbursement"
	"kudi/internal/providers/verification"
	"kudi/internal/repositories"
	"kudi/internal/repositories/cache"
	"kudi/internal/services/counter"
	"kudi/internal/services/ledger"
	"kudi/internal/services/orchestrator"
	"kudi/internal/services/pricing"
	"kudi/internal/services/revenue"
	"kudi/internal/services/wallet"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func main() {
	amountFlag := flag.String("amount", "", "collect at most this amount; empty sweeps everything")
	flag.Parse()

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

	var amount *decimal.Decimal
	if *amountFlag != "" {
		d, err := decimal.NewFromString(*amountFlag)
		if err != nil {
			logger.Fatal("invalid -amount", zap.String("amount", *amountFlag), zap.Error(err))
		}
		amount = &d
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := sweep(ctx, cfg, logger, amount)
	if errors.Is(err, apperrors.ErrNothingToCollect) {
		logger.Info("nothing to collect", zap.Error(err))
		return
	}
	if err != nil {
		logger.Fatal("revenue collection failed", zap.Error(err))
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		logger.Fatal("failed to print result", zap.Error(err))
	}
}

func sweep(ctx context.Context, cfg *config.Config, logger *zap.Logger, amount *decimal.Decimal) (*revenue.Collection, error) {
	db, err := repositories.Open(cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	defer func() { _ = repositories.Close(db) }()
	store := repositories.NewStore(db)

	redisClient := cache.NewRedisClient(&cache.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer func() { _ = redisClient.Close() }()
	locker := cache.NewRedisLocker(redisClient, cfg.Redis.LockTTL)

	ledgerService := ledger.NewService(ledger.NewULIDGenerator(), nil, logger)
	verifier := verification.NewClient(providers.NewClient("verification",
		cfg.Providers.Verification.BaseURL, cfg.Providers.Verification.SecretKey, cfg.Providers.Timeout,
		providers.WithLogger(logger)))
	disburser := disbursement.NewClient(providers.NewClient("disbursement",
		cfg.Providers.Disbursement.BaseURL, cfg.Providers.Disbursement.SecretKey, cfg.Providers.Timeout,
		providers.WithLogger(logger)))

	engine := orchestrator.NewService(orchestrator.Dependencies{
		Store:        store,
		Wallets:      wallet.NewService(store, nil, locker, wallet.Config{}, nil, logger),
		Ledger:       ledgerService,
		Pricing:      pricing.NewEngine(pricing.ConfigFrom(cfg.Pricing, cfg.Loyalty)),
		Counter:      counter.NewReader(cfg.Loyalty.Location()),
		Verification: verifier,
		Disbursement: disburser,
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

	svc := revenue.NewService(store, ledgerService, engine, locker, revenue.Settlement{
		AccountNumber: cfg.Settlement.AccountNumber,
		BankCode:      cfg.Settlement.BankCode,
		AccountName:   cfg.Settlement.AccountName,
		MinimumAmount: cfg.Settlement.MinCollectionAmount,
	}, nil, nil, logger)
	return svc.Collect(ctx, amount)
}
