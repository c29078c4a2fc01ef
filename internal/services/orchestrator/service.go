package orchestrator

import (
	"context"

	"kudi/internal/events"
	"kudi/internal/logging"
	"kudi/internal/metrics"
	"kudi/internal/models"
	"kudi/internal/providers"
	"kudi/internal/repositories"

	"go.uber.org/zap"
)

// Dependencies are the collaborators a Service is built from. Providers and
// configuration are always injected; nothing is read from globals.
type Dependencies struct {
	Store        repositories.Store
	Wallets      WalletLedger
	Ledger       TransactionLedger
	Pricing      PricingEngine
	Counter      DailyCounter
	Verification providers.VerificationProvider
	Disbursement providers.DisbursementProvider
	Events       events.Publisher
	Metrics      metrics.Collector
	Logger       *zap.Logger
}

type Service struct {
	store        repositories.Store
	wallets      WalletLedger
	ledger       TransactionLedger
	pricing      PricingEngine
	counter      DailyCounter
	verification providers.VerificationProvider
	disbursement providers.DisbursementProvider
	events       events.Publisher
	metrics      metrics.Collector
	logger       *zap.Logger
	config       Config
}

// NewService creates a new orchestrator
func NewService(deps Dependencies, config Config) *Service {
	switch {
	case deps.Store == nil:
		panic("store is required")
	case deps.Wallets == nil:
		panic("wallet ledger is required")
	case deps.Ledger == nil:
		panic("transaction ledger is required")
	case deps.Pricing == nil:
		panic("pricing engine is required")
	case deps.Counter == nil:
		panic("daily counter is required")
	case deps.Verification == nil || deps.Disbursement == nil:
		panic("both providers are required")
	}

	if config.ProviderTimeout <= 0 {
		config.ProviderTimeout = DefaultProviderTimeout
	}
	if config.Retry.MaxAttempts == 0 {
		config.Retry = providers.DefaultRetryPolicy()
	}
	if config.Retry.AttemptTimeout <= 0 {
		config.Retry.AttemptTimeout = config.ProviderTimeout
	}
	if config.Currency == "" {
		config.Currency = DefaultCurrency
	}
	if deps.Events == nil {
		deps.Events = events.Noop{}
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NoopCollector{}
	}

	return &Service{
		store:        deps.Store,
		wallets:      deps.Wallets,
		ledger:       deps.Ledger,
		pricing:      deps.Pricing,
		counter:      deps.Counter,
		verification: deps.Verification,
		disbursement: deps.Disbursement,
		events:       deps.Events,
		metrics:      deps.Metrics,
		logger:       logging.OrNop(deps.Logger),
		config:       config,
	}
}

// callContext bounds one provider step.
func (s *Service) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.config.ProviderTimeout)
}

// commit writes the ledger side of an operation the provider already
// accepted. The caller going away must not stop it.
func (s *Service) commit(ctx context.Context, fn func(repositories.Store) error) error {
	return s.store.ExecuteInTransaction(context.WithoutCancel(ctx), fn)
}

// alertUnrecorded fires when money moved at the provider but the ledger write
// failed. Operators reconcile these by reference.
func (s *Service) alertUnrecorded(tx *models.Transaction, err error) {
	s.logger.Error("provider operation succeeded but ledger write failed",
		logging.Alert("unrecorded_disbursement"),
		zap.String("reference", tx.Reference),
		zap.String("user_id", tx.UserID),
		zap.String("service", string(tx.Service)),
		zap.String("amount", tx.Amount.String()),
		zap.String("fee", tx.Fee.String()),
		zap.String("provider_reference", tx.ProviderReference),
		zap.Error(err))
}

func (s *Service) publishTransaction(ctx context.Context, tx *models.Transaction) {
	name := events.TransactionCompleted
	if tx.Status == models.StatusPending {
		name = events.TransactionPending
	}
	s.events.Publish(ctx, events.Event{
		Name:      name,
		UserID:    tx.UserID,
		Reference: tx.Reference,
		Type:      string(tx.Type),
		Service:   string(tx.Service),
		Amount:    tx.Amount,
		Fee:       tx.Fee,
		Status:    string(tx.Status),
		At:        tx.CreatedAt,
	})
}

func statusOf(st providers.Status) models.TransactionStatus {
	if st == providers.StatusPending {
		return models.StatusPending
	}
	return models.StatusCompleted
}
