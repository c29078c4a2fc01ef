package orchestrator

import (
	"context"
	"time"

	"kudi/internal/models"
	"kudi/internal/repositories"
	"kudi/internal/services/pricing"

	"github.com/shopspring/decimal"
)

// WalletLedger is the subset of the wallet service the flows need.
type WalletLedger interface {
	Lock(ctx context.Context, userID string) (func(), error)
	Reserve(ctx context.Context, store repositories.Store, userID string, total decimal.Decimal) error
	Debit(ctx context.Context, store repositories.Store, userID string, amount decimal.Decimal) (*models.Wallet, error)
	Credit(ctx context.Context, store repositories.Store, userID string, amount decimal.Decimal) (*models.Wallet, error)
	Invalidate(ctx context.Context, userIDs ...string)
}

// TransactionLedger writes ledger records.
type TransactionLedger interface {
	Now() time.Time
	NewReference(prefix string) string
	Record(ctx context.Context, store repositories.Store, tx *models.Transaction) error
	RecordFee(ctx context.Context, store repositories.Store, source *models.Transaction) (*models.Transaction, error)
}

type PricingEngine interface {
	TransferFee(amount decimal.Decimal) (pricing.TransferQuote, error)
	ServicePricing(amount decimal.Decimal, dailyCount int, service models.Service) (pricing.ServiceQuote, error)
	BillFee(amount decimal.Decimal) (pricing.BillQuote, error)
}

type DailyCounter interface {
	CountToday(ctx context.Context, store repositories.Store, userID string, service models.Service) (int, error)
	CountThrough(ctx context.Context, store repositories.Store, userID string, service models.Service, at time.Time) (int, error)
}
