// Package handlers adapts the engine's services to fiber endpoints.
package handlers

import (
	"context"
	"time"

	apperrors "kudi/internal/errors"
	"kudi/internal/models"
	"kudi/internal/providers"
	"kudi/internal/services/analytics"
	"kudi/internal/services/orchestrator"
	"kudi/internal/services/pricing"
	"kudi/internal/services/revenue"
	"kudi/internal/services/wallet"
	"kudi/internal/services/webhook"
	"kudi/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Transfers interface {
	QuoteTransfer(amount decimal.Decimal) (pricing.TransferQuote, error)
	Transfer(ctx context.Context, req orchestrator.TransferRequest) (*orchestrator.TransferResult, error)
	ResolveAccount(ctx context.Context, accountNumber, bankCode string) (*orchestrator.ResolvedAccount, error)
}

type Purchases interface {
	QuotePurchase(ctx context.Context, userID string, service models.Service, amount decimal.Decimal) (*orchestrator.PurchaseQuote, error)
	Purchase(ctx context.Context, req orchestrator.PurchaseRequest) (*orchestrator.PurchaseResult, error)
}

type Accounts interface {
	IssueVirtualAccount(ctx context.Context, identity providers.Identity) (*models.VirtualAccount, error)
}

type Wallets interface {
	GetWallet(ctx context.Context, userID string) (*models.Wallet, error)
	CreateWallet(ctx context.Context, userID string) (*models.Wallet, error)
	ReplayBalance(ctx context.Context, userID string) (*wallet.Reconciliation, error)
	SetActive(ctx context.Context, userID string, active bool) (*models.Wallet, error)
}

type Revenue interface {
	UncollectedRevenue(ctx context.Context) (*revenue.Uncollected, error)
	Collect(ctx context.Context, amount *decimal.Decimal) (*revenue.Collection, error)
	Summary(ctx context.Context) (*revenue.Summary, error)
	CollectionHistory(ctx context.Context, limit int) ([]models.Transaction, error)
}

type Loyalty interface {
	LoyaltyAnalytics(ctx context.Context, from, to time.Time) (*analytics.LoyaltyReport, error)
}

type Webhooks interface {
	Ingest(ctx context.Context, provider, signature string, body []byte) (*webhook.IngestResult, error)
}

type Replayer interface {
	ReplayPending(ctx context.Context) (int, error)
}

// fail answers with err and logs what the caller will not see.
func fail(c *fiber.Ctx, logger *zap.Logger, err error) error {
	if status := statusOf(err); status >= fiber.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Error(err))
	}
	return response.FromError(c, err)
}

func statusOf(err error) int {
	if de, ok := apperrors.As(err); ok {
		return de.HTTPStatus()
	}
	return fiber.StatusInternalServerError
}

func parseAmount(raw string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
