package handlers

import (
	"context"
	"time"

	"kudi/internal/models"
	"kudi/internal/providers"
	"kudi/internal/services/analytics"
	"kudi/internal/services/orchestrator"
	"kudi/internal/services/pricing"
	"kudi/internal/services/revenue"
	"kudi/internal/services/wallet"
	"kudi/internal/services/webhook"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type MockEngine struct {
	mock.Mock
}

func (m *MockEngine) QuoteTransfer(amount decimal.Decimal) (pricing.TransferQuote, error) {
	args := m.Called(amount)
	return args.Get(0).(pricing.TransferQuote), args.Error(1)
}

func (m *MockEngine) Transfer(ctx context.Context, req orchestrator.TransferRequest) (*orchestrator.TransferResult, error) {
	args := m.Called(ctx, req)
	if r := args.Get(0); r != nil {
		return r.(*orchestrator.TransferResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockEngine) ResolveAccount(ctx context.Context, accountNumber, bankCode string) (*orchestrator.ResolvedAccount, error) {
	args := m.Called(ctx, accountNumber, bankCode)
	if r := args.Get(0); r != nil {
		return r.(*orchestrator.ResolvedAccount), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockEngine) QuotePurchase(ctx context.Context, userID string, service models.Service, amount decimal.Decimal) (*orchestrator.PurchaseQuote, error) {
	args := m.Called(ctx, userID, service, amount)
	if r := args.Get(0); r != nil {
		return r.(*orchestrator.PurchaseQuote), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockEngine) Purchase(ctx context.Context, req orchestrator.PurchaseRequest) (*orchestrator.PurchaseResult, error) {
	args := m.Called(ctx, req)
	if r := args.Get(0); r != nil {
		return r.(*orchestrator.PurchaseResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockEngine) IssueVirtualAccount(ctx context.Context, identity providers.Identity) (*models.VirtualAccount, error) {
	args := m.Called(ctx, identity)
	if r := args.Get(0); r != nil {
		return r.(*models.VirtualAccount), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockWallets struct {
	mock.Mock
}

func (m *MockWallets) GetWallet(ctx context.Context, userID string) (*models.Wallet, error) {
	args := m.Called(ctx, userID)
	if w := args.Get(0); w != nil {
		return w.(*models.Wallet), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockWallets) CreateWallet(ctx context.Context, userID string) (*models.Wallet, error) {
	args := m.Called(ctx, userID)
	if w := args.Get(0); w != nil {
		return w.(*models.Wallet), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockWallets) ReplayBalance(ctx context.Context, userID string) (*wallet.Reconciliation, error) {
	args := m.Called(ctx, userID)
	if r := args.Get(0); r != nil {
		return r.(*wallet.Reconciliation), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockWallets) SetActive(ctx context.Context, userID string, active bool) (*models.Wallet, error) {
	args := m.Called(ctx, userID, active)
	if w := args.Get(0); w != nil {
		return w.(*models.Wallet), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockAdmin struct {
	mock.Mock
}

func (m *MockAdmin) UncollectedRevenue(ctx context.Context) (*revenue.Uncollected, error) {
	args := m.Called(ctx)
	if r := args.Get(0); r != nil {
		return r.(*revenue.Uncollected), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAdmin) Collect(ctx context.Context, amount *decimal.Decimal) (*revenue.Collection, error) {
	args := m.Called(ctx, amount)
	if r := args.Get(0); r != nil {
		return r.(*revenue.Collection), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAdmin) Summary(ctx context.Context) (*revenue.Summary, error) {
	args := m.Called(ctx)
	if r := args.Get(0); r != nil {
		return r.(*revenue.Summary), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAdmin) CollectionHistory(ctx context.Context, limit int) ([]models.Transaction, error) {
	args := m.Called(ctx, limit)
	if r := args.Get(0); r != nil {
		return r.([]models.Transaction), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAdmin) LoyaltyAnalytics(ctx context.Context, from, to time.Time) (*analytics.LoyaltyReport, error) {
	args := m.Called(ctx, from, to)
	if r := args.Get(0); r != nil {
		return r.(*analytics.LoyaltyReport), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAdmin) ReplayPending(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type MockWebhooks struct {
	mock.Mock
}

func (m *MockWebhooks) Ingest(ctx context.Context, provider, signature string, body []byte) (*webhook.IngestResult, error) {
	args := m.Called(ctx, provider, signature, body)
	if r := args.Get(0); r != nil {
		return r.(*webhook.IngestResult), args.Error(1)
	}
	return nil, args.Error(1)
}
