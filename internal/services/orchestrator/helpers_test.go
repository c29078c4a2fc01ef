package orchestrator

import (
	"context"
	"testing"
	"time"

	"kudi/internal/lock"
	"kudi/internal/models"
	"kudi/internal/providers"
	"kudi/internal/providers/providertest"
	"kudi/internal/repositories/memory"
	"kudi/internal/services/counter"
	"kudi/internal/services/ledger"
	"kudi/internal/services/pricing"
	"kudi/internal/services/wallet"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type harness struct {
	store        *memory.Store
	verification *providertest.Verification
	disbursement *providertest.Disbursement
	svc          *Service
	now          time.Time
}

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func testPricing() pricing.Config {
	return pricing.Config{
		TierThreshold: d(10000),
		Tier1Fee:      d(50),
		Tier2Fee:      d(100),
		Transfer:      pricing.Bounds{Min: d(100), Max: d(1000000)},
		Airtime:       pricing.Bounds{Min: d(50), Max: d(50000)},
		Data:          pricing.Bounds{Min: d(50), Max: d(100000)},
		Bill:          pricing.Bounds{Min: d(100), Max: d(500000)},
	}
}

func newHarness(t *testing.T, pc pricing.Config) *harness {
	t.Helper()
	h := &harness{
		verification: new(providertest.Verification),
		disbursement: new(providertest.Disbursement),
		now:          time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return h.now }

	store := memory.NewStore().WithClock(clock)
	h.store = store
	h.svc = NewService(Dependencies{
		Store:        store,
		Wallets:      wallet.NewService(store, nil, lock.NewLocal(), wallet.Config{}, nil, nil),
		Ledger:       ledger.NewService(ledger.NewULIDGenerator(), nil, nil).WithClock(clock),
		Pricing:      pricing.NewEngine(pc),
		Counter:      counter.NewReader(time.UTC).WithClock(clock),
		Verification: h.verification,
		Disbursement: h.disbursement,
	}, Config{
		ProviderTimeout: time.Second,
		Retry:           providers.RetryPolicy{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxElapsed: time.Second},
	})
	return h
}

func (h *harness) balance(t *testing.T, userID string) decimal.Decimal {
	t.Helper()
	w, err := h.store.Wallets().GetByUserID(context.Background(), userID)
	require.NoError(t, err)
	return w.Balance
}

func (h *harness) records(kind models.TransactionKind, typ models.TransactionType) []models.Transaction {
	var out []models.Transaction
	for _, tx := range h.store.All() {
		if tx.Kind == kind && tx.Type == typ {
			out = append(out, tx)
		}
	}
	return out
}

func rejected(message string) error {
	return &providers.ProviderError{Provider: "mock", Op: "call", Message: message}
}

func unavailable() error {
	return &providers.ProviderError{Provider: "mock", Op: "call", Message: "provider unavailable", StatusCode: 503, Transient: true}
}

func unreadable() error {
	return &providers.ProviderError{Provider: "mock", Op: "call", Message: "unreadable provider response", StatusCode: 200, Accepted: true}
}
