package wallet

import (
	"context"
	"sync"
	"testing"

	apperrors "kudi/internal/errors"
	"kudi/internal/lock"
	"kudi/internal/models"
	"kudi/internal/repositories"
	"kudi/internal/repositories/memory"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCache struct {
	mock.Mock
}

func (m *MockCache) GetWallet(ctx context.Context, userID string) (*models.Wallet, error) {
	args := m.Called(ctx, userID)
	if w := args.Get(0); w != nil {
		return w.(*models.Wallet), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCache) CacheWallet(ctx context.Context, wallet *models.Wallet) error {
	return m.Called(ctx, wallet).Error(0)
}

func (m *MockCache) InvalidateWallet(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func newTestService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	return NewService(store, nil, lock.NewLocal(), Config{}, nil, nil), store
}

func TestReserve(t *testing.T) {
	tests := []struct {
		name     string
		balance  int64
		inactive bool
		total    decimal.Decimal
		wantErr  error
		errMsg   string
	}{
		{name: "covers total", balance: 5000, total: d(2050)},
		{name: "exact balance", balance: 2050, total: d(2050)},
		{name: "short by one", balance: 2049, total: d(2050), wantErr: apperrors.ErrInsufficientBalance, errMsg: "2050.00 required"},
		{name: "inactive wallet", balance: 5000, inactive: true, total: d(100), wantErr: apperrors.ErrWalletInactive},
		{name: "zero total", balance: 5000, total: decimal.Zero, wantErr: ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newTestService(t)
			store.SeedWallet("u1", d(tt.balance))
			if tt.inactive {
				require.NoError(t, store.Wallets().SetActive(context.Background(), "u1", false))
			}

			err := svc.Reserve(context.Background(), store, "u1", tt.total)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			if tt.errMsg != "" {
				assert.Contains(t, err.Error(), tt.errMsg)
			}
		})
	}
}

func TestReserveUnknownWallet(t *testing.T) {
	svc, store := newTestService(t)
	err := svc.Reserve(context.Background(), store, "ghost", d(10))
	assert.ErrorIs(t, err, apperrors.ErrWalletNotFound)
}

func TestDebitAndCreditCounters(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	store.SeedWallet("u1", d(1000))

	w, err := svc.Debit(ctx, store, "u1", d(300))
	require.NoError(t, err)
	assert.True(t, d(700).Equal(w.Balance))
	assert.True(t, d(300).Equal(w.TotalWithdrawals))
	require.NotNil(t, w.LastTransactionAt)

	w, err = svc.Credit(ctx, store, "u1", d(50))
	require.NoError(t, err)
	assert.True(t, d(750).Equal(w.Balance))
	assert.True(t, d(1050).Equal(w.TotalDeposits))

	w, err = svc.Refund(ctx, store, "u1", d(300))
	require.NoError(t, err)
	assert.True(t, d(1050).Equal(w.Balance))
	assert.True(t, w.TotalWithdrawals.IsZero())
}

func TestDebitNeverGoesNegative(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	store.SeedWallet("u1", d(1000))

	_, err := svc.Debit(ctx, store, "u1", d(1001))
	assert.ErrorIs(t, err, apperrors.ErrInsufficientBalance)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Debit(ctx, store, "u1", d(100)); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, succeeded)
	w, err := store.Wallets().GetByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, w.Balance.IsZero())
}

func TestDebitInsideRolledBackTransaction(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	store.SeedWallet("u1", d(1000))

	err := store.ExecuteInTransaction(ctx, func(tx repositories.Store) error {
		if _, err := svc.Debit(ctx, tx, "u1", d(400)); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	w, err := store.Wallets().GetByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, d(1000).Equal(w.Balance), "rollback restores the balance")
}

func TestCreateWalletIsIdempotent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.CreateWallet(ctx, "u1")
	require.NoError(t, err)
	second, err := svc.CreateWallet(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	_, err = svc.CreateWallet(ctx, models.SystemUserID)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestGetWalletUsesCache(t *testing.T) {
	store := memory.NewStore()
	store.SeedWallet("u1", d(10))
	cache := new(MockCache)
	svc := NewService(store, cache, lock.NewLocal(), Config{}, nil, nil)
	ctx := context.Background()

	cache.On("GetWallet", ctx, "u1").Return(nil, nil).Once()
	cache.On("CacheWallet", ctx, mock.AnythingOfType("*models.Wallet")).Return(nil).Once()

	w, err := svc.GetWallet(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, d(10).Equal(w.Balance))

	cached := &models.Wallet{UserID: "u1", Balance: d(99)}
	cache.On("GetWallet", ctx, "u1").Return(cached, nil).Once()
	w, err = svc.GetWallet(ctx, "u1")
	require.NoError(t, err)
	assert.Same(t, cached, w)

	cache.On("InvalidateWallet", ctx, "u1").Return(nil).Once()
	svc.Invalidate(ctx, "u1")

	cache.AssertExpectations(t)
}

func TestReplayBalance(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	_, err := svc.CreateWallet(ctx, "u1")
	require.NoError(t, err)

	record := func(tx *models.Transaction) {
		require.NoError(t, store.Transactions().Create(ctx, tx))
	}

	record(&models.Transaction{Reference: "DEP-1", UserID: "u1", Type: models.TransactionTypeDeposit, Amount: d(5000), Status: models.StatusCompleted})
	_, err = svc.Credit(ctx, store, "u1", d(5000))
	require.NoError(t, err)

	record(&models.Transaction{
		Reference: "TRF-1", UserID: "u1", Type: models.TransactionTypeWithdrawal, Service: models.ServiceTransfer,
		Amount: d(2000), Fee: d(50), Status: models.StatusCompleted,
		Metadata: models.TransactionMetadata{AccountNumber: "0123456789", BankCode: "058"},
	})
	_, err = svc.Debit(ctx, store, "u1", d(2050))
	require.NoError(t, err)

	// failed and refunded, so neither side counts
	record(&models.Transaction{
		Reference: "TRF-2", UserID: "u1", Type: models.TransactionTypeWithdrawal, Service: models.ServiceTransfer,
		Amount: d(100), Fee: d(50), Status: models.StatusFailed,
		Metadata: models.TransactionMetadata{AccountNumber: "0123456789", BankCode: "058"},
	})

	rec, err := svc.ReplayBalance(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, rec.Balanced)
	assert.True(t, d(2950).Equal(rec.LedgerBalance))
	assert.Equal(t, 2, rec.Entries)

	_, err = svc.Credit(ctx, store, "u1", d(1))
	require.NoError(t, err)
	rec, err = svc.ReplayBalance(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, rec.Balanced)
	assert.True(t, d(1).Equal(rec.Drift))
}

func TestSetActive(t *testing.T) {
	tests := []struct {
		name    string
		userID  string
		active  bool
		wantErr error
	}{
		{name: "freeze", userID: "u1", active: false},
		{name: "reopen", userID: "u1", active: true},
		{name: "unknown wallet", userID: "ghost", active: false, wantErr: apperrors.ErrWalletNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewStore()
			store.SeedWallet("u1", d(500))
			cache := new(MockCache)
			svc := NewService(store, cache, lock.NewLocal(), Config{}, nil, nil)
			ctx := context.Background()
			if tt.wantErr == nil {
				cache.On("InvalidateWallet", mock.Anything, tt.userID).Return(nil).Once()
			}

			w, err := svc.SetActive(ctx, tt.userID, tt.active)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				cache.AssertNotCalled(t, "InvalidateWallet", mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.active, w.IsActive)

			err = svc.Reserve(ctx, store, tt.userID, d(100))
			if tt.active {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, apperrors.ErrWalletInactive)
			}
			cache.AssertExpectations(t)
		})
	}
}
