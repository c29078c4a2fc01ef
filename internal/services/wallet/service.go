package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "kudi/internal/errors"
	"kudi/internal/lock"
	"kudi/internal/logging"
	"kudi/internal/metrics"
	"kudi/internal/models"
	"kudi/internal/repositories"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Service struct {
	store   repositories.Store
	cache   Cache
	locker  lock.Locker
	config  Config
	metrics metrics.Collector
	logger  *zap.Logger
	now     func() time.Time
}

// NewService creates a new wallet service
func NewService(
	store repositories.Store,
	cache Cache,
	locker lock.Locker,
	config Config,
	m metrics.Collector,
	logger *zap.Logger,
) *Service {
	if store == nil {
		panic("store is required")
	}
	if locker == nil {
		panic("locker is required")
	}
	if cache == nil {
		cache = noopCache{}
	}
	if config.LockTimeout == 0 {
		config.LockTimeout = DefaultLockTimeout
	}
	if m == nil {
		m = metrics.NoopCollector{}
	}

	return &Service{
		store:   store,
		cache:   cache,
		locker:  locker,
		config:  config,
		metrics: m,
		logger:  logging.OrNop(logger),
		now:     time.Now,
	}
}

// Lock serializes balance-changing flows of one user across replicas. The
// returned func must be called once the flow has committed or given up.
func (s *Service) Lock(ctx context.Context, userID string) (func(), error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.LockTimeout)
	defer cancel()

	start := time.Now()
	unlock, err := s.locker.Lock(ctx, lock.UserKey(userID))
	s.metrics.RecordLockWait(time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("failed to lock wallet of %s: %w", userID, err)
	}
	return unlock, nil
}

// Reserve checks that the wallet can cover total. It does not hold funds; the
// caller keeps the user lock until the matching Debit.
func (s *Service) Reserve(ctx context.Context, store repositories.Store, userID string, total decimal.Decimal) error {
	if !total.IsPositive() {
		return ErrInvalidAmount
	}
	w, err := store.Wallets().GetByUserID(ctx, userID)
	if err != nil {
		return domainError(err)
	}
	if !w.IsActive {
		return apperrors.ErrWalletInactive
	}
	if w.Balance.LessThan(total) {
		return insufficient(total, w.Balance)
	}
	return nil
}

// Debit subtracts amount and counts it as a withdrawal.
func (s *Service) Debit(ctx context.Context, store repositories.Store, userID string, amount decimal.Decimal) (*models.Wallet, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	w, err := store.Wallets().Apply(ctx, userID, repositories.WalletMutation{
		Balance:     amount.Neg(),
		Withdrawals: amount,
		At:          s.now(),
	})
	if err != nil {
		if errors.Is(err, repositories.ErrInsufficientBalance) {
			current, getErr := store.Wallets().GetByUserID(ctx, userID)
			if getErr == nil {
				return nil, insufficient(amount, current.Balance)
			}
		}
		return nil, domainError(err)
	}
	return w, nil
}

// Credit adds amount and counts it as a deposit. Deposits and cashback both
// land here.
func (s *Service) Credit(ctx context.Context, store repositories.Store, userID string, amount decimal.Decimal) (*models.Wallet, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	w, err := store.Wallets().Apply(ctx, userID, repositories.WalletMutation{
		Balance:  amount,
		Deposits: amount,
		At:       s.now(),
	})
	if err != nil {
		return nil, domainError(err)
	}
	return w, nil
}

// Refund returns a debit whose transaction failed after it was applied. It
// undoes the withdrawal counter instead of inflating deposits.
func (s *Service) Refund(ctx context.Context, store repositories.Store, userID string, amount decimal.Decimal) (*models.Wallet, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	w, err := store.Wallets().Apply(ctx, userID, repositories.WalletMutation{
		Balance:     amount,
		Withdrawals: amount.Neg(),
		At:          s.now(),
	})
	if err != nil {
		return nil, domainError(err)
	}
	return w, nil
}

// Invalidate drops cached snapshots once a mutation has committed.
func (s *Service) Invalidate(ctx context.Context, userIDs ...string) {
	for _, id := range userIDs {
		if err := s.cache.InvalidateWallet(ctx, id); err != nil {
			s.logger.Warn("failed to invalidate wallet cache", zap.String("user_id", id), zap.Error(err))
		}
	}
}

func (s *Service) GetWallet(ctx context.Context, userID string) (*models.Wallet, error) {
	if cached, err := s.cache.GetWallet(ctx, userID); err == nil && cached != nil {
		return cached, nil
	}

	w, err := s.store.Wallets().GetByUserID(ctx, userID)
	if err != nil {
		return nil, domainError(err)
	}
	if err := s.cache.CacheWallet(ctx, w); err != nil {
		s.logger.Warn("failed to cache wallet", zap.String("user_id", userID), zap.Error(err))
	}
	return w, nil
}

// CreateWallet returns the existing wallet when one is already there.
func (s *Service) CreateWallet(ctx context.Context, userID string) (*models.Wallet, error) {
	if userID == "" || userID == models.SystemUserID {
		return nil, apperrors.ErrValidation.WithMessage("invalid wallet owner")
	}
	w := &models.Wallet{UserID: userID, Currency: DefaultCurrency, IsActive: true}
	err := s.store.Wallets().Create(ctx, w)
	if errors.Is(err, repositories.ErrDuplicateWallet) {
		return s.store.Wallets().GetByUserID(ctx, userID)
	}
	if err != nil {
		return nil, err
	}
	s.logger.Info("wallet created", zap.String("user_id", userID))
	return w, nil
}

// SetActive freezes or reopens a wallet. A frozen wallet cannot be debited
// but still receives deposits.
func (s *Service) SetActive(ctx context.Context, userID string, active bool) (*models.Wallet, error) {
	unlock, err := s.Lock(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := s.store.Wallets().SetActive(ctx, userID, active); err != nil {
		return nil, domainError(err)
	}
	s.Invalidate(ctx, userID)

	w, err := s.store.Wallets().GetByUserID(ctx, userID)
	if err != nil {
		return nil, domainError(err)
	}
	s.logger.Info("wallet status changed", zap.String("user_id", userID), zap.Bool("active", active))
	return w, nil
}

// ReplayBalance rebuilds the balance from the ledger: settled deposits minus
// settled debits including their fees. Failed entries were refunded and do
// not count.
func (s *Service) ReplayBalance(ctx context.Context, userID string) (*Reconciliation, error) {
	w, err := s.store.Wallets().GetByUserID(ctx, userID)
	if err != nil {
		return nil, domainError(err)
	}
	txs, err := s.store.Transactions().List(ctx, repositories.TransactionFilter{
		UserID:   userID,
		Statuses: []models.TransactionStatus{models.StatusPending, models.StatusCompleted},
	})
	if err != nil {
		return nil, err
	}

	rec := &Reconciliation{
		UserID:        userID,
		StoredBalance: w.Balance,
		Deposits:      decimal.Zero,
		Debits:        decimal.Zero,
		Entries:       len(txs),
	}
	for i := range txs {
		tx := &txs[i]
		switch {
		case tx.Type == models.TransactionTypeDeposit:
			rec.Deposits = rec.Deposits.Add(tx.Amount)
		case tx.Type.Debits():
			rec.Debits = rec.Debits.Add(tx.Total())
		}
	}
	rec.LedgerBalance = rec.Deposits.Sub(rec.Debits)
	rec.Drift = rec.StoredBalance.Sub(rec.LedgerBalance)
	rec.Balanced = rec.Drift.IsZero()

	if !rec.Balanced {
		s.logger.Error("wallet balance drift",
			logging.Alert("balance_drift"),
			zap.String("user_id", userID),
			zap.String("stored", rec.StoredBalance.String()),
			zap.String("ledger", rec.LedgerBalance.String()))
	}
	return rec, nil
}
