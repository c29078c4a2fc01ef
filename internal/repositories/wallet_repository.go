package repositories

import (
	"context"
	"errors"
	"time"

	"kudi/internal/models"

	"github.com/shopspring/decimal"
)

var (
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrDuplicateWallet     = errors.New("wallet already exists")
	ErrWalletInactive      = errors.New("wallet is inactive")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// WalletMutation is a signed change applied atomically to one wallet row.
type WalletMutation struct {
	Balance     decimal.Decimal
	Deposits    decimal.Decimal
	Withdrawals decimal.Decimal
	At          time.Time
}

// WalletRepository defines the wallet operations the ledger needs.
type WalletRepository interface {
	Create(ctx context.Context, wallet *models.Wallet) error
	GetByUserID(ctx context.Context, userID string) (*models.Wallet, error)

	// Apply adds m to the wallet in a single conditional update. It fails
	// with ErrInsufficientBalance instead of letting the balance go negative
	// and with ErrWalletInactive when a debit hits a frozen wallet.
	Apply(ctx context.Context, userID string, m WalletMutation) (*models.Wallet, error)

	SetActive(ctx context.Context, userID string, active bool) error
}
