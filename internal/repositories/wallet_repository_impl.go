package repositories

import (
	"context"
	"fmt"

	"kudi/internal/models"

	"gorm.io/gorm"
)

type walletRepository struct {
	db *gorm.DB
}

func NewWalletRepository(db *gorm.DB) WalletRepository {
	return &walletRepository{
		db: db,
	}
}

func (r *walletRepository) Create(ctx context.Context, wallet *models.Wallet) error {
	if err := r.db.WithContext(ctx).Create(wallet).Error; err != nil {
		if _, ok := uniqueConstraint(err); ok {
			return ErrDuplicateWallet
		}
		return fmt.Errorf("failed to create wallet: %w", err)
	}
	return nil
}

func (r *walletRepository) GetByUserID(ctx context.Context, userID string) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&wallet).Error; err != nil {
		return nil, notFound(err, ErrWalletNotFound, "wallet")
	}
	return &wallet, nil
}

func (r *walletRepository) Apply(ctx context.Context, userID string, m WalletMutation) (*models.Wallet, error) {
	db := r.db.WithContext(ctx)

	query := db.Model(&models.Wallet{}).
		Where("user_id = ?", userID).
		Where("balance + ? >= 0", m.Balance)
	if m.Balance.IsNegative() {
		query = query.Where("is_active = ?", true)
	}

	result := query.Updates(map[string]interface{}{
		"balance":             gorm.Expr("balance + ?", m.Balance),
		"total_deposits":      gorm.Expr("total_deposits + ?", m.Deposits),
		"total_withdrawals":   gorm.Expr("total_withdrawals + ?", m.Withdrawals),
		"last_transaction_at": m.At,
		"updated_at":          m.At,
	})
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update wallet: %w", result.Error)
	}

	wallet, err := r.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if result.RowsAffected == 0 {
		if !wallet.IsActive && m.Balance.IsNegative() {
			return nil, ErrWalletInactive
		}
		return nil, ErrInsufficientBalance
	}
	return wallet, nil
}

func (r *walletRepository) SetActive(ctx context.Context, userID string, active bool) error {
	result := r.db.WithContext(ctx).Model(&models.Wallet{}).
		Where("user_id = ?", userID).
		Update("is_active", active)
	if result.Error != nil {
		return fmt.Errorf("failed to update wallet status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrWalletNotFound
	}
	return nil
}
