package repositories

import (
	"context"
	"errors"
	"fmt"

	"kudi/internal/models"

	"gorm.io/gorm"
)

var (
	ErrVirtualAccountNotFound  = errors.New("virtual account not found")
	ErrDuplicateVirtualAccount = errors.New("virtual account already exists")
)

type VirtualAccountRepository interface {
	Create(ctx context.Context, account *models.VirtualAccount) error
	GetByUserID(ctx context.Context, userID string) (*models.VirtualAccount, error)
	GetByAccountNumber(ctx context.Context, accountNumber string) (*models.VirtualAccount, error)
}

type virtualAccountRepository struct {
	db *gorm.DB
}

func NewVirtualAccountRepository(db *gorm.DB) VirtualAccountRepository {
	return &virtualAccountRepository{db: db}
}

func (r *virtualAccountRepository) Create(ctx context.Context, account *models.VirtualAccount) error {
	if err := r.db.WithContext(ctx).Create(account).Error; err != nil {
		if _, ok := uniqueConstraint(err); ok {
			return ErrDuplicateVirtualAccount
		}
		return fmt.Errorf("failed to create virtual account: %w", err)
	}
	return nil
}

func (r *virtualAccountRepository) GetByUserID(ctx context.Context, userID string) (*models.VirtualAccount, error) {
	var account models.VirtualAccount
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&account).Error; err != nil {
		return nil, notFound(err, ErrVirtualAccountNotFound, "virtual account")
	}
	return &account, nil
}

func (r *virtualAccountRepository) GetByAccountNumber(ctx context.Context, accountNumber string) (*models.VirtualAccount, error) {
	var account models.VirtualAccount
	if err := r.db.WithContext(ctx).Where("account_number = ?", accountNumber).First(&account).Error; err != nil {
		return nil, notFound(err, ErrVirtualAccountNotFound, "virtual account")
	}
	return &account, nil
}
