package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"kudi/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type transactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) Create(ctx context.Context, tx *models.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(tx).Error; err != nil {
		if constraint, ok := uniqueConstraint(err); ok {
			if strings.Contains(constraint, "dedupe_key") {
				return ErrDuplicateDedupeKey
			}
			return ErrDuplicateReference
		}
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (r *transactionRepository) GetByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	return r.first(ctx, "reference = ?", reference)
}

func (r *transactionRepository) GetByProviderReference(ctx context.Context, providerRef string) (*models.Transaction, error) {
	return r.first(ctx, "provider_reference = ?", providerRef)
}

func (r *transactionRepository) GetByDedupeKey(ctx context.Context, key string) (*models.Transaction, error) {
	return r.first(ctx, "dedupe_key = ?", key)
}

func (r *transactionRepository) first(ctx context.Context, query string, arg interface{}) (*models.Transaction, error) {
	var tx models.Transaction
	if err := r.db.WithContext(ctx).Where(query, arg).First(&tx).Error; err != nil {
		return nil, notFound(err, ErrTransactionNotFound, "transaction")
	}
	return &tx, nil
}

func (r *transactionRepository) TransitionStatus(ctx context.Context, reference string, change StatusChange) error {
	if !change.From.CanTransitionTo(change.To) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, change.From, change.To)
	}

	updates := map[string]interface{}{
		"status":     change.To,
		"updated_at": change.At,
	}
	if change.To == models.StatusCompleted {
		updates["completed_at"] = change.At
	}
	if change.ProviderReference != "" {
		updates["provider_reference"] = change.ProviderReference
	}
	if change.FailureReason != "" {
		updates["metadata"] = gorm.Expr("jsonb_set(metadata, '{failureReason}', to_jsonb(?::text))", change.FailureReason)
	}

	result := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("reference = ? AND status = ?", reference, change.From).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update transaction status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s is not %s", ErrInvalidTransition, reference, change.From)
	}
	return nil
}

func (r *transactionRepository) CountByService(ctx context.Context, userID string, service models.Service, from, to time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("user_id = ? AND service = ? AND type = ?", userID, service, models.TransactionTypePayment).
		Where("status IN ?", []models.TransactionStatus{models.StatusPending, models.StatusCompleted}).
		Where("created_at >= ? AND created_at < ?", from, to).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count purchases: %w", err)
	}
	return count, nil
}

func (r *transactionRepository) List(ctx context.Context, filter TransactionFilter) ([]models.Transaction, error) {
	var txs []models.Transaction
	query := applyFilter(r.db.WithContext(ctx).Model(&models.Transaction{}), filter)
	if filter.Newest {
		query = query.Order("created_at DESC, id DESC")
	} else {
		query = query.Order("created_at ASC, id ASC")
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if err := query.Find(&txs).Error; err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txs, nil
}

func (r *transactionRepository) Sum(ctx context.Context, filter TransactionFilter) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := applyFilter(r.db.WithContext(ctx).Model(&models.Transaction{}), filter).
		Select("SUM(amount)").
		Row().
		Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum transactions: %w", err)
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}

func (r *transactionRepository) MarkCollected(ctx context.Context, ids []uint, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	result := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("id IN ? AND type = ? AND collected = ?", ids, models.TransactionTypeRevenue, false).
		Updates(map[string]interface{}{
			"collected":    true,
			"collected_at": at,
			"updated_at":   at,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to mark revenue collected: %w", result.Error)
	}
	if result.RowsAffected != int64(len(ids)) {
		return fmt.Errorf("%w: marked %d of %d", ErrAlreadyCollected, result.RowsAffected, len(ids))
	}
	return nil
}

func applyFilter(query *gorm.DB, f TransactionFilter) *gorm.DB {
	if f.UserID != "" {
		query = query.Where("user_id = ?", f.UserID)
	}
	if len(f.Types) > 0 {
		query = query.Where("type IN ?", f.Types)
	}
	if len(f.Kinds) > 0 {
		query = query.Where("kind IN ?", f.Kinds)
	}
	if len(f.Services) > 0 {
		query = query.Where("service IN ?", f.Services)
	}
	if len(f.Statuses) > 0 {
		query = query.Where("status IN ?", f.Statuses)
	}
	if f.Collected != nil {
		query = query.Where("collected = ?", *f.Collected)
	}
	if !f.From.IsZero() {
		query = query.Where("created_at >= ?", f.From)
	}
	if !f.To.IsZero() {
		query = query.Where("created_at < ?", f.To)
	}
	return query
}
