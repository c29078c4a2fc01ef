package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kudi/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrWebhookEventNotFound = errors.New("webhook event not found")

type WebhookEventRepository interface {
	// Save inserts the event unless one with the same EventKey exists. It
	// returns the stored row and whether it was newly inserted.
	Save(ctx context.Context, event *models.WebhookEvent) (*models.WebhookEvent, bool, error)
	GetByID(ctx context.Context, id string) (*models.WebhookEvent, error)

	// ListPending returns received or failed events with fewer than
	// maxAttempts attempts, oldest first.
	ListPending(ctx context.Context, maxAttempts, limit int) ([]models.WebhookEvent, error)
	MarkOutcome(ctx context.Context, id string, status models.WebhookStatus, lastErr string, at time.Time) error
}

type webhookEventRepository struct {
	db *gorm.DB
}

func NewWebhookEventRepository(db *gorm.DB) WebhookEventRepository {
	return &webhookEventRepository{db: db}
}

func (r *webhookEventRepository) Save(ctx context.Context, event *models.WebhookEvent) (*models.WebhookEvent, bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "event_key"}}, DoNothing: true}).
		Create(event)
	if result.Error != nil {
		return nil, false, fmt.Errorf("failed to save webhook event: %w", result.Error)
	}
	if result.RowsAffected == 1 {
		return event, true, nil
	}

	var existing models.WebhookEvent
	if err := r.db.WithContext(ctx).Where("event_key = ?", event.EventKey).First(&existing).Error; err != nil {
		return nil, false, notFound(err, ErrWebhookEventNotFound, "webhook event")
	}
	return &existing, false, nil
}

func (r *webhookEventRepository) GetByID(ctx context.Context, id string) (*models.WebhookEvent, error) {
	var event models.WebhookEvent
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&event).Error; err != nil {
		return nil, notFound(err, ErrWebhookEventNotFound, "webhook event")
	}
	return &event, nil
}

func (r *webhookEventRepository) ListPending(ctx context.Context, maxAttempts, limit int) ([]models.WebhookEvent, error) {
	var events []models.WebhookEvent
	err := r.db.WithContext(ctx).
		Where("status IN ? AND attempts < ?", []models.WebhookStatus{models.WebhookReceived, models.WebhookFailed}, maxAttempts).
		Order("created_at ASC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list pending webhook events: %w", err)
	}
	return events, nil
}

func (r *webhookEventRepository) MarkOutcome(ctx context.Context, id string, status models.WebhookStatus, lastErr string, at time.Time) error {
	updates := map[string]interface{}{
		"status":     status,
		"attempts":   gorm.Expr("attempts + 1"),
		"last_error": lastErr,
		"updated_at": at,
	}
	if status == models.WebhookProcessed || status == models.WebhookMismatch {
		updates["processed_at"] = at
	}
	result := r.db.WithContext(ctx).Model(&models.WebhookEvent{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update webhook event: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrWebhookEventNotFound
	}
	return nil
}
