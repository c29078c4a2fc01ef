package repositories

import (
	"context"
	"errors"
	"time"

	"kudi/internal/models"

	"github.com/shopspring/decimal"
)

var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrDuplicateReference  = errors.New("duplicate transaction reference")
	ErrDuplicateDedupeKey  = errors.New("duplicate transaction dedupe key")
	ErrInvalidTransition   = errors.New("illegal transaction status transition")
	ErrAlreadyCollected    = errors.New("revenue records already collected")
)

// TransactionFilter narrows List and Sum. Zero values mean "any".
type TransactionFilter struct {
	UserID    string
	Types     []models.TransactionType
	Kinds     []models.TransactionKind
	Services  []models.Service
	Statuses  []models.TransactionStatus
	Collected *bool
	From      time.Time // inclusive
	To        time.Time // exclusive
	Limit     int
	Newest    bool
}

// StatusChange moves one record along its state machine.
type StatusChange struct {
	From              models.TransactionStatus
	To                models.TransactionStatus
	At                time.Time
	ProviderReference string
	FailureReason     string
}

type TransactionRepository interface {
	// Create inserts a new record, returning ErrDuplicateReference or
	// ErrDuplicateDedupeKey on unique violations.
	Create(ctx context.Context, tx *models.Transaction) error
	GetByReference(ctx context.Context, reference string) (*models.Transaction, error)
	GetByProviderReference(ctx context.Context, providerRef string) (*models.Transaction, error)
	GetByDedupeKey(ctx context.Context, key string) (*models.Transaction, error)

	// TransitionStatus applies change only if the record is still in
	// change.From; otherwise it returns ErrInvalidTransition.
	TransitionStatus(ctx context.Context, reference string, change StatusChange) error

	// CountByService counts pending or completed payments of service for
	// userID created in [from, to).
	CountByService(ctx context.Context, userID string, service models.Service, from, to time.Time) (int64, error)

	List(ctx context.Context, filter TransactionFilter) ([]models.Transaction, error)
	Sum(ctx context.Context, filter TransactionFilter) (decimal.Decimal, error)

	// MarkCollected flips collected on the given uncollected revenue rows.
	// It returns ErrAlreadyCollected when any of them was collected meanwhile.
	MarkCollected(ctx context.Context, ids []uint, at time.Time) error
}
