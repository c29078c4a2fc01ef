package revenue

import (
	"context"
	"time"

	"kudi/internal/models"
	"kudi/internal/repositories"
	"kudi/internal/services/orchestrator"

	"github.com/shopspring/decimal"
)

// Transferer pays out to a bank account. The orchestrator's CompleteTransfer
// satisfies it.
type Transferer interface {
	CompleteTransfer(ctx context.Context, in orchestrator.TransferInstruction) (*orchestrator.TransferOutcome, error)
}

type TransactionLedger interface {
	Now() time.Time
	NewReference(prefix string) string
	Record(ctx context.Context, store repositories.Store, tx *models.Transaction) error
	Complete(ctx context.Context, store repositories.Store, reference, providerRef string) error
	Fail(ctx context.Context, store repositories.Store, reference, reason string) error
}

// Settlement is the operator-owned account revenue is swept to.
type Settlement struct {
	AccountNumber string
	BankCode      string
	AccountName   string
	// MinimumAmount is the smallest sweep worth a transfer.
	MinimumAmount decimal.Decimal
}

type Uncollected struct {
	TotalAmount  decimal.Decimal      `json:"totalAmount"`
	Count        int                  `json:"count"`
	Transactions []models.Transaction `json:"transactions"`
}

type Collection struct {
	Reference         string                   `json:"reference"`
	CollectedAmount   decimal.Decimal          `json:"collectedAmount"`
	ProviderReference string                   `json:"providerRef"`
	TransferStatus    models.TransactionStatus `json:"transferStatus"`
	SweptCount        int                      `json:"sweptCount"`
	Remaining         decimal.Decimal          `json:"remaining"`
}

type Summary struct {
	TotalGenerated         decimal.Decimal `json:"totalGenerated"`
	TotalCollected         decimal.Decimal `json:"totalCollected"`
	Uncollected            decimal.Decimal `json:"uncollected"`
	UncollectedCount       int             `json:"uncollectedCount"`
	AvailableForCollection decimal.Decimal `json:"availableForCollection"`
	MinimumCollection      decimal.Decimal `json:"minimumCollection"`
	CollectionCount        int             `json:"collectionCount"`
	LastCollectedAt        *time.Time      `json:"lastCollectedAt,omitempty"`
}
