package webhook

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"kudi/internal/models"
	"kudi/internal/repositories"
	"kudi/internal/services/orchestrator"

	"github.com/shopspring/decimal"
)

type WalletLedger interface {
	Credit(ctx context.Context, store repositories.Store, userID string, amount decimal.Decimal) (*models.Wallet, error)
	Refund(ctx context.Context, store repositories.Store, userID string, amount decimal.Decimal) (*models.Wallet, error)
	Invalidate(ctx context.Context, userIDs ...string)
}

type TransactionLedger interface {
	Now() time.Time
	NewReference(prefix string) string
	Record(ctx context.Context, store repositories.Store, tx *models.Transaction) error
	ReverseFee(ctx context.Context, store repositories.Store, source *models.Transaction) (*models.Transaction, error)
	Complete(ctx context.Context, store repositories.Store, reference, providerRef string) error
	Fail(ctx context.Context, store repositories.Store, reference, reason string) error
}

// CashbackApplier credits loyalty cashback once a pending purchase settles.
type CashbackApplier interface {
	ApplyCashback(ctx context.Context, source *models.Transaction) (*orchestrator.CashbackResult, error)
}

// CollectionSettler finalizes a revenue payout that was accepted as pending.
type CollectionSettler interface {
	SettleCollection(ctx context.Context, reference, providerRef string, succeeded bool, reason string) error
}

// Provider names used in webhook routes and as Secrets keys.
const (
	ProviderVerification = "verification"
	ProviderDisbursement = "disbursement"
)

type Config struct {
	// Secrets maps provider name to its signing secret. Providers without a
	// secret are accepted unsigned.
	Secrets map[string]string
	// Schemes overrides DefaultSchemes per provider. Unknown providers are
	// checked as HMAC-SHA512.
	Schemes     map[string]SignatureScheme
	MaxAttempts int
	Currency    string
}

// Envelope is the inbound notification shape shared by both providers.
type Envelope struct {
	EventType string          `json:"eventType"`
	EventData json.RawMessage `json:"eventData"`
}

type DepositData struct {
	AccountNumber string          `json:"accountNumber"`
	Amount        decimal.Decimal `json:"amount"`
	Reference     string          `json:"reference"`
	Currency      string          `json:"currency"`
	SenderName    string          `json:"senderName"`
	Narration     string          `json:"narration"`
}

type TransferData struct {
	Reference         string          `json:"reference"`
	ProviderReference string          `json:"providerReference"`
	Status            string          `json:"status"`
	Amount            decimal.Decimal `json:"amount"`
	Message           string          `json:"message"`
}

type settlement string

const (
	settlementSuccessful settlement = "successful"
	settlementFailed     settlement = "failed"
	settlementPending    settlement = "pending"
)

func (d TransferData) outcome() settlement {
	switch strings.ToLower(strings.TrimSpace(d.Status)) {
	case "successful", "success", "completed":
		return settlementSuccessful
	case "failed", "reversed", "cancelled":
		return settlementFailed
	default:
		return settlementPending
	}
}

// IngestResult is what the HTTP layer acknowledges with.
type IngestResult struct {
	EventID   string               `json:"eventId,omitempty"`
	EventType string               `json:"eventType"`
	Status    models.WebhookStatus `json:"status"`
	Duplicate bool                 `json:"duplicate"`
}
