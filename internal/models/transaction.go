package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SystemUserID is the reserved owner of revenue records.
const SystemUserID = "system"

type TransactionType string

const (
	TransactionTypeDeposit    TransactionType = "deposit"
	TransactionTypeWithdrawal TransactionType = "withdrawal"
	TransactionTypeTransfer   TransactionType = "transfer"
	TransactionTypePayment    TransactionType = "payment"
	TransactionTypeRevenue    TransactionType = "revenue"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeDeposit, TransactionTypeWithdrawal, TransactionTypeTransfer,
		TransactionTypePayment, TransactionTypeRevenue:
		return true
	}
	return false
}

// Debits reports whether a completed record of this type left the owner's wallet.
func (t TransactionType) Debits() bool {
	return t == TransactionTypeWithdrawal || t == TransactionTypeTransfer || t == TransactionTypePayment
}

// TransactionKind refines a type; stored as metadata.type.
type TransactionKind string

const (
	KindNone              TransactionKind = ""
	KindCashback          TransactionKind = "cashback"
	KindFee               TransactionKind = "fee"
	KindRevenueCollection TransactionKind = "revenue_collection"
	KindRevenueReversal   TransactionKind = "revenue_reversal"
)

type Service string

const (
	ServiceTransfer Service = "transfer"
	ServiceAirtime  Service = "airtime"
	ServiceData     Service = "data"
	ServiceBill     Service = "bill"
)

// Loyalty reports whether purchases of this service count toward cashback.
func (s Service) Loyalty() bool {
	return s == ServiceAirtime || s == ServiceData
}

func (s Service) Valid() bool {
	switch s {
	case ServiceTransfer, ServiceAirtime, ServiceData, ServiceBill:
		return true
	}
	return false
}

// Transaction is one ledger entry. Only Status, CompletedAt, Collected and
// CollectedAt change after insert.
type Transaction struct {
	ID                uint                `gorm:"primarykey" json:"id"`
	Reference         string              `gorm:"uniqueIndex;size:64;not null" json:"reference"`
	UserID            string              `gorm:"index:idx_tx_user_service_created,priority:1;size:64;not null" json:"userId"`
	Type              TransactionType     `gorm:"index;size:20;not null" json:"type"`
	Kind              TransactionKind     `gorm:"index;size:32" json:"kind,omitempty"`
	Service           Service             `gorm:"index:idx_tx_user_service_created,priority:2;size:20" json:"service,omitempty"`
	Amount            decimal.Decimal     `gorm:"type:numeric(20,2);not null" json:"amount"`
	Fee               decimal.Decimal     `gorm:"type:numeric(20,2);not null;default:0" json:"fee"`
	Currency          string              `gorm:"size:3;default:'NGN'" json:"currency"`
	Status            TransactionStatus   `gorm:"index;size:20;not null;default:'pending'" json:"status"`
	ProviderReference string              `gorm:"index;size:128" json:"providerReference,omitempty"`
	DedupeKey         *string             `gorm:"uniqueIndex;size:160" json:"-"`
	Collected         bool                `gorm:"index;not null;default:false" json:"collected"`
	CollectedAt       *time.Time          `json:"collectedAt,omitempty"`
	Metadata          TransactionMetadata `gorm:"type:jsonb" json:"metadata"`
	CreatedAt         time.Time           `gorm:"index:idx_tx_user_service_created,priority:3" json:"createdAt"`
	CompletedAt       *time.Time          `json:"completedAt,omitempty"`
	UpdatedAt         time.Time           `json:"updatedAt"`
}

// Total is amount plus fee, what the owner's wallet moved by.
func (t *Transaction) Total() decimal.Decimal {
	return t.Amount.Add(t.Fee)
}

// Dedupe sets the idempotency key of the record.
func (t *Transaction) Dedupe(key string) {
	t.DedupeKey = &key
}

// DedupeKey helpers. Each names the single record a source event may produce.
func DepositDedupeKey(providerRef string) string   { return "deposit:" + providerRef }
func CashbackDedupeKey(sourceRef string) string    { return "cashback:" + sourceRef }
func FeeDedupeKey(sourceRef string) string         { return "fee:" + sourceRef }
func ReversalDedupeKey(sourceRef string) string    { return "reversal:" + sourceRef }
func CollectionDedupeKey(collectRef string) string { return "collection:" + collectRef }

// Validate checks the record shape before it is written.
func (t *Transaction) Validate() error {
	if t.Reference == "" {
		return ErrMissingReference
	}
	if t.UserID == "" {
		return ErrMissingUser
	}
	if !t.Type.Valid() {
		return ErrInvalidTransactionType
	}
	if !t.Status.Valid() {
		return ErrInvalidStatus
	}
	if t.Fee.IsNegative() {
		return ErrNegativeAmount
	}
	switch t.Type {
	case TransactionTypeRevenue:
		if t.UserID != SystemUserID {
			return ErrRevenueOwner
		}
		// a collection waits for its payout to settle
		pendingAllowed := t.Kind == KindRevenueCollection && t.Status == StatusPending
		if t.Status != StatusCompleted && !pendingAllowed {
			return ErrRevenueStatus
		}
		// collection and reversal entries are the only negative rows
		negativeAllowed := t.Kind == KindRevenueCollection || t.Kind == KindRevenueReversal
		if t.Amount.IsNegative() && !negativeAllowed {
			return ErrNegativeAmount
		}
	default:
		if t.UserID == SystemUserID {
			return ErrSystemOwner
		}
		if t.Amount.IsNegative() {
			return ErrNegativeAmount
		}
	}
	return t.Metadata.validate(t)
}
