package models

import (
	"encoding/json"
	"time"
)

type WebhookStatus string

const (
	WebhookReceived  WebhookStatus = "received"
	WebhookProcessed WebhookStatus = "processed"
	WebhookMismatch  WebhookStatus = "mismatch"
	WebhookFailed    WebhookStatus = "failed"
)

const (
	EventDepositSettled  = "deposit_settled"
	EventTransferSettled = "transfer_settled"
)

// WebhookEvent is the inbox row written before a provider notification is
// applied to the ledger.
type WebhookEvent struct {
	ID          string          `gorm:"primarykey;size:36" json:"id"`
	Provider    string          `gorm:"index;size:32;not null" json:"provider"`
	EventType   string          `gorm:"size:40;not null" json:"eventType"`
	EventKey    string          `gorm:"uniqueIndex;size:200;not null" json:"eventKey"`
	Payload     json.RawMessage `gorm:"type:jsonb;not null" json:"payload"`
	Status      WebhookStatus   `gorm:"index;size:20;not null;default:'received'" json:"status"`
	Attempts    int             `gorm:"not null;default:0" json:"attempts"`
	LastError   string          `json:"lastError,omitempty"`
	ProcessedAt *time.Time      `json:"processedAt,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}
