package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Wallet struct {
	ID                uint            `gorm:"primarykey" json:"id"`
	UserID            string          `gorm:"uniqueIndex;size:64;not null" json:"userId"`
	Balance           decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"balance"`
	TotalDeposits     decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"totalDeposits"`
	TotalWithdrawals  decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"totalWithdrawals"`
	Currency          string          `gorm:"size:3;default:'NGN'" json:"currency"`
	IsActive          bool            `gorm:"not null;default:true" json:"isActive"`
	LastTransactionAt *time.Time      `json:"lastTransactionAt,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

func (w *Wallet) BeforeCreate(tx *gorm.DB) error {
	// Wallets are only funded through the ledger
	w.Balance = decimal.Zero
	w.TotalDeposits = decimal.Zero
	w.TotalWithdrawals = decimal.Zero
	return nil
}

// VirtualAccount maps an inbound bank deposit to its owner.
type VirtualAccount struct {
	ID                uint      `gorm:"primarykey" json:"id"`
	UserID            string    `gorm:"uniqueIndex;size:64;not null" json:"userId"`
	AccountNumber     string    `gorm:"uniqueIndex;size:20;not null" json:"accountNumber"`
	BankName          string    `gorm:"size:100;not null" json:"bankName"`
	AccountName       string    `gorm:"size:200;not null" json:"accountName"`
	ProviderReference string    `gorm:"index;size:128" json:"providerReference,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
}
