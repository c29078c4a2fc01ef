package orchestrator

import (
	"time"

	"kudi/internal/models"
	"kudi/internal/providers"

	"github.com/shopspring/decimal"
)

type Config struct {
	// ProviderTimeout bounds each provider call, retries included.
	ProviderTimeout time.Duration
	Retry           providers.RetryPolicy
	Currency        string
}

type TransferRequest struct {
	UserID        string
	AccountNumber string
	BankCode      string
	Amount        decimal.Decimal
	Narration     string
}

type TransferResult struct {
	Reference         string                   `json:"reference"`
	Amount            decimal.Decimal          `json:"amount"`
	Fee               decimal.Decimal          `json:"fee"`
	Total             decimal.Decimal          `json:"total"`
	Status            models.TransactionStatus `json:"status"`
	BeneficiaryName   string                   `json:"beneficiaryName"`
	ProviderReference string                   `json:"providerReference,omitempty"`
	Balance           decimal.Decimal          `json:"balance"`
}

// TransferInstruction is a payout to a bank account with no wallet attached.
// Revenue collection uses it directly.
type TransferInstruction struct {
	AccountNumber string
	BankCode      string
	Amount        decimal.Decimal
	Narration     string
	Reference     string
}

type TransferOutcome struct {
	VerifiedName string
	ResolvedName string
	ProviderRef  string
	Status       providers.Status
}

// BeneficiaryName prefers the disbursement provider's resolved name.
func (o *TransferOutcome) BeneficiaryName() string {
	if o.ResolvedName != "" {
		return o.ResolvedName
	}
	return o.VerifiedName
}

type PurchaseRequest struct {
	UserID     string
	Service    models.Service
	Amount     decimal.Decimal
	Phone      string
	Network    string
	Plan       string
	BillerCode string
	CustomerID string
}

type PurchaseResult struct {
	Reference               string                   `json:"reference"`
	Service                 models.Service           `json:"service"`
	Amount                  decimal.Decimal          `json:"amount"`
	Fee                     decimal.Decimal          `json:"fee"`
	UserPays                decimal.Decimal          `json:"userPays"`
	Status                  models.TransactionStatus `json:"status"`
	ProviderReference       string                   `json:"providerReference,omitempty"`
	DailyPurchaseCount      int                      `json:"dailyPurchaseCount"`
	IsEligibleForCashback   bool                     `json:"isEligibleForCashback"`
	CashbackAmount          decimal.Decimal          `json:"cashbackAmount"`
	NextPurchaseForCashback int                      `json:"nextPurchaseForCashback"`
	CashbackReference       string                   `json:"cashbackReference,omitempty"`
	Balance                 decimal.Decimal          `json:"balance"`
}

// PurchaseQuote previews what a purchase would cost right now.
type PurchaseQuote struct {
	Service                 models.Service  `json:"service"`
	Amount                  decimal.Decimal `json:"amount"`
	Fee                     decimal.Decimal `json:"fee"`
	UserPays                decimal.Decimal `json:"userPays"`
	DailyPurchaseCount      int             `json:"dailyPurchaseCount"`
	IsEligibleForCashback   bool            `json:"isEligibleForCashback"`
	CashbackAmount          decimal.Decimal `json:"cashbackAmount"`
	NextPurchaseForCashback int             `json:"nextPurchaseForCashback"`
}

// CashbackResult reports the cashback step for one source purchase. Credited
// is false when nothing was owed or the cashback already existed.
type CashbackResult struct {
	Transaction *models.Transaction
	Count       int
	Eligible    bool
	Amount      decimal.Decimal
	Credited    bool
	Balance     *decimal.Decimal
}

type ResolvedAccount struct {
	AccountNumber string `json:"accountNumber"`
	BankCode      string `json:"bankCode"`
	AccountName   string `json:"accountName"`
	VerifiedName  string `json:"verifiedName"`
}
