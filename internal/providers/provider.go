// Package providers defines the two external capability sets the engine
// depends on: account verification and virtual accounts on one side,
// disbursements and bill settlement on the other. Concrete HTTP clients live
// in the verification and disbursement subpackages.
package providers

import (
	"context"

	"github.com/shopspring/decimal"
)

// VerificationProvider looks up account names and issues virtual accounts.
type VerificationProvider interface {
	Name() string
	VerifyAccount(ctx context.Context, accountNumber, bankCode string) (*AccountName, error)
	IssueVirtualAccount(ctx context.Context, identity Identity) (*IssuedAccount, error)
}

// DisbursementProvider moves money out: bank transfers, bills, airtime, data.
// None of its mutating calls may be retried blindly; Reference is the
// idempotency key the provider deduplicates on.
type DisbursementProvider interface {
	Name() string
	ResolveRecipient(ctx context.Context, accountNumber, bankCode string) (*AccountName, error)
	Transfer(ctx context.Context, req TransferRequest) (*Disbursement, error)
	PayBill(ctx context.Context, req BillRequest) (*Disbursement, error)
	BuyAirtime(ctx context.Context, req AirtimeRequest) (*Disbursement, error)
	BuyData(ctx context.Context, req DataRequest) (*Disbursement, error)
}

type AccountName struct {
	AccountNumber string
	BankCode      string
	AccountName   string
}

type Identity struct {
	UserID    string
	FirstName string
	LastName  string
	Email     string
	Phone     string
	BVN       string
}

type IssuedAccount struct {
	AccountNumber     string
	BankName          string
	AccountName       string
	ProviderReference string
}

// Status of a disbursement as reported synchronously.
type Status string

const (
	StatusSuccessful Status = "successful"
	StatusPending    Status = "pending"
	StatusFailed     Status = "failed"
)

type Disbursement struct {
	ProviderRef string
	Status      Status
	Message     string
}

type TransferRequest struct {
	AccountNumber   string
	BankCode        string
	Amount          decimal.Decimal
	Narration       string
	BeneficiaryName string
	Reference       string
}

type BillRequest struct {
	BillerCode string
	CustomerID string
	Amount     decimal.Decimal
	Reference  string
}

type AirtimeRequest struct {
	Phone     string
	Amount    decimal.Decimal
	Network   string
	Reference string
}

type DataRequest struct {
	Phone     string
	Plan      string
	Network   string
	Amount    decimal.Decimal
	Reference string
}
