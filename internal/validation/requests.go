package validation

import "github.com/shopspring/decimal"

type TransferRequest struct {
	AccountNumber string          `json:"accountNumber" validate:"required,account_number"`
	BankCode      string          `json:"bankCode" validate:"required,bank_code"`
	Amount        decimal.Decimal `json:"amount" validate:"positive,max_places"`
	Narration     string          `json:"narration" validate:"max=100"`
}

type AirtimeRequest struct {
	Phone   string          `json:"phone" validate:"required,phone"`
	Network string          `json:"network" validate:"required,oneof=mtn airtel glo 9mobile"`
	Amount  decimal.Decimal `json:"amount" validate:"positive,max_places"`
}

type DataRequest struct {
	Phone   string          `json:"phone" validate:"required,phone"`
	Network string          `json:"network" validate:"required,oneof=mtn airtel glo 9mobile"`
	Plan    string          `json:"plan" validate:"required,max=64"`
	Amount  decimal.Decimal `json:"amount" validate:"positive,max_places"`
}

type BillRequest struct {
	BillerCode string          `json:"billerCode" validate:"required,max=64"`
	CustomerID string          `json:"customerId" validate:"required,max=64"`
	Amount     decimal.Decimal `json:"amount" validate:"positive,max_places"`
}

type VirtualAccountRequest struct {
	FirstName string `json:"firstName" validate:"required,max=64"`
	LastName  string `json:"lastName" validate:"required,max=64"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"required,phone"`
	BVN       string `json:"bvn" validate:"omitempty,len=11,numeric"`
}

type WalletStatusRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// CollectRequest sweeps everything when Amount is omitted.
type CollectRequest struct {
	Amount *decimal.Decimal `json:"amount" validate:"omitempty,positive,max_places"`
}
