package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionMetadata carries the per-service details of a ledger entry.
// Queried fields (service, type, collected) live on Transaction columns and
// are mirrored here only when serialized for clients.
type TransactionMetadata struct {
	ProviderTransactionID string           `json:"providerTransactionId,omitempty"`
	Narration             string           `json:"narration,omitempty"`
	BeneficiaryName       string           `json:"beneficiaryName,omitempty"`
	BankCode              string           `json:"bankCode,omitempty"`
	AccountNumber         string           `json:"accountNumber,omitempty"`
	Phone                 string           `json:"phone,omitempty"`
	Network               string           `json:"network,omitempty"`
	Plan                  string           `json:"plan,omitempty"`
	BillerCode            string           `json:"billerCode,omitempty"`
	CustomerID            string           `json:"customerId,omitempty"`
	DailyPurchaseCount    int              `json:"dailyPurchaseCount,omitempty"`
	IsEligibleForCashback bool             `json:"isEligibleForCashback,omitempty"`
	CashbackAmount        *decimal.Decimal `json:"cashbackAmount,omitempty"`
	SourceTransactionID   string           `json:"sourceTransactionId,omitempty"`
	OriginalTransactionID string           `json:"originalTransactionId,omitempty"`
	CollectionReference   string           `json:"collectionReference,omitempty"`
	SweptCount            int              `json:"sweptCount,omitempty"`
	SweptIDs              []uint           `json:"sweptIds,omitempty"`
	FailureReason         string           `json:"failureReason,omitempty"`
	SettledAt             *time.Time       `json:"settledAt,omitempty"`
}

func (m *TransactionMetadata) validate(t *Transaction) error {
	switch {
	case t.Kind == KindCashback:
		if t.Type != TransactionTypeDeposit || m.OriginalTransactionID == "" {
			return fmt.Errorf("%w: cashback needs a deposit with originalTransactionId", ErrInvalidMetadata)
		}
	case t.Kind == KindFee || t.Kind == KindRevenueReversal:
		if m.SourceTransactionID == "" {
			return fmt.Errorf("%w: %s needs sourceTransactionId", ErrInvalidMetadata, t.Kind)
		}
	case t.Kind == KindRevenueCollection:
		if m.CollectionReference == "" || len(m.SweptIDs) == 0 {
			return fmt.Errorf("%w: collection needs collectionReference and sweptIds", ErrInvalidMetadata)
		}
	}

	switch t.Service {
	case ServiceTransfer:
		if m.AccountNumber == "" || m.BankCode == "" {
			return fmt.Errorf("%w: transfer needs accountNumber and bankCode", ErrInvalidMetadata)
		}
	case ServiceAirtime:
		if m.Phone == "" || m.Network == "" {
			return fmt.Errorf("%w: airtime needs phone and network", ErrInvalidMetadata)
		}
	case ServiceData:
		if m.Phone == "" || m.Plan == "" {
			return fmt.Errorf("%w: data needs phone and plan", ErrInvalidMetadata)
		}
	case ServiceBill:
		if m.BillerCode == "" || m.CustomerID == "" {
			return fmt.Errorf("%w: bill needs billerCode and customerId", ErrInvalidMetadata)
		}
	}
	return nil
}

// Value implements the driver.Valuer interface
func (m TransactionMetadata) Value() (driver.Value, error) {
	return json.Marshal(m)
}

// Scan implements the sql.Scanner interface
func (m *TransactionMetadata) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	case nil:
		*m = TransactionMetadata{}
		return nil
	default:
		return fmt.Errorf("unsupported metadata type %T", value)
	}
	return json.Unmarshal(data, m)
}
