package wallet

import (
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	LockTimeout time.Duration
}

// Reconciliation compares a stored balance with the one rebuilt from the
// ledger.
type Reconciliation struct {
	UserID        string          `json:"userId"`
	StoredBalance decimal.Decimal `json:"storedBalance"`
	LedgerBalance decimal.Decimal `json:"ledgerBalance"`
	Drift         decimal.Decimal `json:"drift"`
	Deposits      decimal.Decimal `json:"deposits"`
	Debits        decimal.Decimal `json:"debits"`
	Entries       int             `json:"entries"`
	Balanced      bool            `json:"balanced"`
}
