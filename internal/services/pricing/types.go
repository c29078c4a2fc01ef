package pricing

import (
	"kudi/internal/models"

	"github.com/shopspring/decimal"
)

type Tier string

const (
	Tier1 Tier = "tier1"
	Tier2 Tier = "tier2"
)

// Bounds is an inclusive amount range.
type Bounds struct {
	Min decimal.Decimal
	Max decimal.Decimal
}

func (b Bounds) contains(amount decimal.Decimal) bool {
	return amount.GreaterThanOrEqual(b.Min) && amount.LessThanOrEqual(b.Max)
}

type Config struct {
	TierThreshold decimal.Decimal
	Tier1Fee      decimal.Decimal
	Tier2Fee      decimal.Decimal
	Transfer      Bounds
	Airtime       Bounds
	Data          Bounds
	Bill          Bounds

	LoyaltyThreshold int
	CashbackRate     decimal.Decimal

	// BillSchedule defaults to a flat plus percentage schedule built from
	// BillFlatFee and BillPercentageFee.
	BillSchedule      BillFeeSchedule
	BillFlatFee       decimal.Decimal
	BillPercentageFee decimal.Decimal
}

type TransferQuote struct {
	Amount decimal.Decimal `json:"amount"`
	Fee    decimal.Decimal `json:"fee"`
	Tier   Tier            `json:"tier"`
	Total  decimal.Decimal `json:"total"`
}

type ServiceQuote struct {
	Service                 models.Service  `json:"service"`
	UserPays                decimal.Decimal `json:"userPays"`
	DailyPurchaseCount      int             `json:"dailyPurchaseCount"`
	IsEligibleForCashback   bool            `json:"isEligibleForCashback"`
	CashbackAmount          decimal.Decimal `json:"cashbackAmount"`
	NextPurchaseForCashback int             `json:"nextPurchaseForCashback"`
}

type BillQuote struct {
	FlatFee       decimal.Decimal `json:"flatFee"`
	PercentageFee decimal.Decimal `json:"percentageFee"`
	TotalFee      decimal.Decimal `json:"totalFee"`
	UserPays      decimal.Decimal `json:"userPays"`
}

// BillFeeSchedule prices a bill payment. Callers only see BillQuote, so the
// schedule can change without touching them.
type BillFeeSchedule interface {
	Quote(amount decimal.Decimal) BillQuote
}

// FlatPercentageSchedule charges Flat plus Percentage (a fraction, 0.015 for
// 1.5%) of the amount.
type FlatPercentageSchedule struct {
	Flat       decimal.Decimal
	Percentage decimal.Decimal
}

func (s FlatPercentageSchedule) Quote(amount decimal.Decimal) BillQuote {
	pct := amount.Mul(s.Percentage).Round(2)
	total := s.Flat.Add(pct)
	return BillQuote{
		FlatFee:       s.Flat,
		PercentageFee: pct,
		TotalFee:      total,
		UserPays:      amount.Add(total),
	}
}
