package pricing

import (
	"kudi/internal/config"
	"kudi/internal/models"

	"github.com/shopspring/decimal"
)

const (
	defaultLoyaltyThreshold = 3
)

var defaultCashbackRate = decimal.RequireFromString("0.02")

type Engine struct {
	cfg   Config
	bills BillFeeSchedule
}

func NewEngine(cfg Config) *Engine {
	if cfg.LoyaltyThreshold <= 0 {
		cfg.LoyaltyThreshold = defaultLoyaltyThreshold
	}
	if cfg.CashbackRate.IsZero() {
		cfg.CashbackRate = defaultCashbackRate
	}
	bills := cfg.BillSchedule
	if bills == nil {
		bills = FlatPercentageSchedule{Flat: cfg.BillFlatFee, Percentage: cfg.BillPercentageFee}
	}
	return &Engine{cfg: cfg, bills: bills}
}

// ConfigFrom maps runtime configuration onto the engine's settings.
func ConfigFrom(p config.PricingConfig, l config.LoyaltyConfig) Config {
	return Config{
		TierThreshold:     p.TransferTierThreshold,
		Tier1Fee:          p.TransferTier1Fee,
		Tier2Fee:          p.TransferTier2Fee,
		Transfer:          Bounds{Min: p.TransferMin, Max: p.TransferMax},
		Airtime:           Bounds{Min: p.AirtimeMin, Max: p.AirtimeMax},
		Data:              Bounds{Min: p.DataMin, Max: p.DataMax},
		Bill:              Bounds{Min: p.BillMin, Max: p.BillMax},
		LoyaltyThreshold:  l.Threshold,
		CashbackRate:      l.Rate,
		BillFlatFee:       p.BillFlatFee,
		BillPercentageFee: p.BillPercentageFee,
	}
}

// TransferFee charges Tier1Fee below TierThreshold and Tier2Fee from it up.
func (e *Engine) TransferFee(amount decimal.Decimal) (TransferQuote, error) {
	if !e.cfg.Transfer.contains(amount) {
		return TransferQuote{}, e.outOfRange("transfer", amount, e.cfg.Transfer)
	}

	q := TransferQuote{Amount: amount, Fee: e.cfg.Tier1Fee, Tier: Tier1}
	if amount.GreaterThanOrEqual(e.cfg.TierThreshold) {
		q.Fee = e.cfg.Tier2Fee
		q.Tier = Tier2
	}
	q.Total = amount.Add(q.Fee)
	return q, nil
}

// ServicePricing prices an airtime or data purchase. The user always pays the
// face amount; loyalty is paid back as cashback once dailyCount reaches the
// threshold.
func (e *Engine) ServicePricing(amount decimal.Decimal, dailyCount int, service models.Service) (ServiceQuote, error) {
	var bounds Bounds
	switch service {
	case models.ServiceAirtime:
		bounds = e.cfg.Airtime
	case models.ServiceData:
		bounds = e.cfg.Data
	default:
		return ServiceQuote{}, ErrUnsupportedService
	}
	if dailyCount < 0 {
		return ServiceQuote{}, ErrNegativeCount
	}
	if !bounds.contains(amount) {
		return ServiceQuote{}, e.outOfRange(string(service), amount, bounds)
	}

	eligible := dailyCount >= e.cfg.LoyaltyThreshold
	cashback := decimal.Zero
	if eligible {
		cashback = amount.Mul(e.cfg.CashbackRate).Round(2)
	}
	next := e.cfg.LoyaltyThreshold - dailyCount
	if next < 0 {
		next = 0
	}

	return ServiceQuote{
		Service:                 service,
		UserPays:                amount,
		DailyPurchaseCount:      dailyCount,
		IsEligibleForCashback:   eligible,
		CashbackAmount:          cashback,
		NextPurchaseForCashback: next,
	}, nil
}

func (e *Engine) BillFee(amount decimal.Decimal) (BillQuote, error) {
	if !e.cfg.Bill.contains(amount) {
		return BillQuote{}, e.outOfRange("bill", amount, e.cfg.Bill)
	}
	return e.bills.Quote(amount), nil
}

func (e *Engine) outOfRange(op string, amount decimal.Decimal, b Bounds) error {
	return &OutOfRangeError{Operation: op, Amount: amount, Min: b.Min, Max: b.Max}
}
