package pricing

import (
	"errors"
	"testing"

	"kudi/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func testEngine() *Engine {
	return NewEngine(Config{
		TierThreshold: d(10000),
		Tier1Fee:      d(50),
		Tier2Fee:      d(100),
		Transfer:      Bounds{Min: d(100), Max: d(1000000)},
		Airtime:       Bounds{Min: d(50), Max: d(50000)},
		Data:          Bounds{Min: d(50), Max: d(100000)},
		Bill:          Bounds{Min: d(100), Max: d(500000)},
	})
}

func TestTransferFee(t *testing.T) {
	e := testEngine()

	tests := []struct {
		name     string
		amount   decimal.Decimal
		wantFee  decimal.Decimal
		wantTier Tier
		wantErr  bool
	}{
		{name: "below threshold", amount: d(2000), wantFee: d(50), wantTier: Tier1},
		{name: "at minimum", amount: d(100), wantFee: d(50), wantTier: Tier1},
		{name: "at threshold", amount: d(10000), wantFee: d(100), wantTier: Tier2},
		{name: "above threshold", amount: d(250000), wantFee: d(100), wantTier: Tier2},
		{name: "below minimum", amount: d(99), wantErr: true},
		{name: "above maximum", amount: d(1000001), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := e.TransferFee(tt.amount)
			if tt.wantErr {
				var oor *OutOfRangeError
				assert.True(t, errors.As(err, &oor))
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.wantFee.Equal(q.Fee), "fee %s", q.Fee)
			assert.Equal(t, tt.wantTier, q.Tier)
			assert.True(t, tt.amount.Add(tt.wantFee).Equal(q.Total))
		})
	}
}

func TestTransferFeeIsDeterministic(t *testing.T) {
	e := testEngine()

	first, err := e.TransferFee(d(1000))
	require.NoError(t, err)
	second, err := e.TransferFee(d(1000))
	require.NoError(t, err)

	assert.True(t, first.Fee.Equal(second.Fee))
	assert.Equal(t, first.Tier, second.Tier)
}

func TestServicePricingLoyalty(t *testing.T) {
	e := testEngine()

	tests := []struct {
		name         string
		amount       decimal.Decimal
		count        int
		wantEligible bool
		wantCashback decimal.Decimal
		wantNext     int
	}{
		{name: "first purchase", amount: d(1000), count: 0, wantEligible: false, wantCashback: decimal.Zero, wantNext: 3},
		{name: "second purchase", amount: d(1000), count: 2, wantEligible: false, wantCashback: decimal.Zero, wantNext: 1},
		{name: "third purchase", amount: d(1000), count: 3, wantEligible: true, wantCashback: d(20), wantNext: 0},
		{name: "well past threshold", amount: d(500), count: 9, wantEligible: true, wantCashback: d(10), wantNext: 0},
		{name: "cashback rounds to kobo", amount: decimal.RequireFromString("333.33"), count: 3, wantEligible: true, wantCashback: decimal.RequireFromString("6.67"), wantNext: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := e.ServicePricing(tt.amount, tt.count, models.ServiceAirtime)
			require.NoError(t, err)
			assert.True(t, tt.amount.Equal(q.UserPays), "user always pays face value")
			assert.Equal(t, tt.wantEligible, q.IsEligibleForCashback)
			assert.True(t, tt.wantCashback.Equal(q.CashbackAmount), "cashback %s", q.CashbackAmount)
			assert.Equal(t, tt.wantNext, q.NextPurchaseForCashback)
			assert.Equal(t, tt.count, q.DailyPurchaseCount)
		})
	}
}

func TestServicePricingErrors(t *testing.T) {
	e := testEngine()

	_, err := e.ServicePricing(d(1000), 0, models.ServiceBill)
	assert.ErrorIs(t, err, ErrUnsupportedService)

	_, err = e.ServicePricing(d(1000), -1, models.ServiceData)
	assert.ErrorIs(t, err, ErrNegativeCount)

	_, err = e.ServicePricing(d(10), 0, models.ServiceData)
	var oor *OutOfRangeError
	require.True(t, errors.As(err, &oor))
	assert.Equal(t, "data", oor.Operation)
	assert.Contains(t, oor.Error(), "between 50.00 and 100000.00")
}

func TestBillFee(t *testing.T) {
	q, err := testEngine().BillFee(d(5000))
	require.NoError(t, err)
	assert.True(t, q.TotalFee.IsZero())
	assert.True(t, d(5000).Equal(q.UserPays))

	withSchedule := NewEngine(Config{
		Bill:              Bounds{Min: d(100), Max: d(500000)},
		BillFlatFee:       d(25),
		BillPercentageFee: decimal.RequireFromString("0.01"),
	})
	q, err = withSchedule.BillFee(d(5000))
	require.NoError(t, err)
	assert.True(t, d(25).Equal(q.FlatFee))
	assert.True(t, d(50).Equal(q.PercentageFee))
	assert.True(t, d(75).Equal(q.TotalFee))
	assert.True(t, d(5075).Equal(q.UserPays))

	_, err = withSchedule.BillFee(d(50))
	var oor *OutOfRangeError
	assert.True(t, errors.As(err, &oor))
}

type fixedSchedule struct{ fee decimal.Decimal }

func (s fixedSchedule) Quote(amount decimal.Decimal) BillQuote {
	return BillQuote{FlatFee: s.fee, PercentageFee: decimal.Zero, TotalFee: s.fee, UserPays: amount.Add(s.fee)}
}

func TestBillFeeCustomSchedule(t *testing.T) {
	e := NewEngine(Config{
		Bill:         Bounds{Min: d(100), Max: d(500000)},
		BillSchedule: fixedSchedule{fee: d(10)},
	})

	q, err := e.BillFee(d(1000))
	require.NoError(t, err)
	assert.True(t, d(10).Equal(q.TotalFee))
}
