package orchestrator

import (
	"context"
	"testing"
	"time"

	apperrors "kudi/internal/errors"
	"kudi/internal/models"
	"kudi/internal/providers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func airtime(amount int64) PurchaseRequest {
	return PurchaseRequest{UserID: "u1", Service: models.ServiceAirtime, Amount: d(amount), Phone: "08030000000", Network: "mtn"}
}

func (h *harness) airtimeSucceeds() {
	h.disbursement.On("BuyAirtime", mock.Anything, mock.Anything).
		Return(&providers.Disbursement{ProviderRef: "BPUSSD-1", Status: providers.StatusSuccessful}, nil)
}

func TestThirdAirtimePurchaseEarnsCashback(t *testing.T) {
	h := newHarness(t, testPricing())
	h.store.SeedWallet("u1", d(5000))
	h.airtimeSucceeds()
	ctx := context.Background()

	for i := 1; i <= 2; i++ {
		res, err := h.svc.Purchase(ctx, airtime(1000))
		require.NoError(t, err)
		assert.Equal(t, i, res.DailyPurchaseCount)
		assert.False(t, res.IsEligibleForCashback)
		assert.Empty(t, res.CashbackReference)
	}

	res, err := h.svc.Purchase(ctx, airtime(1000))
	require.NoError(t, err)

	assert.True(t, d(1000).Equal(res.UserPays))
	assert.Equal(t, 3, res.DailyPurchaseCount)
	assert.True(t, res.IsEligibleForCashback)
	assert.True(t, d(20).Equal(res.CashbackAmount))
	assert.NotEmpty(t, res.CashbackReference)
	assert.True(t, d(2020).Equal(res.Balance))
	assert.True(t, d(2020).Equal(h.balance(t, "u1")), "third purchase nets 980")

	cashbacks := h.records(models.KindCashback, models.TransactionTypeDeposit)
	require.Len(t, cashbacks, 1)
	assert.Equal(t, res.Reference, cashbacks[0].Metadata.OriginalTransactionID)
	assert.True(t, d(20).Equal(cashbacks[0].Amount))
	assert.Equal(t, res.CashbackReference, cashbacks[0].Reference)

	assert.Empty(t, h.records(models.KindFee, models.TransactionTypeRevenue), "airtime carries no fee")
}

func TestCashbackIsAppliedOncePerPurchase(t *testing.T) {
	h := newHarness(t, testPricing())
	h.store.SeedWallet("u1", d(5000))
	h.airtimeSucceeds()
	ctx := context.Background()

	var last *PurchaseResult
	for i := 0; i < 3; i++ {
		res, err := h.svc.Purchase(ctx, airtime(1000))
		require.NoError(t, err)
		last = res
	}
	source, err := h.store.Transactions().GetByReference(ctx, last.Reference)
	require.NoError(t, err)

	again, err := h.svc.ApplyCashback(ctx, source)
	require.NoError(t, err)
	assert.False(t, again.Credited)
	require.NotNil(t, again.Transaction)
	assert.Equal(t, last.CashbackReference, again.Transaction.Reference)

	assert.Len(t, h.records(models.KindCashback, models.TransactionTypeDeposit), 1)
	assert.True(t, d(2020).Equal(h.balance(t, "u1")))
}

func TestCashbackReplayUsesCountAtPurchaseTime(t *testing.T) {
	h := newHarness(t, testPricing())
	h.store.SeedWallet("u1", d(5000))
	h.airtimeSucceeds()
	ctx := context.Background()

	var refs []string
	for _, hour := range []int{9, 10, 11} {
		h.now = time.Date(2026, 6, 15, hour, 0, 0, 0, time.UTC)
		res, err := h.svc.Purchase(ctx, airtime(500))
		require.NoError(t, err)
		refs = append(refs, res.Reference)
	}
	require.Len(t, h.records(models.KindCashback, models.TransactionTypeDeposit), 1)

	first, err := h.store.Transactions().GetByReference(ctx, refs[0])
	require.NoError(t, err)
	res, err := h.svc.ApplyCashback(ctx, first)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Count)
	assert.False(t, res.Eligible)
	assert.False(t, res.Credited)
	assert.Len(t, h.records(models.KindCashback, models.TransactionTypeDeposit), 1)
}

func TestPurchaseFailureMutatesNothing(t *testing.T) {
	h := newHarness(t, testPricing())
	h.store.SeedWallet("u1", d(5000))
	h.disbursement.On("BuyData", mock.Anything, mock.MatchedBy(func(r providers.DataRequest) bool {
		return r.Plan == "MD104" && r.Reference != ""
	})).Return(nil, rejected("Invalid data plan"))

	_, err := h.svc.Purchase(context.Background(), PurchaseRequest{
		UserID: "u1", Service: models.ServiceData, Amount: d(500), Phone: "08030000000", Plan: "MD104", Network: "mtn",
	})

	require.ErrorIs(t, err, apperrors.ErrSettlementFailed)
	de, _ := apperrors.As(err)
	assert.Equal(t, "Invalid data plan", de.Message)
	assert.Empty(t, h.store.All())
	assert.True(t, d(5000).Equal(h.balance(t, "u1")))
	h.disbursement.AssertNumberOfCalls(t, "BuyData", 1)
}

func TestPurchaseInsufficientBalanceCallsNoProvider(t *testing.T) {
	h := newHarness(t, testPricing())
	h.store.SeedWallet("u1", d(300))

	_, err := h.svc.Purchase(context.Background(), airtime(1000))

	assert.ErrorIs(t, err, apperrors.ErrInsufficientBalance)
	assert.Empty(t, h.disbursement.Calls)
}

func TestBillPaymentChargesScheduleFee(t *testing.T) {
	pc := testPricing()
	pc.BillFlatFee = d(100)
	h := newHarness(t, pc)
	h.store.SeedWallet("u1", d(10000))
	h.disbursement.On("PayBill", mock.Anything, mock.MatchedBy(func(r providers.BillRequest) bool {
		return r.BillerCode == "BIL119" && r.CustomerID == "45050071234" && r.Amount.Equal(d(3000))
	})).Return(&providers.Disbursement{ProviderRef: "BILL-9", Status: providers.StatusPending}, nil)

	res, err := h.svc.Purchase(context.Background(), PurchaseRequest{
		UserID: "u1", Service: models.ServiceBill, Amount: d(3000), BillerCode: "BIL119", CustomerID: "45050071234",
	})
	require.NoError(t, err)

	assert.True(t, d(3100).Equal(res.UserPays))
	assert.True(t, d(100).Equal(res.Fee))
	assert.Equal(t, models.StatusPending, res.Status)
	assert.True(t, d(6900).Equal(h.balance(t, "u1")))

	fees := h.records(models.KindFee, models.TransactionTypeRevenue)
	require.Len(t, fees, 1)
	assert.True(t, d(100).Equal(fees[0].Amount))
	assert.Empty(t, h.records(models.KindCashback, models.TransactionTypeDeposit))
}

func TestPurchaseValidation(t *testing.T) {
	h := newHarness(t, testPricing())
	h.store.SeedWallet("u1", d(100000))
	ctx := context.Background()

	tests := []struct {
		name    string
		req     PurchaseRequest
		wantErr error
	}{
		{name: "airtime without network", req: PurchaseRequest{UserID: "u1", Service: models.ServiceAirtime, Amount: d(100), Phone: "0803"}, wantErr: apperrors.ErrValidation},
		{name: "data without plan", req: PurchaseRequest{UserID: "u1", Service: models.ServiceData, Amount: d(100), Phone: "0803"}, wantErr: apperrors.ErrValidation},
		{name: "bill without customer", req: PurchaseRequest{UserID: "u1", Service: models.ServiceBill, Amount: d(1000), BillerCode: "BIL119"}, wantErr: apperrors.ErrValidation},
		{name: "unknown service", req: PurchaseRequest{UserID: "u1", Service: "betting", Amount: d(100)}, wantErr: apperrors.ErrValidation},
		{name: "airtime above bound", req: airtime(60000), wantErr: apperrors.ErrOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.svc.Purchase(ctx, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	assert.Empty(t, h.disbursement.Calls)
}

func TestQuotePurchase(t *testing.T) {
	h := newHarness(t, testPricing())
	h.store.SeedWallet("u1", d(5000))
	h.airtimeSucceeds()
	ctx := context.Background()

	q, err := h.svc.QuotePurchase(ctx, "u1", models.ServiceAirtime, d(1000))
	require.NoError(t, err)
	assert.Equal(t, 1, q.DailyPurchaseCount)
	assert.Equal(t, 2, q.NextPurchaseForCashback)
	assert.False(t, q.IsEligibleForCashback)

	for i := 0; i < 2; i++ {
		_, err := h.svc.Purchase(ctx, airtime(1000))
		require.NoError(t, err)
	}

	q, err = h.svc.QuotePurchase(ctx, "u1", models.ServiceAirtime, d(1000))
	require.NoError(t, err)
	assert.True(t, q.IsEligibleForCashback)
	assert.True(t, d(20).Equal(q.CashbackAmount))
	assert.Zero(t, q.NextPurchaseForCashback)
}

func TestPurchaseWithUnreadableAnswerIsHeldPending(t *testing.T) {
	h := newHarness(t, testPricing())
	h.store.SeedWallet("u1", d(5000))
	h.disbursement.On("BuyAirtime", mock.Anything, mock.Anything).Return(nil, unreadable()).Once()

	res, err := h.svc.Purchase(context.Background(), airtime(1000))
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, res.Status)
	assert.Empty(t, res.CashbackReference)
	assert.True(t, d(4000).Equal(h.balance(t, "u1")))

	got, err := h.store.Transactions().GetByReference(context.Background(), res.Reference)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)
}
