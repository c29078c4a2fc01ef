package validation

import (
	"testing"

	apperrors "kudi/internal/errors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransferRequest(t *testing.T) {
	valid := TransferRequest{
		AccountNumber: "0123456789",
		BankCode:      "058",
		Amount:        decimal.RequireFromString("2000.50"),
	}

	tests := []struct {
		name    string
		mutate  func(*TransferRequest)
		wantMsg string
	}{
		{name: "valid", mutate: func(*TransferRequest) {}},
		{name: "short account", mutate: func(r *TransferRequest) { r.AccountNumber = "12345" }, wantMsg: "accountNumber must be a 10-digit account number"},
		{name: "missing bank", mutate: func(r *TransferRequest) { r.BankCode = "" }, wantMsg: "bankCode is required"},
		{name: "zero amount", mutate: func(r *TransferRequest) { r.Amount = decimal.Zero }, wantMsg: "amount must be greater than zero"},
		{name: "three places", mutate: func(r *TransferRequest) { r.Amount = decimal.RequireFromString("10.005") }, wantMsg: "amount must have at most 2 decimal places"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			err := Struct(req)
			if tt.wantMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, apperrors.ErrValidation)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestErrorsAreSortedByField(t *testing.T) {
	err := Struct(AirtimeRequest{Network: "vodafone"})
	require.Error(t, err)
	de, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t,
		"amount must be greater than zero; network must be one of mtn, airtel, glo, 9mobile; phone is required",
		de.Message)
}

func TestPhoneFormats(t *testing.T) {
	for phone, ok := range map[string]bool{
		"08031234567":    true,
		"+2348031234567": true,
		"2349071234567":  true,
		"0803123456":     false,
		"07631234567":    false,
	} {
		err := Struct(AirtimeRequest{Phone: phone, Network: "mtn", Amount: decimal.NewFromInt(100)})
		assert.Equal(t, ok, err == nil, phone)
	}
}

func TestCollectRequestAmountIsOptional(t *testing.T) {
	assert.NoError(t, Struct(CollectRequest{}))

	negative := decimal.NewFromInt(-5)
	err := Struct(CollectRequest{Amount: &negative})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestVirtualAccountRequest(t *testing.T) {
	req := VirtualAccountRequest{FirstName: "Ada", LastName: "Obi", Email: "ada@example.com", Phone: "08031234567"}
	assert.NoError(t, Struct(req))

	req.BVN = "123"
	err := Struct(req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bvn must be 11 characters")
}
