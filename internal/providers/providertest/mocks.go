// Package providertest has testify mocks for the provider capabilities.
package providertest

import (
	"context"

	"kudi/internal/providers"

	"github.com/stretchr/testify/mock"
)

type Verification struct {
	mock.Mock
}

func (m *Verification) Name() string { return "verification-mock" }

func (m *Verification) VerifyAccount(ctx context.Context, accountNumber, bankCode string) (*providers.AccountName, error) {
	args := m.Called(ctx, accountNumber, bankCode)
	if v := args.Get(0); v != nil {
		return v.(*providers.AccountName), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Verification) IssueVirtualAccount(ctx context.Context, identity providers.Identity) (*providers.IssuedAccount, error) {
	args := m.Called(ctx, identity)
	if v := args.Get(0); v != nil {
		return v.(*providers.IssuedAccount), args.Error(1)
	}
	return nil, args.Error(1)
}

type Disbursement struct {
	mock.Mock
}

func (m *Disbursement) Name() string { return "disbursement-mock" }

func (m *Disbursement) ResolveRecipient(ctx context.Context, accountNumber, bankCode string) (*providers.AccountName, error) {
	args := m.Called(ctx, accountNumber, bankCode)
	if v := args.Get(0); v != nil {
		return v.(*providers.AccountName), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Disbursement) Transfer(ctx context.Context, req providers.TransferRequest) (*providers.Disbursement, error) {
	return m.disbursement(m.Called(ctx, req))
}

func (m *Disbursement) PayBill(ctx context.Context, req providers.BillRequest) (*providers.Disbursement, error) {
	return m.disbursement(m.Called(ctx, req))
}

func (m *Disbursement) BuyAirtime(ctx context.Context, req providers.AirtimeRequest) (*providers.Disbursement, error) {
	return m.disbursement(m.Called(ctx, req))
}

func (m *Disbursement) BuyData(ctx context.Context, req providers.DataRequest) (*providers.Disbursement, error) {
	return m.disbursement(m.Called(ctx, req))
}

func (m *Disbursement) disbursement(args mock.Arguments) (*providers.Disbursement, error) {
	if v := args.Get(0); v != nil {
		return v.(*providers.Disbursement), args.Error(1)
	}
	return nil, args.Error(1)
}

// Calls counts recorded calls to every method except Name.
func Calls(m *mock.Mock) int {
	return len(m.Calls)
}
