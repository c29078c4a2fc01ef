package orchestrator

import (
	"context"
	"testing"

	apperrors "kudi/internal/errors"
	"kudi/internal/providers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestResolveAccount(t *testing.T) {
	h := newHarness(t, testPricing())
	h.expectLookups()

	got, err := h.svc.ResolveAccount(context.Background(), " "+acct+" ", bank)
	require.NoError(t, err)
	assert.Equal(t, "ADA N OBI", got.AccountName)
	assert.Equal(t, "ADA OBI", got.VerifiedName)
	assert.Equal(t, acct, got.AccountNumber)

	_, err = h.svc.ResolveAccount(context.Background(), acct, "")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestIssueVirtualAccountOnlyOnce(t *testing.T) {
	h := newHarness(t, testPricing())
	identity := providers.Identity{UserID: "u1", FirstName: "Ada", LastName: "Obi", Email: "ada@example.com"}
	h.verification.On("IssueVirtualAccount", mock.Anything, identity).
		Return(&providers.IssuedAccount{AccountNumber: "9930000001", BankName: "Wema Bank", AccountName: "KUDI/ADA OBI", ProviderReference: "4431"}, nil).
		Once()

	first, err := h.svc.IssueVirtualAccount(context.Background(), identity)
	require.NoError(t, err)
	second, err := h.svc.IssueVirtualAccount(context.Background(), identity)
	require.NoError(t, err)

	assert.Equal(t, "9930000001", first.AccountNumber)
	assert.Equal(t, first.AccountNumber, second.AccountNumber)
	h.verification.AssertNumberOfCalls(t, "IssueVirtualAccount", 1)
}

func TestIssueVirtualAccountProviderError(t *testing.T) {
	h := newHarness(t, testPricing())
	h.verification.On("IssueVirtualAccount", mock.Anything, mock.Anything).Return(nil, rejected("BVN mismatch"))

	_, err := h.svc.IssueVirtualAccount(context.Background(), providers.Identity{UserID: "u1"})
	require.ErrorIs(t, err, apperrors.ErrVerificationFailed)
	de, _ := apperrors.As(err)
	assert.Equal(t, "BVN mismatch", de.Message)
}
