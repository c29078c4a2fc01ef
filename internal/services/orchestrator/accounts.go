package orchestrator

import (
	"context"
	"errors"
	"strings"

	apperrors "kudi/internal/errors"
	"kudi/internal/models"
	"kudi/internal/providers"
	"kudi/internal/repositories"

	"go.uber.org/zap"
)

// ResolveAccount runs the two lookup steps of the transfer saga so a client
// can show the beneficiary name before confirming.
func (s *Service) ResolveAccount(ctx context.Context, accountNumber, bankCode string) (*ResolvedAccount, error) {
	accountNumber = strings.TrimSpace(accountNumber)
	bankCode = strings.TrimSpace(bankCode)
	if accountNumber == "" {
		return nil, required("accountNumber")
	}
	if bankCode == "" {
		return nil, required("bankCode")
	}

	verified, err := s.verifyAccount(ctx, accountNumber, bankCode)
	if err != nil {
		return nil, providerFailure(apperrors.ErrVerificationFailed, err)
	}
	resolved, err := s.resolveRecipient(ctx, accountNumber, bankCode)
	if err != nil {
		return nil, providerFailure(apperrors.ErrResolutionFailed, err)
	}

	out := &ResolvedAccount{
		AccountNumber: accountNumber,
		BankCode:      bankCode,
		AccountName:   resolved.AccountName,
		VerifiedName:  verified.AccountName,
	}
	if out.AccountName == "" {
		out.AccountName = verified.AccountName
	}
	return out, nil
}

// IssueVirtualAccount returns the user's deposit account, asking the
// verification provider for one the first time.
func (s *Service) IssueVirtualAccount(ctx context.Context, identity providers.Identity) (*models.VirtualAccount, error) {
	if identity.UserID == "" {
		return nil, required("userId")
	}

	existing, err := s.store.VirtualAccounts().GetByUserID(ctx, identity.UserID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repositories.ErrVirtualAccountNotFound) {
		return nil, apperrors.ErrInternal.Wrap(err)
	}

	callCtx, cancel := s.callContext(ctx)
	defer cancel()
	issued, err := s.verification.IssueVirtualAccount(callCtx, identity)
	if err != nil {
		return nil, providerFailure(apperrors.ErrVerificationFailed, err)
	}

	account := &models.VirtualAccount{
		UserID:            identity.UserID,
		AccountNumber:     issued.AccountNumber,
		BankName:          issued.BankName,
		AccountName:       issued.AccountName,
		ProviderReference: issued.ProviderReference,
	}
	err = s.store.VirtualAccounts().Create(context.WithoutCancel(ctx), account)
	if errors.Is(err, repositories.ErrDuplicateVirtualAccount) {
		// a concurrent request won; keep its account
		return s.store.VirtualAccounts().GetByUserID(ctx, identity.UserID)
	}
	if err != nil {
		return nil, apperrors.ErrInternal.Wrap(err)
	}

	s.logger.Info("virtual account issued",
		zap.String("user_id", account.UserID),
		zap.String("bank", account.BankName))
	return account, nil
}
