package orchestrator

import (
	"context"
	"strings"

	apperrors "kudi/internal/errors"
	"kudi/internal/logging"
	"kudi/internal/models"
	"kudi/internal/providers"
	"kudi/internal/repositories"
	"kudi/internal/services/ledger"
	"kudi/internal/services/pricing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func (r *TransferRequest) validate() error {
	switch {
	case r.UserID == "":
		return required("userId")
	case strings.TrimSpace(r.AccountNumber) == "":
		return required("accountNumber")
	case strings.TrimSpace(r.BankCode) == "":
		return required("bankCode")
	case !r.Amount.IsPositive():
		return apperrors.ErrValidation.WithMessage("amount must be greater than zero")
	}
	return nil
}

// QuoteTransfer prices a transfer without touching the wallet.
func (s *Service) QuoteTransfer(amount decimal.Decimal) (pricing.TransferQuote, error) {
	q, err := s.pricing.TransferFee(amount)
	if err != nil {
		return pricing.TransferQuote{}, pricingError(err)
	}
	return q, nil
}

// Transfer sends money from the user's wallet to a bank account. The wallet
// is debited amount plus fee and a paired revenue record holds the fee.
func (s *Service) Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	quote, err := s.pricing.TransferFee(req.Amount)
	if err != nil {
		return nil, pricingError(err)
	}

	unlock, err := s.wallets.Lock(ctx, req.UserID)
	if err != nil {
		return nil, apperrors.ErrInternal.Wrap(err)
	}
	defer unlock()

	if err := s.wallets.Reserve(ctx, s.store, req.UserID, quote.Total); err != nil {
		return nil, err
	}

	narration := strings.TrimSpace(req.Narration)
	if narration == "" {
		narration = defaultNarration
	}
	reference := s.ledger.NewReference(ledger.PrefixTransfer)

	outcome, err := s.CompleteTransfer(ctx, TransferInstruction{
		AccountNumber: req.AccountNumber,
		BankCode:      req.BankCode,
		Amount:        req.Amount,
		Narration:     narration,
		Reference:     reference,
	})
	if err != nil {
		s.metrics.RecordTransaction(string(models.TransactionTypeWithdrawal), string(models.StatusFailed))
		s.logger.Info("transfer aborted",
			zap.String("reference", reference),
			zap.String("user_id", req.UserID),
			zap.Error(err))
		return nil, err
	}

	tx := &models.Transaction{
		Reference:         reference,
		UserID:            req.UserID,
		Type:              models.TransactionTypeWithdrawal,
		Service:           models.ServiceTransfer,
		Amount:            quote.Amount,
		Fee:               quote.Fee,
		Currency:          s.config.Currency,
		Status:            statusOf(outcome.Status),
		ProviderReference: outcome.ProviderRef,
		Metadata: models.TransactionMetadata{
			ProviderTransactionID: outcome.ProviderRef,
			Narration:             narration,
			BeneficiaryName:       outcome.BeneficiaryName(),
			BankCode:              req.BankCode,
			AccountNumber:         req.AccountNumber,
		},
	}

	var wallet *models.Wallet
	err = s.commit(ctx, func(store repositories.Store) error {
		if err := s.ledger.Record(ctx, store, tx); err != nil {
			return err
		}
		if tx.Fee.IsPositive() {
			if _, err := s.ledger.RecordFee(ctx, store, tx); err != nil {
				return err
			}
		}
		var err error
		wallet, err = s.wallets.Debit(ctx, store, req.UserID, tx.Total())
		return err
	})
	if err != nil {
		s.alertUnrecorded(tx, err)
		return nil, apperrors.ErrInternal.Wrap(err)
	}

	s.wallets.Invalidate(ctx, req.UserID)
	s.publishTransaction(ctx, tx)
	s.logger.Info("transfer completed",
		zap.String("reference", tx.Reference),
		zap.String("user_id", tx.UserID),
		zap.String("amount", tx.Amount.String()),
		zap.String("fee", tx.Fee.String()),
		zap.String("status", string(tx.Status)))

	return &TransferResult{
		Reference:         tx.Reference,
		Amount:            tx.Amount,
		Fee:               tx.Fee,
		Total:             tx.Total(),
		Status:            tx.Status,
		BeneficiaryName:   tx.Metadata.BeneficiaryName,
		ProviderReference: tx.ProviderReference,
		Balance:           wallet.Balance,
	}, nil
}

// CompleteTransfer runs the payout saga: verify the account, resolve it again
// at the disbursement provider, then transfer. The first two steps move no
// money and are retried on transient failures; the transfer itself is sent
// exactly once under in.Reference.
func (s *Service) CompleteTransfer(ctx context.Context, in TransferInstruction) (*TransferOutcome, error) {
	if in.Reference == "" {
		return nil, required("reference")
	}

	verified, err := s.verifyAccount(ctx, in.AccountNumber, in.BankCode)
	if err != nil {
		return nil, providerFailure(apperrors.ErrVerificationFailed, err)
	}
	resolved, err := s.resolveRecipient(ctx, in.AccountNumber, in.BankCode)
	if err != nil {
		return nil, providerFailure(apperrors.ErrResolutionFailed, err)
	}

	outcome := &TransferOutcome{
		VerifiedName: verified.AccountName,
		ResolvedName: resolved.AccountName,
	}

	callCtx, cancel := s.callContext(ctx)
	defer cancel()
	disbursed, err := s.disbursement.Transfer(callCtx, providers.TransferRequest{
		AccountNumber:   in.AccountNumber,
		BankCode:        in.BankCode,
		Amount:          in.Amount,
		Narration:       in.Narration,
		BeneficiaryName: outcome.BeneficiaryName(),
		Reference:       in.Reference,
	})
	switch {
	case err == nil:
	case providers.IsAccepted(err):
		// held as pending under in.Reference until the settlement webhook
		s.logger.Error("transfer accepted with unreadable response",
			logging.Alert("transfer_outcome_unknown"),
			zap.String("reference", in.Reference),
			zap.String("amount", in.Amount.String()),
			zap.Error(err))
		outcome.Status = providers.StatusPending
		return outcome, nil
	default:
		if providers.IsTransient(err) {
			// the request may still have reached the provider
			s.logger.Error("transfer outcome unknown",
				logging.Alert("transfer_outcome_unknown"),
				zap.String("reference", in.Reference),
				zap.String("amount", in.Amount.String()),
				zap.Error(err))
		}
		return nil, providerFailure(apperrors.ErrTransferFailed, err)
	}

	outcome.ProviderRef = disbursed.ProviderRef
	outcome.Status = disbursed.Status
	return outcome, nil
}

func (s *Service) verifyAccount(ctx context.Context, accountNumber, bankCode string) (*providers.AccountName, error) {
	var out *providers.AccountName
	err := providers.Retry(ctx, s.config.Retry, func(ctx context.Context) error {
		var err error
		out, err = s.verification.VerifyAccount(ctx, accountNumber, bankCode)
		return err
	})
	return out, err
}

func (s *Service) resolveRecipient(ctx context.Context, accountNumber, bankCode string) (*providers.AccountName, error) {
	var out *providers.AccountName
	err := providers.Retry(ctx, s.config.Retry, func(ctx context.Context) error {
		var err error
		out, err = s.disbursement.ResolveRecipient(ctx, accountNumber, bankCode)
		return err
	})
	return out, err
}
