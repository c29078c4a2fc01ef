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

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func (r *PurchaseRequest) validate() error {
	if r.UserID == "" {
		return required("userId")
	}
	if !r.Amount.IsPositive() {
		return apperrors.ErrValidation.WithMessage("amount must be greater than zero")
	}
	switch r.Service {
	case models.ServiceAirtime:
		if strings.TrimSpace(r.Phone) == "" {
			return required("phone")
		}
		if strings.TrimSpace(r.Network) == "" {
			return required("network")
		}
	case models.ServiceData:
		if strings.TrimSpace(r.Phone) == "" {
			return required("phone")
		}
		if strings.TrimSpace(r.Plan) == "" {
			return required("plan")
		}
	case models.ServiceBill:
		if strings.TrimSpace(r.BillerCode) == "" {
			return required("billerCode")
		}
		if strings.TrimSpace(r.CustomerID) == "" {
			return required("customerId")
		}
	default:
		return apperrors.ErrValidation.WithMessage("unsupported service %q", r.Service)
	}
	return nil
}

// QuotePurchase previews the price and loyalty position of a purchase the
// user has not made yet.
func (s *Service) QuotePurchase(ctx context.Context, userID string, service models.Service, amount decimal.Decimal) (*PurchaseQuote, error) {
	if userID == "" {
		return nil, required("userId")
	}
	return s.price(ctx, s.store, userID, service, amount)
}

// price computes what the purchase costs. Loyalty services are priced with
// the count this purchase will make, since the cashback step re-reads it
// after recording.
func (s *Service) price(ctx context.Context, store repositories.Store, userID string, service models.Service, amount decimal.Decimal) (*PurchaseQuote, error) {
	switch {
	case service.Loyalty():
		count, err := s.counter.CountToday(ctx, store, userID, service)
		if err != nil {
			return nil, apperrors.ErrInternal.Wrap(err)
		}
		q, err := s.pricing.ServicePricing(amount, count+1, service)
		if err != nil {
			return nil, pricingError(err)
		}
		return &PurchaseQuote{
			Service:                 service,
			Amount:                  amount,
			Fee:                     decimal.Zero,
			UserPays:                q.UserPays,
			DailyPurchaseCount:      q.DailyPurchaseCount,
			IsEligibleForCashback:   q.IsEligibleForCashback,
			CashbackAmount:          q.CashbackAmount,
			NextPurchaseForCashback: q.NextPurchaseForCashback,
		}, nil
	case service == models.ServiceBill:
		q, err := s.pricing.BillFee(amount)
		if err != nil {
			return nil, pricingError(err)
		}
		return &PurchaseQuote{
			Service:        service,
			Amount:         amount,
			Fee:            q.TotalFee,
			UserPays:       q.UserPays,
			CashbackAmount: decimal.Zero,
		}, nil
	}
	return nil, apperrors.ErrValidation.WithMessage("unsupported service %q", service)
}

// Purchase buys airtime or data or pays a bill from the wallet. The wallet is
// only debited after the provider accepted the purchase; airtime and data
// then go through the cashback step.
func (s *Service) Purchase(ctx context.Context, req PurchaseRequest) (*PurchaseResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	unlock, err := s.wallets.Lock(ctx, req.UserID)
	if err != nil {
		return nil, apperrors.ErrInternal.Wrap(err)
	}
	defer unlock()

	quote, err := s.price(ctx, s.store, req.UserID, req.Service, req.Amount)
	if err != nil {
		return nil, err
	}
	if err := s.wallets.Reserve(ctx, s.store, req.UserID, quote.UserPays); err != nil {
		return nil, err
	}

	reference := s.ledger.NewReference(ledger.ServicePrefix(req.Service))
	disbursed, err := s.settle(ctx, req, reference)
	if providers.IsAccepted(err) {
		// held as pending under reference until the settlement webhook
		s.logger.Error("purchase accepted with unreadable response",
			logging.Alert("purchase_outcome_unknown"),
			zap.String("reference", reference),
			zap.String("user_id", req.UserID),
			zap.String("service", string(req.Service)),
			zap.Error(err))
		disbursed, err = &providers.Disbursement{Status: providers.StatusPending}, nil
	}
	if err != nil {
		s.metrics.RecordTransaction(string(models.TransactionTypePayment), string(models.StatusFailed))
		s.logger.Info("purchase failed",
			zap.String("reference", reference),
			zap.String("user_id", req.UserID),
			zap.String("service", string(req.Service)),
			zap.Error(err))
		return nil, providerFailure(apperrors.ErrSettlementFailed, err)
	}

	tx := &models.Transaction{
		Reference:         reference,
		UserID:            req.UserID,
		Type:              models.TransactionTypePayment,
		Service:           req.Service,
		Amount:            req.Amount,
		Fee:               quote.Fee,
		Currency:          s.config.Currency,
		Status:            statusOf(disbursed.Status),
		ProviderReference: disbursed.ProviderRef,
		Metadata: models.TransactionMetadata{
			ProviderTransactionID: disbursed.ProviderRef,
			Phone:                 req.Phone,
			Network:               req.Network,
			Plan:                  req.Plan,
			BillerCode:            req.BillerCode,
			CustomerID:            req.CustomerID,
		},
	}
	if req.Service.Loyalty() {
		cashback := quote.CashbackAmount
		tx.Metadata.DailyPurchaseCount = quote.DailyPurchaseCount
		tx.Metadata.IsEligibleForCashback = quote.IsEligibleForCashback
		tx.Metadata.CashbackAmount = &cashback
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
		wallet, err = s.wallets.Debit(ctx, store, req.UserID, quote.UserPays)
		return err
	})
	if err != nil {
		s.alertUnrecorded(tx, err)
		return nil, apperrors.ErrInternal.Wrap(err)
	}
	s.wallets.Invalidate(ctx, req.UserID)
	s.publishTransaction(ctx, tx)

	result := &PurchaseResult{
		Reference:               tx.Reference,
		Service:                 tx.Service,
		Amount:                  tx.Amount,
		Fee:                     tx.Fee,
		UserPays:                quote.UserPays,
		Status:                  tx.Status,
		ProviderReference:       tx.ProviderReference,
		DailyPurchaseCount:      quote.DailyPurchaseCount,
		IsEligibleForCashback:   quote.IsEligibleForCashback,
		CashbackAmount:          quote.CashbackAmount,
		NextPurchaseForCashback: quote.NextPurchaseForCashback,
		Balance:                 wallet.Balance,
	}

	if req.Service.Loyalty() {
		cb, err := s.ApplyCashback(ctx, tx)
		if err != nil {
			// the purchase stands; the cashback can be replayed from the record
			s.logger.Error("cashback step failed",
				zap.String("reference", tx.Reference),
				zap.String("user_id", tx.UserID),
				zap.Error(err))
		} else {
			result.DailyPurchaseCount = cb.Count
			result.IsEligibleForCashback = cb.Eligible
			result.CashbackAmount = cb.Amount
			if cb.Transaction != nil {
				result.CashbackReference = cb.Transaction.Reference
			}
			if cb.Balance != nil {
				result.Balance = *cb.Balance
			}
		}
	}

	s.logger.Info("purchase completed",
		zap.String("reference", tx.Reference),
		zap.String("user_id", tx.UserID),
		zap.String("service", string(tx.Service)),
		zap.String("user_pays", quote.UserPays.String()),
		zap.Bool("cashback", result.CashbackReference != ""))
	return result, nil
}

// settle places the purchase at the disbursement provider. None of these
// calls is retried; the reference doubles as the provider's idempotency key.
func (s *Service) settle(ctx context.Context, req PurchaseRequest, reference string) (*providers.Disbursement, error) {
	callCtx, cancel := s.callContext(ctx)
	defer cancel()

	switch req.Service {
	case models.ServiceAirtime:
		return s.disbursement.BuyAirtime(callCtx, providers.AirtimeRequest{
			Phone:     req.Phone,
			Amount:    req.Amount,
			Network:   req.Network,
			Reference: reference,
		})
	case models.ServiceData:
		return s.disbursement.BuyData(callCtx, providers.DataRequest{
			Phone:     req.Phone,
			Plan:      req.Plan,
			Network:   req.Network,
			Amount:    req.Amount,
			Reference: reference,
		})
	default:
		return s.disbursement.PayBill(callCtx, providers.BillRequest{
			BillerCode: req.BillerCode,
			CustomerID: req.CustomerID,
			Amount:     req.Amount,
			Reference:  reference,
		})
	}
}
