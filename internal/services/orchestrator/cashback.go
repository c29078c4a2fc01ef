package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"kudi/internal/events"
	"kudi/internal/models"
	"kudi/internal/repositories"
	"kudi/internal/services/ledger"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ApplyCashback credits loyalty cashback for a recorded airtime or data
// purchase. The count is re-read from the ledger up to and including source,
// so the step gives the same answer whenever it runs. At most one cashback
// exists per source; a repeat returns the existing record with Credited false.
// Only completed purchases are credited.
func (s *Service) ApplyCashback(ctx context.Context, source *models.Transaction) (*CashbackResult, error) {
	if source.Type != models.TransactionTypePayment || !source.Service.Loyalty() {
		return nil, fmt.Errorf("%s is not a loyalty purchase", source.Reference)
	}
	count, err := s.counter.CountThrough(ctx, s.store, source.UserID, source.Service, source.CreatedAt)
	if err != nil {
		return nil, err
	}
	quote, err := s.pricing.ServicePricing(source.Amount, count, source.Service)
	if err != nil {
		return nil, fmt.Errorf("failed to price cashback for %s: %w", source.Reference, err)
	}

	result := &CashbackResult{
		Count:    count,
		Eligible: quote.IsEligibleForCashback,
		Amount:   quote.CashbackAmount,
	}
	// pending purchases are credited once their settlement webhook confirms them
	if !quote.IsEligibleForCashback || !quote.CashbackAmount.IsPositive() || source.Status != models.StatusCompleted {
		return result, nil
	}

	key := models.CashbackDedupeKey(source.Reference)
	if existing, err := s.store.Transactions().GetByDedupeKey(ctx, key); err == nil {
		result.Transaction = existing
		return result, nil
	} else if !errors.Is(err, repositories.ErrTransactionNotFound) {
		return nil, err
	}

	cb := &models.Transaction{
		Reference: s.ledger.NewReference(ledger.PrefixCashback),
		UserID:    source.UserID,
		Type:      models.TransactionTypeDeposit,
		Kind:      models.KindCashback,
		Amount:    quote.CashbackAmount,
		Fee:       decimal.Zero,
		Currency:  source.Currency,
		Status:    models.StatusCompleted,
		Metadata: models.TransactionMetadata{
			OriginalTransactionID: source.Reference,
			DailyPurchaseCount:    count,
		},
	}
	cb.Dedupe(key)

	var wallet *models.Wallet
	err = s.commit(ctx, func(store repositories.Store) error {
		if err := s.ledger.Record(ctx, store, cb); err != nil {
			return err
		}
		var err error
		wallet, err = s.wallets.Credit(ctx, store, source.UserID, cb.Amount)
		return err
	})
	if errors.Is(err, repositories.ErrDuplicateDedupeKey) {
		// lost a race with another run for the same source
		s.logger.Warn("duplicate cashback blocked",
			zap.String("source_reference", source.Reference),
			zap.Error(ErrCashbackAlreadyApplied))
		if existing, getErr := s.store.Transactions().GetByDedupeKey(ctx, key); getErr == nil {
			result.Transaction = existing
		}
		return result, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to credit cashback for %s: %w", source.Reference, err)
	}

	result.Transaction = cb
	result.Credited = true
	balance := wallet.Balance
	result.Balance = &balance

	s.wallets.Invalidate(ctx, source.UserID)
	s.metrics.RecordCashback(string(source.Service), cb.Amount)
	s.events.Publish(ctx, events.Event{
		Name:      events.CashbackCredited,
		UserID:    cb.UserID,
		Reference: cb.Reference,
		Type:      string(cb.Type),
		Service:   string(source.Service),
		Amount:    cb.Amount,
		Fee:       decimal.Zero,
		Status:    string(cb.Status),
		At:        cb.CreatedAt,
	})
	s.logger.Info("cashback credited",
		zap.String("reference", cb.Reference),
		zap.String("source_reference", source.Reference),
		zap.String("user_id", cb.UserID),
		zap.String("amount", cb.Amount.String()),
		zap.Int("daily_count", count))
	return result, nil
}
