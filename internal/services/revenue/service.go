// Package revenue sweeps accumulated fee revenue to the operator's bank
// account. Source records are only marked collected once the payout has
// succeeded. A payout the provider reports as pending is recorded as a
// pending collection and settled by the transfer webhook; until then no
// other collection may start.
package revenue

import (
	"context"
	"errors"
	"fmt"

	apperrors "kudi/internal/errors"
	"kudi/internal/events"
	"kudi/internal/lock"
	"kudi/internal/logging"
	"kudi/internal/metrics"
	"kudi/internal/models"
	"kudi/internal/providers"
	"kudi/internal/repositories"
	"kudi/internal/services/ledger"
	"kudi/internal/services/orchestrator"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const collectionLockKey = "revenue:collection"

type Service struct {
	store      repositories.Store
	ledger     TransactionLedger
	transfers  Transferer
	locker     lock.Locker
	settlement Settlement
	events     events.Publisher
	metrics    metrics.Collector
	logger     *zap.Logger
}

// NewService creates a new revenue service
func NewService(
	store repositories.Store,
	ledgerSvc TransactionLedger,
	transfers Transferer,
	locker lock.Locker,
	settlement Settlement,
	publisher events.Publisher,
	m metrics.Collector,
	logger *zap.Logger,
) *Service {
	if publisher == nil {
		publisher = events.Noop{}
	}
	if m == nil {
		m = metrics.NoopCollector{}
	}
	return &Service{
		store:      store,
		ledger:     ledgerSvc,
		transfers:  transfers,
		locker:     locker,
		settlement: settlement,
		events:     publisher,
		metrics:    m,
		logger:     logging.OrNop(logger),
	}
}

func uncollectedFilter() repositories.TransactionFilter {
	collected := false
	return repositories.TransactionFilter{
		UserID:    models.SystemUserID,
		Types:     []models.TransactionType{models.TransactionTypeRevenue},
		Kinds:     []models.TransactionKind{models.KindFee, models.KindRevenueReversal},
		Collected: &collected,
	}
}

// UncollectedRevenue lists revenue records not yet swept, oldest first.
// Fee reversals are included and net against the fees.
func (s *Service) UncollectedRevenue(ctx context.Context) (*Uncollected, error) {
	txs, err := s.store.Transactions().List(ctx, uncollectedFilter())
	if err != nil {
		return nil, apperrors.ErrInternal.Wrap(err)
	}
	total := decimal.Zero
	for i := range txs {
		total = total.Add(txs[i].Amount)
	}
	if txs == nil {
		txs = []models.Transaction{}
	}
	return &Uncollected{TotalAmount: total, Count: len(txs), Transactions: txs}, nil
}

// Collect sweeps uncollected revenue to the settlement account. With a nil
// amount everything is swept; otherwise whole records are taken oldest
// first while they fit in amount.
func (s *Service) Collect(ctx context.Context, amount *decimal.Decimal) (*Collection, error) {
	if s.settlement.AccountNumber == "" || s.settlement.BankCode == "" {
		return nil, apperrors.ErrInternal.WithMessage("settlement account is not configured")
	}

	unlock, acquired, err := s.locker.TryLock(ctx, collectionLockKey)
	if err != nil {
		return nil, apperrors.ErrInternal.Wrap(err)
	}
	if !acquired {
		return nil, apperrors.ErrCollectionInProgress
	}
	defer unlock()

	inFlight, err := s.store.Transactions().List(ctx, repositories.TransactionFilter{
		UserID:   models.SystemUserID,
		Types:    []models.TransactionType{models.TransactionTypeRevenue},
		Kinds:    []models.TransactionKind{models.KindRevenueCollection},
		Statuses: []models.TransactionStatus{models.StatusPending},
		Limit:    1,
	})
	if err != nil {
		return nil, apperrors.ErrInternal.Wrap(err)
	}
	if len(inFlight) > 0 {
		return nil, apperrors.ErrCollectionInProgress.WithMessage(
			"collection %s is awaiting settlement", inFlight[0].Reference)
	}

	pending, err := s.UncollectedRevenue(ctx)
	if err != nil {
		return nil, err
	}
	if !pending.TotalAmount.IsPositive() {
		return nil, apperrors.ErrNothingToCollect
	}

	swept, total, err := s.selectRecords(pending, amount)
	if err != nil {
		return nil, err
	}
	if total.LessThan(s.settlement.MinimumAmount) {
		return nil, apperrors.ErrNothingToCollect.WithMessage(
			"collection of %s is below the minimum of %s", total.StringFixed(2), s.settlement.MinimumAmount.StringFixed(2))
	}

	reference := s.ledger.NewReference(ledger.PrefixCollection)
	outcome, err := s.transfers.CompleteTransfer(ctx, orchestrator.TransferInstruction{
		AccountNumber: s.settlement.AccountNumber,
		BankCode:      s.settlement.BankCode,
		Amount:        total,
		Narration:     "Revenue collection " + reference,
		Reference:     reference,
	})
	if err != nil {
		s.logger.Warn("revenue collection transfer failed",
			zap.String("reference", reference),
			zap.String("amount", total.String()),
			zap.Error(err))
		return nil, err
	}

	ids := make([]uint, len(swept))
	for i := range swept {
		ids[i] = swept[i].ID
	}
	settled := outcome.Status != providers.StatusPending
	status := models.StatusCompleted
	if !settled {
		status = models.StatusPending
	}

	now := s.ledger.Now()
	// collection rows are never swept themselves
	record := &models.Transaction{
		Reference:         reference,
		UserID:            models.SystemUserID,
		Type:              models.TransactionTypeRevenue,
		Kind:              models.KindRevenueCollection,
		Amount:            total.Neg(),
		Fee:               decimal.Zero,
		Status:            status,
		ProviderReference: outcome.ProviderRef,
		Collected:         true,
		CollectedAt:       &now,
		Metadata: models.TransactionMetadata{
			ProviderTransactionID: outcome.ProviderRef,
			CollectionReference:   reference,
			SweptCount:            len(swept),
			SweptIDs:              ids,
			BeneficiaryName:       outcome.BeneficiaryName(),
			AccountNumber:         s.settlement.AccountNumber,
			BankCode:              s.settlement.BankCode,
		},
	}
	record.Dedupe(models.CollectionDedupeKey(reference))

	// the payout went out; recording it must not depend on the caller
	commitCtx := context.WithoutCancel(ctx)
	err = s.store.ExecuteInTransaction(commitCtx, func(store repositories.Store) error {
		if settled {
			if err := store.Transactions().MarkCollected(commitCtx, ids, now); err != nil {
				return err
			}
		}
		return s.ledger.Record(commitCtx, store, record)
	})
	if err != nil {
		s.logger.Error("revenue payout accepted but not recorded",
			logging.Alert("unrecorded_collection"),
			zap.String("reference", reference),
			zap.String("amount", total.String()),
			zap.String("provider_reference", outcome.ProviderRef),
			zap.Error(err))
		return nil, apperrors.ErrInternal.Wrap(err)
	}

	if settled {
		s.collected(ctx, record)
	} else {
		s.logger.Info("revenue payout pending settlement",
			zap.String("reference", reference),
			zap.String("amount", total.String()),
			zap.Int("records", len(swept)))
	}

	return &Collection{
		Reference:         reference,
		CollectedAmount:   total,
		ProviderReference: outcome.ProviderRef,
		TransferStatus:    status,
		SweptCount:        len(swept),
		Remaining:         pending.TotalAmount.Sub(total),
	}, nil
}

// SettleCollection finalizes a pending collection once the provider reports
// the payout's outcome. Success marks the swept records collected; failure
// leaves them for the next sweep. Settling twice is a no-op.
func (s *Service) SettleCollection(ctx context.Context, reference, providerRef string, succeeded bool, reason string) error {
	var record *models.Transaction
	err := s.store.ExecuteInTransaction(ctx, func(store repositories.Store) error {
		tx, err := store.Transactions().GetByReference(ctx, reference)
		if err != nil {
			return err
		}
		if tx.Kind != models.KindRevenueCollection {
			return fmt.Errorf("%s is not a revenue collection", reference)
		}
		record = tx
		if !succeeded {
			return s.ledger.Fail(ctx, store, reference, reason)
		}
		if err := s.ledger.Complete(ctx, store, reference, providerRef); err != nil {
			return err
		}
		return store.Transactions().MarkCollected(ctx, tx.Metadata.SweptIDs, s.ledger.Now())
	})
	if errors.Is(err, repositories.ErrInvalidTransition) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to settle collection %s: %w", reference, err)
	}

	if !succeeded {
		s.logger.Warn("revenue payout failed, records stay uncollected",
			zap.String("reference", reference),
			zap.String("amount", record.Amount.Neg().String()),
			zap.String("reason", reason))
		return nil
	}
	record.Status = models.StatusCompleted
	s.collected(ctx, record)
	return nil
}

func (s *Service) collected(ctx context.Context, record *models.Transaction) {
	amount := record.Amount.Neg()
	s.metrics.RecordRevenueCollected(amount)
	s.events.Publish(ctx, events.Event{
		Name:      events.RevenueCollected,
		UserID:    models.SystemUserID,
		Reference: record.Reference,
		Type:      string(models.TransactionTypeRevenue),
		Amount:    amount,
		Fee:       decimal.Zero,
		Status:    string(record.Status),
		At:        s.ledger.Now(),
	})
	s.logger.Info("revenue collected",
		zap.String("reference", record.Reference),
		zap.String("amount", amount.String()),
		zap.Int("records", record.Metadata.SweptCount))
}

// selectRecords picks what a sweep of amount covers. Reversals always fit.
func (s *Service) selectRecords(pending *Uncollected, amount *decimal.Decimal) ([]models.Transaction, decimal.Decimal, error) {
	if amount == nil {
		return pending.Transactions, pending.TotalAmount, nil
	}
	if !amount.IsPositive() {
		return nil, decimal.Zero, apperrors.ErrValidation.WithMessage("amount must be greater than zero")
	}
	if amount.GreaterThan(pending.TotalAmount) {
		return nil, decimal.Zero, apperrors.ErrValidation.WithMessage(
			"requested %s exceeds uncollected revenue of %s", amount.StringFixed(2), pending.TotalAmount.StringFixed(2))
	}

	var (
		picked []models.Transaction
		total  = decimal.Zero
	)
	for _, tx := range pending.Transactions {
		next := total.Add(tx.Amount)
		if next.GreaterThan(*amount) {
			continue
		}
		picked = append(picked, tx)
		total = next
	}
	if !total.IsPositive() {
		return nil, decimal.Zero, apperrors.ErrNothingToCollect.WithMessage(
			"no whole revenue records fit in %s", amount.StringFixed(2))
	}
	return picked, total, nil
}

// Summary reports revenue generated, collected and still waiting.
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	txs := s.store.Transactions()
	generated, err := txs.Sum(ctx, repositories.TransactionFilter{
		UserID: models.SystemUserID,
		Types:  []models.TransactionType{models.TransactionTypeRevenue},
		Kinds:  []models.TransactionKind{models.KindFee, models.KindRevenueReversal},
	})
	if err != nil {
		return nil, apperrors.ErrInternal.Wrap(err)
	}
	collections, err := txs.List(ctx, repositories.TransactionFilter{
		UserID:   models.SystemUserID,
		Types:    []models.TransactionType{models.TransactionTypeRevenue},
		Kinds:    []models.TransactionKind{models.KindRevenueCollection},
		Statuses: []models.TransactionStatus{models.StatusCompleted},
		Newest:   true,
	})
	if err != nil {
		return nil, apperrors.ErrInternal.Wrap(err)
	}
	pending, err := s.UncollectedRevenue(ctx)
	if err != nil {
		return nil, err
	}

	collected := decimal.Zero
	for i := range collections {
		collected = collected.Sub(collections[i].Amount)
	}
	out := &Summary{
		TotalGenerated:         generated,
		TotalCollected:         collected,
		Uncollected:            pending.TotalAmount,
		UncollectedCount:       pending.Count,
		AvailableForCollection: decimal.Zero,
		MinimumCollection:      s.settlement.MinimumAmount,
		CollectionCount:        len(collections),
	}
	if pending.TotalAmount.IsPositive() && pending.TotalAmount.GreaterThanOrEqual(s.settlement.MinimumAmount) {
		out.AvailableForCollection = pending.TotalAmount
	}
	if len(collections) > 0 {
		at := collections[0].CreatedAt
		out.LastCollectedAt = &at
	}
	return out, nil
}

// CollectionHistory returns past sweeps, newest first.
func (s *Service) CollectionHistory(ctx context.Context, limit int) ([]models.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	out, err := s.store.Transactions().List(ctx, repositories.TransactionFilter{
		UserID: models.SystemUserID,
		Types:  []models.TransactionType{models.TransactionTypeRevenue},
		Kinds:  []models.TransactionKind{models.KindRevenueCollection},
		Limit:  limit,
		Newest: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	return out, nil
}
