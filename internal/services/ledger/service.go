package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kudi/internal/logging"
	"kudi/internal/metrics"
	"kudi/internal/models"
	"kudi/internal/repositories"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Service struct {
	refs    ReferenceGenerator
	metrics metrics.Collector
	logger  *zap.Logger
	now     func() time.Time
}

func NewService(refs ReferenceGenerator, m metrics.Collector, logger *zap.Logger) *Service {
	if refs == nil {
		panic("reference generator is required")
	}
	if m == nil {
		m = metrics.NoopCollector{}
	}
	return &Service{
		refs:    refs,
		metrics: m,
		logger:  logging.OrNop(logger),
		now:     time.Now,
	}
}

// WithClock overrides the clock used for CreatedAt and CompletedAt stamps.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) Now() time.Time {
	return s.now()
}

func (s *Service) NewReference(prefix string) string {
	return s.refs.New(prefix)
}

// Record writes tx through store. A reference collision is reported as
// DuplicateReferenceError and raised as an alert.
func (s *Service) Record(ctx context.Context, store repositories.Store, tx *models.Transaction) error {
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = s.now()
	}
	if tx.Status == models.StatusCompleted && tx.CompletedAt == nil {
		at := tx.CreatedAt
		tx.CompletedAt = &at
	}

	err := store.Transactions().Create(ctx, tx)
	switch {
	case err == nil:
		s.metrics.RecordTransaction(string(tx.Type), string(tx.Status))
		return nil
	case errors.Is(err, repositories.ErrDuplicateReference):
		s.logger.Error("transaction reference collision",
			logging.Alert("duplicate_reference"),
			zap.String("reference", tx.Reference),
			zap.String("type", string(tx.Type)))
		return &DuplicateReferenceError{Reference: tx.Reference}
	default:
		return err
	}
}

// RecordFee writes the revenue record paired with source's fee. The dedupe
// key makes it at most one per source.
func (s *Service) RecordFee(ctx context.Context, store repositories.Store, source *models.Transaction) (*models.Transaction, error) {
	if !source.Fee.IsPositive() {
		return nil, ErrNoFee
	}
	rev := &models.Transaction{
		Reference: s.refs.New(PrefixFee),
		UserID:    models.SystemUserID,
		Type:      models.TransactionTypeRevenue,
		Kind:      models.KindFee,
		Amount:    source.Fee,
		Fee:       decimal.Zero,
		Currency:  source.Currency,
		Status:    models.StatusCompleted,
		Metadata: models.TransactionMetadata{
			SourceTransactionID: source.Reference,
		},
	}
	rev.Dedupe(models.FeeDedupeKey(source.Reference))
	if err := s.Record(ctx, store, rev); err != nil {
		return nil, fmt.Errorf("failed to record fee revenue: %w", err)
	}
	return rev, nil
}

// ReverseFee offsets a fee whose source transaction failed after being
// recorded. The offset is a negative revenue row so collected history stays
// untouched.
func (s *Service) ReverseFee(ctx context.Context, store repositories.Store, source *models.Transaction) (*models.Transaction, error) {
	if !source.Fee.IsPositive() {
		return nil, ErrNoFee
	}
	rev := &models.Transaction{
		Reference: s.refs.New(PrefixReversal),
		UserID:    models.SystemUserID,
		Type:      models.TransactionTypeRevenue,
		Kind:      models.KindRevenueReversal,
		Amount:    source.Fee.Neg(),
		Currency:  source.Currency,
		Status:    models.StatusCompleted,
		Metadata: models.TransactionMetadata{
			SourceTransactionID: source.Reference,
		},
	}
	rev.Dedupe(models.ReversalDedupeKey(source.Reference))
	if err := s.Record(ctx, store, rev); err != nil {
		return nil, fmt.Errorf("failed to record fee reversal: %w", err)
	}
	return rev, nil
}

// Complete moves a pending record to completed.
func (s *Service) Complete(ctx context.Context, store repositories.Store, reference, providerRef string) error {
	return s.transition(ctx, store, reference, repositories.StatusChange{
		From:              models.StatusPending,
		To:                models.StatusCompleted,
		ProviderReference: providerRef,
	})
}

// Fail moves a pending record to failed.
func (s *Service) Fail(ctx context.Context, store repositories.Store, reference, reason string) error {
	return s.transition(ctx, store, reference, repositories.StatusChange{
		From:          models.StatusPending,
		To:            models.StatusFailed,
		FailureReason: reason,
	})
}

func (s *Service) transition(ctx context.Context, store repositories.Store, reference string, change repositories.StatusChange) error {
	change.At = s.now()
	if err := store.Transactions().TransitionStatus(ctx, reference, change); err != nil {
		return err
	}
	s.metrics.RecordTransaction("transition", string(change.To))
	return nil
}
