package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"kudi/internal/events"
	"kudi/internal/logging"
	"kudi/internal/metrics"
	"kudi/internal/models"
	"kudi/internal/repositories"
	"kudi/internal/services/ledger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultMaxAttempts = 5
	maxErrorLength     = 500
)

type Reconciler struct {
	store       repositories.Store
	wallets     WalletLedger
	ledger      TransactionLedger
	cashback    CashbackApplier
	collections CollectionSettler
	events      events.Publisher
	metrics     metrics.Collector
	logger      *zap.Logger
	config      Config
}

// NewReconciler creates a new webhook reconciler. cashback may be nil, in
// which case settled purchases earn no cashback.
func NewReconciler(
	store repositories.Store,
	wallets WalletLedger,
	ledgerSvc TransactionLedger,
	cashback CashbackApplier,
	publisher events.Publisher,
	m metrics.Collector,
	logger *zap.Logger,
	config Config,
) *Reconciler {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = defaultMaxAttempts
	}
	if config.Currency == "" {
		config.Currency = "NGN"
	}
	if publisher == nil {
		publisher = events.Noop{}
	}
	if m == nil {
		m = metrics.NoopCollector{}
	}
	return &Reconciler{
		store:    store,
		wallets:  wallets,
		ledger:   ledgerSvc,
		cashback: cashback,
		events:   publisher,
		metrics:  m,
		logger:   logging.OrNop(logger),
		config:   config,
	}
}

// WithCollections routes settlements of pending revenue collections to c.
func (r *Reconciler) WithCollections(c CollectionSettler) *Reconciler {
	r.collections = c
	return r
}

func (r *Reconciler) scheme(provider string) SignatureScheme {
	if s, ok := r.config.Schemes[provider]; ok {
		return s
	}
	if s, ok := DefaultSchemes[provider]; ok {
		return s
	}
	return SchemeHMACSHA512
}

// Ingest authenticates a notification, stores it in the inbox and applies
// it. Only ErrInvalidSignature and ErrMalformedPayload come back as errors;
// reconciliation problems are recorded on the inbox row and acknowledged.
func (r *Reconciler) Ingest(ctx context.Context, provider, signature string, body []byte) (*IngestResult, error) {
	if secret := r.config.Secrets[provider]; secret != "" && !r.scheme(provider).verify(secret, body, signature) {
		r.logger.Warn("webhook signature rejected",
			zap.String("provider", provider),
			zap.String("scheme", string(r.scheme(provider))))
		return nil, ErrInvalidSignature
	}

	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	key, err := eventKey(env)
	if err != nil {
		if errors.Is(err, ErrUnsupportedEvent) {
			r.logger.Info("ignoring webhook event", zap.String("provider", provider), zap.String("event_type", env.EventType))
			r.metrics.RecordWebhook(env.EventType, "ignored")
			return &IngestResult{EventType: env.EventType, Status: models.WebhookProcessed}, nil
		}
		return nil, err
	}

	event := &models.WebhookEvent{
		ID:        uuid.NewString(),
		Provider:  provider,
		EventType: env.EventType,
		EventKey:  key,
		Payload:   json.RawMessage(body),
		Status:    models.WebhookReceived,
	}
	stored, created, err := r.store.WebhookEvents().Save(context.WithoutCancel(ctx), event)
	if err != nil {
		// nothing persisted, so let the provider redeliver
		return nil, fmt.Errorf("failed to store webhook event: %w", err)
	}

	result := &IngestResult{EventID: stored.ID, EventType: stored.EventType, Status: stored.Status, Duplicate: !created}
	if !created && stored.Status != models.WebhookReceived && stored.Status != models.WebhookFailed {
		r.metrics.RecordWebhook(env.EventType, "duplicate")
		return result, nil
	}

	result.Status = r.Process(context.WithoutCancel(ctx), stored)
	return result, nil
}

// Process applies one inbox event and records the outcome on it.
func (r *Reconciler) Process(ctx context.Context, event *models.WebhookEvent) models.WebhookStatus {
	err := r.apply(ctx, event)

	status := models.WebhookProcessed
	lastErr := ""
	switch {
	case err == nil:
	case IsMismatch(err):
		status = models.WebhookMismatch
		lastErr = err.Error()
		r.logger.Error("webhook does not match the ledger",
			logging.Alert("webhook_mismatch"),
			zap.String("event_id", event.ID),
			zap.String("event_type", event.EventType),
			zap.String("event_key", event.EventKey),
			zap.Error(err))
	default:
		status = models.WebhookFailed
		lastErr = err.Error()
		fields := []zap.Field{
			zap.String("event_id", event.ID),
			zap.String("event_type", event.EventType),
			zap.Int("attempt", event.Attempts+1),
			zap.Error(err),
		}
		if event.Attempts+1 >= r.config.MaxAttempts {
			fields = append(fields, logging.Alert("webhook_exhausted"))
		}
		r.logger.Error("webhook reconciliation failed", fields...)
	}
	if len(lastErr) > maxErrorLength {
		lastErr = lastErr[:maxErrorLength]
	}

	if err := r.store.WebhookEvents().MarkOutcome(ctx, event.ID, status, lastErr, r.ledger.Now()); err != nil {
		r.logger.Error("failed to record webhook outcome", zap.String("event_id", event.ID), zap.Error(err))
	}
	r.metrics.RecordWebhook(event.EventType, string(status))
	return status
}

func (r *Reconciler) apply(ctx context.Context, event *models.WebhookEvent) error {
	var env Envelope
	if err := json.Unmarshal(event.Payload, &env); err != nil {
		return &MismatchError{EventType: event.EventType, Key: event.EventKey, Reason: "unreadable payload"}
	}
	switch env.EventType {
	case models.EventDepositSettled:
		var data DepositData
		if err := json.Unmarshal(env.EventData, &data); err != nil {
			return &MismatchError{EventType: env.EventType, Key: event.EventKey, Reason: "unreadable eventData"}
		}
		return r.settleDeposit(ctx, data)
	case models.EventTransferSettled:
		var data TransferData
		if err := json.Unmarshal(env.EventData, &data); err != nil {
			return &MismatchError{EventType: env.EventType, Key: event.EventKey, Reason: "unreadable eventData"}
		}
		return r.settleTransfer(ctx, data)
	}
	return &MismatchError{EventType: env.EventType, Key: event.EventKey, Reason: "unsupported event type"}
}

// settleDeposit credits an inbound bank deposit to the owner of the virtual
// account it was paid into, once per provider reference.
func (r *Reconciler) settleDeposit(ctx context.Context, data DepositData) error {
	mismatch := func(reason string) error {
		return &MismatchError{EventType: models.EventDepositSettled, Key: data.Reference, Reason: reason}
	}
	if !data.Amount.IsPositive() {
		return mismatch("deposit amount must be positive")
	}

	account, err := r.store.VirtualAccounts().GetByAccountNumber(ctx, data.AccountNumber)
	if errors.Is(err, repositories.ErrVirtualAccountNotFound) {
		return mismatch("no virtual account " + data.AccountNumber)
	}
	if err != nil {
		return err
	}

	key := models.DepositDedupeKey(data.Reference)
	if _, err := r.store.Transactions().GetByDedupeKey(ctx, key); err == nil {
		return nil
	} else if !errors.Is(err, repositories.ErrTransactionNotFound) {
		return err
	}

	currency := data.Currency
	if currency == "" {
		currency = r.config.Currency
	}
	tx := &models.Transaction{
		Reference:         r.ledger.NewReference(ledger.PrefixDeposit),
		UserID:            account.UserID,
		Type:              models.TransactionTypeDeposit,
		Amount:            data.Amount,
		Fee:               decimal.Zero,
		Currency:          currency,
		Status:            models.StatusCompleted,
		ProviderReference: data.Reference,
		Metadata: models.TransactionMetadata{
			ProviderTransactionID: data.Reference,
			BeneficiaryName:       data.SenderName,
			Narration:             data.Narration,
			AccountNumber:         data.AccountNumber,
		},
	}
	tx.Dedupe(key)

	err = r.store.ExecuteInTransaction(ctx, func(store repositories.Store) error {
		if err := r.ledger.Record(ctx, store, tx); err != nil {
			return err
		}
		_, err := r.wallets.Credit(ctx, store, account.UserID, data.Amount)
		return err
	})
	if errors.Is(err, repositories.ErrDuplicateDedupeKey) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to credit deposit %s: %w", data.Reference, err)
	}

	r.wallets.Invalidate(ctx, account.UserID)
	r.events.Publish(ctx, events.Event{
		Name:      events.DepositCredited,
		UserID:    tx.UserID,
		Reference: tx.Reference,
		Type:      string(tx.Type),
		Amount:    tx.Amount,
		Fee:       decimal.Zero,
		Status:    string(tx.Status),
		At:        tx.CreatedAt,
	})
	r.logger.Info("deposit credited",
		zap.String("reference", tx.Reference),
		zap.String("provider_reference", data.Reference),
		zap.String("user_id", tx.UserID),
		zap.String("amount", tx.Amount.String()))
	return nil
}

// settleTransfer finalizes a pending transfer or purchase. A failure refunds
// everything the wallet was debited and reverses the fee revenue.
func (r *Reconciler) settleTransfer(ctx context.Context, data TransferData) error {
	mismatch := func(reason string) error {
		key := data.Reference
		if key == "" {
			key = data.ProviderReference
		}
		return &MismatchError{EventType: models.EventTransferSettled, Key: key, Reason: reason}
	}

	tx, err := r.findTransaction(ctx, data)
	if errors.Is(err, repositories.ErrTransactionNotFound) {
		return mismatch("no matching transaction")
	}
	if err != nil {
		return err
	}

	outcome := data.outcome()
	switch {
	case outcome == settlementPending:
		return nil
	case tx.Status == models.StatusCompleted && outcome == settlementSuccessful,
		tx.Status == models.StatusFailed && outcome == settlementFailed:
		return nil
	case tx.Status != models.StatusPending:
		return mismatch(fmt.Sprintf("provider reports %s but ledger has %s", outcome, tx.Status))
	}

	providerRef := data.ProviderReference
	if providerRef == "" {
		providerRef = tx.ProviderReference
	}
	reason := data.Message
	if reason == "" {
		reason = "failed at provider"
	}

	if tx.Kind == models.KindRevenueCollection {
		if r.collections == nil {
			return fmt.Errorf("no collection settler for %s", tx.Reference)
		}
		return r.collections.SettleCollection(ctx, tx.Reference, providerRef, outcome == settlementSuccessful, reason)
	}

	if outcome == settlementSuccessful {
		err := r.store.ExecuteInTransaction(ctx, func(store repositories.Store) error {
			return r.ledger.Complete(ctx, store, tx.Reference, providerRef)
		})
		if errors.Is(err, repositories.ErrInvalidTransition) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to complete %s: %w", tx.Reference, err)
		}
		tx.Status = models.StatusCompleted
		r.publish(ctx, events.TransactionCompleted, tx)
		r.creditCashback(ctx, tx)
		return nil
	}

	err = r.store.ExecuteInTransaction(ctx, func(store repositories.Store) error {
		if err := r.ledger.Fail(ctx, store, tx.Reference, reason); err != nil {
			return err
		}
		if _, err := r.wallets.Refund(ctx, store, tx.UserID, tx.Total()); err != nil {
			return err
		}
		if tx.Fee.IsPositive() {
			if _, err := r.ledger.ReverseFee(ctx, store, tx); err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, repositories.ErrInvalidTransition) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to refund %s: %w", tx.Reference, err)
	}

	r.wallets.Invalidate(ctx, tx.UserID)
	tx.Status = models.StatusFailed
	r.publish(ctx, events.TransactionFailed, tx)
	r.logger.Info("pending transaction failed and refunded",
		zap.String("reference", tx.Reference),
		zap.String("user_id", tx.UserID),
		zap.String("refunded", tx.Total().String()),
		zap.String("reason", reason))
	return nil
}

func (r *Reconciler) findTransaction(ctx context.Context, data TransferData) (*models.Transaction, error) {
	if data.Reference != "" {
		tx, err := r.store.Transactions().GetByReference(ctx, data.Reference)
		if err == nil || !errors.Is(err, repositories.ErrTransactionNotFound) || data.ProviderReference == "" {
			return r.userTransaction(tx, err)
		}
	}
	if data.ProviderReference == "" {
		return nil, repositories.ErrTransactionNotFound
	}
	return r.userTransaction(r.store.Transactions().GetByProviderReference(ctx, data.ProviderReference))
}

// userTransaction rejects records a settlement can never apply to: only
// wallet debits and revenue collections go out through the provider.
func (r *Reconciler) userTransaction(tx *models.Transaction, err error) (*models.Transaction, error) {
	if err != nil {
		return nil, err
	}
	if !tx.Type.Debits() && tx.Kind != models.KindRevenueCollection {
		return nil, repositories.ErrTransactionNotFound
	}
	return tx, nil
}

func (r *Reconciler) creditCashback(ctx context.Context, tx *models.Transaction) {
	if r.cashback == nil || tx.Type != models.TransactionTypePayment || !tx.Service.Loyalty() {
		return
	}
	if _, err := r.cashback.ApplyCashback(ctx, tx); err != nil {
		r.logger.Error("cashback after settlement failed",
			zap.String("reference", tx.Reference),
			zap.Error(err))
	}
}

func (r *Reconciler) publish(ctx context.Context, name string, tx *models.Transaction) {
	r.events.Publish(ctx, events.Event{
		Name:      name,
		UserID:    tx.UserID,
		Reference: tx.Reference,
		Type:      string(tx.Type),
		Service:   string(tx.Service),
		Amount:    tx.Amount,
		Fee:       tx.Fee,
		Status:    string(tx.Status),
		At:        r.ledger.Now(),
	})
}

// eventKey identifies a notification for deduplication. Transfer updates
// include the status so a later final state is not mistaken for a repeat of
// an earlier interim one.
func eventKey(env Envelope) (string, error) {
	switch env.EventType {
	case models.EventDepositSettled:
		var data DepositData
		if err := json.Unmarshal(env.EventData, &data); err != nil {
			return "", fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		if data.Reference == "" {
			return "", fmt.Errorf("%w: deposit reference is required", ErrMalformedPayload)
		}
		return env.EventType + ":" + data.Reference, nil
	case models.EventTransferSettled:
		var data TransferData
		if err := json.Unmarshal(env.EventData, &data); err != nil {
			return "", fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		ref := data.Reference
		if ref == "" {
			ref = data.ProviderReference
		}
		if ref == "" {
			return "", fmt.Errorf("%w: transfer reference is required", ErrMalformedPayload)
		}
		return env.EventType + ":" + ref + ":" + string(data.outcome()), nil
	}
	if strings.TrimSpace(env.EventType) == "" {
		return "", fmt.Errorf("%w: eventType is required", ErrMalformedPayload)
	}
	return "", ErrUnsupportedEvent
}
