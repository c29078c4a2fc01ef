package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Store groups the repositories that must change together. Every ledger write
// (wallet mutation plus its paired transaction record) goes through
// ExecuteInTransaction.
type Store interface {
	Wallets() WalletRepository
	Transactions() TransactionRepository
	VirtualAccounts() VirtualAccountRepository
	WebhookEvents() WebhookEventRepository

	// ExecuteInTransaction runs fn against a Store bound to one database
	// transaction. Returning an error rolls everything back.
	ExecuteInTransaction(ctx context.Context, fn func(Store) error) error
}

type gormStore struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Wallets() WalletRepository {
	return &walletRepository{db: s.db}
}

func (s *gormStore) Transactions() TransactionRepository {
	return &transactionRepository{db: s.db}
}

func (s *gormStore) VirtualAccounts() VirtualAccountRepository {
	return &virtualAccountRepository{db: s.db}
}

func (s *gormStore) WebhookEvents() WebhookEventRepository {
	return &webhookEventRepository{db: s.db}
}

func (s *gormStore) ExecuteInTransaction(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

const uniqueViolation = "23505"

// uniqueConstraint returns the violated constraint name when err is a
// postgres unique violation.
func uniqueConstraint(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return pgErr.ConstraintName, true
	}
	return "", false
}

func notFound(err error, sentinel error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return fmt.Errorf("failed to get %s: %w", what, err)
}
