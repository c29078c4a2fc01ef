// Package memory is an in-process implementation of repositories.Store. It
// keeps the same error contract as the postgres store, including unique
// constraints and all-or-nothing ExecuteInTransaction, and backs the service
// tests and local runs without a database.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"kudi/internal/models"
	"kudi/internal/repositories"

	"github.com/shopspring/decimal"
)

type state struct {
	nextWalletID uint
	nextTxID     uint
	nextVAID     uint
	wallets      map[string]models.Wallet
	txs          []models.Transaction
	accounts     map[string]models.VirtualAccount
	events       map[string]models.WebhookEvent
}

func newState() *state {
	return &state{
		wallets:  make(map[string]models.Wallet),
		accounts: make(map[string]models.VirtualAccount),
		events:   make(map[string]models.WebhookEvent),
	}
}

func (s *state) clone() *state {
	c := &state{
		nextWalletID: s.nextWalletID,
		nextTxID:     s.nextTxID,
		nextVAID:     s.nextVAID,
		wallets:      make(map[string]models.Wallet, len(s.wallets)),
		txs:          make([]models.Transaction, len(s.txs)),
		accounts:     make(map[string]models.VirtualAccount, len(s.accounts)),
		events:       make(map[string]models.WebhookEvent, len(s.events)),
	}
	for k, v := range s.wallets {
		c.wallets[k] = v
	}
	copy(c.txs, s.txs)
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for k, v := range s.events {
		c.events[k] = v
	}
	return c
}

// Store is safe for concurrent use. Transactions are serialized.
type Store struct {
	mu    *sync.Mutex
	root  **state
	st    *state
	inTx  bool
	clock func() time.Time
}

func NewStore() *Store {
	st := newState()
	root := &st
	return &Store{mu: &sync.Mutex{}, root: root, clock: time.Now}
}

// WithClock sets the time used for CreatedAt stamps.
func (s *Store) WithClock(clock func() time.Time) *Store {
	s.clock = clock
	return s
}

func (s *Store) Wallets() repositories.WalletRepository                 { return &walletRepo{s} }
func (s *Store) Transactions() repositories.TransactionRepository       { return &txRepo{s} }
func (s *Store) VirtualAccounts() repositories.VirtualAccountRepository { return &vaRepo{s} }
func (s *Store) WebhookEvents() repositories.WebhookEventRepository     { return &eventRepo{s} }

func (s *Store) ExecuteInTransaction(ctx context.Context, fn func(repositories.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	working := (*s.root).clone()
	tx := &Store{mu: s.mu, root: s.root, st: working, inTx: true, clock: s.clock}
	if err := fn(tx); err != nil {
		return err
	}
	*s.root = working
	return nil
}

// view runs fn against the current state, taking the lock outside a transaction.
func (s *Store) view(fn func(st *state) error) error {
	if s.inTx {
		return fn(s.st)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(*s.root)
}

// SeedWallet inserts a wallet with an opening balance, bypassing the ledger.
func (s *Store) SeedWallet(userID string, balance decimal.Decimal) *models.Wallet {
	var out models.Wallet
	_ = s.view(func(st *state) error {
		st.nextWalletID++
		now := s.clock()
		out = models.Wallet{
			ID:               st.nextWalletID,
			UserID:           userID,
			Balance:          balance,
			TotalDeposits:    balance,
			TotalWithdrawals: decimal.Zero,
			Currency:         "NGN",
			IsActive:         true,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		st.wallets[userID] = out
		return nil
	})
	return &out
}

// All returns every stored transaction in insertion order.
func (s *Store) All() []models.Transaction {
	var out []models.Transaction
	_ = s.view(func(st *state) error {
		out = make([]models.Transaction, len(st.txs))
		copy(out, st.txs)
		return nil
	})
	return out
}

type walletRepo struct{ s *Store }

func (r *walletRepo) Create(ctx context.Context, wallet *models.Wallet) error {
	return r.s.view(func(st *state) error {
		if _, ok := st.wallets[wallet.UserID]; ok {
			return repositories.ErrDuplicateWallet
		}
		st.nextWalletID++
		now := r.s.clock()
		wallet.ID = st.nextWalletID
		wallet.Balance = decimal.Zero
		wallet.TotalDeposits = decimal.Zero
		wallet.TotalWithdrawals = decimal.Zero
		wallet.CreatedAt = now
		wallet.UpdatedAt = now
		st.wallets[wallet.UserID] = *wallet
		return nil
	})
}

func (r *walletRepo) GetByUserID(ctx context.Context, userID string) (*models.Wallet, error) {
	var out *models.Wallet
	err := r.s.view(func(st *state) error {
		w, ok := st.wallets[userID]
		if !ok {
			return repositories.ErrWalletNotFound
		}
		out = &w
		return nil
	})
	return out, err
}

func (r *walletRepo) Apply(ctx context.Context, userID string, m repositories.WalletMutation) (*models.Wallet, error) {
	var out *models.Wallet
	err := r.s.view(func(st *state) error {
		w, ok := st.wallets[userID]
		if !ok {
			return repositories.ErrWalletNotFound
		}
		if m.Balance.IsNegative() && !w.IsActive {
			return repositories.ErrWalletInactive
		}
		next := w.Balance.Add(m.Balance)
		if next.IsNegative() {
			return repositories.ErrInsufficientBalance
		}
		at := m.At
		w.Balance = next
		w.TotalDeposits = w.TotalDeposits.Add(m.Deposits)
		w.TotalWithdrawals = w.TotalWithdrawals.Add(m.Withdrawals)
		w.LastTransactionAt = &at
		w.UpdatedAt = at
		st.wallets[userID] = w
		out = &w
		return nil
	})
	return out, err
}

func (r *walletRepo) SetActive(ctx context.Context, userID string, active bool) error {
	return r.s.view(func(st *state) error {
		w, ok := st.wallets[userID]
		if !ok {
			return repositories.ErrWalletNotFound
		}
		w.IsActive = active
		st.wallets[userID] = w
		return nil
	})
}

type txRepo struct{ s *Store }

func (r *txRepo) Create(ctx context.Context, tx *models.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	return r.s.view(func(st *state) error {
		for i := range st.txs {
			if st.txs[i].Reference == tx.Reference {
				return repositories.ErrDuplicateReference
			}
			if tx.DedupeKey != nil && st.txs[i].DedupeKey != nil && *st.txs[i].DedupeKey == *tx.DedupeKey {
				return repositories.ErrDuplicateDedupeKey
			}
		}
		st.nextTxID++
		tx.ID = st.nextTxID
		if tx.CreatedAt.IsZero() {
			tx.CreatedAt = r.s.clock()
		}
		tx.UpdatedAt = tx.CreatedAt
		st.txs = append(st.txs, *tx)
		return nil
	})
}

func (r *txRepo) find(match func(*models.Transaction) bool) (*models.Transaction, error) {
	var out *models.Transaction
	err := r.s.view(func(st *state) error {
		for i := range st.txs {
			if match(&st.txs[i]) {
				tx := st.txs[i]
				out = &tx
				return nil
			}
		}
		return repositories.ErrTransactionNotFound
	})
	return out, err
}

func (r *txRepo) GetByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	return r.find(func(t *models.Transaction) bool { return t.Reference == reference })
}

func (r *txRepo) GetByProviderReference(ctx context.Context, providerRef string) (*models.Transaction, error) {
	return r.find(func(t *models.Transaction) bool { return providerRef != "" && t.ProviderReference == providerRef })
}

func (r *txRepo) GetByDedupeKey(ctx context.Context, key string) (*models.Transaction, error) {
	return r.find(func(t *models.Transaction) bool { return t.DedupeKey != nil && *t.DedupeKey == key })
}

func (r *txRepo) TransitionStatus(ctx context.Context, reference string, change repositories.StatusChange) error {
	if !change.From.CanTransitionTo(change.To) {
		return repositories.ErrInvalidTransition
	}
	return r.s.view(func(st *state) error {
		for i := range st.txs {
			t := &st.txs[i]
			if t.Reference != reference {
				continue
			}
			if t.Status != change.From {
				return repositories.ErrInvalidTransition
			}
			at := change.At
			t.Status = change.To
			t.UpdatedAt = at
			if change.To == models.StatusCompleted {
				t.CompletedAt = &at
			}
			if change.ProviderReference != "" {
				t.ProviderReference = change.ProviderReference
			}
			if change.FailureReason != "" {
				t.Metadata.FailureReason = change.FailureReason
			}
			return nil
		}
		return repositories.ErrInvalidTransition
	})
}

func (r *txRepo) CountByService(ctx context.Context, userID string, service models.Service, from, to time.Time) (int64, error) {
	txs, err := r.List(ctx, repositories.TransactionFilter{
		UserID:   userID,
		Types:    []models.TransactionType{models.TransactionTypePayment},
		Services: []models.Service{service},
		Statuses: []models.TransactionStatus{models.StatusPending, models.StatusCompleted},
		From:     from,
		To:       to,
	})
	return int64(len(txs)), err
}

func (r *txRepo) List(ctx context.Context, f repositories.TransactionFilter) ([]models.Transaction, error) {
	var out []models.Transaction
	err := r.s.view(func(st *state) error {
		for _, t := range st.txs {
			if matches(&t, f) {
				out = append(out, t)
			}
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool {
		if f.Newest {
			return out[i].CreatedAt.After(out[j].CreatedAt) ||
				(out[i].CreatedAt.Equal(out[j].CreatedAt) && out[i].ID > out[j].ID)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt) ||
			(out[i].CreatedAt.Equal(out[j].CreatedAt) && out[i].ID < out[j].ID)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, err
}

func (r *txRepo) Sum(ctx context.Context, f repositories.TransactionFilter) (decimal.Decimal, error) {
	f.Limit = 0
	txs, err := r.List(ctx, f)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, t := range txs {
		total = total.Add(t.Amount)
	}
	return total, nil
}

func (r *txRepo) MarkCollected(ctx context.Context, ids []uint, at time.Time) error {
	return r.s.view(func(st *state) error {
		want := make(map[uint]bool, len(ids))
		for _, id := range ids {
			want[id] = true
		}
		marked := 0
		for i := range st.txs {
			t := &st.txs[i]
			if want[t.ID] && t.Type == models.TransactionTypeRevenue && !t.Collected {
				t.Collected = true
				t.CollectedAt = &at
				t.UpdatedAt = at
				marked++
			}
		}
		if marked != len(ids) {
			return repositories.ErrAlreadyCollected
		}
		return nil
	})
}

func matches(t *models.Transaction, f repositories.TransactionFilter) bool {
	if f.UserID != "" && t.UserID != f.UserID {
		return false
	}
	if len(f.Types) > 0 && !contains(f.Types, t.Type) {
		return false
	}
	if len(f.Kinds) > 0 && !contains(f.Kinds, t.Kind) {
		return false
	}
	if len(f.Services) > 0 && !contains(f.Services, t.Service) {
		return false
	}
	if len(f.Statuses) > 0 && !contains(f.Statuses, t.Status) {
		return false
	}
	if f.Collected != nil && t.Collected != *f.Collected {
		return false
	}
	if !f.From.IsZero() && t.CreatedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !t.CreatedAt.Before(f.To) {
		return false
	}
	return true
}

func contains[T comparable](set []T, v T) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

type vaRepo struct{ s *Store }

func (r *vaRepo) Create(ctx context.Context, account *models.VirtualAccount) error {
	return r.s.view(func(st *state) error {
		for _, a := range st.accounts {
			if a.UserID == account.UserID || a.AccountNumber == account.AccountNumber {
				return repositories.ErrDuplicateVirtualAccount
			}
		}
		st.nextVAID++
		account.ID = st.nextVAID
		account.CreatedAt = r.s.clock()
		st.accounts[account.UserID] = *account
		return nil
	})
}

func (r *vaRepo) GetByUserID(ctx context.Context, userID string) (*models.VirtualAccount, error) {
	var out *models.VirtualAccount
	err := r.s.view(func(st *state) error {
		a, ok := st.accounts[userID]
		if !ok {
			return repositories.ErrVirtualAccountNotFound
		}
		out = &a
		return nil
	})
	return out, err
}

func (r *vaRepo) GetByAccountNumber(ctx context.Context, accountNumber string) (*models.VirtualAccount, error) {
	var out *models.VirtualAccount
	err := r.s.view(func(st *state) error {
		for _, a := range st.accounts {
			if a.AccountNumber == accountNumber {
				found := a
				out = &found
				return nil
			}
		}
		return repositories.ErrVirtualAccountNotFound
	})
	return out, err
}

type eventRepo struct{ s *Store }

func (r *eventRepo) Save(ctx context.Context, event *models.WebhookEvent) (*models.WebhookEvent, bool, error) {
	var (
		out     *models.WebhookEvent
		created bool
	)
	err := r.s.view(func(st *state) error {
		for _, e := range st.events {
			if e.EventKey == event.EventKey {
				existing := e
				out = &existing
				return nil
			}
		}
		now := r.s.clock()
		event.CreatedAt = now
		event.UpdatedAt = now
		if event.Status == "" {
			event.Status = models.WebhookReceived
		}
		st.events[event.ID] = *event
		stored := *event
		out = &stored
		created = true
		return nil
	})
	return out, created, err
}

func (r *eventRepo) GetByID(ctx context.Context, id string) (*models.WebhookEvent, error) {
	var out *models.WebhookEvent
	err := r.s.view(func(st *state) error {
		e, ok := st.events[id]
		if !ok {
			return repositories.ErrWebhookEventNotFound
		}
		out = &e
		return nil
	})
	return out, err
}

func (r *eventRepo) ListPending(ctx context.Context, maxAttempts, limit int) ([]models.WebhookEvent, error) {
	var out []models.WebhookEvent
	err := r.s.view(func(st *state) error {
		for _, e := range st.events {
			pending := e.Status == models.WebhookReceived || e.Status == models.WebhookFailed
			if pending && e.Attempts < maxAttempts {
				out = append(out, e)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, err
}

func (r *eventRepo) MarkOutcome(ctx context.Context, id string, status models.WebhookStatus, lastErr string, at time.Time) error {
	return r.s.view(func(st *state) error {
		e, ok := st.events[id]
		if !ok {
			return repositories.ErrWebhookEventNotFound
		}
		e.Status = status
		e.Attempts++
		e.LastError = lastErr
		e.UpdatedAt = at
		if status == models.WebhookProcessed || status == models.WebhookMismatch {
			e.ProcessedAt = &at
		}
		st.events[id] = e
		return nil
	})
}

var _ repositories.Store = (*Store)(nil)
