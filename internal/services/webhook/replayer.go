package webhook

import (
	"context"
	"time"

	"kudi/internal/logging"
	"kudi/internal/repositories"

	"go.uber.org/zap"
)

const (
	defaultReplayInterval = time.Minute
	defaultReplayBatch    = 100
	// received events younger than this are still owned by the request that
	// stored them
	defaultGracePeriod = 30 * time.Second
)

// Replayer re-applies inbox events that were stored but never reconciled:
// on start, on every tick, and shortly after a wakeup.
type Replayer struct {
	reconciler *Reconciler
	store      repositories.Store
	wakeups    <-chan struct{}
	interval   time.Duration
	grace      time.Duration
	batch      int
	logger     *zap.Logger
	now        func() time.Time
}

type ReplayerOption func(*Replayer)

// WithWakeups triggers a replay one grace period after each signal.
func WithWakeups(ch <-chan struct{}) ReplayerOption {
	return func(r *Replayer) { r.wakeups = ch }
}

func WithGracePeriod(d time.Duration) ReplayerOption {
	return func(r *Replayer) { r.grace = d }
}

func WithReplayClock(now func() time.Time) ReplayerOption {
	return func(r *Replayer) { r.now = now }
}

func NewReplayer(reconciler *Reconciler, store repositories.Store, interval time.Duration, logger *zap.Logger, opts ...ReplayerOption) *Replayer {
	if interval <= 0 {
		interval = defaultReplayInterval
	}
	r := &Replayer{
		reconciler: reconciler,
		store:      store,
		interval:   interval,
		grace:      defaultGracePeriod,
		batch:      defaultReplayBatch,
		logger:     logging.OrNop(logger),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run blocks until ctx is done.
func (r *Replayer) Run(ctx context.Context) {
	r.replay(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	var delayed <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.replay(ctx)
		case _, ok := <-r.wakeups:
			if !ok {
				r.wakeups = nil
				continue
			}
			if delayed == nil {
				delayed = time.After(r.grace)
			}
		case <-delayed:
			delayed = nil
			r.replay(ctx)
		}
	}
}

func (r *Replayer) replay(ctx context.Context) {
	n, err := r.ReplayPending(ctx)
	if err != nil {
		r.logger.Error("webhook replay failed", zap.Error(err))
		return
	}
	if n > 0 {
		r.logger.Info("webhook events replayed", zap.Int("count", n))
	}
}

// ReplayPending processes one batch of unreconciled events and reports how
// many it attempted.
func (r *Replayer) ReplayPending(ctx context.Context) (int, error) {
	pending, err := r.store.WebhookEvents().ListPending(ctx, r.reconciler.config.MaxAttempts, r.batch)
	if err != nil {
		return 0, err
	}

	cutoff := r.now().Add(-r.grace)
	attempted := 0
	for i := range pending {
		if ctx.Err() != nil {
			break
		}
		event := &pending[i]
		if event.Attempts == 0 && event.CreatedAt.After(cutoff) {
			continue
		}
		r.reconciler.Process(ctx, event)
		attempted++
	}
	return attempted, nil
}
