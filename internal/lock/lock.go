// Package lock serializes work on a key, such as one user's wallet.
package lock

import (
	"context"
	"sync"
)

// Locker hands out exclusive holds on string keys. The returned func releases
// the hold and is safe to call once.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
	TryLock(ctx context.Context, key string) (func(), bool, error)
}

// Local is an in-process Locker for single-replica deployments and tests.
type Local struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

func NewLocal() *Local {
	return &Local{slots: make(map[string]*slot)}
}

func (l *Local) acquire(key string) *slot {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	return s
}

func (l *Local) release(key string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}

func (l *Local) Lock(ctx context.Context, key string) (func(), error) {
	s := l.acquire(key)
	select {
	case s.ch <- struct{}{}:
		return l.unlocker(key, s), nil
	case <-ctx.Done():
		l.release(key, s)
		return nil, ctx.Err()
	}
}

func (l *Local) TryLock(ctx context.Context, key string) (func(), bool, error) {
	s := l.acquire(key)
	select {
	case s.ch <- struct{}{}:
		return l.unlocker(key, s), true, nil
	default:
		l.release(key, s)
		return nil, false, nil
	}
}

func (l *Local) unlocker(key string, s *slot) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			l.release(key, s)
		})
	}
}

// UserKey is the lock key guarding one user's wallet.
func UserKey(userID string) string {
	return "wallet:" + userID
}
