// Package lock serializes work on a shared key.  The reservation service
// holds a lock per room across its conflict check and write, and the
// no-show sweep holds a lock per run so that only one instance sweeps.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotAcquired is returned by TryLock when another holder owns the key.
var ErrNotAcquired = errors.New("lock: not acquired")

// Unlock releases a held lock.  It is safe to call more than once.
type Unlock func()

// Locker hands out exclusive locks by key.
type Locker interface {
	// Lock blocks until the key is free or ctx is done.  ttl bounds how long
	// a crashed holder can keep the key; implementations that cannot crash
	// independently of the caller may ignore it.
	Lock(ctx context.Context, key string, ttl time.Duration) (Unlock, error)
	// TryLock acquires the key only if it is free right now.
	TryLock(ctx context.Context, key string, ttl time.Duration) (Unlock, error)
}

// Local is an in-process Locker built on one buffered channel per key.
// It is used when Redis is not configured; it only serializes requests
// served by this process.
type Local struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

// NewLocal returns an empty Local locker.
func NewLocal() *Local { return &Local{slots: map[string]*slot{}} }

func (l *Local) acquireSlot(key string) *slot {
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

func (l *Local) releaseSlot(key string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}

func (l *Local) unlocker(key string, s *slot) Unlock {
	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			l.releaseSlot(key, s)
		})
	}
}

// Lock implements Locker.
func (l *Local) Lock(ctx context.Context, key string, _ time.Duration) (Unlock, error) {
	s := l.acquireSlot(key)
	select {
	case s.ch <- struct{}{}:
		return l.unlocker(key, s), nil
	case <-ctx.Done():
		l.releaseSlot(key, s)
		return nil, ctx.Err()
	}
}

// TryLock implements Locker.
func (l *Local) TryLock(_ context.Context, key string, _ time.Duration) (Unlock, error) {
	s := l.acquireSlot(key)
	select {
	case s.ch <- struct{}{}:
		return l.unlocker(key, s), nil
	default:
		l.releaseSlot(key, s)
		return nil, ErrNotAcquired
	}
}
