// Package lock implements cluster-wide mutual exclusion over a shared KV
// store. A lock is a key holding a random token with a TTL; release only
// deletes the key while the token still matches, so a holder that outlived
// its lease cannot release a lock someone else re-acquired.
package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const keyPrefix = "lock:"

// ErrNotAcquired is returned when the lock is still held elsewhere after
// the retry budget is spent. Callers treat it as "skip, someone else owns
// this work".
var ErrNotAcquired = errors.New("lock not acquired")

// KV is the minimal store contract the lock needs: atomic set-if-absent
// with expiry, read, and delete.
type KV interface {
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, key string) error
}

type Locker struct {
	kv         KV
	ttl        time.Duration
	attempts   int
	retryDelay time.Duration
}

// New builds a Locker. attempts is the number of additional tries after
// the first before giving up with ErrNotAcquired.
func New(kv KV, ttl time.Duration, attempts int, retryDelay time.Duration) *Locker {
	return &Locker{
		kv:         kv,
		ttl:        ttl,
		attempts:   attempts,
		retryDelay: retryDelay,
	}
}

// Acquire takes the lock and returns the release token. It retries with a
// fixed delay up to the configured budget.
func (l *Locker) Acquire(ctx context.Context, key string) (string, error) {
	fullKey := keyPrefix + key
	token := uuid.NewString()

	for attempt := 0; ; attempt++ {
		acquired, err := l.kv.SetNX(ctx, fullKey, token, l.ttl)
		if err != nil {
			return "", err
		}
		if acquired {
			logrus.WithFields(logrus.Fields{"key": fullKey}).Debug("lock acquired")
			return token, nil
		}
		if attempt >= l.attempts {
			logrus.WithFields(logrus.Fields{"key": fullKey}).Debug("lock not acquired after retries")
			return "", ErrNotAcquired
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(l.retryDelay):
		}
	}
}

// Release deletes the lock only while the stored token matches. A mismatch
// means the lease expired and another holder took over; the key is left
// alone.
func (l *Locker) Release(ctx context.Context, key, token string) error {
	fullKey := keyPrefix + key
	current, err := l.kv.Get(ctx, fullKey)
	if err != nil {
		return err
	}
	if current != token {
		logrus.WithFields(logrus.Fields{"key": fullKey}).Warn("lock token mismatch, not released")
		return nil
	}
	return l.kv.Del(ctx, fullKey)
}

// WithLock runs fn while holding the lock and always attempts release,
// regardless of fn's outcome.
func (l *Locker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	token, err := l.Acquire(ctx, key)
	if err != nil {
		return err
	}
	defer func() {
		if err := l.Release(context.WithoutCancel(ctx), key, token); err != nil {
			logrus.WithFields(logrus.Fields{"key": keyPrefix + key}).WithError(err).Error("failed to release lock")
		}
	}()
	return fn(ctx)
}
