package service

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"carmonitor/internal/redis"
)

const (
	entityLockTTL     = 15 * time.Second
	entityLockWait    = 3 * time.Second
	entityLockBackoff = 50 * time.Millisecond
)

// entityLocker takes a set of Redis locks in a stable order.
type entityLocker struct {
	store   redis.LockStoreInterface
	ttl     time.Duration
	wait    time.Duration
	backoff time.Duration
}

func newEntityLocker(store redis.LockStoreInterface) *entityLocker {
	return &entityLocker{
		store:   store,
		ttl:     entityLockTTL,
		wait:    entityLockWait,
		backoff: entityLockBackoff,
	}
}

// lockKey returns "" for an empty id so optional entities can be passed through.
func lockKey(prefix, id string) string {
	if id == "" {
		return ""
	}
	return prefix + id
}

// acquire locks every non-empty key in sorted order and returns a func that
// releases them. Keys taken before a failure are released before returning.
func (l *entityLocker) acquire(ctx context.Context, keys ...string) (func(), error) {
	if l == nil || l.store == nil {
		return func() {}, nil
	}

	sorted := make([]string, 0, len(keys))
	for _, k := range keys {
		if k != "" {
			sorted = append(sorted, k)
		}
	}
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	token := uuid.NewString()
	held := make([]string, 0, len(sorted))
	release := func() {
		releaseCtx := context.WithoutCancel(ctx)
		for i := len(held) - 1; i >= 0; i-- {
			if err := l.store.ReleaseLock(releaseCtx, held[i], token); err != nil {
				log.WithError(err).WithField("key", held[i]).Warn("Failed to release lock")
			}
		}
	}

	for _, key := range sorted {
		if err := l.acquireOne(ctx, key, token); err != nil {
			release()
			return nil, err
		}
		held = append(held, key)
	}

	return release, nil
}

func (l *entityLocker) acquireOne(ctx context.Context, key, token string) error {
	deadline := time.Now().Add(l.wait)
	for {
		ok, err := l.store.AcquireLock(ctx, key, token, l.ttl)
		if err != nil {
			return fmt.Errorf("acquire %s: %w", key, err)
		}
		if ok {
			return nil
		}
		if !time.Now().Before(deadline) {
			return fmt.Errorf("%w: %s", ErrEntityBusy, key)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.backoff):
		}
	}
}
