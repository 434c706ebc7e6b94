package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Lock key prefixes.
const (
	TripLockPrefix    = "lock:trip:"
	DriverLockPrefix  = "lock:driver:"
	VehicleLockPrefix = "lock:vehicle:"
)

// releaseScript deletes the key only if it still holds the caller's token,
// so an expired lock taken over by another holder is never released.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// LockStore handles distributed locking in Redis.
type LockStore struct {
	client *redis.Client
}

// NewLockStore creates a new LockStore.
func NewLockStore(client *redis.Client) *LockStore {
	return &LockStore{client: client}
}

// AcquireLock attempts to acquire the lock at key for the holder identified by token.
// Returns true if the lock was acquired, false if already held.
func (s *LockStore) AcquireLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

// ReleaseLock releases the lock at key if it is still held by token.
func (s *LockStore) ReleaseLock(ctx context.Context, key, token string) error {
	return releaseScript.Run(ctx, s.client, []string{key}, token).Err()
}
