package redis

import (
	"context"
	"time"
)

// LockStoreInterface defines the interface for distributed locking.
type LockStoreInterface interface {
	AcquireLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key, token string) error
}

// TripCostCacheInterface defines the interface for trip cost caching.
type TripCostCacheInterface interface {
	GetTripCost(ctx context.Context, start, end string) (*CachedTripCost, error)
	SetTripCost(ctx context.Context, cost *CachedTripCost) error
	InvalidateTripCost(ctx context.Context, start, end string) error
}

// IdempotencyStoreInterface defines the interface for replayable request results.
type IdempotencyStoreInterface interface {
	Load(ctx context.Context, key string) (*StoredResponse, error)
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Save(ctx context.Context, key string, resp *StoredResponse, ttl time.Duration) error
	Release(ctx context.Context, key string) error
}

// Ensure concrete types implement interfaces.
var (
	_ LockStoreInterface        = (*LockStore)(nil)
	_ TripCostCacheInterface    = (*CacheStore)(nil)
	_ IdempotencyStoreInterface = (*IdempotencyStore)(nil)
)
