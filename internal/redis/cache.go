package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// CacheStore handles entity caching in Redis.
type CacheStore struct {
	client *redis.Client
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client}
}

// TripCostCacheTTL is how long a cached price is served.
const TripCostCacheTTL = 10 * time.Minute

const tripCostCachePrefix = "cache:trip_cost:"

// CachedTripCost represents a cached trip cost entry.
type CachedTripCost struct {
	ID            string          `json:"id"`
	StartLocation string          `json:"start_location"`
	EndLocation   string          `json:"end_location"`
	BaseCost      decimal.Decimal `json:"base_cost"`
}

func tripCostKey(start, end string) string {
	return tripCostCachePrefix + start + "|" + end
}

// GetTripCost retrieves a trip cost from cache.
// Returns nil on a cache miss.
func (s *CacheStore) GetTripCost(ctx context.Context, start, end string) (*CachedTripCost, error) {
	data, err := s.client.Get(ctx, tripCostKey(start, end)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // Cache miss
		}
		return nil, err
	}

	var cost CachedTripCost
	if err := json.Unmarshal(data, &cost); err != nil {
		return nil, err
	}
	return &cost, nil
}

// SetTripCost stores a trip cost in cache.
func (s *CacheStore) SetTripCost(ctx context.Context, cost *CachedTripCost) error {
	data, err := json.Marshal(cost)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, tripCostKey(cost.StartLocation, cost.EndLocation), data, TripCostCacheTTL).Err()
}

// InvalidateTripCost removes a trip cost from cache.
func (s *CacheStore) InvalidateTripCost(ctx context.Context, start, end string) error {
	return s.client.Del(ctx, tripCostKey(start, end)).Err()
}
