package redis

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	idempotencyPrefix        = "idempotency:"
	idempotencyPendingPrefix = "idempotency:pending:"
)

// StoredResponse is a completed response kept for replay.
type StoredResponse struct {
	StatusCode int         `json:"status_code"`
	Body       []byte      `json:"body"`
	Headers    http.Header `json:"headers"`
}

// IdempotencyStore keeps replayable responses and in-flight markers in Redis.
type IdempotencyStore struct {
	client *redis.Client
}

// NewIdempotencyStore creates a new IdempotencyStore.
func NewIdempotencyStore(client *redis.Client) *IdempotencyStore {
	return &IdempotencyStore{client: client}
}

// Load returns the stored response for key, or nil when there is none.
func (s *IdempotencyStore) Load(ctx context.Context, key string) (*StoredResponse, error) {
	data, err := s.client.Get(ctx, idempotencyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var resp StoredResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Reserve marks key as in flight. Returns false if another request holds it.
func (s *IdempotencyStore) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, idempotencyPendingPrefix+key, 1, ttl).Result()
}

// Save stores resp for replay and clears the in-flight marker.
func (s *IdempotencyStore) Save(ctx context.Context, key string, resp *StoredResponse, ttl time.Duration) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, idempotencyPrefix+key, data, ttl)
	pipe.Del(ctx, idempotencyPendingPrefix+key)
	_, err = pipe.Exec(ctx)
	return err
}

// Release clears the in-flight marker without storing a response.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, idempotencyPendingPrefix+key).Err()
}
