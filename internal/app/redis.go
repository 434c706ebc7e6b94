package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"carmonitor/internal/config"
)

// NewRedisClient creates the client shared by locks, the trip cost cache,
// notifications and idempotency. With nrApp set, every command is recorded
// as a datastore segment.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig, nrApp *newrelic.Application) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	if nrApp != nil {
		client.AddHook(nrRedisHook{})
	}

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	log.WithField("addr", cfg.Addr).Info("Connected to Redis")
	return client, nil
}

// nrRedisHook records Redis commands on the transaction carried by ctx.
type nrRedisHook struct{}

func (nrRedisHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (nrRedisHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		defer startRedisSegment(ctx, cmd.Name(), redisCollection(cmd)).End()
		return next(ctx, cmd)
	}
}

func (nrRedisHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		collection := "redis"
		if len(cmds) > 0 {
			collection = redisCollection(cmds[0])
		}
		defer startRedisSegment(ctx, "pipeline", collection).End()
		return next(ctx, cmds)
	}
}

// startRedisSegment returns a no-op segment when ctx has no transaction.
func startRedisSegment(ctx context.Context, operation, collection string) *newrelic.DatastoreSegment {
	txn := newrelic.FromContext(ctx)
	return &newrelic.DatastoreSegment{
		StartTime:  txn.StartSegmentNow(),
		Product:    newrelic.DatastoreRedis,
		Operation:  operation,
		Collection: collection,
	}
}

// redisCollection names the key family a command touches, e.g. "lock:trip"
// for lock:trip:<id> or "notifications:user" for a direct message channel.
func redisCollection(cmd redis.Cmder) string {
	args := cmd.Args()
	keyIdx := 1
	switch strings.ToLower(cmd.Name()) {
	case "eval", "evalsha":
		keyIdx = 3 // eval <script|sha> <numkeys> <key> ...
	}
	if len(args) <= keyIdx {
		return "redis"
	}

	key, ok := args[keyIdx].(string)
	if !ok || key == "" {
		return "redis"
	}

	parts := strings.SplitN(key, ":", 3)
	switch len(parts) {
	case 1:
		return parts[0]
	default:
		return parts[0] + ":" + parts[1]
	}
}
