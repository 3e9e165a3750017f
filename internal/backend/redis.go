package backend

import (
	"context"
	"fmt"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"ridesync/internal/config"
)

// NewRedisClient connects the Redis store backing idempotency replay.
// With instrumentation enabled, each lookup is traced as a datastore
// segment on the surrounding transaction.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig, nrApp *newrelic.Application) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if nrApp != nil {
		client.AddHook(idempotencyTraceHook{})
	}

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}

// idempotencyTraceHook reports replay-store commands to New Relic.
type idempotencyTraceHook struct{}

func (idempotencyTraceHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (idempotencyTraceHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		if txn := newrelic.FromContext(ctx); txn != nil {
			segment := newrelic.DatastoreSegment{
				StartTime:  txn.StartSegmentNow(),
				Product:    newrelic.DatastoreRedis,
				Operation:  cmd.Name(),
				Collection: "idempotency",
			}
			defer segment.End()
		}
		return next(ctx, cmd)
	}
}

// ProcessPipelineHook satisfies redis.Hook. The replay middleware issues
// single commands only, so pipelines pass through untraced.
func (idempotencyTraceHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}
