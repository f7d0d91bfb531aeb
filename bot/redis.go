package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"guildwarden/model"
)

const redisConnectAttempts = 5

// ConnectRedis returns a client once the server answers PING. An empty address
// disables Redis and returns nil without error.
func ConnectRedis(ctx context.Context, cfg model.RedisConfig, logger *zap.Logger) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 500 * time.Millisecond
	policy.MaxInterval = 5 * time.Second

	ping := func() error {
		return rdb.Ping(ctx).Err()
	}
	notify := func(err error, wait time.Duration) {
		logger.Warn("Redis not reachable, retrying",
			zap.String("addr", cfg.Addr),
			zap.Duration("wait", wait),
			zap.Error(err))
	}
	err := backoff.RetryNotify(ping, backoff.WithContext(backoff.WithMaxRetries(policy, redisConnectAttempts), ctx), notify)
	if err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	return rdb, nil
}
