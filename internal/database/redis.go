package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ConnectRedis creates the client and pings it, retrying while Redis starts.
func ConnectRedis(ctx context.Context, opts *redis.Options, maxRetries int, retryDelay time.Duration, logger *zap.Logger) (*redis.Client, error) {
	if maxRetries <= 0 {
		maxRetries = 1
	}
	logger.Info("Attempting to connect to Redis",
		zap.String("address", opts.Addr), zap.Int("db", opts.DB), zap.Int("max_retries", maxRetries))

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		client := redis.NewClient(opts)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err == nil {
			logger.Info("Successfully connected and pinged Redis", zap.Int("attempt", attempt))
			return client, nil
		}

		_ = client.Close()
		lastErr = err
		logger.Warn("Redis ping failed, retrying...",
			zap.Int("attempt", attempt), zap.Int("max_retries", maxRetries), zap.Error(err))

		if attempt < maxRetries {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("redis connect aborted: %w", ctx.Err())
			case <-time.After(retryDelay):
			}
		}
	}
	return nil, fmt.Errorf("failed to connect to redis after %d attempts: %w", maxRetries, lastErr)
}
