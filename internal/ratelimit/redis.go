package ratelimit

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisLimiter shares admission state across instances through Redis.
// Opt-in via RATE_LIMIT_BACKEND=redis for multi-replica deployments; the
// window semantics match MemoryLimiter.
type RedisLimiter struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewRedisLimiter(client *redis.Client, logger *logrus.Logger) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		logger: logger,
	}
}

func (l *RedisLimiter) Admit(ctx context.Context, caller, action string, rule Rule) (Decision, error) {
	blockKey := fmt.Sprintf("ratelimit:block:%s", key(caller, action))

	ttl, err := l.client.TTL(ctx, blockKey).Result()
	if err != nil {
		l.logger.WithError(err).Error("Failed to check rate limit block in Redis")
		return Decision{}, fmt.Errorf("failed to check block state: %w", err)
	}
	if ttl > 0 {
		return Decision{RetryAfter: ttl}, nil
	}

	countKey := fmt.Sprintf("ratelimit:count:%s", key(caller, action))
	count, err := l.client.Incr(ctx, countKey).Result()
	if err != nil {
		l.logger.WithError(err).Error("Failed to increment rate limit counter in Redis")
		return Decision{}, fmt.Errorf("failed to count request: %w", err)
	}

	// First hit in a fresh window owns setting the expiry.
	if count == 1 {
		if err := l.client.Expire(ctx, countKey, rule.Window).Err(); err != nil {
			return Decision{}, fmt.Errorf("failed to start window: %w", err)
		}
	}

	if count > int64(rule.Limit) {
		if err := l.client.Set(ctx, blockKey, "1", rule.Block).Err(); err != nil {
			return Decision{}, fmt.Errorf("failed to set block: %w", err)
		}
		l.logger.WithFields(logrus.Fields{
			"caller": caller,
			"action": action,
			"count":  count,
		}).Info("Rate limit exceeded, blocking caller")
		return Decision{RetryAfter: rule.Block}, nil
	}

	return Decision{Allowed: true}, nil
}

// RedisFailureCounter keeps failed-login counts in Redis with no expiry;
// only a successful login clears them.
type RedisFailureCounter struct {
	client *redis.Client
}

func NewRedisFailureCounter(client *redis.Client) *RedisFailureCounter {
	return &RedisFailureCounter{client: client}
}

func (c *RedisFailureCounter) Fail(ctx context.Context, caller, tenant string) (int, error) {
	count, err := c.client.Incr(ctx, fmt.Sprintf("failed_login:%s", key(caller, tenant))).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count login failure: %w", err)
	}
	return int(count), nil
}

func (c *RedisFailureCounter) Reset(ctx context.Context, caller, tenant string) error {
	if err := c.client.Del(ctx, fmt.Sprintf("failed_login:%s", key(caller, tenant))).Err(); err != nil {
		return fmt.Errorf("failed to reset login failures: %w", err)
	}
	return nil
}
