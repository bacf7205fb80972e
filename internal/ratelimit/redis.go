package ratelimit

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter keeps fixed-window counters in Redis so every API instance
// shares the same budgets.
type RedisLimiter struct {
	client redis.UniversalClient
	limits Limits
}

func NewRedisLimiter(client redis.UniversalClient, limits Limits) *RedisLimiter {
	return &RedisLimiter{client: client, limits: limits}
}

// getIPKey generates the Redis key for an IP request counter
func getIPKey(ip, purpose string) string {
	return fmt.Sprintf("ratelimit:ip:%s:%s", purpose, ip)
}

// getFailedLoginKey generates the Redis key for a failed login counter
func getFailedLoginKey(email string) string {
	return fmt.Sprintf("ratelimit:login_failed:%s", email)
}

func (l *RedisLimiter) CheckIPRateLimitWithPurpose(ctx context.Context, ip, purpose string) (bool, error) {
	return l.exceeded(ctx, getIPKey(ip, purpose), l.limits.MaxIPRequests)
}

func (l *RedisLimiter) RecordIPRequestWithPurpose(ctx context.Context, ip, purpose string) error {
	return l.incr(ctx, getIPKey(ip, purpose))
}

func (l *RedisLimiter) CheckFailedLogins(ctx context.Context, email string) (bool, error) {
	return l.exceeded(ctx, getFailedLoginKey(email), l.limits.MaxFailedLogins)
}

func (l *RedisLimiter) RecordFailedLogin(ctx context.Context, email string) error {
	return l.incr(ctx, getFailedLoginKey(email))
}

func (l *RedisLimiter) ResetFailedLogins(ctx context.Context, email string) error {
	if err := l.client.Del(ctx, getFailedLoginKey(email)).Err(); err != nil {
		return fmt.Errorf("failed to reset failed logins: %w", err)
	}
	return nil
}

func (l *RedisLimiter) exceeded(ctx context.Context, key string, limit int) (bool, error) {
	count, err := l.client.Get(ctx, key).Int()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read counter: %w", err)
	}
	return count >= limit, nil
}

// incr bumps the counter and starts the window on the first hit.
func (l *RedisLimiter) incr(ctx context.Context, key string) error {
	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to increment counter: %w", err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, key, l.limits.Window).Err(); err != nil {
			return fmt.Errorf("failed to set counter expiry: %w", err)
		}
	}
	return nil
}
