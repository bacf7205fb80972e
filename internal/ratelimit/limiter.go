// Package ratelimit throttles the unauthenticated auth endpoints: a request
// budget per client IP and purpose, and a failed-login budget per email.
package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/redmonkez12/go-task-api/internal/config"
)

// Limiter is consulted by the auth handlers. Check methods report whether
// the budget is already exhausted; Record methods spend from it.
type Limiter interface {
	CheckIPRateLimitWithPurpose(ctx context.Context, ip, purpose string) (bool, error)
	RecordIPRequestWithPurpose(ctx context.Context, ip, purpose string) error

	CheckFailedLogins(ctx context.Context, email string) (bool, error)
	RecordFailedLogin(ctx context.Context, email string) error
	ResetFailedLogins(ctx context.Context, email string) error
}

// Limits are the budgets shared by every Limiter implementation.
type Limits struct {
	Window          time.Duration
	MaxIPRequests   int
	MaxFailedLogins int
}

func LimitsFromConfig(cfg config.RateLimitConfig) Limits {
	return Limits{
		Window:          cfg.Window,
		MaxIPRequests:   cfg.MaxIPRequests,
		MaxFailedLogins: cfg.MaxFailedLogins,
	}
}

// New picks the limiter for cfg: Noop when disabled, Redis when a client is
// available, otherwise process-local memory.
func New(cfg config.RateLimitConfig, client redis.UniversalClient) Limiter {
	if !cfg.Enabled {
		return Noop{}
	}
	if client != nil {
		return NewRedisLimiter(client, LimitsFromConfig(cfg))
	}
	return NewMemoryLimiter(LimitsFromConfig(cfg))
}

// Noop never throttles.
type Noop struct{}

func (Noop) CheckIPRateLimitWithPurpose(context.Context, string, string) (bool, error) {
	return false, nil
}
func (Noop) RecordIPRequestWithPurpose(context.Context, string, string) error { return nil }
func (Noop) CheckFailedLogins(context.Context, string) (bool, error)          { return false, nil }
func (Noop) RecordFailedLogin(context.Context, string) error                  { return nil }
func (Noop) ResetFailedLogins(context.Context, string) error                  { return nil }
