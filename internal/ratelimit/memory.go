package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// pruneThreshold is the number of tracked keys above which idle buckets are
// dropped on the next write.
const pruneThreshold = 10000

// MemoryLimiter is a process-local Limiter. Each key gets a token bucket
// holding the window's budget and refilling evenly over the window.
type MemoryLimiter struct {
	mu      sync.Mutex
	limits  Limits
	buckets map[string]*rate.Limiter
	now     func() time.Time
}

func NewMemoryLimiter(limits Limits) *MemoryLimiter {
	return &MemoryLimiter{
		limits:  limits,
		buckets: make(map[string]*rate.Limiter),
		now:     time.Now,
	}
}

func (l *MemoryLimiter) CheckIPRateLimitWithPurpose(_ context.Context, ip, purpose string) (bool, error) {
	return l.exceeded(getIPKey(ip, purpose)), nil
}

func (l *MemoryLimiter) RecordIPRequestWithPurpose(_ context.Context, ip, purpose string) error {
	l.spend(getIPKey(ip, purpose), l.limits.MaxIPRequests)
	return nil
}

func (l *MemoryLimiter) CheckFailedLogins(_ context.Context, email string) (bool, error) {
	return l.exceeded(getFailedLoginKey(email)), nil
}

func (l *MemoryLimiter) RecordFailedLogin(_ context.Context, email string) error {
	l.spend(getFailedLoginKey(email), l.limits.MaxFailedLogins)
	return nil
}

func (l *MemoryLimiter) ResetFailedLogins(_ context.Context, email string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.buckets, getFailedLoginKey(email))
	return nil
}

func (l *MemoryLimiter) exceeded(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	bucket, ok := l.buckets[key]
	if !ok {
		return false
	}
	return bucket.TokensAt(l.now()) < 1
}

func (l *MemoryLimiter) spend(key string, budget int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	bucket, ok := l.buckets[key]
	if !ok {
		if len(l.buckets) >= pruneThreshold {
			l.prune(now)
		}
		bucket = rate.NewLimiter(rate.Every(l.limits.Window/time.Duration(max(budget, 1))), max(budget, 1))
		l.buckets[key] = bucket
	}
	bucket.AllowN(now, 1)
}

// prune drops buckets that have refilled completely. Caller holds l.mu.
func (l *MemoryLimiter) prune(now time.Time) {
	for key, bucket := range l.buckets {
		if bucket.TokensAt(now) >= float64(bucket.Burst()) {
			delete(l.buckets, key)
		}
	}
}
