package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	domainErrors "github.com/aegis-sentinel/aegis/pkg/domain/errors"
)

// Window describes the active fixed window for an (identity, endpoint) pair
// after the current request has been counted.
type Window struct {
	IdentityKey  string
	Endpoint     string
	RequestCount int64
	Limit        int
	ResetAt      time.Time
}

func (w *Window) Remaining() int64 {
	remaining := int64(w.Limit) - w.RequestCount
	if remaining < 0 {
		return 0
	}
	return remaining
}

type LimiterOpts struct {
	TimeProvider func() time.Time
}

// Limiter is a fixed-window counter backed by redis. INCR creates the key
// atomically on first use, so concurrent requests from the same identity
// cannot over-admit the way a read-then-write sequence would.
type Limiter struct {
	redis        *redis.Client
	window       time.Duration
	timeProvider func() time.Time
}

func NewLimiter(redisClient *redis.Client, window time.Duration, opts *LimiterOpts) *Limiter {
	timeProvider := time.Now
	if opts != nil && opts.TimeProvider != nil {
		timeProvider = opts.TimeProvider
	}
	return &Limiter{
		redis:        redisClient,
		window:       window,
		timeProvider: timeProvider,
	}
}

// Allow counts the request against the active window and admits it unless the
// limit is exhausted. The returned window is valid in both cases; on
// rejection the error is ErrRateLimitExceeded.
//
// INCR and EXPIRE run in a single transaction so a key can never be left
// counting without a TTL.
func (l *Limiter) Allow(ctx context.Context, endpoint, identityKey string, limit int) (*Window, error) {
	key := fmt.Sprintf("ratelimit:%s:%s", endpoint, identityKey)

	pipe := l.redis.TxPipeline()
	incrCmd := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, l.window)
	ttlCmd := pipe.TTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to execute rate limit pipeline: %w", err)
	}

	count := incrCmd.Val()
	ttl := ttlCmd.Val()
	if ttl < 0 {
		ttl = l.window
	}

	window := &Window{
		IdentityKey:  identityKey,
		Endpoint:     endpoint,
		RequestCount: count,
		Limit:        limit,
		ResetAt:      l.timeProvider().Add(ttl),
	}

	if count > int64(limit) {
		return window, domainErrors.ErrRateLimitExceeded
	}
	return window, nil
}
