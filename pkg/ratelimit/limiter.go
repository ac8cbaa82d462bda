package ratelimit

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"

	goredis "github.com/redis/go-redis/v9"

	"github.com/agenceo/agenceo/pkg/configuration"
	"github.com/agenceo/agenceo/pkg/serrors"
)

var (
	ErrRateLimited = serrors.NewError(
		"RATE_LIMITED",
		"too many requests, retry later",
		http.StatusTooManyRequests,
	)
	ErrCheckFailed = serrors.NewError(
		"RATE_LIMIT_CHECK_FAILED",
		"rate limit check failed",
		http.StatusInternalServerError,
	)
)

// Checker is the per-(scope, caller) write-budget check every mutation handler
// runs before doing work. Implementations must fail closed: a store error is an
// error, never a silent allow.
type Checker interface {
	Check(ctx context.Context, scope, callerID string) error
}

type fixedWindowChecker struct {
	limiter *limiter.Limiter
	window  int64
}

// New builds a fixed-window checker over the given store. Counting is atomic
// at the store level, so concurrent callers incrementing the same key never
// race in application code. With rate limiting disabled in configuration the
// returned checker allows everything.
func New(store limiter.Store, opts configuration.RateLimitOptions) Checker {
	if !opts.Enabled {
		return disabledChecker{}
	}
	rate := limiter.Rate{
		Period: opts.Window,
		Limit:  opts.MaxCount,
	}
	return &fixedWindowChecker{
		limiter: limiter.New(store, rate),
		window:  int64(opts.Window.Seconds()),
	}
}

// Check increments the caller's counter for the scope and rejects once the
// window budget is exhausted. The window length is part of the key, so a
// configuration change rotates keys instead of corrupting old counts.
func (c *fixedWindowChecker) Check(ctx context.Context, scope, callerID string) error {
	key := fmt.Sprintf("%s:%s:%d", scope, callerID, c.window)

	lctx, err := c.limiter.Get(ctx, key)
	if err != nil {
		return ErrCheckFailed.WithDetails(map[string]any{"cause": err.Error()})
	}
	if lctx.Reached {
		return ErrRateLimited
	}
	return nil
}

type disabledChecker struct{}

func (disabledChecker) Check(context.Context, string, string) error { return nil }

// NewMemoryStore returns an in-process store, used in development and tests.
func NewMemoryStore() limiter.Store {
	return memory.NewStore()
}

// NewRedisStore returns a Redis-backed store shared by all handler instances.
func NewRedisStore(redisURL string) (limiter.Store, error) {
	opt, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("ratelimit: parse redis url: %w", err)
	}
	client := goredis.NewClient(opt)
	return redisstore.NewStoreWithOptions(client, limiter.StoreOptions{
		Prefix: "agenceo:ratelimit",
	})
}
