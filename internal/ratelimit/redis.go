package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/campushub/gateway/internal/interfaces"
	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces gateway counters in the shared store
const keyPrefix = "gw:rl:"

// incrScript atomically increments the window counter, arming the expiry
// on first touch, and returns {count, remaining-ttl-ms}. INCR and PEXPIRE
// must happen in one script or two concurrent first requests could leave
// the key without an expiry.
var incrScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
return {count, ttl}
`)

// RedisLimiter counts requests in a Redis-compatible store shared by all
// gateway instances, so the quota is meaningful under horizontal scaling
type RedisLimiter struct {
	client  redis.UniversalClient
	timeout time.Duration
}

// NewRedisLimiter connects to the store described by a redis:// URL
func NewRedisLimiter(redisURL string, timeout time.Duration) (*RedisLimiter, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("ratelimit: invalid redis URL: %w", err)
	}
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}

	return &RedisLimiter{
		client:  redis.NewClient(opts),
		timeout: timeout,
	}, nil
}

// NewRedisLimiterWithClient wraps an existing client (used in tests)
func NewRedisLimiterWithClient(client redis.UniversalClient, timeout time.Duration) *RedisLimiter {
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}
	return &RedisLimiter{client: client, timeout: timeout}
}

// Check implements interfaces.Limiter. Store errors fail open: the request
// is allowed and the error is surfaced for the caller to log, since an
// unreachable counter store must not take the whole gateway down with it.
func (r *RedisLimiter) Check(ctx context.Context, key string, quota interfaces.Quota) (interfaces.Decision, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res, err := incrScript.Run(ctx, r.client, []string{keyPrefix + key}, quota.Window().Milliseconds()).Slice()
	if err != nil {
		return interfaces.Decision{Allowed: true}, fmt.Errorf("ratelimit: store check failed: %w", err)
	}
	if len(res) != 2 {
		return interfaces.Decision{Allowed: true}, fmt.Errorf("ratelimit: unexpected script reply %v", res)
	}

	count, _ := res[0].(int64)
	ttlMS, _ := res[1].(int64)

	maxCount := int64(quota.Max())
	if count > maxCount {
		retryAfter := time.Duration(ttlMS) * time.Millisecond
		if retryAfter <= 0 {
			retryAfter = quota.Window()
		}
		return interfaces.Decision{
			Allowed:    false,
			Remaining:  0,
			RetryAfter: retryAfter,
		}, nil
	}

	return interfaces.Decision{
		Allowed:   true,
		Remaining: int(maxCount - count),
	}, nil
}

// Reset implements interfaces.Limiter
func (r *RedisLimiter) Reset(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.client.Del(ctx, keyPrefix+key).Err()
}

// Close releases the store connection
func (r *RedisLimiter) Close() error {
	return r.client.Close()
}

var _ interfaces.Limiter = (*RedisLimiter)(nil)
