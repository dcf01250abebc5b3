package httpx

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// tokenBucketScript refills in whole intervals and consumes one token.
// Returns {allowed, tokens_left, retry_after_ms}.
var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local interval_ms = tonumber(ARGV[3])
local ttl_seconds = tonumber(ARGV[4])

local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])

if tokens == nil or last_refill == nil then
	tokens = capacity
	last_refill = now_ms
end

if interval_ms > 0 then
	local elapsed = math.max(0, now_ms - last_refill)
	local intervals = math.floor(elapsed / interval_ms)
	if intervals > 0 then
		tokens = math.min(capacity, tokens + intervals)
		last_refill = last_refill + (intervals * interval_ms)
	end
end

local allowed = 0
local retry_after_ms = 0
if tokens > 0 then
	allowed = 1
	tokens = tokens - 1
else
	retry_after_ms = math.max(0, interval_ms - (now_ms - last_refill))
end

redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
redis.call('EXPIRE', key, ttl_seconds)

return { allowed, tokens, retry_after_ms }
`)

// redisLimiter shares buckets between replicas through Redis.
type redisLimiter struct {
	rdb    redis.Scripter
	prefix string
	config RateLimitConfig

	interval time.Duration
	ttl      time.Duration
	now      func() time.Time
}

// NewRedisLimiter returns a Limiter whose state lives in Redis under
// "<prefix>:<key>". Capacity is the profile's burst and one token is added
// every Window/RequestsPerWindow.
func NewRedisLimiter(rdb redis.Scripter, prefix string, config RateLimitConfig) Limiter {
	interval := config.Window / time.Duration(max(config.RequestsPerWindow, 1))
	ttl := max(config.Window*2, time.Second)
	return &redisLimiter{
		rdb:      rdb,
		prefix:   prefix,
		config:   config,
		interval: interval,
		ttl:      ttl,
		now:      time.Now,
	}
}

func (l *redisLimiter) Config() RateLimitConfig { return l.config }

func (l *redisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	res, err := tokenBucketScript.Run(ctx, l.rdb,
		[]string{l.prefix + ":" + key},
		l.now().UnixMilli(),
		l.config.Burst,
		l.interval.Milliseconds(),
		int64(l.ttl/time.Second),
	).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("httpx: redis limiter: %w", err)
	}
	if len(res) != 3 {
		return Decision{}, fmt.Errorf("httpx: redis limiter: unexpected reply of %d values", len(res))
	}

	return Decision{
		Allowed:    res[0] == 1,
		Remaining:  int(res[1]),
		RetryAfter: time.Duration(res[2]) * time.Millisecond,
	}, nil
}

// RedisKeyPrefix builds the key namespace for one rate limit profile.
func RedisKeyPrefix(service, profile string) string {
	return "ratelimit:" + service + ":" + profile
}
