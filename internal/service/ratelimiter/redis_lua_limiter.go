// Package ratelimiter throttles category.Getter.Get calls against a
// shared Redis token bucket, so partitioned consumer-group deployments
// cap aggregate fetch QPS against the message store.
package ratelimiter

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// BucketConfig describes a token bucket's capacity and refill rate.
type BucketConfig struct {
	Capacity   int64
	RefillRate float64
}

// NewBucketConfigFromPerSecond derives a bucket configuration from a
// target requests-per-second rate. burst sets the capacity; when burst is
// not positive the rate (rounded up) is used instead, so a category can
// briefly burst up to one second's allowance. A non-positive rate yields
// an empty config, which Allow treats as unlimited.
func NewBucketConfigFromPerSecond(perSecond float64, burst int64) BucketConfig {
	if perSecond <= 0 {
		return BucketConfig{}
	}
	if burst <= 0 {
		burst = int64(math.Ceil(perSecond))
	}
	return BucketConfig{Capacity: burst, RefillRate: perSecond}
}

// RedisLuaLimiter is a token-bucket rate limiter backed by a Lua script
// executed atomically in Redis, one bucket per logical key (category).
type RedisLuaLimiter struct {
	redis   *redis.Client
	buckets map[string]BucketConfig
	script  *redis.Script
	mu      sync.RWMutex
}

// NewRedisLuaLimiter constructs a limiter over the given buckets. A nil
// client produces a nil limiter, so callers can wire an optional limiter
// without a further nil check at the call site.
func NewRedisLuaLimiter(rdb *redis.Client, buckets map[string]BucketConfig) *RedisLuaLimiter {
	if rdb == nil {
		return nil
	}
	if buckets == nil {
		buckets = map[string]BucketConfig{}
	}
	return &RedisLuaLimiter{
		redis:   rdb,
		buckets: buckets,
		script:  redis.NewScript(luaTokenBucketScript),
	}
}

const luaTokenBucketScript = `
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local refill_rate = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local cost = tonumber(ARGV[4])

local tokens = capacity
local last_refill = now

local data = redis.call("HMGET", key, "tokens", "last_refill")
if data[1] ~= false and data[1] ~= nil then
  tokens = tonumber(data[1])
end
if data[2] ~= false and data[2] ~= nil then
  last_refill = tonumber(data[2])
end

if last_refill == nil then
  last_refill = now
end

local delta = now - last_refill
if delta < 0 then
  delta = 0
end

tokens = math.min(capacity, tokens + delta * refill_rate)
last_refill = now

local allowed = 0
local retry_after = 0

if tokens >= cost then
  tokens = tokens - cost
  allowed = 1
else
  local shortage = cost - tokens
  if refill_rate > 0 then
    retry_after = shortage / refill_rate
  else
    retry_after = 0
  end
end

redis.call("HMSET", key, "tokens", tokens, "last_refill", last_refill)

return { allowed, tokens, last_refill, retry_after }
`

// Allow reports whether cost tokens may be drawn from key's bucket right
// now. Satisfies category.RateLimiter. A key with no configured bucket,
// or a nil limiter, always allows — rate limiting is opt-in per category.
func (l *RedisLuaLimiter) Allow(ctx context.Context, key string, cost int64) (bool, error) {
	if l == nil || l.redis == nil {
		return true, nil
	}
	l.mu.RLock()
	cfg, ok := l.buckets[key]
	l.mu.RUnlock()
	if !ok || cfg.Capacity <= 0 || cfg.RefillRate <= 0 {
		return true, nil
	}
	if cost <= 0 {
		cost = 1
	}

	nowSec := float64(time.Now().UnixNano()) / 1e9

	redisKey := "rate:" + key
	res, err := l.script.Run(ctx, l.redis, []string{redisKey}, cfg.Capacity, cfg.RefillRate, nowSec, cost).Result()
	if err != nil {
		slog.Error("redis rate limiter script error", slog.String("key", key), slog.Any("error", err))
		// Fail open on Redis errors: a limiter outage must not also take
		// down message fetching.
		return true, err
	}

	vals, ok := res.([]interface{})
	if !ok || len(vals) < 1 {
		slog.Error("redis rate limiter unexpected script result", slog.String("key", key), slog.Any("result", res))
		return true, nil
	}

	return toInt64(vals[0]) == 1, nil
}

// SetBucketConfig updates or creates the bucket configuration for the
// given logical key. Safe for concurrent use.
func (l *RedisLuaLimiter) SetBucketConfig(key string, cfg BucketConfig) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.buckets == nil {
		l.buckets = map[string]BucketConfig{}
	}
	l.buckets[key] = cfg
}

func toInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	default:
		return 0
	}
}
