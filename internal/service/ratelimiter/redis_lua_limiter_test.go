package ratelimiter

import (
	"context"
	"strconv"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisLuaLimiter(t *testing.T) (*RedisLuaLimiter, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	limiter := NewRedisLuaLimiter(rdb, nil)

	return limiter, func() {
		_ = rdb.Close()
		mr.Close()
	}
}

func TestNewBucketConfigFromPerSecond(t *testing.T) {
	cfg := NewBucketConfigFromPerSecond(10, 0)
	assert.Equal(t, int64(10), cfg.Capacity)
	assert.Equal(t, 10.0, cfg.RefillRate)

	withBurst := NewBucketConfigFromPerSecond(10, 50)
	assert.Equal(t, int64(50), withBurst.Capacity)

	zero := NewBucketConfigFromPerSecond(0, 0)
	assert.Equal(t, BucketConfig{}, zero)
}

func TestRedisLuaLimiter_NilClientProducesNilLimiter(t *testing.T) {
	assert.Nil(t, NewRedisLuaLimiter(nil, nil))
}

func TestAllow_NilLimiter_FailsOpen(t *testing.T) {
	var limiter *RedisLuaLimiter

	allowed, err := limiter.Allow(context.Background(), "any", 1)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestAllow_NoBucketConfig_FailsOpen(t *testing.T) {
	limiter, cleanup := newTestRedisLuaLimiter(t)
	defer cleanup()

	allowed, err := limiter.Allow(context.Background(), "unknown-bucket", 1)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestAllow_WithBucket_DeniesOnceCapacityExhausted(t *testing.T) {
	ctx := context.Background()
	limiter, cleanup := newTestRedisLuaLimiter(t)
	defer cleanup()

	key := "test-bucket"
	limiter.SetBucketConfig(key, BucketConfig{Capacity: 3, RefillRate: 0.000001})

	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(ctx, key, 1)
		require.NoError(t, err)
		assert.True(t, allowed, "call %d should be allowed", i)
	}

	allowed, err := limiter.Allow(ctx, key, 1)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestAllow_ScriptError_FailsOpen(t *testing.T) {
	limiter, cleanup := newTestRedisLuaLimiter(t)
	cleanup()

	key := "bucket-script-error"
	limiter.SetBucketConfig(key, BucketConfig{Capacity: 1, RefillRate: 1})

	allowed, err := limiter.Allow(context.Background(), key, 1)
	assert.Error(t, err)
	assert.True(t, allowed)
}

func TestAllow_UnexpectedScriptResult_FailsOpen(t *testing.T) {
	ctx := context.Background()
	limiter, cleanup := newTestRedisLuaLimiter(t)
	defer cleanup()

	key := "bucket-unexpected-result"
	limiter.SetBucketConfig(key, BucketConfig{Capacity: 1, RefillRate: 1})
	limiter.script = redis.NewScript("return 1")

	allowed, err := limiter.Allow(ctx, key, 1)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestAllow_NonPositiveCostNormalizesToOne(t *testing.T) {
	ctx := context.Background()
	limiter, cleanup := newTestRedisLuaLimiter(t)
	defer cleanup()

	key := "bucket-nonpositive-cost"
	limiter.SetBucketConfig(key, BucketConfig{Capacity: 1, RefillRate: 1})

	allowed, err := limiter.Allow(ctx, key, 0)
	require.NoError(t, err)
	assert.True(t, allowed)

	val, err := limiter.redis.HGet(ctx, "rate:"+key, "tokens").Result()
	require.NoError(t, err)
	tokens, err := strconv.ParseFloat(val, 64)
	require.NoError(t, err)
	assert.Equal(t, 0.0, tokens)
}

func TestSetBucketConfig_NilSafeAndInitializesMap(t *testing.T) {
	var nilLimiter *RedisLuaLimiter
	assert.NotPanics(t, func() {
		nilLimiter.SetBucketConfig("key", BucketConfig{Capacity: 1, RefillRate: 1})
	})

	limiter := &RedisLuaLimiter{}
	limiter.SetBucketConfig("test-key", BucketConfig{Capacity: 10, RefillRate: 1.0})
	require.NotNil(t, limiter.buckets)
	cfg, ok := limiter.buckets["test-key"]
	require.True(t, ok)
	assert.Equal(t, int64(10), cfg.Capacity)
}

func TestToInt64(t *testing.T) {
	assert.Equal(t, int64(100), toInt64(int64(100)))
	assert.Equal(t, int64(50), toInt64(50))
	assert.Equal(t, int64(75), toInt64(75.9))
	assert.Equal(t, int64(0), toInt64("string"))
	assert.Equal(t, int64(0), toInt64(nil))
}
