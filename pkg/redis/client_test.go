package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-api/pkg/config"
)

// memoryRedis implements cmdable over maps. TTLs are recorded, never expired.
type memoryRedis struct {
	values   map[string]string
	counters map[string]int64
	ttls     map[string]time.Duration
	expires  int
}

func newMemoryRedis() *memoryRedis {
	return &memoryRedis{values: map[string]string{}, counters: map[string]int64{}, ttls: map[string]time.Duration{}}
}

func (m *memoryRedis) Ping(context.Context) *redis.StatusCmd { return redis.NewStatusResult("PONG", nil) }

func (m *memoryRedis) Set(_ context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd {
	m.values[key] = fmt.Sprint(value)
	m.ttls[key] = ttl
	return redis.NewStatusResult("OK", nil)
}

func (m *memoryRedis) Get(_ context.Context, key string) *redis.StringCmd {
	if v, ok := m.values[key]; ok {
		return redis.NewStringResult(v, nil)
	}
	return redis.NewStringResult("", redis.Nil)
}

func (m *memoryRedis) SetNX(ctx context.Context, key string, value any, ttl time.Duration) *redis.BoolCmd {
	if _, taken := m.values[key]; taken {
		return redis.NewBoolResult(false, nil)
	}
	m.Set(ctx, key, value, ttl)
	return redis.NewBoolResult(true, nil)
}

func (m *memoryRedis) Incr(_ context.Context, key string) *redis.IntCmd {
	m.counters[key]++
	return redis.NewIntResult(m.counters[key], nil)
}

func (m *memoryRedis) Expire(_ context.Context, key string, ttl time.Duration) *redis.BoolCmd {
	m.expires++
	m.ttls[key] = ttl
	return redis.NewBoolResult(true, nil)
}

func (m *memoryRedis) TTL(_ context.Context, key string) *redis.DurationCmd {
	if ttl, ok := m.ttls[key]; ok {
		return redis.NewDurationResult(ttl, nil)
	}
	return redis.NewDurationResult(-1, nil)
}

func (m *memoryRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(m.values, key)
		delete(m.counters, key)
		delete(m.ttls, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func TestFixedWindowAllowCountsAgainstLimit(t *testing.T) {
	ctx := context.Background()
	mem := newMemoryRedis()
	client := &Client{store: mem}

	for hit := 1; hit <= 2; hit++ {
		allowed, retry, err := client.FixedWindowAllow(ctx, "login:ip", 2, 30*time.Second)
		require.NoError(t, err)
		assert.True(t, allowed, "hit %d", hit)
		assert.Zero(t, retry)
	}
	assert.Equal(t, 1, mem.expires, "window set once, on creation")

	allowed, retry, err := client.FixedWindowAllow(ctx, "login:ip", 2, 30*time.Second)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, 30*time.Second, retry)
}

func TestIncrWithTTLRestoresLostExpiry(t *testing.T) {
	mem := newMemoryRedis()
	mem.counters["sf:rate_limit:orphan"] = 4
	client := &Client{store: mem}

	count, err := client.IncrWithTTL(context.Background(), "sf:rate_limit:orphan", time.Minute)
	require.NoError(t, err)
	assert.EqualValues(t, 5, count)
	assert.Equal(t, time.Minute, mem.ttls["sf:rate_limit:orphan"])
}

func TestSetNXClaimsOnce(t *testing.T) {
	ctx := context.Background()
	client := &Client{store: newMemoryRedis()}

	won, err := client.SetNX(ctx, "sf:lock:job", "a", time.Minute)
	require.NoError(t, err)
	assert.True(t, won)

	won, err = client.SetNX(ctx, "sf:lock:job", "b", time.Minute)
	require.NoError(t, err)
	assert.False(t, won)

	holder, err := client.Get(ctx, "sf:lock:job")
	require.NoError(t, err)
	assert.Equal(t, "a", holder)

	require.NoError(t, client.Del(ctx, "sf:lock:job"))
	_, err = client.Get(ctx, "sf:lock:job")
	assert.ErrorIs(t, err, redis.Nil)
}

func TestZeroClientReportsNotConnected(t *testing.T) {
	var client *Client
	ctx := context.Background()

	assert.ErrorIs(t, client.Ping(ctx), ErrNotConnected)
	assert.ErrorIs(t, (&Client{}).Set(ctx, "k", "v", 0), ErrNotConnected)
	_, err := (&Client{}).SetNX(ctx, "k", "v", 0)
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.NoError(t, client.Close())
}

func TestKeyspace(t *testing.T) {
	defaults := &Client{}
	assert.Equal(t, "sf:idempotency:scope:id", defaults.IdempotencyKey("scope", "id"))
	assert.Equal(t, "sf:idempotency:scope", defaults.IdempotencyKey("scope", " "))
	assert.Equal(t, "sf:rate_limit:login", defaults.RateLimitKey("login"))
	assert.Equal(t, "sf:lock:cron-worker:prod", defaults.LockKey("cron-worker:prod"))

	tenant := &Client{keys: NewKeyspace(" store-eu: ")}
	assert.Equal(t, "store-eu:lock:cron-worker", tenant.LockKey("cron-worker"))
}

func TestOptionsFromConfig(t *testing.T) {
	fromURL, err := optionsFromConfig(config.RedisConfig{URL: "redis://localhost:6379/3", DB: 9, PoolSize: 7})
	require.NoError(t, err)
	assert.Equal(t, 3, fromURL.DB, "url db wins")
	assert.Equal(t, 7, fromURL.PoolSize)

	fromAddr, err := optionsFromConfig(config.RedisConfig{Address: "cache:6379", DB: 2, ReadTimeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, "cache:6379", fromAddr.Addr)
	assert.Equal(t, 2, fromAddr.DB)
	assert.Equal(t, time.Second, fromAddr.ReadTimeout)

	_, err = optionsFromConfig(config.RedisConfig{})
	assert.Error(t, err)

	_, err = optionsFromConfig(config.RedisConfig{URL: "http://nope"})
	assert.Error(t, err)
}
