package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestRedis connects to the Redis named by VOXEVAL_TEST_REDIS_ADDR.
func newTestRedis(t *testing.T) *RedisCache {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test")
	}
	addr := os.Getenv("VOXEVAL_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("VOXEVAL_TEST_REDIS_ADDR is not set")
	}

	c, err := NewRedisCache(context.Background(), addr, "", 0, time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestRedisCache_SetAndGet(t *testing.T) {
	c := newTestRedis(t)
	ctx := context.Background()

	type summary struct {
		ID    string
		Score float64
	}

	key := LastResultCacheKey(time.Now().UnixNano())
	t.Cleanup(func() { _ = c.Delete(ctx, key) })

	require.NoError(t, c.Set(ctx, key, summary{ID: "eval-1", Score: 72.5}))

	var got summary
	require.NoError(t, c.Get(ctx, key, &got))
	assert.Equal(t, summary{ID: "eval-1", Score: 72.5}, got)

	exists, err := c.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRedisCache_GetMissing(t *testing.T) {
	c := newTestRedis(t)

	var got string
	err := c.Get(context.Background(), "missing:"+time.Now().String(), &got)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisCache_Delete(t *testing.T) {
	c := newTestRedis(t)
	ctx := context.Background()
	key := ChatActiveCacheKey(time.Now().UnixNano())

	require.NoError(t, c.SetWithTTL(ctx, key, "true", time.Minute))
	require.NoError(t, c.Delete(ctx, key))

	exists, err := c.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCacheKey_String(t *testing.T) {
	key := CacheKey{Prefix: "task", ID: "123"}
	assert.Equal(t, "task:123", key.String())
}

func TestChatActiveCacheKey(t *testing.T) {
	assert.Equal(t, "chat:active:123456", ChatActiveCacheKey(123456))
}

func TestLastResultCacheKey(t *testing.T) {
	assert.Equal(t, "chat:last:-100200", LastResultCacheKey(-100200))
}
