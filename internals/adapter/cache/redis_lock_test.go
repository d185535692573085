package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mini := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mini.Addr(),
	})
	t.Cleanup(func() { client.Close() })
	return mini, client
}

func TestRedisLock_AcquireAndRelease_Success(t *testing.T) {
	mini, client := setupTestRedis(t)
	lock := NewRedisLock(client, "widget:refresh", 2*time.Second, zap.NewNop())
	ctx := context.Background()

	acquired, err := lock.Acquire(ctx, 2*time.Second)
	require.NoError(t, err)
	assert.True(t, acquired)
	assert.True(t, mini.Exists("widget:refresh"))

	require.NoError(t, lock.Release(ctx))
	assert.False(t, mini.Exists("widget:refresh"))
}

func TestRedisLock_Acquire_Timeout(t *testing.T) {
	_, client := setupTestRedis(t)
	ctx := context.Background()

	lock1 := NewRedisLock(client, "widget:refresh", 5*time.Second, zap.NewNop())
	acquired, err := lock1.Acquire(ctx, time.Second)
	require.NoError(t, err)
	assert.True(t, acquired)

	lock2 := NewRedisLock(client, "widget:refresh", 5*time.Second, zap.NewNop())
	start := time.Now()
	acquired2, err := lock2.Acquire(ctx, 300*time.Millisecond)
	elapsed := time.Since(start)
	assert.ErrorIs(t, err, ErrLockTimeout)
	assert.False(t, acquired2)
	assert.GreaterOrEqual(t, elapsed, 300*time.Millisecond)

	_ = lock1.Release(ctx)
}

func TestRedisLock_Acquire_SingleAttempt(t *testing.T) {
	_, client := setupTestRedis(t)
	ctx := context.Background()

	holder := NewRedisLock(client, "widget:refresh", 5*time.Second, zap.NewNop())
	_, err := holder.Acquire(ctx, 0)
	require.NoError(t, err)

	other := NewRedisLock(client, "widget:refresh", 5*time.Second, zap.NewNop())
	start := time.Now()
	acquired, err := other.Acquire(ctx, 0)
	assert.ErrorIs(t, err, ErrLockTimeout)
	assert.False(t, acquired)
	assert.Less(t, time.Since(start), lockRetryInterval)
}

func TestRedisLock_Acquire_ContextCancelled(t *testing.T) {
	_, client := setupTestRedis(t)

	holder := NewRedisLock(client, "widget:refresh", 5*time.Second, zap.NewNop())
	_, err := holder.Acquire(context.Background(), 0)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	other := NewRedisLock(client, "widget:refresh", 5*time.Second, zap.NewNop())
	acquired, err := other.Acquire(ctx, 10*time.Second)
	assert.False(t, acquired)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRedisLock_Release_NotOwner(t *testing.T) {
	mini, client := setupTestRedis(t)
	ctx := context.Background()

	lock1 := NewRedisLock(client, "widget:refresh", 5*time.Second, zap.NewNop())
	acquired, err := lock1.Acquire(ctx, time.Second)
	require.NoError(t, err)
	assert.True(t, acquired)

	lock2 := NewRedisLock(client, "widget:refresh", 5*time.Second, zap.NewNop())
	require.NoError(t, lock2.Release(ctx))
	assert.True(t, mini.Exists("widget:refresh"), "non-owner must not delete the key")

	_ = lock1.Release(ctx)
}

func TestRedisLock_Acquire_ReacquireAfterTTL(t *testing.T) {
	mini, client := setupTestRedis(t)
	ctx := context.Background()

	lock1 := NewRedisLock(client, "widget:refresh", 500*time.Millisecond, zap.NewNop())
	acquired, err := lock1.Acquire(ctx, time.Second)
	require.NoError(t, err)
	assert.True(t, acquired)

	mini.FastForward(600 * time.Millisecond)

	lock2 := NewRedisLock(client, "widget:refresh", time.Second, zap.NewNop())
	acquired2, err := lock2.Acquire(ctx, time.Second)
	require.NoError(t, err)
	assert.True(t, acquired2)

	_ = lock2.Release(ctx)
}
