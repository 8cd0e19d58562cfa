package app

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	redistest "github.com/testcontainers/testcontainers-go/modules/redis"
)

func setupTestRedis(t *testing.T) *goredis.Client {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	ctx := context.Background()

	container, err := redistest.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, container.Terminate(ctx))
	})

	connStr, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	opts, err := goredis.ParseURL(connStr)
	require.NoError(t, err)

	client := goredis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.Ping(ctx).Err())
	require.NoError(t, client.FlushAll(ctx).Err())

	return client
}

func TestLeaderElector_TryAcquire_SingleInstance(t *testing.T) {
	rdb := setupTestRedis(t)
	ctx := context.Background()

	elector := NewLeaderElector(rdb, "instance-1")

	acquired, err := elector.TryAcquire(ctx)
	require.NoError(t, err)
	assert.True(t, acquired, "first instance should acquire leadership")

	val, err := rdb.Get(ctx, leaderKey).Result()
	require.NoError(t, err)
	assert.Equal(t, "instance-1", val)

	ttl, err := rdb.TTL(ctx, leaderKey).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl.Seconds(), 20.0, "TTL should be ~30s")
	assert.LessOrEqual(t, ttl.Seconds(), 30.0)
}

func TestLeaderElector_TryAcquire_MultipleInstances(t *testing.T) {
	rdb := setupTestRedis(t)
	ctx := context.Background()

	elector1 := NewLeaderElector(rdb, "instance-1")
	elector2 := NewLeaderElector(rdb, "instance-2")

	acquired1, err := elector1.TryAcquire(ctx)
	require.NoError(t, err)
	require.True(t, acquired1)

	acquired2, err := elector2.TryAcquire(ctx)
	require.NoError(t, err)
	assert.False(t, acquired2, "instance 2 should NOT become leader")

	val, err := rdb.Get(ctx, leaderKey).Result()
	require.NoError(t, err)
	assert.Equal(t, "instance-1", val)
}

func TestLeaderElector_TryAcquire_ReentrantForHolder(t *testing.T) {
	rdb := setupTestRedis(t)
	ctx := context.Background()

	elector := NewLeaderElector(rdb, "instance-1")

	acquired, err := elector.TryAcquire(ctx)
	require.NoError(t, err)
	require.True(t, acquired)

	acquired, err = elector.TryAcquire(ctx)
	require.NoError(t, err)
	assert.True(t, acquired, "holder should keep the lease")
}

func TestLeaderElector_Renew_RefreshesTTL(t *testing.T) {
	rdb := setupTestRedis(t)
	ctx := context.Background()

	elector := NewLeaderElector(rdb, "instance-1")

	acquired, err := elector.TryAcquire(ctx)
	require.NoError(t, err)
	require.True(t, acquired)

	require.NoError(t, rdb.PExpire(ctx, leaderKey, 5*time.Second).Err())

	require.NoError(t, elector.Renew(ctx))

	ttl, err := rdb.TTL(ctx, leaderKey).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl.Seconds(), 25.0, "TTL should be refreshed to ~30s")
}

func TestLeaderElector_Renew_LeaseExpired(t *testing.T) {
	rdb := setupTestRedis(t)
	ctx := context.Background()

	elector := NewLeaderElector(rdb, "instance-1")

	acquired, err := elector.TryAcquire(ctx)
	require.NoError(t, err)
	require.True(t, acquired)

	require.NoError(t, rdb.Del(ctx, leaderKey).Err())

	assert.ErrorIs(t, elector.Renew(ctx), ErrLeaseLost)
}

func TestLeaderElector_Renew_LeaseTakenOver(t *testing.T) {
	rdb := setupTestRedis(t)
	ctx := context.Background()

	elector := NewLeaderElector(rdb, "instance-1")

	acquired, err := elector.TryAcquire(ctx)
	require.NoError(t, err)
	require.True(t, acquired)

	require.NoError(t, rdb.Set(ctx, leaderKey, "instance-2", 30*time.Second).Err())

	assert.ErrorIs(t, elector.Renew(ctx), ErrLeaseLost)

	val, err := rdb.Get(ctx, leaderKey).Result()
	require.NoError(t, err)
	assert.Equal(t, "instance-2", val, "renew must not touch another instance's lease")
}

func TestLeaderElector_Release_Success(t *testing.T) {
	rdb := setupTestRedis(t)
	ctx := context.Background()

	elector := NewLeaderElector(rdb, "instance-1")

	acquired, err := elector.TryAcquire(ctx)
	require.NoError(t, err)
	require.True(t, acquired)

	require.NoError(t, elector.Release(ctx))

	_, err = rdb.Get(ctx, leaderKey).Result()
	assert.ErrorIs(t, err, goredis.Nil, "lease key should be deleted")
}

func TestLeaderElector_Release_NotLeader(t *testing.T) {
	rdb := setupTestRedis(t)
	ctx := context.Background()

	elector1 := NewLeaderElector(rdb, "instance-1")
	elector2 := NewLeaderElector(rdb, "instance-2")

	acquired, err := elector1.TryAcquire(ctx)
	require.NoError(t, err)
	require.True(t, acquired)

	require.NoError(t, elector2.Release(ctx))

	val, err := rdb.Get(ctx, leaderKey).Result()
	require.NoError(t, err)
	assert.Equal(t, "instance-1", val, "instance 1 should still be leader")
}

func TestLeaderElector_Failover_AfterTTLExpiry(t *testing.T) {
	rdb := setupTestRedis(t)
	ctx := context.Background()

	elector1 := NewLeaderElector(rdb, "instance-1")
	elector1.ttl = time.Second

	acquired, err := elector1.TryAcquire(ctx)
	require.NoError(t, err)
	require.True(t, acquired)

	time.Sleep(1500 * time.Millisecond)

	elector2 := NewLeaderElector(rdb, "instance-2")
	acquired, err = elector2.TryAcquire(ctx)
	require.NoError(t, err)
	assert.True(t, acquired, "instance 2 should become leader after TTL expiry")
}

func TestLeaderElector_GracefulRelease_ImmediateTakeover(t *testing.T) {
	rdb := setupTestRedis(t)
	ctx := context.Background()

	elector1 := NewLeaderElector(rdb, "instance-1")
	elector2 := NewLeaderElector(rdb, "instance-2")

	acquired, err := elector1.TryAcquire(ctx)
	require.NoError(t, err)
	require.True(t, acquired)

	require.NoError(t, elector1.Release(ctx))

	acquired, err = elector2.TryAcquire(ctx)
	require.NoError(t, err)
	assert.True(t, acquired, "instance 2 should become leader immediately after release")

	val, err := rdb.Get(ctx, leaderKey).Result()
	require.NoError(t, err)
	assert.Equal(t, "instance-2", val)
}
