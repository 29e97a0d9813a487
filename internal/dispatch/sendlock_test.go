package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careline/message-dispatch/pkg/redis"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, redis.RedisAdapter) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	connName := t.Name() + "-" + mr.Addr()
	adapter, err := redis.NewRedisAdapter(connName, "", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)

	return mr, adapter
}

func TestSendLock_TryClaim(t *testing.T) {
	mr, adapter := setupTestRedis(t)
	defer mr.Close()

	lock := NewSendLock(adapter, time.Minute)
	ctx := context.Background()

	claimed, err := lock.TryClaim(ctx, 42)
	require.NoError(t, err)
	assert.True(t, claimed)

	// Second claim on the same request loses.
	claimed, err = lock.TryClaim(ctx, 42)
	require.NoError(t, err)
	assert.False(t, claimed)

	// Different request is unaffected.
	claimed, err = lock.TryClaim(ctx, 43)
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestSendLock_Release(t *testing.T) {
	mr, adapter := setupTestRedis(t)
	defer mr.Close()

	lock := NewSendLock(adapter, time.Minute)
	ctx := context.Background()

	claimed, err := lock.TryClaim(ctx, 42)
	require.NoError(t, err)
	require.True(t, claimed)

	lock.Release(ctx, 42)

	claimed, err = lock.TryClaim(ctx, 42)
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestSendLock_ClaimExpires(t *testing.T) {
	mr, adapter := setupTestRedis(t)
	defer mr.Close()

	lock := NewSendLock(adapter, time.Second)
	ctx := context.Background()

	claimed, err := lock.TryClaim(ctx, 42)
	require.NoError(t, err)
	require.True(t, claimed)

	mr.FastForward(2 * time.Second)

	claimed, err = lock.TryClaim(ctx, 42)
	require.NoError(t, err)
	assert.True(t, claimed)
}
