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

func TestMemoryOnly(t *testing.T) {
	ctx := context.Background()
	c := NewMultiLayerCache(MultiLayerCacheConfig{L1TTL: time.Minute}, zap.NewNop())
	now := time.Now()
	c.now = func() time.Time { return now }

	var out []string
	found, err := c.Get(ctx, "k", &out)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.Set(ctx, "k", []string{"a", "b"}, 10*time.Second))
	found, err = c.Get(ctx, "k", &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []string{"a", "b"}, out)

	now = now.Add(11 * time.Second)
	found, err = c.Get(ctx, "k", &out)
	require.NoError(t, err)
	assert.False(t, found, "expired")

	require.NoError(t, c.Set(ctx, "k", []string{"c"}, 0))
	require.NoError(t, c.Delete(ctx, "k"))
	found, _ = c.Get(ctx, "k", &out)
	assert.False(t, found)

	s := c.Stats()
	assert.EqualValues(t, 1, s.L1Hits)
	assert.EqualValues(t, 3, s.Misses)
}

func TestRedisLayer(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	writer := NewMultiLayerCache(MultiLayerCacheConfig{RedisClient: rdb, KeyPrefix: "cp:"}, zap.NewNop())
	require.NoError(t, writer.Set(ctx, "cats:c1", []string{"A > B"}, time.Hour))
	assert.True(t, mr.Exists("cp:cats:c1"))

	// a second process only sees the value through redis
	reader := NewMultiLayerCache(MultiLayerCacheConfig{RedisClient: rdb, KeyPrefix: "cp:"}, zap.NewNop())
	var out []string
	found, err := reader.Get(ctx, "cats:c1", &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []string{"A > B"}, out)
	assert.EqualValues(t, 1, reader.Stats().L2Hits)

	found, _ = reader.Get(ctx, "cats:c1", &out)
	assert.True(t, found)
	assert.EqualValues(t, 1, reader.Stats().L1Hits)

	require.NoError(t, writer.Delete(ctx, "cats:c1"))
	assert.False(t, mr.Exists("cp:cats:c1"))
}
