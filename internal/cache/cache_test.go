package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func setupTestCache(t *testing.T) (*miniredis.Miniredis, *Cache) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, NewWithClient(client, time.Minute, zap.NewNop())
}

func TestNilCacheIsDisabled(t *testing.T) {
	var c *Cache
	ctx := context.Background()

	c.SetJSON(ctx, "k", payload{Name: "x"})
	var out payload
	assert.False(t, c.GetJSON(ctx, "k", &out))
	assert.Zero(t, c.Generation(ctx, "slots"))
	c.Bump(ctx, "slots")
	assert.NoError(t, c.Close())
}

func TestNewWithoutAddr(t *testing.T) {
	c, err := New(context.Background(), Options{}, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestSetAndGetJSON(t *testing.T) {
	mr, c := setupTestCache(t)
	ctx := context.Background()

	var out payload
	assert.False(t, c.GetJSON(ctx, "regions", &out))

	c.SetJSON(ctx, "regions", payload{Name: "London", Count: 3})
	require.True(t, c.GetJSON(ctx, "regions", &out))
	assert.Equal(t, payload{Name: "London", Count: 3}, out)

	assert.True(t, mr.Exists(KeyPrefix+"regions"))
	assert.Equal(t, time.Minute, mr.TTL(KeyPrefix+"regions"))

	mr.FastForward(2 * time.Minute)
	assert.False(t, c.GetJSON(ctx, "regions", &out))
}

func TestGetJSONCorruptEntry(t *testing.T) {
	mr, c := setupTestCache(t)
	require.NoError(t, mr.Set(KeyPrefix+"bad", "{not json"))

	var out payload
	assert.False(t, c.GetJSON(context.Background(), "bad", &out))
}

func TestGenerationBump(t *testing.T) {
	_, c := setupTestCache(t)
	ctx := context.Background()

	assert.Equal(t, int64(0), c.Generation(ctx, "slots"))
	c.Bump(ctx, "slots")
	c.Bump(ctx, "slots")
	assert.Equal(t, int64(2), c.Generation(ctx, "slots"))
}

func TestRedisDownCountsAsMiss(t *testing.T) {
	mr, c := setupTestCache(t)
	mr.Close()

	var out payload
	assert.False(t, c.GetJSON(context.Background(), "regions", &out))
	c.SetJSON(context.Background(), "regions", payload{})
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint("SW", "london")
	assert.Equal(t, a, Fingerprint("SW", "london"))
	assert.NotEqual(t, a, Fingerprint("SWl", "ondon"))
	assert.NotEqual(t, a, Fingerprint("london", "SW"))
}
