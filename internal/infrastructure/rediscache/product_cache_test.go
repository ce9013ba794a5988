package rediscache

import (
	"context"
	"testing"
	"time"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/catalog"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*ProductListCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewProductListCache(client, 10*time.Minute), mr
}

func TestGetMiss(t *testing.T) {
	cache, _ := setupTestRedis(t)

	got, err := cache.Get(context.Background())
	assert.ErrorIs(t, err, catalog.ErrCacheMiss)
	assert.Nil(t, got)
}

func TestSetThenGet(t *testing.T) {
	cache, mr := setupTestRedis(t)
	ctx := context.Background()

	products := []catalog.Product{
		{ID: "P1", Name: "Lamp", BasePrice: decimal.RequireFromString("12.50"), StockQty: 4},
		{ID: "P2", Name: "Desk", BasePrice: decimal.NewFromInt(90), StockQty: 1},
	}
	require.NoError(t, cache.Set(ctx, products))
	assert.True(t, mr.Exists(productListKey))

	ttl := mr.TTL(productListKey)
	assert.GreaterOrEqual(t, ttl, 10*time.Minute)
	assert.Less(t, ttl, 11*time.Minute)

	got, err := cache.Get(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Lamp", got[0].Name)
	assert.True(t, got[0].BasePrice.Equal(decimal.RequireFromString("12.5")))
}

func TestInvalidate(t *testing.T) {
	cache, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, []catalog.Product{{ID: "P1"}}))
	require.NoError(t, cache.Invalidate(ctx))
	assert.False(t, mr.Exists(productListKey))

	_, err := cache.Get(ctx)
	assert.ErrorIs(t, err, catalog.ErrCacheMiss)
}

func TestGetInvalidJSON(t *testing.T) {
	cache, mr := setupTestRedis(t)
	require.NoError(t, mr.Set(productListKey, "{not json"))

	_, err := cache.Get(context.Background())
	assert.Error(t, err)
	assert.NotErrorIs(t, err, catalog.ErrCacheMiss)
}

func TestExpiry(t *testing.T) {
	cache, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, []catalog.Product{{ID: "P1"}}))
	mr.FastForward(12 * time.Minute)

	_, err := cache.Get(ctx)
	assert.ErrorIs(t, err, catalog.ErrCacheMiss)
}

func TestServerDown(t *testing.T) {
	cache, mr := setupTestRedis(t)
	mr.Close()

	_, err := cache.Get(context.Background())
	assert.Error(t, err)
	assert.NotErrorIs(t, err, catalog.ErrCacheMiss)
}
