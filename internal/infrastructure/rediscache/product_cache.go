package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/catalog"
	"github.com/redis/go-redis/v9"
)

const productListKey = "catalog:products:list"

// ProductListCache stores the serialized product list under a single key.
type ProductListCache struct {
	client  redis.UniversalClient
	baseTTL time.Duration
	jitter  time.Duration
}

func NewProductListCache(client redis.UniversalClient, ttl time.Duration) *ProductListCache {
	return &ProductListCache{client: client, baseTTL: ttl, jitter: ttl / 10}
}

func (c *ProductListCache) Get(ctx context.Context) ([]catalog.Product, error) {
	data, err := c.client.Get(ctx, productListKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, catalog.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var products []catalog.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("unmarshal product list failed: %w", err)
	}
	return products, nil
}

func (c *ProductListCache) Set(ctx context.Context, products []catalog.Product) error {
	data, err := json.Marshal(products)
	if err != nil {
		return fmt.Errorf("marshal product list failed: %w", err)
	}
	ttl := c.baseTTL
	if c.jitter > 0 {
		ttl += time.Duration(rand.Int63n(int64(c.jitter)))
	}
	if err := c.client.Set(ctx, productListKey, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *ProductListCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, productListKey).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

// NewClient builds a client for addr. Ping it before relying on it.
func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
}
