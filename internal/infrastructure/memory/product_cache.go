package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/catalog"
)

// ProductListCache is the in-process product list cache used when Redis is not configured.
type ProductListCache struct {
	mu      sync.RWMutex
	items   []catalog.Product
	expires time.Time
	ttl     time.Duration
	now     func() time.Time
}

func NewProductListCache(ttl time.Duration) *ProductListCache {
	return &ProductListCache{ttl: ttl, now: time.Now}
}

func (c *ProductListCache) Get(_ context.Context) ([]catalog.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.items == nil || (c.ttl > 0 && !c.now().Before(c.expires)) {
		return nil, catalog.ErrCacheMiss
	}
	return append([]catalog.Product(nil), c.items...), nil
}

func (c *ProductListCache) Set(_ context.Context, products []catalog.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(make([]catalog.Product, 0, len(products)), products...)
	c.expires = c.now().Add(c.ttl)
	return nil
}

func (c *ProductListCache) Invalidate(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
	return nil
}
