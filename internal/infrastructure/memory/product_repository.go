package memory

import (
	"context"
	"sort"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/catalog"
)

type productRepository struct{ x session }

func (r productRepository) Insert(_ context.Context, p *catalog.Product) error {
	return r.x.exec(func() error {
		if _, ok := r.x.s.products[p.ID]; ok {
			return catalog.ErrConflict
		}
		put(r.x, r.x.s.products, p.ID, cloneProduct(p))
		return nil
	})
}

func (r productRepository) Get(_ context.Context, id string) (out *catalog.Product, err error) {
	err = r.x.exec(func() error {
		p, ok := r.x.s.products[id]
		if !ok {
			return catalog.ErrNotFound
		}
		out = cloneProduct(p)
		return nil
	})
	return out, err
}

func (r productRepository) List(_ context.Context) (out []catalog.Product, err error) {
	err = r.x.exec(func() error {
		out = make([]catalog.Product, 0, len(r.x.s.products))
		for _, p := range r.x.s.products {
			out = append(out, *p)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, err
}

func (r productRepository) Update(_ context.Context, p *catalog.Product) error {
	return r.x.exec(func() error {
		if _, ok := r.x.s.products[p.ID]; !ok {
			return catalog.ErrNotFound
		}
		put(r.x, r.x.s.products, p.ID, cloneProduct(p))
		return nil
	})
}

func (r productRepository) Delete(_ context.Context, id string) error {
	return r.x.exec(func() error {
		if _, ok := r.x.s.products[id]; !ok {
			return catalog.ErrNotFound
		}
		remove(r.x, r.x.s.products, id)
		return nil
	})
}

func cloneProduct(p *catalog.Product) *catalog.Product {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}
