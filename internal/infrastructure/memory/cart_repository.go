package memory

import (
	"context"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/cart"
)

type cartRepository struct{ x session }

func (r cartRepository) Get(_ context.Context, buyerID string) (out *cart.Cart, err error) {
	err = r.x.exec(func() error {
		c, ok := r.x.s.carts[buyerID]
		if !ok {
			return cart.ErrNoCart
		}
		out = c.Clone()
		return nil
	})
	return out, err
}

func (r cartRepository) Save(_ context.Context, c *cart.Cart) error {
	return r.x.exec(func() error {
		put(r.x, r.x.s.carts, c.BuyerID, c.Clone())
		return nil
	})
}
