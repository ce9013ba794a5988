package memory

import (
	"context"
	"time"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/inventory"
)

type inventoryLedger struct{ x session }

// Reserve checks and decrements under the store lock, so two reservations of the same product
// can never both observe the pre-decrement stock.
func (l inventoryLedger) Reserve(_ context.Context, productID string, quantity int) error {
	if quantity <= 0 {
		return inventory.ErrInvalidQuantity
	}
	return l.x.exec(func() error {
		p, ok := l.x.s.products[productID]
		if !ok {
			return inventory.ErrNotFound
		}
		if err := inventory.CheckAvailable(p.ID, p.Name, quantity, p.StockQty); err != nil {
			return err
		}
		next := cloneProduct(p)
		next.StockQty -= quantity
		next.UpdatedAt = time.Now().UTC()
		put(l.x, l.x.s.products, productID, next)
		return nil
	})
}
