// Package uow defines the all-or-nothing boundary shared by the checkout and payment workflows.
package uow

import (
	"context"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/cart"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/inventory"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
)

// Repositories is the set of stores reachable inside one unit of work.
type Repositories struct {
	Products     catalog.Repository
	Inventory    inventory.Ledger
	Carts        cart.Repository
	Orders       order.Repository
	Transactions payment.TransactionRepository
}

// UnitOfWork runs fn so that every write made through the supplied repositories commits together,
// or none does when fn returns an error.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}

// Store is a storage backend: it exposes repositories for plain reads and writes outside a unit of work.
type Store interface {
	UnitOfWork
	Repositories() Repositories
}
