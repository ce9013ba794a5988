// Package memory is the single-process storage backend. One mutex guards every map; a unit of work
// holds it for its whole duration and undoes its writes in reverse order when it fails.
package memory

import (
	"context"
	"sync"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/cart"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/uow"
)

type Store struct {
	mu           sync.Mutex
	products     map[string]*catalog.Product
	carts        map[string]*cart.Cart
	orders       map[string]*order.Order
	gatewayRefs  map[string]string
	transactions map[string]*payment.Transaction // keyed by order id
}

func NewStore() *Store {
	return &Store{
		products:     make(map[string]*catalog.Product),
		carts:        make(map[string]*cart.Cart),
		orders:       make(map[string]*order.Order),
		gatewayRefs:  make(map[string]string),
		transactions: make(map[string]*payment.Transaction),
	}
}

// Repositories returns auto-committing repositories. Do not call them from inside Do:
// the unit of work already holds the store lock.
func (s *Store) Repositories() uow.Repositories {
	return s.repos(session{s: s})
}

func (s *Store) Do(ctx context.Context, fn func(ctx context.Context, repos uow.Repositories) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	j := &journal{}
	defer func() {
		if r := recover(); r != nil {
			j.rollback()
			panic(r)
		}
		if err != nil {
			j.rollback()
		}
	}()

	return fn(ctx, s.repos(session{s: s, j: j}))
}

func (s *Store) repos(x session) uow.Repositories {
	return uow.Repositories{
		Products:     productRepository{x},
		Inventory:    inventoryLedger{x},
		Carts:        cartRepository{x},
		Orders:       orderRepository{x},
		Transactions: transactionRepository{x},
	}
}

type journal struct{ undo []func() }

func (j *journal) rollback() {
	for i := len(j.undo) - 1; i >= 0; i-- {
		j.undo[i]()
	}
	j.undo = nil
}

// session is a repository's view of the store: inside a unit of work it carries the journal
// and runs without taking the lock again.
type session struct {
	s *Store
	j *journal
}

func (x session) exec(fn func() error) error {
	if x.j == nil {
		x.s.mu.Lock()
		defer x.s.mu.Unlock()
	}
	return fn()
}

func (x session) record(undo func()) {
	if x.j != nil {
		x.j.undo = append(x.j.undo, undo)
	}
}

// put stores v under k and journals the previous entry.
func put[K comparable, V any](x session, m map[K]V, k K, v V) {
	prev, existed := m[k]
	x.record(func() {
		if existed {
			m[k] = prev
		} else {
			delete(m, k)
		}
	})
	m[k] = v
}

func remove[K comparable, V any](x session, m map[K]V, k K) {
	prev, existed := m[k]
	if !existed {
		return
	}
	x.record(func() { m[k] = prev })
	delete(m, k)
}
