package memory

import (
	"context"
	"fmt"
	"sort"

	domain "github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
)

type orderRepository struct{ x session }

func (r orderRepository) Insert(_ context.Context, o *domain.Order) error {
	if o == nil || o.ID == "" {
		return fmt.Errorf("order repository: id is required")
	}
	return r.x.exec(func() error {
		if _, exists := r.x.s.orders[o.ID]; exists {
			return domain.ErrConflict
		}
		stored := o.Clone()
		stored.Transaction = nil
		put(r.x, r.x.s.orders, o.ID, stored)
		if o.GatewayOrderRef != "" {
			put(r.x, r.x.s.gatewayRefs, o.GatewayOrderRef, o.ID)
		}
		return nil
	})
}

func (r orderRepository) Get(_ context.Context, id string) (out *domain.Order, err error) {
	err = r.x.exec(func() error {
		out, err = r.load(id)
		return err
	})
	return out, err
}

func (r orderRepository) FindByGatewayRef(_ context.Context, ref string) (out *domain.Order, err error) {
	err = r.x.exec(func() error {
		id, ok := r.x.s.gatewayRefs[ref]
		if !ok {
			return domain.ErrNotFound
		}
		out, err = r.load(id)
		return err
	})
	return out, err
}

func (r orderRepository) ListByBuyer(_ context.Context, buyerID string) ([]*domain.Order, error) {
	return r.list(func(o *domain.Order) bool { return o.BuyerID == buyerID })
}

func (r orderRepository) List(_ context.Context) ([]*domain.Order, error) {
	return r.list(func(*domain.Order) bool { return true })
}

func (r orderRepository) SetGatewayRef(_ context.Context, id, ref string) (*domain.Order, error) {
	return r.mutate(id, func(o *domain.Order) error {
		prev := o.GatewayOrderRef
		if err := o.AttachGatewayRef(ref); err != nil {
			return err
		}
		if prev != "" {
			remove(r.x, r.x.s.gatewayRefs, prev)
		}
		put(r.x, r.x.s.gatewayRefs, ref, id)
		return nil
	})
}

func (r orderRepository) MarkPaymentSucceeded(_ context.Context, id string) (*domain.Order, error) {
	return r.mutate(id, (*domain.Order).SettlePayment)
}

func (r orderRepository) MarkPaymentFailed(_ context.Context, id string) (*domain.Order, error) {
	return r.mutate(id, (*domain.Order).FailPayment)
}

func (r orderRepository) UpdateShipmentStatus(_ context.Context, id string, from, to domain.ShipmentStatus) (*domain.Order, error) {
	return r.mutate(id, func(o *domain.Order) error {
		if o.ShipmentStatus != from {
			return domain.ErrInvalidTransition
		}
		return o.TransitionShipment(to)
	})
}

// mutate applies fn to a copy of the stored order and swaps it in only when fn succeeds.
func (r orderRepository) mutate(id string, fn func(o *domain.Order) error) (out *domain.Order, err error) {
	err = r.x.exec(func() error {
		stored, ok := r.x.s.orders[id]
		if !ok {
			return domain.ErrNotFound
		}
		next := stored.Clone()
		if err := fn(next); err != nil {
			return err
		}
		put(r.x, r.x.s.orders, id, next)
		out, err = r.load(id)
		return err
	})
	return out, err
}

func (r orderRepository) list(match func(*domain.Order) bool) (out []*domain.Order, err error) {
	err = r.x.exec(func() error {
		out = make([]*domain.Order, 0)
		for id, o := range r.x.s.orders {
			if !match(o) {
				continue
			}
			loaded, err := r.load(id)
			if err != nil {
				return err
			}
			out = append(out, loaded)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, err
}

// load must run with the lock held.
func (r orderRepository) load(id string) (*domain.Order, error) {
	o, ok := r.x.s.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := o.Clone()
	if t, ok := r.x.s.transactions[id]; ok {
		tx := *t
		clone.Transaction = &tx
	}
	return clone, nil
}
