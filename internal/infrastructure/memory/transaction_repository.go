package memory

import (
	"context"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
)

type transactionRepository struct{ x session }

func (r transactionRepository) Insert(_ context.Context, t *payment.Transaction) error {
	return r.x.exec(func() error {
		if _, ok := r.x.s.transactions[t.OrderID]; ok {
			return payment.ErrDuplicateTransaction
		}
		clone := *t
		put(r.x, r.x.s.transactions, t.OrderID, &clone)
		return nil
	})
}

func (r transactionRepository) GetByOrder(_ context.Context, orderID string) (out *payment.Transaction, err error) {
	err = r.x.exec(func() error {
		t, ok := r.x.s.transactions[orderID]
		if !ok {
			return payment.ErrNotFound
		}
		clone := *t
		out = &clone
		return nil
	})
	return out, err
}
