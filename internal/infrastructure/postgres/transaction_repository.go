package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
	"github.com/jackc/pgx/v5"
)

type transactionRepository struct{ q querier }

func (r transactionRepository) Insert(ctx context.Context, t *payment.Transaction) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO transactions (id, order_id, buyer_id, amount, mode, gateway_ref, status, created_at)
		VALUES ($1, $2, $3, $4::text::numeric, $5, $6, $7, $8)`,
		t.ID, t.OrderID, t.BuyerID, money(t.Amount), string(t.Mode), t.GatewayRef, string(t.Status), t.CreatedAt)
	if isUniqueViolation(err) {
		return payment.ErrDuplicateTransaction
	}
	if err != nil {
		return fmt.Errorf("postgres: insert transaction: %w", err)
	}
	return nil
}

func (r transactionRepository) GetByOrder(ctx context.Context, orderID string) (*payment.Transaction, error) {
	var (
		t      payment.Transaction
		amount string
		mode   string
		status string
	)
	err := r.q.QueryRow(ctx, `
		SELECT id, order_id, buyer_id, amount::text, mode, gateway_ref, status, created_at
		FROM transactions WHERE order_id = $1`, orderID).
		Scan(&t.ID, &t.OrderID, &t.BuyerID, &amount, &mode, &t.GatewayRef, &status, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, payment.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get transaction: %w", err)
	}
	if t.Amount, err = parseMoney(amount); err != nil {
		return nil, err
	}
	t.Mode = payment.Mode(mode)
	t.Status = payment.Status(status)
	return &t, nil
}
