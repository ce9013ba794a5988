package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
	"github.com/jackc/pgx/v5"
)

type orderRepository struct{ q querier }

const orderSelect = `
	SELECT o.id, o.buyer_id, o.total_amount::text, o.shipment_status, o.payment_status,
	       COALESCE(o.gateway_order_ref, ''), o.created_at, o.updated_at,
	       t.id, t.buyer_id, t.amount::text, t.mode, t.gateway_ref, t.status, t.created_at
	FROM orders o
	LEFT JOIN transactions t ON t.order_id = o.id`

func (r orderRepository) Insert(ctx context.Context, o *order.Order) error {
	return inTx(ctx, r.q, func(q querier) error {
		_, err := q.Exec(ctx, `
			INSERT INTO orders (id, buyer_id, total_amount, shipment_status, payment_status, gateway_order_ref, created_at, updated_at)
			VALUES ($1, $2, $3::text::numeric, $4, $5, NULLIF($6, ''), $7, $8)`,
			o.ID, o.BuyerID, money(o.TotalAmount), string(o.ShipmentStatus), string(o.PaymentStatus),
			o.GatewayOrderRef, o.CreatedAt, o.UpdatedAt)
		if isUniqueViolation(err) {
			return order.ErrConflict
		}
		if err != nil {
			return fmt.Errorf("postgres: insert order: %w", err)
		}
		for i, l := range o.Lines {
			if _, err := q.Exec(ctx, `
				INSERT INTO order_lines (order_id, line_no, product_id, product_name, quantity, price_at_purchase, subtotal)
				VALUES ($1, $2, $3, $4, $5, $6::text::numeric, $7::text::numeric)`,
				o.ID, i, l.ProductID, l.ProductName, l.Quantity, money(l.PriceAtPurchase), money(l.Subtotal)); err != nil {
				return fmt.Errorf("postgres: insert order line: %w", err)
			}
		}
		return nil
	})
}

func (r orderRepository) Get(ctx context.Context, id string) (*order.Order, error) {
	return r.one(ctx, orderSelect+` WHERE o.id = $1`, id)
}

func (r orderRepository) FindByGatewayRef(ctx context.Context, ref string) (*order.Order, error) {
	return r.one(ctx, orderSelect+` WHERE o.gateway_order_ref = $1`, ref)
}

func (r orderRepository) ListByBuyer(ctx context.Context, buyerID string) ([]*order.Order, error) {
	return r.many(ctx, orderSelect+` WHERE o.buyer_id = $1 ORDER BY o.created_at DESC, o.id DESC`, buyerID)
}

func (r orderRepository) List(ctx context.Context) ([]*order.Order, error) {
	return r.many(ctx, orderSelect+` ORDER BY o.created_at DESC, o.id DESC`)
}

func (r orderRepository) SetGatewayRef(ctx context.Context, id, ref string) (*order.Order, error) {
	return r.compareAndSet(ctx, id, order.ErrNotPending, `
		UPDATE orders SET gateway_order_ref = $2, updated_at = now()
		WHERE id = $1 AND payment_status = 'PENDING'`, id, ref)
}

func (r orderRepository) MarkPaymentSucceeded(ctx context.Context, id string) (*order.Order, error) {
	return r.compareAndSet(ctx, id, order.ErrNotPending, `
		UPDATE orders
		SET payment_status = 'SUCCESS',
		    shipment_status = CASE WHEN shipment_status = 'PENDING' THEN 'CONFIRMED' ELSE shipment_status END,
		    updated_at = now()
		WHERE id = $1 AND payment_status = 'PENDING'`, id)
}

func (r orderRepository) MarkPaymentFailed(ctx context.Context, id string) (*order.Order, error) {
	return r.compareAndSet(ctx, id, order.ErrNotPending, `
		UPDATE orders SET payment_status = 'FAILED', updated_at = now()
		WHERE id = $1 AND payment_status = 'PENDING'`, id)
}

func (r orderRepository) UpdateShipmentStatus(ctx context.Context, id string, from, to order.ShipmentStatus) (*order.Order, error) {
	if _, err := order.NextShipment(from, to); err != nil {
		return nil, err
	}
	return r.compareAndSet(ctx, id, order.ErrInvalidTransition, `
		UPDATE orders SET shipment_status = $3, updated_at = now()
		WHERE id = $1 AND shipment_status = $2`, id, string(from), string(to))
}

// compareAndSet runs a guarded UPDATE. Zero affected rows means either the order is missing or the
// guard no longer holds, reported as lost.
func (r orderRepository) compareAndSet(ctx context.Context, id string, lost error, sql string, args ...any) (*order.Order, error) {
	tag, err := r.q.Exec(ctx, sql, args...)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("postgres: gateway reference already used: %w", order.ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
			return nil, fmt.Errorf("postgres: check order: %w", err)
		}
		if !exists {
			return nil, order.ErrNotFound
		}
		return nil, lost
	}
	return r.Get(ctx, id)
}

func (r orderRepository) one(ctx context.Context, sql string, args ...any) (*order.Order, error) {
	list, err := r.many(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, order.ErrNotFound
	}
	return list[0], nil
}

func (r orderRepository) many(ctx context.Context, sql string, args ...any) ([]*order.Order, error) {
	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: query orders: %w", err)
	}
	out := make([]*order.Order, 0)
	byID := make(map[string]*order.Order)
	ids := make([]string, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, o)
		byID[o.ID] = o
		ids = append(ids, o.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: read orders: %w", err)
	}
	if len(ids) == 0 {
		return out, nil
	}

	lines, err := r.q.Query(ctx, `
		SELECT order_id, product_id, product_name, quantity, price_at_purchase::text, subtotal::text
		FROM order_lines WHERE order_id = ANY($1) ORDER BY order_id, line_no`, ids)
	if err != nil {
		return nil, fmt.Errorf("postgres: query order lines: %w", err)
	}
	defer lines.Close()
	for lines.Next() {
		var (
			orderID    string
			l          order.Line
			price, sub string
		)
		if err := lines.Scan(&orderID, &l.ProductID, &l.ProductName, &l.Quantity, &price, &sub); err != nil {
			return nil, fmt.Errorf("postgres: scan order line: %w", err)
		}
		if l.PriceAtPurchase, err = parseMoney(price); err != nil {
			return nil, err
		}
		if l.Subtotal, err = parseMoney(sub); err != nil {
			return nil, err
		}
		if o, ok := byID[orderID]; ok {
			o.Lines = append(o.Lines, l)
		}
	}
	return out, lines.Err()
}

func scanOrder(row pgx.Row) (*order.Order, error) {
	var (
		o        order.Order
		total    string
		shipment string
		paid     string
		txID     *string
		txBuyer  *string
		txAmount *string
		txMode   *string
		txRef    *string
		txStatus *string
		txAt     *time.Time
	)
	err := row.Scan(&o.ID, &o.BuyerID, &total, &shipment, &paid, &o.GatewayOrderRef, &o.CreatedAt, &o.UpdatedAt,
		&txID, &txBuyer, &txAmount, &txMode, &txRef, &txStatus, &txAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, order.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: scan order: %w", err)
	}
	if o.TotalAmount, err = parseMoney(total); err != nil {
		return nil, err
	}
	o.ShipmentStatus = order.ShipmentStatus(shipment)
	o.PaymentStatus = payment.Status(paid)
	o.Lines = make([]order.Line, 0)

	if txID != nil {
		amount, err := parseMoney(*txAmount)
		if err != nil {
			return nil, err
		}
		o.Transaction = &payment.Transaction{
			ID:         *txID,
			OrderID:    o.ID,
			BuyerID:    *txBuyer,
			Amount:     amount,
			Mode:       payment.Mode(*txMode),
			GatewayRef: *txRef,
			Status:     payment.Status(*txStatus),
			CreatedAt:  *txAt,
		}
	}
	return &o, nil
}
