package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/cart"
	"github.com/jackc/pgx/v5"
)

type cartRepository struct{ q querier }

func (r cartRepository) Get(ctx context.Context, buyerID string) (*cart.Cart, error) {
	c := &cart.Cart{BuyerID: buyerID}
	err := r.q.QueryRow(ctx, `SELECT created_at, updated_at FROM carts WHERE buyer_id = $1`, buyerID).
		Scan(&c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, cart.ErrNoCart
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get cart: %w", err)
	}

	rows, err := r.q.Query(ctx, `
		SELECT product_id, product_name, quantity, unit_price::text, added_at
		FROM cart_lines WHERE buyer_id = $1 ORDER BY added_at, product_id`, buyerID)
	if err != nil {
		return nil, fmt.Errorf("postgres: get cart lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			l     cart.Line
			price string
		)
		if err := rows.Scan(&l.ProductID, &l.ProductName, &l.Quantity, &price, &l.AddedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan cart line: %w", err)
		}
		if l.UnitPrice, err = parseMoney(price); err != nil {
			return nil, err
		}
		c.Lines = append(c.Lines, l)
	}
	return c, rows.Err()
}

// Save replaces the buyer's lines. The cart row itself is created once and kept when emptied.
func (r cartRepository) Save(ctx context.Context, c *cart.Cart) error {
	return inTx(ctx, r.q, func(q querier) error {
		if _, err := q.Exec(ctx, `
			INSERT INTO carts (buyer_id, created_at, updated_at) VALUES ($1, $2, $3)
			ON CONFLICT (buyer_id) DO UPDATE SET updated_at = EXCLUDED.updated_at`,
			c.BuyerID, c.CreatedAt, c.UpdatedAt); err != nil {
			return fmt.Errorf("postgres: upsert cart: %w", err)
		}
		if _, err := q.Exec(ctx, `DELETE FROM cart_lines WHERE buyer_id = $1`, c.BuyerID); err != nil {
			return fmt.Errorf("postgres: clear cart lines: %w", err)
		}
		for _, l := range c.Lines {
			if _, err := q.Exec(ctx, `
				INSERT INTO cart_lines (buyer_id, product_id, product_name, quantity, unit_price, added_at)
				VALUES ($1, $2, $3, $4, $5::text::numeric, $6)`,
				c.BuyerID, l.ProductID, l.ProductName, l.Quantity, money(l.UnitPrice), l.AddedAt); err != nil {
				return fmt.Errorf("postgres: insert cart line: %w", err)
			}
		}
		return nil
	})
}
