package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/inventory"
	"github.com/jackc/pgx/v5"
)

type productRepository struct{ q querier }

const productColumns = `id, name, description, sku, base_price::text, stock_qty, created_at, updated_at`

func (r productRepository) Insert(ctx context.Context, p *catalog.Product) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO products (id, name, description, sku, base_price, stock_qty, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5::text::numeric, $6, $7, $8)`,
		p.ID, p.Name, p.Description, p.SKU, money(p.BasePrice), p.StockQty, p.CreatedAt, p.UpdatedAt)
	if isUniqueViolation(err) {
		return catalog.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("postgres: insert product: %w", err)
	}
	return nil
}

func (r productRepository) Get(ctx context.Context, id string) (*catalog.Product, error) {
	p, err := scanProduct(r.q.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, catalog.ErrNotFound
	}
	return p, err
}

func (r productRepository) List(ctx context.Context) ([]catalog.Product, error) {
	rows, err := r.q.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list products: %w", err)
	}
	defer rows.Close()

	out := make([]catalog.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r productRepository) Update(ctx context.Context, p *catalog.Product) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE products
		SET name = $2, description = $3, sku = $4, base_price = $5::text::numeric, stock_qty = $6, updated_at = $7
		WHERE id = $1`,
		p.ID, p.Name, p.Description, p.SKU, money(p.BasePrice), p.StockQty, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("postgres: update product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

func (r productRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

func scanProduct(row pgx.Row) (*catalog.Product, error) {
	var (
		p     catalog.Product
		price string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.SKU, &price, &p.StockQty, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("postgres: scan product: %w", err)
	}
	d, err := parseMoney(price)
	if err != nil {
		return nil, err
	}
	p.BasePrice = d
	return &p, nil
}

type inventoryLedger struct{ q querier }

// Reserve is one conditional decrement. When no row changes it reads the row back only to
// tell a missing product from a short one.
func (l inventoryLedger) Reserve(ctx context.Context, productID string, quantity int) error {
	if quantity <= 0 {
		return inventory.ErrInvalidQuantity
	}
	tag, err := l.q.Exec(ctx, `
		UPDATE products SET stock_qty = stock_qty - $2, updated_at = now()
		WHERE id = $1 AND stock_qty >= $2`, productID, quantity)
	if err != nil {
		return fmt.Errorf("postgres: reserve stock: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var (
		name  string
		stock int
	)
	err = l.q.QueryRow(ctx, `SELECT name, stock_qty FROM products WHERE id = $1`, productID).Scan(&name, &stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return inventory.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("postgres: read stock: %w", err)
	}
	return &inventory.InsufficientStockError{ProductID: productID, ProductName: name, Requested: quantity, Available: stock}
}
