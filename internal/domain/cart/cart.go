package cart

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound        = errors.New("cart: line not found")
	ErrNoCart          = errors.New("cart: no cart for buyer")
	ErrEmptyCart       = errors.New("cart: cart is empty")
	ErrInvalidQuantity = errors.New("cart: quantity must be greater than zero")
)

// Line is an uncommitted intent to buy Quantity units at UnitPrice, the price captured when the
// product was first added.
type Line struct {
	ProductID   string
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	AddedAt     time.Time
}

func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type Cart struct {
	BuyerID   string
	Lines     []Line
	CreatedAt time.Time
	UpdatedAt time.Time
}

func New(buyerID string) *Cart {
	now := time.Now().UTC()
	return &Cart{BuyerID: buyerID, CreatedAt: now, UpdatedAt: now}
}

// Add merges into an existing line for the product or appends a new one.
// A merged line keeps its original unit price.
func (c *Cart) Add(l Line) error {
	if l.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	now := time.Now().UTC()
	c.UpdatedAt = now
	for i := range c.Lines {
		if c.Lines[i].ProductID == l.ProductID {
			c.Lines[i].Quantity += l.Quantity
			return nil
		}
	}
	if l.AddedAt.IsZero() {
		l.AddedAt = now
	}
	c.Lines = append(c.Lines, l)
	return nil
}

func (c *Cart) Remove(productID string) error {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			c.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return ErrNotFound
}

func (c *Cart) Clear() {
	c.Lines = nil
	c.UpdatedAt = time.Now().UTC()
}

func (c *Cart) IsEmpty() bool { return c == nil || len(c.Lines) == 0 }

func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	if c == nil {
		return total
	}
	for _, l := range c.Lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

func (c *Cart) Clone() *Cart {
	if c == nil {
		return nil
	}
	clone := *c
	clone.Lines = append([]Line(nil), c.Lines...)
	return &clone
}

// Repository persists carts keyed by buyer. Get returns ErrNoCart when the buyer never added anything.
// Save creates the cart row on first use; emptying a cart keeps the row.
type Repository interface {
	Get(ctx context.Context, buyerID string) (*Cart, error)
	Save(ctx context.Context, c *Cart) error
}
