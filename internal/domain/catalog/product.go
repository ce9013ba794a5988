package catalog

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound       = errors.New("catalog: product not found")
	ErrInvalidProduct = errors.New("catalog: invalid product")
	ErrConflict       = errors.New("catalog: product already exists")
	ErrCacheMiss      = errors.New("catalog: cache miss")
)

type Product struct {
	ID          string
	Name        string
	Description string
	SKU         string
	BasePrice   decimal.Decimal
	StockQty    int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Draft carries the writable attributes of a product.
type Draft struct {
	Name        string
	Description string
	SKU         string
	BasePrice   decimal.Decimal
	StockQty    int
}

// Prices are kept at cents so line subtotals always add up to the rendered total.
const centsExponent = 2

func (d Draft) Validate() error {
	switch {
	case strings.TrimSpace(d.Name) == "":
		return fmtInvalid("name is required")
	case d.BasePrice.IsNegative():
		return fmtInvalid("base price must not be negative")
	case !d.BasePrice.Equal(d.BasePrice.Truncate(centsExponent)):
		return fmtInvalid("base price must not have more than two decimal places")
	case d.StockQty < 0:
		return fmtInvalid("stock quantity must not be negative")
	}
	return nil
}

func New(id string, d Draft) (*Product, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	p := &Product{ID: id, CreatedAt: now}
	p.apply(d, now)
	return p, nil
}

// Apply overwrites the writable attributes with d.
func (p *Product) Apply(d Draft) error {
	if err := d.Validate(); err != nil {
		return err
	}
	p.apply(d, time.Now().UTC())
	return nil
}

func (p *Product) apply(d Draft, now time.Time) {
	p.Name = strings.TrimSpace(d.Name)
	p.Description = d.Description
	p.SKU = d.SKU
	p.BasePrice = d.BasePrice
	p.StockQty = d.StockQty
	p.UpdatedAt = now
}

type Repository interface {
	Insert(ctx context.Context, p *Product) error
	Get(ctx context.Context, id string) (*Product, error)
	List(ctx context.Context) ([]Product, error)
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id string) error
}

// ListCache holds the full product list between writes. Every product write must Invalidate it.
type ListCache interface {
	Get(ctx context.Context) ([]Product, error)
	Set(ctx context.Context, products []Product) error
	Invalidate(ctx context.Context) error
}

type invalidError struct{ msg string }

func (e *invalidError) Error() string { return "catalog: " + e.msg }
func (e *invalidError) Unwrap() error { return ErrInvalidProduct }

func fmtInvalid(msg string) error { return &invalidError{msg: msg} }
