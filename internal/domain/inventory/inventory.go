package inventory

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("inventory: product not found")
	ErrInvalidQuantity   = errors.New("inventory: quantity must be greater than zero")
	ErrInsufficientStock = errors.New("inventory: insufficient stock")
)

// InsufficientStockError names the product that could not cover a requested quantity.
// It matches ErrInsufficientStock with errors.Is.
type InsufficientStockError struct {
	ProductID   string
	ProductName string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	name := e.ProductName
	if name == "" {
		name = e.ProductID
	}
	return fmt.Sprintf("inventory: insufficient stock for %s: requested %d, available %d", name, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// Ledger owns per-product stock. Reserve is a single conditional decrement:
// it succeeds only if the current stock covers quantity, and never drives stock below zero.
type Ledger interface {
	Reserve(ctx context.Context, productID string, quantity int) error
}

// CheckAvailable reports an InsufficientStockError when available cannot cover requested.
func CheckAvailable(productID, productName string, requested, available int) error {
	if requested <= 0 {
		return ErrInvalidQuantity
	}
	if available < requested {
		return &InsufficientStockError{
			ProductID:   productID,
			ProductName: productName,
			Requested:   requested,
			Available:   available,
		}
	}
	return nil
}
