// Package cart manages the buyer's pending lines. Cart writes never touch stock.
package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/Zhima-Mochi/minishop-checkout/internal/application"
	domcart "github.com/Zhima-Mochi/minishop-checkout/internal/domain/cart"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/uow"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

const (
	cartService       = "cart-service"
	useCaseCartGet    = "cart.get"
	useCaseCartAdd    = "cart.add_line"
	useCaseCartRemove = "cart.remove_line"
	useCaseCartClear  = "cart.clear"
)

type Service struct {
	carts    domcart.Repository
	products catalog.Repository
	ins      application.Instruments
}

func NewService(store uow.Store, tel observability.Observability) *Service {
	repos := store.Repositories()
	return &Service{
		carts:    repos.Carts,
		products: repos.Products,
		ins:      application.NewInstruments(tel, cartService),
	}
}

// Get returns the buyer's cart, or an empty one when the buyer never added anything.
func (s *Service) Get(ctx context.Context, buyerID string) (_ *domcart.Cart, err error) {
	ctx, run := s.ins.Begin(ctx, useCaseCartGet, "GetCart", attribute.String("cart.buyer_id", buyerID))
	defer run.Finish(&err)

	if buyerID == "" {
		return nil, run.Fail("VALIDATION_FAILED", application.Invalid("buyer id is required"))
	}
	c, err := s.load(ctx, buyerID)
	if err != nil {
		return nil, run.Fail("CART_LOOKUP_FAILED", err)
	}
	return c, nil
}

type AddItemInput struct {
	BuyerID   string
	ProductID string
	Quantity  int
}

// AddItem captures the product's current price on a new line, or increments an existing line.
func (s *Service) AddItem(ctx context.Context, cmd AddItemInput) (_ *domcart.Cart, err error) {
	ctx, run := s.ins.Begin(ctx, useCaseCartAdd, "AddCartLine",
		attribute.String("cart.buyer_id", cmd.BuyerID),
		attribute.String("cart.product_id", cmd.ProductID),
		attribute.Int("cart.qty", cmd.Quantity),
	)
	defer run.Finish(&err)

	switch {
	case cmd.BuyerID == "":
		return nil, run.Fail("VALIDATION_FAILED", application.Invalid("buyer id is required"))
	case cmd.ProductID == "":
		return nil, run.Fail("VALIDATION_FAILED", application.Invalid("product id is required"))
	case cmd.Quantity <= 0:
		return nil, run.Fail("QUANTITY_INVALID", domcart.ErrInvalidQuantity)
	}

	p, err := s.products.Get(ctx, cmd.ProductID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, run.Fail("PRODUCT_NOT_FOUND", err)
		}
		return nil, run.Fail("PRODUCT_LOOKUP_FAILED", err)
	}

	c, err := s.load(ctx, cmd.BuyerID)
	if err != nil {
		return nil, run.Fail("CART_LOOKUP_FAILED", err)
	}
	if err := c.Add(domcart.Line{
		ProductID:   p.ID,
		ProductName: p.Name,
		Quantity:    cmd.Quantity,
		UnitPrice:   p.BasePrice,
	}); err != nil {
		return nil, run.Fail("QUANTITY_INVALID", err)
	}
	if err := s.carts.Save(ctx, c); err != nil {
		return nil, run.Fail("CART_SAVE_FAILED", fmt.Errorf("cart: save: %w", err))
	}
	return c, nil
}

func (s *Service) RemoveItem(ctx context.Context, buyerID, productID string) (_ *domcart.Cart, err error) {
	ctx, run := s.ins.Begin(ctx, useCaseCartRemove, "RemoveCartLine",
		attribute.String("cart.buyer_id", buyerID),
		attribute.String("cart.product_id", productID),
	)
	defer run.Finish(&err)

	if buyerID == "" {
		return nil, run.Fail("VALIDATION_FAILED", application.Invalid("buyer id is required"))
	}
	c, err := s.carts.Get(ctx, buyerID)
	if errors.Is(err, domcart.ErrNoCart) {
		return nil, run.Fail("LINE_NOT_FOUND", domcart.ErrNotFound)
	}
	if err != nil {
		return nil, run.Fail("CART_LOOKUP_FAILED", err)
	}
	if err := c.Remove(productID); err != nil {
		return nil, run.Fail("LINE_NOT_FOUND", err)
	}
	if err := s.carts.Save(ctx, c); err != nil {
		return nil, run.Fail("CART_SAVE_FAILED", fmt.Errorf("cart: save: %w", err))
	}
	return c, nil
}

// Clear empties the cart. Clearing a cart that does not exist is a no-op.
func (s *Service) Clear(ctx context.Context, buyerID string) (err error) {
	ctx, run := s.ins.Begin(ctx, useCaseCartClear, "ClearCart", attribute.String("cart.buyer_id", buyerID))
	defer run.Finish(&err)

	if buyerID == "" {
		return run.Fail("VALIDATION_FAILED", application.Invalid("buyer id is required"))
	}
	c, err := s.carts.Get(ctx, buyerID)
	if errors.Is(err, domcart.ErrNoCart) {
		run.Status("NO_CART")
		return nil
	}
	if err != nil {
		return run.Fail("CART_LOOKUP_FAILED", err)
	}
	c.Clear()
	if err := s.carts.Save(ctx, c); err != nil {
		return run.Fail("CART_SAVE_FAILED", fmt.Errorf("cart: save: %w", err))
	}
	return nil
}

func (s *Service) load(ctx context.Context, buyerID string) (*domcart.Cart, error) {
	c, err := s.carts.Get(ctx, buyerID)
	if errors.Is(err, domcart.ErrNoCart) {
		return domcart.New(buyerID), nil
	}
	return c, err
}
