// Package checkout turns a buyer's cart into an order inside one unit of work.
package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/Zhima-Mochi/minishop-checkout/internal/application"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/cart"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/inventory"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-checkout/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/uow"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

const (
	checkoutService     = "checkout-service"
	useCasePlaceOrder   = "checkout.place_order"
	useCaseDemoCheckout = "checkout.demo"
)

type PlaceOrderInput struct {
	BuyerID string
	// Mode COD settles the order inside the checkout. Any other mode leaves payment PENDING.
	Mode payment.Mode
}

type DemoItem struct {
	ProductID string
	Quantity  int
}

type DemoCheckoutInput struct {
	BuyerID string
	Items   []DemoItem
	Mode    payment.Mode
}

var _ application.UseCase[PlaceOrderInput, *order.Order] = (*UseCase)(nil)

// UseCase places orders from carts. The product-list cache is optional.
type UseCase struct {
	store     uow.UnitOfWork
	cache     catalog.ListCache
	ids       application.IDGenerator
	publisher domoutbox.Publisher
	ins       application.Instruments
}

func NewUseCase(
	store uow.UnitOfWork,
	cache catalog.ListCache,
	ids application.IDGenerator,
	publisher domoutbox.Publisher,
	tel observability.Observability,
) *UseCase {
	return &UseCase{
		store:     store,
		cache:     cache,
		ids:       ids,
		publisher: publisher,
		ins:       application.NewInstruments(tel, checkoutService),
	}
}

// Execute runs placeOrder for the buyer's current cart.
func (uc *UseCase) Execute(ctx context.Context, cmd PlaceOrderInput) (_ *order.Order, err error) {
	ctx, run := uc.ins.Begin(ctx, useCasePlaceOrder, "PlaceOrder",
		attribute.String("order.buyer_id", cmd.BuyerID),
		attribute.String("payment.mode", string(cmd.Mode)),
	)
	defer run.Finish(&err)

	if err := validate(cmd.BuyerID, cmd.Mode); err != nil {
		return nil, run.Fail("VALIDATION_FAILED", err)
	}

	var placed *order.Order
	err = uc.store.Do(ctx, func(ctx context.Context, repos uow.Repositories) error {
		o, err := uc.place(ctx, repos, cmd.BuyerID, cmd.Mode)
		placed = o
		return err
	})
	if err != nil {
		return nil, run.Fail(statusFor(err), err)
	}

	uc.afterCommit(run, placed)
	return placed, nil
}

// Demo clears the buyer's cart, fills it with items at current prices and places the order,
// all in the same unit of work.
func (uc *UseCase) Demo(ctx context.Context, cmd DemoCheckoutInput) (_ *order.Order, err error) {
	ctx, run := uc.ins.Begin(ctx, useCaseDemoCheckout, "DemoCheckout",
		attribute.String("order.buyer_id", cmd.BuyerID),
		attribute.Int("cart.items", len(cmd.Items)),
	)
	defer run.Finish(&err)

	if err := validate(cmd.BuyerID, cmd.Mode); err != nil {
		return nil, run.Fail("VALIDATION_FAILED", err)
	}
	if len(cmd.Items) == 0 {
		return nil, run.Fail("EMPTY_CART", cart.ErrEmptyCart)
	}
	for _, it := range cmd.Items {
		if it.ProductID == "" {
			return nil, run.Fail("VALIDATION_FAILED", application.Invalid("product id is required"))
		}
		if it.Quantity <= 0 {
			return nil, run.Fail("VALIDATION_FAILED", application.Invalid("quantity for %s must be greater than zero", it.ProductID))
		}
	}

	var placed *order.Order
	err = uc.store.Do(ctx, func(ctx context.Context, repos uow.Repositories) error {
		if err := seedCart(ctx, repos, cmd.BuyerID, cmd.Items); err != nil {
			return err
		}
		o, err := uc.place(ctx, repos, cmd.BuyerID, cmd.Mode)
		placed = o
		return err
	})
	if err != nil {
		return nil, run.Fail(statusFor(err), err)
	}

	uc.afterCommit(run, placed)
	return placed, nil
}

func (uc *UseCase) place(ctx context.Context, repos uow.Repositories, buyerID string, mode payment.Mode) (*order.Order, error) {
	c, err := repos.Carts.Get(ctx, buyerID)
	if errors.Is(err, cart.ErrNoCart) {
		return nil, cart.ErrEmptyCart
	}
	if err != nil {
		return nil, fmt.Errorf("checkout: load cart: %w", err)
	}
	if c.IsEmpty() {
		return nil, cart.ErrEmptyCart
	}

	// Every line is checked before the first decrement so the buyer sees the first short product
	// without any write having happened.
	for _, l := range c.Lines {
		p, err := repos.Products.Get(ctx, l.ProductID)
		if err != nil {
			return nil, fmt.Errorf("checkout: product %s: %w", l.ProductID, err)
		}
		if err := inventory.CheckAvailable(p.ID, p.Name, l.Quantity, p.StockQty); err != nil {
			return nil, err
		}
	}

	items := make([]order.Item, 0, len(c.Lines))
	for _, l := range c.Lines {
		if err := repos.Inventory.Reserve(ctx, l.ProductID, l.Quantity); err != nil {
			var short *inventory.InsufficientStockError
			if errors.As(err, &short) && short.ProductName == "" {
				short.ProductName = l.ProductName
			}
			return nil, err
		}
		items = append(items, order.Item{
			ProductID:       l.ProductID,
			ProductName:     l.ProductName,
			Quantity:        l.Quantity,
			PriceAtPurchase: l.UnitPrice,
		})
	}

	o, err := order.New(uc.ids.NewID(), buyerID, items)
	if err != nil {
		return nil, err
	}
	if err := repos.Orders.Insert(ctx, o); err != nil {
		return nil, fmt.Errorf("checkout: insert order: %w", err)
	}

	if mode == payment.ModeCOD {
		settled, err := repos.Orders.MarkPaymentSucceeded(ctx, o.ID)
		if err != nil {
			return nil, err
		}
		tx := payment.NewTransaction(uc.ids.NewID(), o.ID, buyerID, o.TotalAmount, payment.ModeCOD, "")
		if err := repos.Transactions.Insert(ctx, tx); err != nil {
			return nil, fmt.Errorf("checkout: record transaction: %w", err)
		}
		settled.Transaction = tx
		o = settled
	}

	c.Clear()
	if err := repos.Carts.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("checkout: clear cart: %w", err)
	}
	return o, nil
}

func seedCart(ctx context.Context, repos uow.Repositories, buyerID string, items []DemoItem) error {
	c, err := repos.Carts.Get(ctx, buyerID)
	if errors.Is(err, cart.ErrNoCart) {
		c = cart.New(buyerID)
	} else if err != nil {
		return fmt.Errorf("checkout: load cart: %w", err)
	}
	c.Clear()
	for _, it := range items {
		p, err := repos.Products.Get(ctx, it.ProductID)
		if err != nil {
			return fmt.Errorf("checkout: product %s: %w", it.ProductID, err)
		}
		if err := c.Add(cart.Line{
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    it.Quantity,
			UnitPrice:   p.BasePrice,
		}); err != nil {
			return err
		}
	}
	return repos.Carts.Save(ctx, c)
}

func (uc *UseCase) afterCommit(run *application.Run, o *order.Order) {
	run.Field("order_id", o.ID)
	run.Field("total_amount", o.TotalAmount.String())
	run.Span().SetAttributes(
		attribute.String("order.id", o.ID),
		attribute.String("order.payment_status", string(o.PaymentStatus)),
	)

	if uc.cache != nil {
		if err := uc.cache.Invalidate(context.WithoutCancel(run.Context())); err != nil {
			uc.ins.CacheResult("invalidate", "error")
			run.Log.Warn("cache_invalidate_failed", observability.Err(err))
		} else {
			uc.ins.CacheResult("invalidate", "ok")
		}
	}

	events := []domoutbox.Event{order.NewOrderPlacedEvent(o)}
	for _, l := range o.Lines {
		events = append(events, inventory.NewStockReservedEvent(o.ID, l.ProductID, l.Quantity))
	}
	if o.Transaction != nil {
		events = append(events, order.NewPaymentSucceededEvent(o.Transaction))
	}
	run.Publish(uc.publisher, events...)
}

func validate(buyerID string, mode payment.Mode) error {
	if buyerID == "" {
		return application.Invalid("buyer id is required")
	}
	switch mode {
	case "", payment.ModeDemo, payment.ModeCOD, payment.ModeGateway:
		return nil
	}
	return application.Invalid("unknown payment mode %q", mode)
}

func statusFor(err error) string {
	switch {
	case errors.Is(err, cart.ErrEmptyCart):
		return "EMPTY_CART"
	case errors.Is(err, inventory.ErrInsufficientStock):
		return "INSUFFICIENT_STOCK"
	case errors.Is(err, catalog.ErrNotFound), errors.Is(err, inventory.ErrNotFound):
		return "PRODUCT_NOT_FOUND"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "CONTEXT_CANCELED"
	default:
		return "CHECKOUT_FAILED"
	}
}
