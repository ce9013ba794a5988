package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Zhima-Mochi/minishop-checkout/internal/application"
	"github.com/Zhima-Mochi/minishop-checkout/internal/application/apptest"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/cart"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/inventory"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store *memory.Store
	cache *memory.ProductListCache
	pub   *apptest.Publisher
	uc    *UseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store: memory.NewStore(),
		cache: memory.NewProductListCache(time.Minute),
		pub:   &apptest.Publisher{},
	}
	f.uc = NewUseCase(f.store, f.cache, &apptest.SeqIDs{Prefix: "id"}, f.pub, nil)
	return f
}

func (f *fixture) product(t *testing.T, id, name string, price int64, stock int) {
	t.Helper()
	p, err := catalog.New(id, catalog.Draft{Name: name, BasePrice: decimal.NewFromInt(price), StockQty: stock})
	require.NoError(t, err)
	require.NoError(t, f.store.Repositories().Products.Insert(context.Background(), p))
}

func (f *fixture) cart(t *testing.T, buyerID string, lines ...cart.Line) {
	t.Helper()
	c := cart.New(buyerID)
	for _, l := range lines {
		require.NoError(t, c.Add(l))
	}
	require.NoError(t, f.store.Repositories().Carts.Save(context.Background(), c))
}

func (f *fixture) stock(t *testing.T, id string) int {
	t.Helper()
	p, err := f.store.Repositories().Products.Get(context.Background(), id)
	require.NoError(t, err)
	return p.StockQty
}

func line(productID, name string, qty int, price int64) cart.Line {
	return cart.Line{ProductID: productID, ProductName: name, Quantity: qty, UnitPrice: decimal.NewFromInt(price)}
}

func TestPlaceOrderFreezesCartPricesAndTotals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.product(t, "p1", "Kettle", 120, 10)
	f.product(t, "p2", "Mug", 50, 4)
	// p1 was added to the cart at 100 before its price went up.
	f.cart(t, "buyer-1", line("p1", "Kettle", 2, 100), line("p2", "Mug", 1, 50))
	require.NoError(t, f.cache.Set(ctx, []catalog.Product{{ID: "p1"}}))

	o, err := f.uc.Execute(ctx, PlaceOrderInput{BuyerID: "buyer-1"})
	require.NoError(t, err)

	assert.True(t, decimal.NewFromInt(250).Equal(o.TotalAmount), o.TotalAmount.String())
	require.Len(t, o.Lines, 2)
	assert.True(t, decimal.NewFromInt(100).Equal(o.Lines[0].PriceAtPurchase))
	assert.True(t, decimal.NewFromInt(200).Equal(o.Lines[0].Subtotal))
	assert.Equal(t, order.ShipmentPending, o.ShipmentStatus)
	assert.Equal(t, payment.StatusPending, o.PaymentStatus)
	assert.Nil(t, o.Transaction)

	assert.Equal(t, 8, f.stock(t, "p1"))
	assert.Equal(t, 3, f.stock(t, "p2"))

	c, err := f.store.Repositories().Carts.Get(ctx, "buyer-1")
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())

	_, err = f.cache.Get(ctx)
	assert.ErrorIs(t, err, catalog.ErrCacheMiss)

	assert.Equal(t, []string{"order.placed", "inventory.stock_reserved", "inventory.stock_reserved"}, f.pub.Names())

	stored, err := f.store.Repositories().Orders.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "buyer-1", stored.BuyerID)
}

func TestPlaceOrderEmptyCart(t *testing.T) {
	f := newFixture(t)

	_, err := f.uc.Execute(context.Background(), PlaceOrderInput{BuyerID: "nobody"})
	assert.ErrorIs(t, err, cart.ErrEmptyCart)

	f.cart(t, "buyer-1")
	_, err = f.uc.Execute(context.Background(), PlaceOrderInput{BuyerID: "buyer-1"})
	assert.ErrorIs(t, err, cart.ErrEmptyCart)
	assert.Empty(t, f.pub.Names())
}

func TestPlaceOrderInsufficientStockLeavesNoTrace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.product(t, "p1", "Kettle", 100, 5)
	f.product(t, "p2", "Mug", 50, 3)
	f.cart(t, "buyer-1", line("p1", "Kettle", 2, 100), line("p2", "Mug", 10, 50))

	_, err := f.uc.Execute(ctx, PlaceOrderInput{BuyerID: "buyer-1"})
	require.ErrorIs(t, err, inventory.ErrInsufficientStock)

	var short *inventory.InsufficientStockError
	require.True(t, errors.As(err, &short))
	assert.Equal(t, "p2", short.ProductID)
	assert.Equal(t, "Mug", short.ProductName)
	assert.Equal(t, 10, short.Requested)
	assert.Equal(t, 3, short.Available)

	assert.Equal(t, 5, f.stock(t, "p1"))
	assert.Equal(t, 3, f.stock(t, "p2"))

	c, err := f.store.Repositories().Carts.Get(ctx, "buyer-1")
	require.NoError(t, err)
	assert.Len(t, c.Lines, 2)

	orders, err := f.store.Repositories().Orders.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestPlaceOrderMissingProduct(t *testing.T) {
	f := newFixture(t)
	f.cart(t, "buyer-1", line("ghost", "Ghost", 1, 10))

	_, err := f.uc.Execute(context.Background(), PlaceOrderInput{BuyerID: "buyer-1"})
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestPlaceOrderCashOnDeliverySettlesImmediately(t *testing.T) {
	f := newFixture(t)
	f.product(t, "p1", "Kettle", 100, 5)
	f.cart(t, "buyer-1", line("p1", "Kettle", 1, 100))

	o, err := f.uc.Execute(context.Background(), PlaceOrderInput{BuyerID: "buyer-1", Mode: payment.ModeCOD})
	require.NoError(t, err)

	assert.Equal(t, payment.StatusSuccess, o.PaymentStatus)
	assert.Equal(t, order.ShipmentConfirmed, o.ShipmentStatus)
	require.NotNil(t, o.Transaction)
	assert.Equal(t, payment.ModeCOD, o.Transaction.Mode)
	assert.True(t, o.TotalAmount.Equal(o.Transaction.Amount))

	tx, err := f.store.Repositories().Transactions.GetByOrder(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.Transaction.ID, tx.ID)
	assert.Contains(t, f.pub.Names(), "payment.succeeded")
}

func TestPlaceOrderConcurrentBuyersCompeteForStock(t *testing.T) {
	f := newFixture(t)
	f.product(t, "p1", "Kettle", 100, 5)
	f.cart(t, "a", line("p1", "Kettle", 3, 100))
	f.cart(t, "b", line("p1", "Kettle", 3, 100))

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, buyer := range []string{"a", "b"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.uc.Execute(context.Background(), PlaceOrderInput{BuyerID: buyer})
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, inventory.ErrInsufficientStock)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 2, f.stock(t, "p1"))
}

func TestPlaceOrderValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.uc.Execute(context.Background(), PlaceOrderInput{})
	assert.ErrorIs(t, err, application.ErrValidation)

	_, err = f.uc.Execute(context.Background(), PlaceOrderInput{BuyerID: "b", Mode: "BARTER"})
	assert.ErrorIs(t, err, application.ErrValidation)
}

func TestDemoCheckoutSeedsCartAtCurrentPrices(t *testing.T) {
	f := newFixture(t)
	f.product(t, "p1", "Kettle", 100, 5)
	f.product(t, "p2", "Mug", 50, 5)
	f.cart(t, "buyer-1", line("p2", "Mug", 4, 40))

	o, err := f.uc.Demo(context.Background(), DemoCheckoutInput{
		BuyerID: "buyer-1",
		Items:   []DemoItem{{ProductID: "p1", Quantity: 2}, {ProductID: "p2", Quantity: 1}},
	})
	require.NoError(t, err)

	assert.True(t, decimal.NewFromInt(250).Equal(o.TotalAmount), o.TotalAmount.String())
	assert.Equal(t, 3, f.stock(t, "p1"))
	assert.Equal(t, 4, f.stock(t, "p2"))
}

func TestDemoCheckoutRollsBackSeededCart(t *testing.T) {
	f := newFixture(t)
	f.product(t, "p1", "Kettle", 100, 1)
	f.cart(t, "buyer-1", line("p1", "Kettle", 1, 90))

	_, err := f.uc.Demo(context.Background(), DemoCheckoutInput{
		BuyerID: "buyer-1",
		Items:   []DemoItem{{ProductID: "p1", Quantity: 2}},
	})
	require.ErrorIs(t, err, inventory.ErrInsufficientStock)

	c, err := f.store.Repositories().Carts.Get(context.Background(), "buyer-1")
	require.NoError(t, err)
	require.Len(t, c.Lines, 1)
	assert.Equal(t, 1, c.Lines[0].Quantity)
	assert.True(t, decimal.NewFromInt(90).Equal(c.Lines[0].UnitPrice))
}

func TestDemoCheckoutRejectsBadItems(t *testing.T) {
	f := newFixture(t)

	_, err := f.uc.Demo(context.Background(), DemoCheckoutInput{BuyerID: "b"})
	assert.ErrorIs(t, err, cart.ErrEmptyCart)

	_, err = f.uc.Demo(context.Background(), DemoCheckoutInput{BuyerID: "b", Items: []DemoItem{{ProductID: "p1"}}})
	assert.ErrorIs(t, err, application.ErrValidation)
}
