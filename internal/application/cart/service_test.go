package cart

import (
	"context"
	"testing"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/cart"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	for _, d := range []struct {
		id    string
		price int64
	}{{"p1", 100}, {"p2", 50}} {
		p, err := catalog.New(d.id, catalog.Draft{Name: "Product " + d.id, BasePrice: decimal.NewFromInt(d.price), StockQty: 1})
		require.NoError(t, err)
		require.NoError(t, store.Repositories().Products.Insert(context.Background(), p))
	}
	return NewService(store, nil), store
}

func TestGetMissingCartIsEmpty(t *testing.T) {
	svc, _ := newService(t)

	c, err := svc.Get(context.Background(), "buyer-1")
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
	assert.True(t, c.Total().IsZero())
}

func TestAddItemMergesAndKeepsFirstPrice(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, AddItemInput{BuyerID: "b", ProductID: "p1", Quantity: 1})
	require.NoError(t, err)

	p, err := store.Repositories().Products.Get(ctx, "p1")
	require.NoError(t, err)
	p.BasePrice = decimal.NewFromInt(999)
	require.NoError(t, store.Repositories().Products.Update(ctx, p))

	c, err := svc.AddItem(ctx, AddItemInput{BuyerID: "b", ProductID: "p1", Quantity: 2})
	require.NoError(t, err)
	require.Len(t, c.Lines, 1)
	assert.Equal(t, 3, c.Lines[0].Quantity)
	assert.True(t, decimal.NewFromInt(100).Equal(c.Lines[0].UnitPrice))

	c, err = svc.AddItem(ctx, AddItemInput{BuyerID: "b", ProductID: "p2", Quantity: 1})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(350).Equal(c.Total()))
}

func TestAddItemValidation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, AddItemInput{BuyerID: "b", ProductID: "p1", Quantity: 0})
	assert.ErrorIs(t, err, cart.ErrInvalidQuantity)

	_, err = svc.AddItem(ctx, AddItemInput{BuyerID: "b", ProductID: "ghost", Quantity: 1})
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestRemoveAndClear(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.RemoveItem(ctx, "b", "p1")
	assert.ErrorIs(t, err, cart.ErrNotFound)

	_, err = svc.AddItem(ctx, AddItemInput{BuyerID: "b", ProductID: "p1", Quantity: 1})
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, AddItemInput{BuyerID: "b", ProductID: "p2", Quantity: 1})
	require.NoError(t, err)

	c, err := svc.RemoveItem(ctx, "b", "p1")
	require.NoError(t, err)
	require.Len(t, c.Lines, 1)
	assert.Equal(t, "p2", c.Lines[0].ProductID)

	_, err = svc.RemoveItem(ctx, "b", "p1")
	assert.ErrorIs(t, err, cart.ErrNotFound)

	require.NoError(t, svc.Clear(ctx, "b"))
	c, err = svc.Get(ctx, "b")
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())

	assert.NoError(t, svc.Clear(ctx, "never-seen"))
}
