package postgres

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/cart"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/inventory"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/uow"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// skipOnPanic skips t when check panics. The Docker health check panics instead of skipping
// when no Docker host can be found.
func skipOnPanic(t *testing.T, check func()) {
	t.Helper()
	defer func() {
		if r := recover(); r != nil {
			t.Skipf("docker unavailable: %v", r)
		}
	}()
	check()
}

func TestSkipOnPanicSkipsInsteadOfFailing(t *testing.T) {
	var inner *testing.T
	t.Run("no docker", func(t *testing.T) {
		inner = t
		skipOnPanic(t, func() { panic("rootless Docker not found") })
		t.Error("unreachable after skip")
	})
	require.NotNil(t, inner)
	assert.True(t, inner.Skipped())
	assert.False(t, inner.Failed())
}

func setupStore(t *testing.T) *Store {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres container tests skipped in short mode")
	}
	skipOnPanic(t, func() { testcontainers.SkipIfProviderIsNotHealthy(t) })

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("checkout"),
		tcpostgres.WithUsername("checkout"),
		tcpostgres.WithPassword("checkout"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	store, err := Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(store.Close)

	require.NoError(t, store.Migrate())
	// second run is a no-op
	require.NoError(t, store.Migrate())
	return store
}

func insertProduct(t *testing.T, s *Store, id, price string, stock int) {
	t.Helper()
	p, err := catalog.New(id, catalog.Draft{Name: "Product " + id, BasePrice: decimal.RequireFromString(price), StockQty: stock})
	require.NoError(t, err)
	require.NoError(t, s.Repositories().Products.Insert(context.Background(), p))
}

func TestPostgresStore(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	t.Run("product round trip keeps numeric precision", func(t *testing.T) {
		insertProduct(t, s, "PX", "19.995", 3)
		p, err := s.Repositories().Products.Get(ctx, "PX")
		require.NoError(t, err)
		assert.True(t, p.BasePrice.Equal(decimal.RequireFromString("19.995")))
		assert.ErrorIs(t, s.Repositories().Products.Insert(ctx, p), catalog.ErrConflict)
	})

	t.Run("concurrent reservations never oversell", func(t *testing.T) {
		insertProduct(t, s, "P-race", "10", 5)

		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			okCount  int
			lastErrs []error
		)
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := s.Do(ctx, func(ctx context.Context, repos uow.Repositories) error {
					return repos.Inventory.Reserve(ctx, "P-race", 3)
				})
				mu.Lock()
				defer mu.Unlock()
				if err == nil {
					okCount++
				} else {
					lastErrs = append(lastErrs, err)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, okCount)
		require.Len(t, lastErrs, 1)
		assert.ErrorIs(t, lastErrs[0], inventory.ErrInsufficientStock)

		p, err := s.Repositories().Products.Get(ctx, "P-race")
		require.NoError(t, err)
		assert.Equal(t, 2, p.StockQty)
	})

	t.Run("unit of work rolls back", func(t *testing.T) {
		insertProduct(t, s, "P-rb", "10", 5)
		boom := errors.New("boom")
		err := s.Do(ctx, func(ctx context.Context, repos uow.Repositories) error {
			require.NoError(t, repos.Inventory.Reserve(ctx, "P-rb", 5))
			return boom
		})
		require.ErrorIs(t, err, boom)

		p, err := s.Repositories().Products.Get(ctx, "P-rb")
		require.NoError(t, err)
		assert.Equal(t, 5, p.StockQty)
	})

	t.Run("cart row survives clearing", func(t *testing.T) {
		repos := s.Repositories()
		_, err := repos.Carts.Get(ctx, "buyer-c")
		assert.ErrorIs(t, err, cart.ErrNoCart)

		c := cart.New("buyer-c")
		require.NoError(t, c.Add(cart.Line{ProductID: "PX", ProductName: "X", Quantity: 2, UnitPrice: decimal.RequireFromString("1.50")}))
		require.NoError(t, repos.Carts.Save(ctx, c))

		loaded, err := repos.Carts.Get(ctx, "buyer-c")
		require.NoError(t, err)
		require.Len(t, loaded.Lines, 1)
		assert.True(t, loaded.Total().Equal(decimal.NewFromInt(3)))

		loaded.Clear()
		require.NoError(t, repos.Carts.Save(ctx, loaded))
		emptied, err := repos.Carts.Get(ctx, "buyer-c")
		require.NoError(t, err)
		assert.True(t, emptied.IsEmpty())
	})

	t.Run("order payment compare and set", func(t *testing.T) {
		repos := s.Repositories()
		o, err := order.New("o-pg", "buyer-o", []order.Item{
			{ProductID: "P1", ProductName: "One", Quantity: 2, PriceAtPurchase: decimal.NewFromInt(100)},
			{ProductID: "P2", ProductName: "Two", Quantity: 1, PriceAtPurchase: decimal.NewFromInt(50)},
		})
		require.NoError(t, err)
		require.NoError(t, repos.Orders.Insert(ctx, o))

		_, err = repos.Orders.SetGatewayRef(ctx, o.ID, "order_ref_1")
		require.NoError(t, err)
		found, err := repos.Orders.FindByGatewayRef(ctx, "order_ref_1")
		require.NoError(t, err)
		assert.Len(t, found.Lines, 2)
		assert.True(t, found.TotalAmount.Equal(decimal.NewFromInt(250)))

		err = s.Do(ctx, func(ctx context.Context, repos uow.Repositories) error {
			if _, err := repos.Orders.MarkPaymentSucceeded(ctx, o.ID); err != nil {
				return err
			}
			return repos.Transactions.Insert(ctx, payment.NewTransaction("t-pg", o.ID, o.BuyerID, o.TotalAmount, payment.ModeGateway, "pay_1"))
		})
		require.NoError(t, err)

		paid, err := repos.Orders.Get(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, payment.StatusSuccess, paid.PaymentStatus)
		assert.Equal(t, order.ShipmentConfirmed, paid.ShipmentStatus)
		require.NotNil(t, paid.Transaction)
		assert.Equal(t, "t-pg", paid.Transaction.ID)

		_, err = repos.Orders.MarkPaymentFailed(ctx, o.ID)
		assert.ErrorIs(t, err, order.ErrNotPending)
		assert.ErrorIs(t, repos.Transactions.Insert(ctx, payment.NewTransaction("t-pg-2", o.ID, o.BuyerID, o.TotalAmount, payment.ModeGateway, "pay_2")), payment.ErrDuplicateTransaction)

		_, err = repos.Orders.UpdateShipmentStatus(ctx, o.ID, order.ShipmentPending, order.ShipmentConfirmed)
		assert.ErrorIs(t, err, order.ErrInvalidTransition)
		shipped, err := repos.Orders.UpdateShipmentStatus(ctx, o.ID, order.ShipmentConfirmed, order.ShipmentShipped)
		require.NoError(t, err)
		assert.Equal(t, order.ShipmentShipped, shipped.ShipmentStatus)

		list, err := repos.Orders.ListByBuyer(ctx, "buyer-o")
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})
}
