package outbox

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	domoutbox "github.com/Zhima-Mochi/minishop-checkout/internal/domain/outbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEvent struct{ name string }

func (e testEvent) EventName() string { return e.name }

func TestBusDeliversToEverySubscriber(t *testing.T) {
	bus := NewBus(nil, WithConcurrency(2))
	var a, b atomic.Int32
	bus.Subscribe("order.placed", func(context.Context, domoutbox.Event) error { a.Add(1); return nil })
	bus.Subscribe("order.placed", func(context.Context, domoutbox.Event) error { b.Add(1); return nil })
	bus.Subscribe("payment.failed", func(context.Context, domoutbox.Event) error { t.Error("unexpected event"); return nil })

	ctx := context.Background()
	bus.Start(ctx)
	for i := 0; i < 3; i++ {
		require.NoError(t, bus.Publish(ctx, testEvent{name: "order.placed"}))
	}
	require.NoError(t, bus.Stop(ctx))

	assert.EqualValues(t, 3, a.Load())
	assert.EqualValues(t, 3, b.Load())
}

func TestBusRecoversHandlerPanic(t *testing.T) {
	bus := NewBus(nil)
	var calls atomic.Int32
	bus.Subscribe("x", func(context.Context, domoutbox.Event) error { panic("boom") })
	bus.Subscribe("x", func(context.Context, domoutbox.Event) error { calls.Add(1); return nil })

	ctx := context.Background()
	bus.Start(ctx)
	require.NoError(t, bus.Publish(ctx, testEvent{name: "x"}))
	require.NoError(t, bus.Stop(ctx))
	assert.EqualValues(t, 1, calls.Load())
}

func TestBusPublishAfterStop(t *testing.T) {
	bus := NewBus(nil)
	bus.Start(context.Background())
	require.NoError(t, bus.Stop(context.Background()))
	assert.ErrorIs(t, bus.Publish(context.Background(), testEvent{name: "x"}), ErrClosed)
	assert.NoError(t, bus.Stop(context.Background()))
}

func TestBusHandlerTimeout(t *testing.T) {
	bus := NewBus(nil, WithHandlerTimeout(20*time.Millisecond))
	var mu sync.Mutex
	var got error
	bus.Subscribe("slow", func(ctx context.Context, _ domoutbox.Event) error {
		<-ctx.Done()
		mu.Lock()
		got = ctx.Err()
		mu.Unlock()
		return ctx.Err()
	})

	ctx := context.Background()
	bus.Start(ctx)
	require.NoError(t, bus.Publish(ctx, testEvent{name: "slow"}))
	require.NoError(t, bus.Stop(ctx))

	mu.Lock()
	defer mu.Unlock()
	assert.ErrorIs(t, got, context.DeadlineExceeded)
}
