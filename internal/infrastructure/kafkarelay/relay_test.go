package kafkarelay

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-checkout/internal/domain/outbox"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

type fakeSubscriber struct{ names []string }

func (s *fakeSubscriber) Subscribe(name string, _ domoutbox.Handler) {
	s.names = append(s.names, name)
}

func TestHandleWritesKeyedEnvelope(t *testing.T) {
	w := &fakeWriter{}
	r := New(w, "checkout-events", nil)

	evt := order.PaymentSucceededEvent{OrderID: "o-1", TransactionID: "t-1", Amount: decimal.NewFromInt(250)}
	require.NoError(t, r.Handle(context.Background(), evt))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "o-1", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "payment.succeeded", string(msg.Headers[0].Value))

	var env struct {
		Event   string         `json:"event"`
		Payload map[string]any `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(msg.Value, &env))
	assert.Equal(t, "payment.succeeded", env.Event)
	assert.Equal(t, "t-1", env.Payload["transactionId"])
}

func TestHandleReturnsWriterError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	err := New(w, "t", nil).Handle(context.Background(), order.PaymentFailedEvent{OrderID: "o-1"})
	assert.ErrorContains(t, err, "broker down")
}

func TestSubscribeRegistersEveryName(t *testing.T) {
	sub := &fakeSubscriber{}
	wrapped := 0
	New(&fakeWriter{}, "t", nil).Subscribe(sub, func(h domoutbox.Handler) domoutbox.Handler {
		wrapped++
		return h
	}, order.EventNames()...)

	assert.Equal(t, order.EventNames(), sub.names)
	assert.Equal(t, 1, wrapped)
}
