// Package kafkarelay forwards committed domain events to a Kafka topic.
package kafkarelay

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	domoutbox "github.com/Zhima-Mochi/minishop-checkout/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability/logctx"
	"github.com/segmentio/kafka-go"
)

const (
	peerName      = "kafka"
	headerEvent   = "event_type"
	writeDeadline = 5 * time.Second
)

// MessageWriter is the subset of *kafka.Writer the relay needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Relay struct {
	writer MessageWriter
	topic  string
	log    observability.Logger

	extCounter   observability.Counter
	extHistogram observability.Histogram
}

func New(writer MessageWriter, topic string, tel observability.Observability) *Relay {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Relay{
		writer:       writer,
		topic:        topic,
		log:          tel.Logger().With(observability.F("component", "kafka_relay")),
		extCounter:   tel.Metrics().Counter(observability.MExternalRequests),
		extHistogram: tel.Metrics().Histogram(observability.MExternalRequestDuration),
	}
}

// NewWriter hashes on the message key so events of one order stay ordered within a partition.
func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
}

type envelope struct {
	Event   string          `json:"event"`
	SentAt  time.Time       `json:"sentAt"`
	Payload json.RawMessage `json:"payload"`
}

// Message encodes e as a JSON envelope keyed by its aggregate id.
func Message(e domoutbox.Event) (kafka.Message, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("kafkarelay: marshal %s: %w", e.EventName(), err)
	}
	now := time.Now().UTC()
	value, err := json.Marshal(envelope{Event: e.EventName(), SentAt: now, Payload: payload})
	if err != nil {
		return kafka.Message{}, fmt.Errorf("kafkarelay: marshal envelope: %w", err)
	}
	msg := kafka.Message{
		Value:   value,
		Time:    now,
		Headers: []kafka.Header{{Key: headerEvent, Value: []byte(e.EventName())}},
	}
	if k, ok := e.(domoutbox.Keyed); ok {
		msg.Key = []byte(k.EventKey())
	}
	return msg, nil
}

// Handle is a bus handler. Write failures are returned so the bus logs them; nothing is retried.
func (r *Relay) Handle(ctx context.Context, e domoutbox.Event) (err error) {
	start := time.Now()
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = "error"
		}
		r.extCounter.Add(1,
			observability.L("peer", peerName),
			observability.L("endpoint", r.topic),
			observability.L("outcome", outcome),
		)
		r.extHistogram.Observe(time.Since(start).Seconds(),
			observability.L("peer", peerName),
			observability.L("endpoint", r.topic),
		)
	}()

	msg, err := Message(e)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, writeDeadline)
	defer cancel()
	if err := r.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafkarelay: write %s: %w", e.EventName(), err)
	}
	logctx.FromOr(ctx, r.log).Debug("event_relayed",
		observability.F("event", e.EventName()),
		observability.F("key", string(msg.Key)),
	)
	return nil
}

// Subscribe registers wrap(r.Handle) for every event name.
func (r *Relay) Subscribe(sub domoutbox.Subscriber, wrap func(domoutbox.Handler) domoutbox.Handler, names ...string) {
	h := domoutbox.Handler(r.Handle)
	if wrap != nil {
		h = wrap(h)
	}
	for _, name := range names {
		sub.Subscribe(name, h)
	}
}

func (r *Relay) Close() error { return r.writer.Close() }
