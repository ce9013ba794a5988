package order

import (
	"time"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
	"github.com/shopspring/decimal"
)

type EventLine struct {
	ProductID       string          `json:"productId"`
	Quantity        int             `json:"qty"`
	PriceAtPurchase decimal.Decimal `json:"priceAtPurchase"`
}

// OrderPlacedEvent is emitted once the checkout unit of work has committed.
type OrderPlacedEvent struct {
	OrderID       string          `json:"orderId"`
	BuyerID       string          `json:"buyerId"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	PaymentStatus payment.Status  `json:"paymentStatus"`
	Lines         []EventLine     `json:"lines"`
	OccurredAt    time.Time       `json:"occurredAt"`
}

func (OrderPlacedEvent) EventName() string { return "order.placed" }

func (e OrderPlacedEvent) EventKey() string { return e.OrderID }

func NewOrderPlacedEvent(o *Order) OrderPlacedEvent {
	lines := make([]EventLine, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, EventLine{ProductID: l.ProductID, Quantity: l.Quantity, PriceAtPurchase: l.PriceAtPurchase})
	}
	return OrderPlacedEvent{
		OrderID:       o.ID,
		BuyerID:       o.BuyerID,
		TotalAmount:   o.TotalAmount,
		PaymentStatus: o.PaymentStatus,
		Lines:         lines,
		OccurredAt:    time.Now().UTC(),
	}
}

// PaymentInitiatedEvent is emitted when a remote gateway order was opened for an order.
type PaymentInitiatedEvent struct {
	OrderID         string    `json:"orderId"`
	GatewayOrderRef string    `json:"gatewayOrderRef"`
	OccurredAt      time.Time `json:"occurredAt"`
}

func (PaymentInitiatedEvent) EventName() string { return "payment.initiated" }

func (e PaymentInitiatedEvent) EventKey() string { return e.OrderID }

func NewPaymentInitiatedEvent(o *Order) PaymentInitiatedEvent {
	return PaymentInitiatedEvent{OrderID: o.ID, GatewayOrderRef: o.GatewayOrderRef, OccurredAt: time.Now().UTC()}
}

type PaymentSucceededEvent struct {
	OrderID       string          `json:"orderId"`
	TransactionID string          `json:"transactionId"`
	Amount        decimal.Decimal `json:"amount"`
	Mode          payment.Mode    `json:"mode"`
	OccurredAt    time.Time       `json:"occurredAt"`
}

func (PaymentSucceededEvent) EventName() string { return "payment.succeeded" }

func (e PaymentSucceededEvent) EventKey() string { return e.OrderID }

func NewPaymentSucceededEvent(tx *payment.Transaction) PaymentSucceededEvent {
	return PaymentSucceededEvent{
		OrderID:       tx.OrderID,
		TransactionID: tx.ID,
		Amount:        tx.Amount,
		Mode:          tx.Mode,
		OccurredAt:    time.Now().UTC(),
	}
}

type PaymentFailedEvent struct {
	OrderID    string    `json:"orderId"`
	Reason     string    `json:"reason"`
	OccurredAt time.Time `json:"occurredAt"`
}

func (PaymentFailedEvent) EventName() string { return "payment.failed" }

func (e PaymentFailedEvent) EventKey() string { return e.OrderID }

func NewPaymentFailedEvent(orderID, reason string) PaymentFailedEvent {
	return PaymentFailedEvent{OrderID: orderID, Reason: reason, OccurredAt: time.Now().UTC()}
}

type ShipmentStatusChangedEvent struct {
	OrderID    string         `json:"orderId"`
	From       ShipmentStatus `json:"from"`
	To         ShipmentStatus `json:"to"`
	OccurredAt time.Time      `json:"occurredAt"`
}

func (ShipmentStatusChangedEvent) EventName() string { return "order.shipment_status_changed" }

func (e ShipmentStatusChangedEvent) EventKey() string { return e.OrderID }

func NewShipmentStatusChangedEvent(orderID string, from, to ShipmentStatus) ShipmentStatusChangedEvent {
	return ShipmentStatusChangedEvent{OrderID: orderID, From: from, To: to, OccurredAt: time.Now().UTC()}
}

// EventNames lists every event the order aggregate emits.
func EventNames() []string {
	return []string{
		OrderPlacedEvent{}.EventName(),
		PaymentInitiatedEvent{}.EventName(),
		PaymentSucceededEvent{}.EventName(),
		PaymentFailedEvent{}.EventName(),
		ShipmentStatusChangedEvent{}.EventName(),
	}
}
