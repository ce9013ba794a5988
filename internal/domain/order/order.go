package order

import (
	"errors"
	"time"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound          = errors.New("order: not found")
	ErrNotPending        = errors.New("order: payment is not pending")
	ErrInvalidTransition = errors.New("order: invalid shipment status transition")
	ErrInvalidQuantity   = errors.New("order: quantity must be greater than zero")
	ErrNoLines           = errors.New("order: at least one line is required")
	ErrConflict          = errors.New("order: already exists")
)

// ShipmentStatus is the fulfilment axis of an order, independent from payment status.
type ShipmentStatus string

const (
	ShipmentPending   ShipmentStatus = "PENDING"
	ShipmentConfirmed ShipmentStatus = "CONFIRMED"
	ShipmentShipped   ShipmentStatus = "SHIPPED"
	ShipmentDelivered ShipmentStatus = "DELIVERED"
	ShipmentCancelled ShipmentStatus = "CANCELLED"
)

func ParseShipmentStatus(s string) (ShipmentStatus, bool) {
	switch st := ShipmentStatus(s); st {
	case ShipmentPending, ShipmentConfirmed, ShipmentShipped, ShipmentDelivered, ShipmentCancelled:
		return st, true
	}
	return "", false
}

// Line is a frozen copy of a cart line. PriceAtPurchase never follows later catalog changes.
type Line struct {
	ProductID       string
	ProductName     string
	Quantity        int
	PriceAtPurchase decimal.Decimal
	Subtotal        decimal.Decimal
}

type Order struct {
	ID              string
	BuyerID         string
	Lines           []Line
	TotalAmount     decimal.Decimal
	ShipmentStatus  ShipmentStatus
	PaymentStatus   payment.Status
	GatewayOrderRef string
	Transaction     *payment.Transaction
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Item is the input for one order line.
type Item struct {
	ProductID       string
	ProductName     string
	Quantity        int
	PriceAtPurchase decimal.Decimal
}

// New builds a PENDING/PENDING order. Subtotals and the total are computed once here.
func New(id, buyerID string, items []Item) (*Order, error) {
	if len(items) == 0 {
		return nil, ErrNoLines
	}
	lines := make([]Line, 0, len(items))
	total := decimal.Zero
	for _, it := range items {
		if it.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		sub := it.PriceAtPurchase.Mul(decimal.NewFromInt(int64(it.Quantity)))
		lines = append(lines, Line{
			ProductID:       it.ProductID,
			ProductName:     it.ProductName,
			Quantity:        it.Quantity,
			PriceAtPurchase: it.PriceAtPurchase,
			Subtotal:        sub,
		})
		total = total.Add(sub)
	}

	now := time.Now().UTC()
	return &Order{
		ID:             id,
		BuyerID:        buyerID,
		Lines:          lines,
		TotalAmount:    total,
		ShipmentStatus: ShipmentPending,
		PaymentStatus:  payment.StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// SettlePayment moves payment PENDING -> SUCCESS and promotes a PENDING shipment to CONFIRMED.
func (o *Order) SettlePayment() error {
	if o.PaymentStatus != payment.StatusPending {
		return ErrNotPending
	}
	o.PaymentStatus = payment.StatusSuccess
	if o.ShipmentStatus == ShipmentPending {
		o.ShipmentStatus = ShipmentConfirmed
	}
	o.touch()
	return nil
}

// FailPayment moves payment PENDING -> FAILED. Shipment status is untouched.
func (o *Order) FailPayment() error {
	if o.PaymentStatus != payment.StatusPending {
		return ErrNotPending
	}
	o.PaymentStatus = payment.StatusFailed
	o.touch()
	return nil
}

// AttachGatewayRef records the remote order reference. It replaces an earlier one while payment is pending.
func (o *Order) AttachGatewayRef(ref string) error {
	if o.PaymentStatus != payment.StatusPending {
		return ErrNotPending
	}
	o.GatewayOrderRef = ref
	o.touch()
	return nil
}

func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	clone.Lines = append([]Line(nil), o.Lines...)
	if o.Transaction != nil {
		tx := *o.Transaction
		clone.Transaction = &tx
	}
	return &clone
}

func (o *Order) touch() {
	o.UpdatedAt = time.Now().UTC()
}
