package order

import (
	"testing"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOrder(t *testing.T) *Order {
	t.Helper()
	o, err := New("o-1", "buyer-1", []Item{
		{ProductID: "P1", ProductName: "Kettle", Quantity: 2, PriceAtPurchase: decimal.NewFromInt(100)},
		{ProductID: "P2", ProductName: "Cup", Quantity: 1, PriceAtPurchase: decimal.NewFromInt(50)},
	})
	require.NoError(t, err)
	return o
}

func TestNewComputesTotalFromSubtotals(t *testing.T) {
	o := newOrder(t)

	assert.True(t, o.TotalAmount.Equal(decimal.NewFromInt(250)))
	assert.True(t, o.Lines[0].Subtotal.Equal(decimal.NewFromInt(200)))
	assert.Equal(t, ShipmentPending, o.ShipmentStatus)
	assert.Equal(t, payment.StatusPending, o.PaymentStatus)

	sum := decimal.Zero
	for _, l := range o.Lines {
		sum = sum.Add(l.Subtotal)
	}
	assert.True(t, sum.Equal(o.TotalAmount))
}

func TestNewRejectsInvalidInput(t *testing.T) {
	_, err := New("o-1", "b", nil)
	assert.ErrorIs(t, err, ErrNoLines)

	_, err = New("o-1", "b", []Item{{ProductID: "P1", Quantity: 0}})
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestSettlePaymentHappensOnce(t *testing.T) {
	o := newOrder(t)

	require.NoError(t, o.SettlePayment())
	assert.Equal(t, payment.StatusSuccess, o.PaymentStatus)
	assert.Equal(t, ShipmentConfirmed, o.ShipmentStatus)

	assert.ErrorIs(t, o.SettlePayment(), ErrNotPending)
	assert.ErrorIs(t, o.FailPayment(), ErrNotPending)
	assert.ErrorIs(t, o.AttachGatewayRef("ref"), ErrNotPending)
}

func TestSettlePaymentKeepsAdvancedShipment(t *testing.T) {
	o := newOrder(t)
	require.NoError(t, o.TransitionShipment(ShipmentConfirmed))
	require.NoError(t, o.TransitionShipment(ShipmentShipped))

	require.NoError(t, o.SettlePayment())
	assert.Equal(t, ShipmentShipped, o.ShipmentStatus)
}

func TestFailPaymentLeavesShipment(t *testing.T) {
	o := newOrder(t)
	require.NoError(t, o.FailPayment())
	assert.Equal(t, payment.StatusFailed, o.PaymentStatus)
	assert.Equal(t, ShipmentPending, o.ShipmentStatus)
}

func TestShipmentTransitions(t *testing.T) {
	cases := []struct {
		from, to ShipmentStatus
		ok       bool
	}{
		{ShipmentPending, ShipmentConfirmed, true},
		{ShipmentPending, ShipmentCancelled, true},
		{ShipmentPending, ShipmentShipped, false},
		{ShipmentConfirmed, ShipmentShipped, true},
		{ShipmentConfirmed, ShipmentCancelled, true},
		{ShipmentShipped, ShipmentDelivered, true},
		{ShipmentShipped, ShipmentCancelled, false},
		{ShipmentDelivered, ShipmentCancelled, false},
		{ShipmentCancelled, ShipmentConfirmed, false},
		{ShipmentConfirmed, ShipmentConfirmed, false},
		{ShipmentPending, ShipmentPending, false},
	}
	for _, tc := range cases {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			next, err := NextShipment(tc.from, tc.to)
			if tc.ok {
				require.NoError(t, err)
				assert.Equal(t, tc.to, next)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidTransition)
			assert.Equal(t, tc.from, next)
		})
	}
}

func TestCloneIsIndependent(t *testing.T) {
	o := newOrder(t)
	o.Transaction = payment.NewTransaction("t-1", o.ID, o.BuyerID, o.TotalAmount, payment.ModeDemo, "ref")

	c := o.Clone()
	c.Lines[0].Quantity = 99
	c.Transaction.GatewayRef = "other"

	assert.Equal(t, 2, o.Lines[0].Quantity)
	assert.Equal(t, "ref", o.Transaction.GatewayRef)
}

func TestParseShipmentStatus(t *testing.T) {
	s, ok := ParseShipmentStatus("SHIPPED")
	assert.True(t, ok)
	assert.Equal(t, ShipmentShipped, s)

	_, ok = ParseShipmentStatus("LOST")
	assert.False(t, ok)
}
