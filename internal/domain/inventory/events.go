package inventory

import "time"

// StockReservedEvent is emitted after a checkout commits a stock decrement for one product.
type StockReservedEvent struct {
	OrderID    string    `json:"orderId"`
	ProductID  string    `json:"productId"`
	Quantity   int       `json:"qty"`
	OccurredAt time.Time `json:"occurredAt"`
}

func (StockReservedEvent) EventName() string { return "inventory.stock_reserved" }

func (e StockReservedEvent) EventKey() string { return e.ProductID }

func NewStockReservedEvent(orderID, productID string, quantity int) StockReservedEvent {
	return StockReservedEvent{
		OrderID:    orderID,
		ProductID:  productID,
		Quantity:   quantity,
		OccurredAt: time.Now().UTC(),
	}
}
