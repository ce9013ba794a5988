package httppresentation

import (
	"encoding/json"
	"time"

	domcart "github.com/Zhima-Mochi/minishop-checkout/internal/domain/cart"
	domcatalog "github.com/Zhima-Mochi/minishop-checkout/internal/domain/catalog"
	domorder "github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	dompayment "github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
	"github.com/shopspring/decimal"
)

// money renders an amount as a JSON number with two decimals.
func money(d decimal.Decimal) json.Number { return json.Number(d.StringFixed(2)) }

type orderItemResponse struct {
	ProductID       string      `json:"productId"`
	ProductName     string      `json:"productName"`
	Qty             int         `json:"qty"`
	PriceAtPurchase json.Number `json:"priceAtPurchase"`
	Subtotal        json.Number `json:"subtotal"`
}

type transactionResponse struct {
	TransactionID string            `json:"transactionId"`
	Mode          dompayment.Mode   `json:"mode"`
	GatewayRef    string            `json:"gatewayRef"`
	Status        dompayment.Status `json:"status"`
	Amount        json.Number       `json:"amount"`
	Date          time.Time         `json:"date"`
}

type orderResponse struct {
	OrderID         string                  `json:"orderId"`
	BuyerID         string                  `json:"buyerId"`
	TotalAmount     json.Number             `json:"totalAmount"`
	ShipmentStatus  domorder.ShipmentStatus `json:"shipmentStatus"`
	PaymentStatus   dompayment.Status       `json:"paymentStatus"`
	GatewayOrderRef string                  `json:"gatewayOrderRef,omitempty"`
	OrderDate       time.Time               `json:"orderDate"`
	Items           []orderItemResponse     `json:"items"`
	Transaction     *transactionResponse    `json:"transaction,omitempty"`
}

func newTransactionResponse(tx *dompayment.Transaction) *transactionResponse {
	if tx == nil {
		return nil
	}
	return &transactionResponse{
		TransactionID: tx.ID,
		Mode:          tx.Mode,
		GatewayRef:    tx.GatewayRef,
		Status:        tx.Status,
		Amount:        money(tx.Amount),
		Date:          tx.CreatedAt,
	}
}

func newOrderResponse(o *domorder.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(o.Lines))
	for _, l := range o.Lines {
		items = append(items, orderItemResponse{
			ProductID:       l.ProductID,
			ProductName:     l.ProductName,
			Qty:             l.Quantity,
			PriceAtPurchase: money(l.PriceAtPurchase),
			Subtotal:        money(l.Subtotal),
		})
	}
	return orderResponse{
		OrderID:         o.ID,
		BuyerID:         o.BuyerID,
		TotalAmount:     money(o.TotalAmount),
		ShipmentStatus:  o.ShipmentStatus,
		PaymentStatus:   o.PaymentStatus,
		GatewayOrderRef: o.GatewayOrderRef,
		OrderDate:       o.CreatedAt,
		Items:           items,
		Transaction:     newTransactionResponse(o.Transaction),
	}
}

func newOrderList(orders []*domorder.Order) []orderResponse {
	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, newOrderResponse(o))
	}
	return out
}

type cartLineResponse struct {
	ProductID   string      `json:"productId"`
	ProductName string      `json:"productName"`
	Qty         int         `json:"qty"`
	UnitPrice   json.Number `json:"unitPrice"`
	Subtotal    json.Number `json:"subtotal"`
}

type cartResponse struct {
	BuyerID string             `json:"buyerId"`
	Items   []cartLineResponse `json:"items"`
	Total   json.Number        `json:"total"`
}

func newCartResponse(c *domcart.Cart) cartResponse {
	items := make([]cartLineResponse, 0, len(c.Lines))
	for _, l := range c.Lines {
		items = append(items, cartLineResponse{
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			Qty:         l.Quantity,
			UnitPrice:   money(l.UnitPrice),
			Subtotal:    money(l.Subtotal()),
		})
	}
	return cartResponse{BuyerID: c.BuyerID, Items: items, Total: money(c.Total())}
}

type productRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	SKU         string          `json:"sku"`
	BasePrice   decimal.Decimal `json:"basePrice"`
	StockQty    int             `json:"stockQty"`
}

func (p productRequest) draft() domcatalog.Draft {
	return domcatalog.Draft{
		Name:        p.Name,
		Description: p.Description,
		SKU:         p.SKU,
		BasePrice:   p.BasePrice,
		StockQty:    p.StockQty,
	}
}

type productResponse struct {
	ProductID   string      `json:"productId"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	SKU         string      `json:"sku"`
	BasePrice   json.Number `json:"basePrice"`
	StockQty    int         `json:"stockQty"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

func newProductResponse(p domcatalog.Product) productResponse {
	return productResponse{
		ProductID:   p.ID,
		Name:        p.Name,
		Description: p.Description,
		SKU:         p.SKU,
		BasePrice:   money(p.BasePrice),
		StockQty:    p.StockQty,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
