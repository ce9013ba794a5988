package httppresentation

import (
	"net/http"

	"github.com/Zhima-Mochi/minishop-checkout/internal/application/checkout"
	apporder "github.com/Zhima-Mochi/minishop-checkout/internal/application/order"
	domorder "github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	dompayment "github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
	"github.com/go-chi/chi/v5"
)

type checkoutRequest struct {
	PaymentMode dompayment.Mode `json:"paymentMode"`
}

func (h *Handler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := decodeJSON(r, &req, true); err != nil {
		writeDomainError(w, err)
		return
	}

	id := identityFromContext(r.Context())
	o, err := h.svc.Checkout.Execute(r.Context(), checkout.PlaceOrderInput{BuyerID: id.BuyerID, Mode: req.PaymentMode})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newOrderResponse(o))
}

type demoItemRequest struct {
	ProductID string `json:"productId"`
	Qty       int    `json:"qty"`
}

func (h *Handler) handleDemoCheckout(w http.ResponseWriter, r *http.Request) {
	var req []demoItemRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeDomainError(w, err)
		return
	}

	buyerID := identityFromContext(r.Context()).BuyerID
	if buyerID == "" {
		buyerID = h.opts.DemoBuyerID
	}
	items := make([]checkout.DemoItem, 0, len(req))
	for _, it := range req {
		items = append(items, checkout.DemoItem{ProductID: it.ProductID, Quantity: it.Qty})
	}

	o, err := h.svc.Checkout.Demo(r.Context(), checkout.DemoCheckoutInput{BuyerID: buyerID, Items: items})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newOrderResponse(o))
}

func (h *Handler) handleMyOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.Orders.ListForBuyer(r.Context(), identityFromContext(r.Context()).BuyerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newOrderList(orders))
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id := identityFromContext(r.Context())
	o, err := h.svc.Orders.Get(r.Context(), apporder.Viewer{BuyerID: id.BuyerID, Admin: id.Admin()}, chi.URLParam(r, "orderId"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newOrderResponse(o))
}

func (h *Handler) handleAllOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.Orders.ListAll(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newOrderList(orders))
}

type shipmentStatusRequest struct {
	Status domorder.ShipmentStatus `json:"status"`
}

func (h *Handler) handleShipmentStatus(w http.ResponseWriter, r *http.Request) {
	var req shipmentStatusRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeDomainError(w, err)
		return
	}
	o, err := h.svc.Orders.UpdateShipmentStatus(r.Context(), chi.URLParam(r, "orderId"), req.Status)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newOrderResponse(o))
}
