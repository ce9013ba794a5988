package httppresentation

import (
	"encoding/json"
	"net/http"
	"time"

	apppayment "github.com/Zhima-Mochi/minishop-checkout/internal/application/payment"
	domorder "github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	dompayment "github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
	"github.com/go-chi/chi/v5"
)

type paymentRequest struct {
	OrderID     string          `json:"orderId"`
	PaymentMode dompayment.Mode `json:"paymentMode"`
}

type paymentResponse struct {
	Status          string      `json:"status"`
	Message         string      `json:"message,omitempty"`
	OrderID         string      `json:"orderId"`
	GatewayOrderRef string      `json:"gatewayOrderRef,omitempty"`
	PublicKey       string      `json:"publicKey,omitempty"`
	TransactionID   string      `json:"transactionId,omitempty"`
	Amount          json.Number `json:"amount,omitempty"`
	Date            *time.Time  `json:"date,omitempty"`
}

func settledResponse(o *domorder.Order, message string) paymentResponse {
	resp := paymentResponse{Status: apppayment.StatusSucceeded, Message: message, OrderID: o.ID}
	if tx := o.Transaction; tx != nil {
		date := tx.CreatedAt
		resp.TransactionID = tx.ID
		resp.Amount = money(tx.Amount)
		resp.Date = &date
	}
	return resp
}

func (h *Handler) handleInitiatePayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeDomainError(w, err)
		return
	}

	id := identityFromContext(r.Context())
	buyerID := id.BuyerID
	if id.Admin() {
		buyerID = ""
	}
	res, err := h.svc.Payments.Initiate(r.Context(), apppayment.InitiateInput{OrderID: req.OrderID, BuyerID: buyerID, Mode: req.PaymentMode})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if res.Status == apppayment.StatusGatewayCreated {
		writeJSON(w, http.StatusOK, paymentResponse{
			Status:          res.Status,
			Message:         "complete payment using the gateway checkout",
			OrderID:         res.Order.ID,
			GatewayOrderRef: res.GatewayOrderRef,
			PublicKey:       res.PublicKey,
		})
		return
	}
	writeJSON(w, http.StatusOK, settledResponse(res.Order, "payment completed"))
}

type verifyRequest struct {
	GatewayOrderRef  string `json:"gatewayOrderRef"`
	GatewayPaymentID string `json:"gatewayPaymentId"`
	Signature        string `json:"signature"`
}

func (h *Handler) handleVerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeDomainError(w, err)
		return
	}
	o, err := h.svc.Payments.Verify(r.Context(), apppayment.VerifyInput{
		GatewayOrderRef:  req.GatewayOrderRef,
		GatewayPaymentID: req.GatewayPaymentID,
		Signature:        req.Signature,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	resp := settledResponse(o, "payment verified")
	resp.GatewayOrderRef = req.GatewayOrderRef
	writeJSON(w, http.StatusOK, resp)
}

type paymentStatusResponse struct {
	OrderID         string                  `json:"orderId"`
	PaymentStatus   dompayment.Status       `json:"paymentStatus"`
	ShipmentStatus  domorder.ShipmentStatus `json:"shipmentStatus"`
	GatewayOrderRef string                  `json:"gatewayOrderRef"`
	TotalAmount     json.Number             `json:"totalAmount"`
}

func (h *Handler) handlePaymentStatus(w http.ResponseWriter, r *http.Request) {
	id := identityFromContext(r.Context())
	buyerID := id.BuyerID
	if id.Admin() {
		buyerID = ""
	}
	st, err := h.svc.Payments.Status(r.Context(), apppayment.StatusInput{OrderID: chi.URLParam(r, "orderId"), BuyerID: buyerID})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, paymentStatusResponse{
		OrderID:         st.OrderID,
		PaymentStatus:   st.PaymentStatus,
		ShipmentStatus:  st.ShipmentStatus,
		GatewayOrderRef: st.GatewayOrderRef,
		TotalAmount:     money(st.Order.TotalAmount),
	})
}

type paymentConfigResponse struct {
	PublicKey string `json:"publicKey"`
	DemoMode  bool   `json:"demoMode"`
}

func (h *Handler) handlePaymentConfig(w http.ResponseWriter, _ *http.Request) {
	cfg := h.svc.Payments.ClientConfig()
	writeJSON(w, http.StatusOK, paymentConfigResponse{PublicKey: cfg.PublicKey, DemoMode: cfg.DemoMode})
}
