package httppresentation

import (
	"net/http"

	appcart "github.com/Zhima-Mochi/minishop-checkout/internal/application/cart"
	"github.com/go-chi/chi/v5"
)

type addCartItemRequest struct {
	ProductID string `json:"productId"`
	Qty       int    `json:"qty"`
}

func (h *Handler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Carts.Get(r.Context(), identityFromContext(r.Context()).BuyerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newCartResponse(c))
}

func (h *Handler) handleAddCartItem(w http.ResponseWriter, r *http.Request) {
	var req addCartItemRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeDomainError(w, err)
		return
	}
	c, err := h.svc.Carts.AddItem(r.Context(), appcart.AddItemInput{
		BuyerID:   identityFromContext(r.Context()).BuyerID,
		ProductID: req.ProductID,
		Quantity:  req.Qty,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newCartResponse(c))
}

func (h *Handler) handleRemoveCartItem(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Carts.RemoveItem(r.Context(), identityFromContext(r.Context()).BuyerID, chi.URLParam(r, "productId"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newCartResponse(c))
}

func (h *Handler) handleClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Carts.Clear(r.Context(), identityFromContext(r.Context()).BuyerID); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
