package httppresentation

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Zhima-Mochi/minishop-checkout/internal/application"
	apppayment "github.com/Zhima-Mochi/minishop-checkout/internal/application/payment"
	domcart "github.com/Zhima-Mochi/minishop-checkout/internal/domain/cart"
	domcatalog "github.com/Zhima-Mochi/minishop-checkout/internal/domain/catalog"
	dominventory "github.com/Zhima-Mochi/minishop-checkout/internal/domain/inventory"
	domorder "github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	dompayment "github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
)

// errBadRequest marks request bodies that could not be decoded.
var errBadRequest = errors.New("malformed request body")

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeErrorTag(w http.ResponseWriter, status int, tag, message string) {
	writeJSON(w, status, errorResponse{Error: tag, Message: message})
}

// classify maps an error chain to its response status and taxonomy tag.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domorder.ErrNotFound),
		errors.Is(err, domcatalog.ErrNotFound),
		errors.Is(err, dominventory.ErrNotFound),
		errors.Is(err, domcart.ErrNotFound),
		errors.Is(err, dompayment.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domcart.ErrEmptyCart):
		return http.StatusConflict, "EMPTY_CART"
	case errors.Is(err, dominventory.ErrInsufficientStock):
		return http.StatusConflict, "INSUFFICIENT_STOCK"
	case errors.Is(err, domorder.ErrNotPending):
		return http.StatusConflict, "ORDER_NOT_PENDING"
	case errors.Is(err, dompayment.ErrSignatureMismatch):
		return http.StatusBadRequest, "SIGNATURE_VERIFICATION_FAILED"
	case errors.Is(err, dompayment.ErrGateway),
		errors.Is(err, apppayment.ErrGatewayUnavailable):
		return http.StatusBadGateway, "GATEWAY_ERROR"
	case errors.Is(err, domorder.ErrInvalidTransition):
		return http.StatusConflict, "INVALID_TRANSITION"
	case errors.Is(err, domcatalog.ErrConflict):
		return http.StatusConflict, "CONFLICT"
	case errors.Is(err, application.ErrValidation),
		errors.Is(err, errBadRequest),
		errors.Is(err, domcatalog.ErrInvalidProduct),
		errors.Is(err, domcart.ErrInvalidQuantity),
		errors.Is(err, dominventory.ErrInvalidQuantity),
		errors.Is(err, domorder.ErrInvalidQuantity),
		errors.Is(err, domorder.ErrNoLines):
		return http.StatusBadRequest, "VALIDATION_ERROR"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}

func writeDomainError(w http.ResponseWriter, err error) {
	status, tag := classify(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	writeErrorTag(w, status, tag, msg)
}
