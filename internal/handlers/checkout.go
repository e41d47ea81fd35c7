package handlers

import (
	"net/http"

	"github.com/khelmart/khelmart/internal/auth"
	"github.com/khelmart/khelmart/internal/services"
)

// CreateCheckout handles POST /api/checkout. It persists a pending order with
// its line-item snapshot and returns the hosted payment page URL.
func (h *Handlers) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		h.respondServiceError(w, r, services.ErrUnauthenticated)
		return
	}

	var req services.CheckoutRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	result, err := h.checkoutService.CreateCheckout(ctx, identity, req, r.Header.Get("Origin"))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.respondJSON(w, r, http.StatusOK, result)
}

type verifyPaymentRequest struct {
	SessionID string `json:"session_id"`
	OrderID   string `json:"order_id"`
}

// VerifyPayment handles POST /api/checkout/verify. The storefront calls it
// from the success page after the buyer returns from the payment provider.
func (h *Handlers) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req verifyPaymentRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	result, err := h.settlementService.VerifyPayment(ctx, req.SessionID, req.OrderID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.respondJSON(w, r, http.StatusOK, result)
}
