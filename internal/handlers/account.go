package handlers

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/khelmart/khelmart/internal/auth"
	"github.com/khelmart/khelmart/internal/services"
)

const defaultOrderHistoryLimit = 50

// ListOrders handles GET /api/orders for the signed-in buyer.
func (h *Handlers) ListOrders(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		h.respondServiceError(w, r, services.ErrUnauthenticated)
		return
	}

	limit := defaultOrderHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			h.respondJSON(w, r, http.StatusBadRequest, errorBody("limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	orders, err := h.accountService.ListOrders(r.Context(), identity, limit)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, orders)
}

// GetOrder handles GET /api/orders/{id}. Buyers can only read their own orders.
func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		h.respondServiceError(w, r, services.ErrUnauthenticated)
		return
	}
	orderID, ok := h.pathUUID(w, r, "id")
	if !ok {
		return
	}

	order, err := h.accountService.GetOrder(r.Context(), identity, orderID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, order)
}

// GetProfile handles GET /api/profile.
func (h *Handlers) GetProfile(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		h.respondServiceError(w, r, services.ErrUnauthenticated)
		return
	}

	profile, err := h.accountService.GetProfile(r.Context(), identity)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, profile)
}

// UpdateProfile handles PUT /api/profile.
func (h *Handlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		h.respondServiceError(w, r, services.ErrUnauthenticated)
		return
	}

	var update services.ProfileUpdate
	if !h.decodeJSON(w, r, &update) {
		return
	}

	profile, err := h.accountService.UpdateProfile(r.Context(), identity, update)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, profile)
}

// ListAddresses handles GET /api/addresses.
func (h *Handlers) ListAddresses(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		h.respondServiceError(w, r, services.ErrUnauthenticated)
		return
	}

	addresses, err := h.accountService.ListAddresses(r.Context(), identity)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, addresses)
}

// AddAddress handles POST /api/addresses.
func (h *Handlers) AddAddress(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		h.respondServiceError(w, r, services.ErrUnauthenticated)
		return
	}

	var input services.AddressInput
	if !h.decodeJSON(w, r, &input) {
		return
	}

	address, err := h.accountService.AddAddress(r.Context(), identity, input)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusCreated, address)
}

// DeleteAddress handles DELETE /api/addresses/{id}.
func (h *Handlers) DeleteAddress(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		h.respondServiceError(w, r, services.ErrUnauthenticated)
		return
	}
	addressID, ok := h.pathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.accountService.DeleteAddress(r.Context(), identity, addressID); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetDefaultAddress handles PUT /api/addresses/{id}/default.
func (h *Handlers) SetDefaultAddress(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		h.respondServiceError(w, r, services.ErrUnauthenticated)
		return
	}
	addressID, ok := h.pathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.accountService.SetDefaultAddress(r.Context(), identity, addressID); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListWishlist handles GET /api/wishlist.
func (h *Handlers) ListWishlist(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		h.respondServiceError(w, r, services.ErrUnauthenticated)
		return
	}

	items, err := h.accountService.ListWishlist(r.Context(), identity)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, items)
}

type wishlistRequest struct {
	ProductID string `json:"product_id"`
}

// AddToWishlist handles POST /api/wishlist.
func (h *Handlers) AddToWishlist(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		h.respondServiceError(w, r, services.ErrUnauthenticated)
		return
	}

	var req wishlistRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		h.respondJSON(w, r, http.StatusBadRequest, errorBody("product_id is not a valid id"))
		return
	}

	if err := h.accountService.AddToWishlist(r.Context(), identity, productID); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveFromWishlist handles DELETE /api/wishlist/{product_id}.
func (h *Handlers) RemoveFromWishlist(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		h.respondServiceError(w, r, services.ErrUnauthenticated)
		return
	}
	productID, ok := h.pathUUID(w, r, "product_id")
	if !ok {
		return
	}

	if err := h.accountService.RemoveFromWishlist(r.Context(), identity, productID); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
