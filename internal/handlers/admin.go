package handlers

import (
	"net/http"

	"github.com/khelmart/khelmart/internal/services"
)

// AdminCreateProduct handles POST /api/admin/products.
func (h *Handlers) AdminCreateProduct(w http.ResponseWriter, r *http.Request) {
	var input services.ProductInput
	if !h.decodeJSON(w, r, &input) {
		return
	}

	product, err := h.adminService.CreateProduct(r.Context(), input)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusCreated, product)
}

// AdminUpdateProduct handles PUT /api/admin/products/{id}.
func (h *Handlers) AdminUpdateProduct(w http.ResponseWriter, r *http.Request) {
	productID, ok := h.pathUUID(w, r, "id")
	if !ok {
		return
	}
	var input services.ProductInput
	if !h.decodeJSON(w, r, &input) {
		return
	}

	product, err := h.adminService.UpdateProduct(r.Context(), productID, input)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, product)
}

// AdminDeleteProduct handles DELETE /api/admin/products/{id}.
func (h *Handlers) AdminDeleteProduct(w http.ResponseWriter, r *http.Request) {
	productID, ok := h.pathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.adminService.DeleteProduct(r.Context(), productID); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AdminCreateCategory handles POST /api/admin/categories.
func (h *Handlers) AdminCreateCategory(w http.ResponseWriter, r *http.Request) {
	var input services.CategoryInput
	if !h.decodeJSON(w, r, &input) {
		return
	}

	category, err := h.adminService.CreateCategory(r.Context(), input)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusCreated, category)
}
