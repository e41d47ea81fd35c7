package handlers

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/khelmart/khelmart/internal/db"
)

// ListProducts handles GET /api/products with optional category, search,
// featured, sort and limit query parameters.
func (h *Handlers) ListProducts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	params := db.ListProductsParams{
		Search: query.Get("search"),
		Sort:   query.Get("sort"),
	}
	if raw := query.Get("category_id"); raw != "" {
		categoryID, err := uuid.Parse(raw)
		if err != nil {
			h.respondJSON(w, r, http.StatusBadRequest, errorBody("category_id is not a valid id"))
			return
		}
		params.CategoryID = &categoryID
	}
	if raw := query.Get("featured"); raw != "" {
		featured, err := strconv.ParseBool(raw)
		if err != nil {
			h.respondJSON(w, r, http.StatusBadRequest, errorBody("featured must be true or false"))
			return
		}
		params.FeaturedOnly = featured
	}
	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			h.respondJSON(w, r, http.StatusBadRequest, errorBody("limit must be a positive integer"))
			return
		}
		params.Limit = limit
	}

	products, err := h.catalogService.ListProducts(r.Context(), params)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, products)
}

// GetProduct handles GET /api/products/{id}.
func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	productID, ok := h.pathUUID(w, r, "id")
	if !ok {
		return
	}

	product, err := h.catalogService.GetProduct(r.Context(), productID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, product)
}

// ListCategories handles GET /api/categories.
func (h *Handlers) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalogService.ListCategories(r.Context())
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, categories)
}

func (h *Handlers) pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	raw := mux.Vars(r)[name]
	parsed, err := uuid.Parse(raw)
	if err != nil {
		h.respondJSON(w, r, http.StatusBadRequest, errorBody(name+" is not a valid id"))
		return uuid.Nil, false
	}
	return parsed, true
}
