package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/khelmart/khelmart/internal/auth"
	"github.com/khelmart/khelmart/internal/cache"
	"github.com/khelmart/khelmart/internal/config"
	"github.com/khelmart/khelmart/internal/logging"
	"github.com/khelmart/khelmart/internal/services"
)

const maxRequestBodyBytes = 1 << 20 // 1 MB

// Handlers provides the storefront HTTP API.
type Handlers struct {
	config            *config.Config
	db                *pgxpool.Pool
	cacheProvider     cache.Provider
	authVerifier      *auth.Verifier
	checkoutService   *services.CheckoutService
	settlementService *services.SettlementService
	catalogService    *services.CatalogService
	accountService    *services.AccountService
	adminService      *services.AdminService
	logger            *slog.Logger
}

type Dependencies struct {
	Config            *config.Config
	DB                *pgxpool.Pool
	CacheProvider     cache.Provider
	AuthVerifier      *auth.Verifier
	CheckoutService   *services.CheckoutService
	SettlementService *services.SettlementService
	CatalogService    *services.CatalogService
	AccountService    *services.AccountService
	AdminService      *services.AdminService
	Logger            *slog.Logger
}

func New(deps Dependencies) (*Handlers, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if deps.Config == nil {
		return nil, fmt.Errorf("handlers dependencies: config is required")
	}
	if deps.DB == nil {
		return nil, fmt.Errorf("handlers dependencies: db is required")
	}
	if deps.AuthVerifier == nil {
		return nil, fmt.Errorf("handlers dependencies: authVerifier is required")
	}
	if deps.CheckoutService == nil {
		return nil, fmt.Errorf("handlers dependencies: checkoutService is required")
	}
	if deps.SettlementService == nil {
		return nil, fmt.Errorf("handlers dependencies: settlementService is required")
	}
	if deps.CatalogService == nil {
		return nil, fmt.Errorf("handlers dependencies: catalogService is required")
	}
	if deps.AccountService == nil {
		return nil, fmt.Errorf("handlers dependencies: accountService is required")
	}
	if deps.AdminService == nil {
		return nil, fmt.Errorf("handlers dependencies: adminService is required")
	}

	return &Handlers{
		config:            deps.Config,
		db:                deps.DB,
		cacheProvider:     deps.CacheProvider,
		authVerifier:      deps.AuthVerifier,
		checkoutService:   deps.CheckoutService,
		settlementService: deps.SettlementService,
		catalogService:    deps.CatalogService,
		accountService:    deps.AccountService,
		adminService:      deps.AdminService,
		logger:            logger.With("component", "handlers"),
	}, nil
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)

	if err := h.db.Ping(ctx); err != nil {
		logger.Error("database health check failed", "error", err)
		http.Error(w, "Database unhealthy", http.StatusServiceUnavailable)
		return
	}

	h.respondJSON(w, r, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handlers) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, h.logger)
}

func (h *Handlers) respondJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.loggerFromContext(r.Context()).Error("failed to encode response", "error", err, "path", r.URL.Path)
	}
}

func (h *Handlers) decodeJSON(w http.ResponseWriter, r *http.Request, dest any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		h.respondJSON(w, r, http.StatusBadRequest, errorBody("request body is not valid JSON"))
		return false
	}
	return true
}

func errorBody(message string) map[string]string {
	return map[string]string{"error": message}
}

// respondServiceError maps the service error taxonomy onto HTTP status codes.
// Raw internal errors are logged but never leaked to the client.
func (h *Handlers) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		status  int
		message string
	)
	switch {
	case errors.Is(err, services.ErrUnauthenticated):
		status, message = http.StatusUnauthorized, "authentication required"
	case errors.Is(err, services.ErrForbidden):
		status, message = http.StatusForbidden, "not allowed"
	case errors.Is(err, services.ErrEmptyCart):
		status, message = http.StatusBadRequest, "no items provided for checkout"
	case errors.Is(err, services.ErrInvalidAddress):
		status, message = http.StatusBadRequest, "shipping address is missing or incomplete"
	case errors.Is(err, services.ErrInvalidItems):
		status, message = http.StatusBadRequest, "request payload is invalid"
	case errors.Is(err, services.ErrInvalidVerificationRequest):
		status, message = http.StatusBadRequest, "session id and order id are required"
	case errors.Is(err, services.ErrOrderNotFound):
		status, message = http.StatusNotFound, "order not found"
	case errors.Is(err, services.ErrNotFound):
		status, message = http.StatusNotFound, "not found"
	case errors.Is(err, services.ErrDuplicateOrderNumber):
		status, message = http.StatusConflict, "order number conflict, please retry"
	case errors.Is(err, services.ErrPaymentProviderTimeout):
		status, message = http.StatusBadGateway, "payment provider timed out"
	case errors.Is(err, services.ErrPaymentProvider):
		status, message = http.StatusBadGateway, "payment provider error"
	default:
		status, message = http.StatusInternalServerError, "internal server error"
	}

	if status >= http.StatusInternalServerError {
		h.loggerFromContext(r.Context()).Error("request failed", "error", err, "path", r.URL.Path)
	}
	h.respondJSON(w, r, status, errorBody(message))
}
