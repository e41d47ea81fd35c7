package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/khelmart/khelmart/internal/config"
	"github.com/khelmart/khelmart/internal/handlers"
)

type Server struct {
	cfg        *config.Config
	logger     *slog.Logger
	handlers   *handlers.Handlers
	httpServer *http.Server
}

func New(cfg *config.Config, logger *slog.Logger, h *handlers.Handlers) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if h == nil {
		return nil, fmt.Errorf("handlers are required")
	}

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		handlers: h,
	}

	router := s.buildRouter()
	// CORS wraps the router itself: an OPTIONS preflight never matches the
	// method-restricted routes, so in-router middleware would not see it.
	s.httpServer = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h.CORS(router),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	return s, nil
}

func (s *Server) Run() error {
	s.logger.Info("server starting", "port", s.cfg.Port)

	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Close(ctx context.Context) error {
	if s == nil || s.httpServer == nil {
		return nil
	}

	s.logger.Info("server shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) buildRouter() *mux.Router {
	h := s.handlers

	r := mux.NewRouter()
	r.Use(h.RequestLogger)
	r.Use(h.SecurityHeaders)
	r.Use(h.MetricsContext)

	r.HandleFunc("/health", h.Health).Methods("GET").Name("health")

	api := r.PathPrefix("/api").Subrouter()

	// Public catalog routes.
	api.HandleFunc("/products", h.ListProducts).Methods("GET").Name("products.list")
	api.HandleFunc("/products/{id}", h.GetProduct).Methods("GET").Name("products.get")
	api.HandleFunc("/categories", h.ListCategories).Methods("GET").Name("categories.list")

	// Settlement verification is public: the ids arrive via the buyer's
	// redirect and are validated against the provider.
	api.HandleFunc("/checkout/verify", h.VerifyPayment).Methods("POST").Name("checkout.verify")

	// Buyer routes.
	buyer := api.NewRoute().Subrouter()
	buyer.Use(h.RequireAuth)
	buyer.HandleFunc("/checkout", h.CreateCheckout).Methods("POST").Name("checkout.create")
	buyer.HandleFunc("/orders", h.ListOrders).Methods("GET").Name("orders.list")
	buyer.HandleFunc("/orders/{id}", h.GetOrder).Methods("GET").Name("orders.get")
	buyer.HandleFunc("/profile", h.GetProfile).Methods("GET").Name("profile.get")
	buyer.HandleFunc("/profile", h.UpdateProfile).Methods("PUT").Name("profile.update")
	buyer.HandleFunc("/addresses", h.ListAddresses).Methods("GET").Name("addresses.list")
	buyer.HandleFunc("/addresses", h.AddAddress).Methods("POST").Name("addresses.create")
	buyer.HandleFunc("/addresses/{id}", h.DeleteAddress).Methods("DELETE").Name("addresses.delete")
	buyer.HandleFunc("/addresses/{id}/default", h.SetDefaultAddress).Methods("PUT").Name("addresses.default")
	buyer.HandleFunc("/wishlist", h.ListWishlist).Methods("GET").Name("wishlist.list")
	buyer.HandleFunc("/wishlist", h.AddToWishlist).Methods("POST").Name("wishlist.add")
	buyer.HandleFunc("/wishlist/{product_id}", h.RemoveFromWishlist).Methods("DELETE").Name("wishlist.remove")

	// Management routes.
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(h.RequireAuth)
	admin.Use(h.RequireAdmin)
	admin.HandleFunc("/products", h.AdminCreateProduct).Methods("POST").Name("admin.products.create")
	admin.HandleFunc("/products/{id}", h.AdminUpdateProduct).Methods("PUT").Name("admin.products.update")
	admin.HandleFunc("/products/{id}", h.AdminDeleteProduct).Methods("DELETE").Name("admin.products.delete")
	admin.HandleFunc("/categories", h.AdminCreateCategory).Methods("POST").Name("admin.categories.create")

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not found"}`))
	})

	return r
}
