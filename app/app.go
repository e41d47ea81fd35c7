package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lmittmann/tint"

	"github.com/khelmart/khelmart/internal/auth"
	"github.com/khelmart/khelmart/internal/cache"
	"github.com/khelmart/khelmart/internal/config"
	"github.com/khelmart/khelmart/internal/db"
	"github.com/khelmart/khelmart/internal/email"
	"github.com/khelmart/khelmart/internal/handlers"
	"github.com/khelmart/khelmart/internal/services"
	"github.com/khelmart/khelmart/internal/stripe"
)

type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	DB            *pgxpool.Pool
	CacheProvider cache.Provider
	Handlers      *handlers.Handlers
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := newLogger(cfg)

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.1,
		}); err != nil {
			logger.Warn("failed to initialize sentry, continuing without it", "error", err)
		}
	}

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	database, err := db.Connect(startupCtx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	cacheProvider, err := cache.NewProvider(cache.Config{
		Provider:              cfg.CacheProvider,
		RedisConnectionString: cfg.RedisConnectionString,
	})
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to initialize cache provider: %w", err)
	}

	emailProvider, err := email.NewProvider(email.Config{
		Provider: cfg.EmailProvider,
		APIKey:   cfg.ResendAPIKey,
		From:     cfg.EmailFrom,
	})
	if err != nil {
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to initialize email provider: %w", err)
	}

	authVerifier, err := auth.NewVerifier(cfg.AuthJWTSecret)
	if err != nil {
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to initialize auth verifier: %w", err)
	}

	orderStore := db.NewOrderStore(database)
	productStore := db.NewProductStore(database)
	categoryStore := db.NewCategoryStore(database)
	profileStore := db.NewProfileStore(database)
	addressStore := db.NewAddressStore(database)
	wishlistStore := db.NewWishlistStore(database)

	paymentClient := stripe.NewClient(cfg.StripeSecretKey, cfg.Currency, cfg.StripeRequestTimeout)

	checkoutService := services.NewCheckoutService(
		orderStore,
		paymentClient,
		cfg.StorefrontURL,
		logger.With("component", "checkout_service"),
	)
	settlementService := services.NewSettlementService(
		orderStore,
		paymentClient,
		cacheProvider,
		emailProvider,
		logger.With("component", "settlement_service"),
	)
	catalogService := services.NewCatalogService(
		productStore,
		categoryStore,
		cacheProvider,
		logger.With("component", "catalog_service"),
	)
	accountService := services.NewAccountService(
		profileStore,
		addressStore,
		wishlistStore,
		orderStore,
		logger.With("component", "account_service"),
	)
	adminService := services.NewAdminService(
		productStore,
		categoryStore,
		catalogService,
		logger.With("component", "admin_service"),
	)

	h, err := handlers.New(handlers.Dependencies{
		Config:            cfg,
		DB:                database,
		CacheProvider:     cacheProvider,
		AuthVerifier:      authVerifier,
		CheckoutService:   checkoutService,
		SettlementService: settlementService,
		CatalogService:    catalogService,
		AccountService:    accountService,
		AdminService:      adminService,
		Logger:            logger,
	})
	if err != nil {
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}

	return &App{
		Config:        cfg,
		Logger:        logger,
		DB:            database,
		CacheProvider: cacheProvider,
		Handlers:      h,
	}, nil
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.CacheProvider != nil {
		closeCacheProvider(a.Logger, a.CacheProvider)
	}
	if a.DB != nil {
		a.DB.Close()
	}
	sentry.Flush(2 * time.Second)
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	format := strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	switch format {
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	case "text", "":
		return slog.New(tint.NewHandler(os.Stdout, &tint.Options{
			Level: cfg.LogLevel,
		}))
	}
	return slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: cfg.LogLevel}))
}

func closeCacheProvider(logger *slog.Logger, provider cache.Provider) {
	if provider == nil {
		return
	}
	if err := provider.Close(); err != nil && logger != nil {
		logger.Warn("failed to close cache provider", "error", err)
	}
}
