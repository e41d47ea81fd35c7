package services

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/khelmart/khelmart/internal/cache"
	"github.com/khelmart/khelmart/internal/db"
	"github.com/khelmart/khelmart/internal/logging"
	"github.com/khelmart/khelmart/internal/models"
)

const catalogCacheTTL = 5 * time.Minute

type productStore interface {
	List(ctx context.Context, params db.ListProductsParams) ([]*models.Product, error)
	GetByID(ctx context.Context, productID uuid.UUID) (*models.Product, error)
}

type categoryStore interface {
	List(ctx context.Context) ([]*models.Category, error)
}

// CatalogService serves storefront catalog reads, with cache-aside on the
// hot category and featured-product lists.
type CatalogService struct {
	products      productStore
	categories    categoryStore
	cacheProvider cache.Provider
	logger        *slog.Logger
}

func NewCatalogService(products productStore, categories categoryStore, cacheProvider cache.Provider, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		products:      products,
		categories:    categories,
		cacheProvider: cacheProvider,
		logger:        logger,
	}
}

func (s *CatalogService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

func (s *CatalogService) ListProducts(ctx context.Context, params db.ListProductsParams) ([]*models.Product, error) {
	// Only the unfiltered featured list is cached; filtered queries go
	// straight to the store.
	cacheable := params.FeaturedOnly && params.CategoryID == nil && params.Search == ""
	if cacheable {
		var cached []*models.Product
		if s.readCache(ctx, cache.CatalogKey("featured"), &cached) {
			return cached, nil
		}
	}

	products, err := s.products.List(ctx, params)
	if err != nil {
		return nil, err
	}

	if cacheable {
		s.writeCache(ctx, cache.CatalogKey("featured"), products)
	}
	return products, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return product, nil
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]*models.Category, error) {
	var cached []*models.Category
	if s.readCache(ctx, cache.CatalogKey("categories"), &cached) {
		return cached, nil
	}

	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, err
	}
	s.writeCache(ctx, cache.CatalogKey("categories"), categories)
	return categories, nil
}

// InvalidateCache drops the cached catalog lists after an admin write.
func (s *CatalogService) InvalidateCache(ctx context.Context) {
	if s.cacheProvider == nil {
		return
	}
	for _, key := range []string{cache.CatalogKey("featured"), cache.CatalogKey("categories")} {
		if err := s.cacheProvider.Delete(ctx, key); err != nil {
			s.loggerFromContext(ctx).Warn("failed to invalidate catalog cache", "error", err, "key", key)
		}
	}
}

func (s *CatalogService) readCache(ctx context.Context, key string, dest any) bool {
	if s.cacheProvider == nil {
		return false
	}
	raw, err := s.cacheProvider.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			s.loggerFromContext(ctx).Warn("catalog cache read failed", "error", err, "key", key)
		}
		return false
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		s.loggerFromContext(ctx).Warn("catalog cache entry corrupt", "error", err, "key", key)
		return false
	}
	return true
}

func (s *CatalogService) writeCache(ctx context.Context, key string, value any) {
	if s.cacheProvider == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		s.loggerFromContext(ctx).Warn("failed to encode catalog cache entry", "error", err, "key", key)
		return
	}
	if err := s.cacheProvider.Set(ctx, key, string(raw), catalogCacheTTL); err != nil {
		s.loggerFromContext(ctx).Warn("catalog cache write failed", "error", err, "key", key)
	}
}
