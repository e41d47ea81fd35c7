package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/khelmart/khelmart/internal/logging"
	"github.com/khelmart/khelmart/internal/models"
)

type adminProductStore interface {
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, productID uuid.UUID) error
	GetByID(ctx context.Context, productID uuid.UUID) (*models.Product, error)
}

type adminCategoryStore interface {
	Create(ctx context.Context, category *models.Category) error
}

type catalogInvalidator interface {
	InvalidateCache(ctx context.Context)
}

// ProductInput carries the fields an admin can set on a product.
type ProductInput struct {
	Name               string   `json:"name" validate:"required"`
	Description        string   `json:"description"`
	Price              float64  `json:"price" validate:"required,gt=0"`
	OriginalPrice      *float64 `json:"original_price,omitempty" validate:"omitempty,gt=0"`
	DiscountPercentage int      `json:"discount_percentage" validate:"gte=0,lte=100"`
	ImageURL           string   `json:"image_url"`
	StockQuantity      int      `json:"stock_quantity" validate:"gte=0"`
	Brand              string   `json:"brand"`
	CategoryID         *string  `json:"category_id,omitempty" validate:"omitempty,uuid"`
	IsFeatured         bool     `json:"is_featured"`
}

type CategoryInput struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
}

// AdminService covers the product and category management surface. Callers
// must already be authorized as admins by the HTTP layer.
type AdminService struct {
	products   adminProductStore
	categories adminCategoryStore
	catalog    catalogInvalidator
	validate   *validator.Validate
	logger     *slog.Logger
}

func NewAdminService(products adminProductStore, categories adminCategoryStore, catalog catalogInvalidator, logger *slog.Logger) *AdminService {
	return &AdminService{
		products:   products,
		categories: categories,
		catalog:    catalog,
		validate:   validator.New(),
		logger:     logger,
	}
}

func (s *AdminService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

func (s *AdminService) CreateProduct(ctx context.Context, input ProductInput) (*models.Product, error) {
	product, err := s.productFromInput(input)
	if err != nil {
		return nil, err
	}
	if err := s.products.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataStore, err)
	}
	s.loggerFromContext(ctx).Info("product created", "product_id", product.ID, "name", product.Name)
	s.invalidateCatalog(ctx)
	return product, nil
}

func (s *AdminService) UpdateProduct(ctx context.Context, productID uuid.UUID, input ProductInput) (*models.Product, error) {
	product, err := s.productFromInput(input)
	if err != nil {
		return nil, err
	}
	product.ID = productID
	if err := s.products.Update(ctx, product); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrDataStore, err)
	}
	s.loggerFromContext(ctx).Info("product updated", "product_id", productID)
	s.invalidateCatalog(ctx)
	return s.products.GetByID(ctx, productID)
}

func (s *AdminService) DeleteProduct(ctx context.Context, productID uuid.UUID) error {
	if err := s.products.Delete(ctx, productID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: %v", ErrDataStore, err)
	}
	s.loggerFromContext(ctx).Info("product deleted", "product_id", productID)
	s.invalidateCatalog(ctx)
	return nil
}

func (s *AdminService) CreateCategory(ctx context.Context, input CategoryInput) (*models.Category, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidItems, err)
	}
	category := &models.Category{
		Name:        input.Name,
		Description: input.Description,
		ImageURL:    input.ImageURL,
	}
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataStore, err)
	}
	s.loggerFromContext(ctx).Info("category created", "category_id", category.ID, "name", category.Name)
	s.invalidateCatalog(ctx)
	return category, nil
}

func (s *AdminService) productFromInput(input ProductInput) (*models.Product, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidItems, err)
	}
	product := &models.Product{
		Name:               input.Name,
		Description:        input.Description,
		Price:              input.Price,
		OriginalPrice:      input.OriginalPrice,
		DiscountPercentage: input.DiscountPercentage,
		ImageURL:           input.ImageURL,
		StockQuantity:      input.StockQuantity,
		Brand:              input.Brand,
		IsFeatured:         input.IsFeatured,
	}
	if input.CategoryID != nil {
		categoryID, err := uuid.Parse(*input.CategoryID)
		if err != nil {
			return nil, fmt.Errorf("%w: bad category id %q", ErrInvalidItems, *input.CategoryID)
		}
		product.CategoryID = &categoryID
	}
	return product, nil
}

func (s *AdminService) invalidateCatalog(ctx context.Context) {
	if s.catalog != nil {
		s.catalog.InvalidateCache(ctx)
	}
}
