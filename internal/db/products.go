package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/khelmart/khelmart/internal/models"
)

type ProductStore struct {
	pool *pgxpool.Pool
}

func NewProductStore(pool *pgxpool.Pool) *ProductStore {
	return &ProductStore{pool: pool}
}

type ListProductsParams struct {
	CategoryID   *uuid.UUID
	Search       string
	FeaturedOnly bool
	Sort         string // newest (default), price_asc, price_desc, name
	Limit        int
}

const productColumns = `
	p.id, p.name, p.description, p.price, p.original_price, p.discount_percentage,
	p.image_url, p.stock_quantity, p.brand, p.category_id, COALESCE(c.name, ''),
	p.is_featured, p.created_at, p.updated_at
`

func (s *ProductStore) List(ctx context.Context, params ListProductsParams) ([]*models.Product, error) {
	if params.Limit <= 0 || params.Limit > 200 {
		params.Limit = 100
	}

	var (
		conditions []string
		args       []any
	)
	if params.CategoryID != nil {
		args = append(args, *params.CategoryID)
		conditions = append(conditions, fmt.Sprintf("p.category_id = $%d", len(args)))
	}
	if search := strings.TrimSpace(params.Search); search != "" {
		args = append(args, "%"+search+"%")
		conditions = append(conditions, fmt.Sprintf("(p.name ILIKE $%d OR p.brand ILIKE $%d)", len(args), len(args)))
	}
	if params.FeaturedOnly {
		conditions = append(conditions, "p.is_featured = TRUE")
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	orderBy := "p.created_at DESC"
	switch params.Sort {
	case "price_asc":
		orderBy = "p.price ASC"
	case "price_desc":
		orderBy = "p.price DESC"
	case "name":
		orderBy = "p.name ASC"
	}

	args = append(args, params.Limit)
	query := fmt.Sprintf(`
		SELECT %s
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
		%s
		ORDER BY %s
		LIMIT $%d
	`, productColumns, where, orderBy, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	return products, rows.Err()
}

func (s *ProductStore) GetByID(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT %s
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
		WHERE p.id = $1
	`, productColumns), productID)
	return scanProduct(row)
}

func (s *ProductStore) Create(ctx context.Context, product *models.Product) error {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO products (name, description, price, original_price, discount_percentage,
		                      image_url, stock_quantity, brand, category_id, is_featured)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`, product.Name, product.Description, product.Price, product.OriginalPrice,
		product.DiscountPercentage, product.ImageURL, product.StockQuantity,
		product.Brand, product.CategoryID, product.IsFeatured)

	var createdAt, updatedAt pgtype.Timestamptz
	if err := row.Scan(&product.ID, &createdAt, &updatedAt); err != nil {
		return err
	}
	product.CreatedAt = createdAt.Time
	product.UpdatedAt = updatedAt.Time
	return nil
}

func (s *ProductStore) Update(ctx context.Context, product *models.Product) error {
	cmdTag, err := s.pool.Exec(ctx, `
		UPDATE products
		SET name = $1, description = $2, price = $3, original_price = $4,
		    discount_percentage = $5, image_url = $6, stock_quantity = $7,
		    brand = $8, category_id = $9, is_featured = $10, updated_at = NOW()
		WHERE id = $11
	`, product.Name, product.Description, product.Price, product.OriginalPrice,
		product.DiscountPercentage, product.ImageURL, product.StockQuantity,
		product.Brand, product.CategoryID, product.IsFeatured, product.ID)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (s *ProductStore) Delete(ctx context.Context, productID uuid.UUID) error {
	cmdTag, err := s.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, productID)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// UpsertByName inserts or refreshes a product row during catalog seeding,
// keyed on the product name.
func (s *ProductStore) UpsertByName(ctx context.Context, product *models.Product) error {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO products (name, description, price, original_price, discount_percentage,
		                      image_url, stock_quantity, brand, category_id, is_featured)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (name) DO UPDATE
		SET description = EXCLUDED.description, price = EXCLUDED.price,
		    original_price = EXCLUDED.original_price,
		    discount_percentage = EXCLUDED.discount_percentage,
		    image_url = EXCLUDED.image_url, stock_quantity = EXCLUDED.stock_quantity,
		    brand = EXCLUDED.brand, category_id = EXCLUDED.category_id,
		    is_featured = EXCLUDED.is_featured, updated_at = NOW()
		RETURNING id
	`, product.Name, product.Description, product.Price, product.OriginalPrice,
		product.DiscountPercentage, product.ImageURL, product.StockQuantity,
		product.Brand, product.CategoryID, product.IsFeatured)
	return row.Scan(&product.ID)
}

func scanProduct(row rowScanner) (*models.Product, error) {
	var (
		product       models.Product
		description   pgtype.Text
		originalPrice pgtype.Float8
		imageURL      pgtype.Text
		brand         pgtype.Text
		categoryID    *uuid.UUID
		createdAt     pgtype.Timestamptz
		updatedAt     pgtype.Timestamptz
	)
	if err := row.Scan(
		&product.ID, &product.Name, &description, &product.Price, &originalPrice,
		&product.DiscountPercentage, &imageURL, &product.StockQuantity, &brand,
		&categoryID, &product.CategoryName, &product.IsFeatured, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	if description.Valid {
		product.Description = description.String
	}
	if originalPrice.Valid {
		price := originalPrice.Float64
		product.OriginalPrice = &price
	}
	if imageURL.Valid {
		product.ImageURL = imageURL.String
	}
	if brand.Valid {
		product.Brand = brand.String
	}
	product.CategoryID = categoryID
	product.CreatedAt = createdAt.Time
	product.UpdatedAt = updatedAt.Time
	return &product, nil
}
