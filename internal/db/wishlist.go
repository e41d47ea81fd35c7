package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/khelmart/khelmart/internal/models"
)

type WishlistStore struct {
	pool *pgxpool.Pool
}

func NewWishlistStore(pool *pgxpool.Pool) *WishlistStore {
	return &WishlistStore{pool: pool}
}

func (s *WishlistStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.WishlistItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT w.id, w.user_id, w.product_id, w.created_at,
		       p.id, p.name, p.description, p.price, p.original_price, p.discount_percentage,
		       p.image_url, p.stock_quantity, p.brand, p.category_id, COALESCE(c.name, ''),
		       p.is_featured, p.created_at, p.updated_at
		FROM wishlist_items w
		JOIN products p ON p.id = w.product_id
		LEFT JOIN categories c ON c.id = p.category_id
		WHERE w.user_id = $1
		ORDER BY w.created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*models.WishlistItem
	for rows.Next() {
		var (
			item          models.WishlistItem
			product       models.Product
			createdAt     pgtype.Timestamptz
			description   pgtype.Text
			originalPrice pgtype.Float8
			imageURL      pgtype.Text
			brand         pgtype.Text
			categoryID    *uuid.UUID
			pCreatedAt    pgtype.Timestamptz
			pUpdatedAt    pgtype.Timestamptz
		)
		if err := rows.Scan(
			&item.ID, &item.UserID, &item.ProductID, &createdAt,
			&product.ID, &product.Name, &description, &product.Price, &originalPrice,
			&product.DiscountPercentage, &imageURL, &product.StockQuantity, &brand,
			&categoryID, &product.CategoryName, &product.IsFeatured, &pCreatedAt, &pUpdatedAt,
		); err != nil {
			return nil, err
		}
		item.CreatedAt = createdAt.Time
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
		product.CreatedAt = pCreatedAt.Time
		product.UpdatedAt = pUpdatedAt.Time
		item.Product = &product
		items = append(items, &item)
	}
	return items, rows.Err()
}

// Add is an upsert: re-adding a wished product is a no-op.
func (s *WishlistStore) Add(ctx context.Context, userID, productID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO wishlist_items (user_id, product_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, product_id) DO NOTHING
	`, userID, productID)
	return err
}

func (s *WishlistStore) Remove(ctx context.Context, userID, productID uuid.UUID) error {
	cmdTag, err := s.pool.Exec(ctx, `
		DELETE FROM wishlist_items WHERE user_id = $1 AND product_id = $2
	`, userID, productID)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
