package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/khelmart/khelmart/internal/models"
)

type CategoryStore struct {
	pool *pgxpool.Pool
}

func NewCategoryStore(pool *pgxpool.Pool) *CategoryStore {
	return &CategoryStore{pool: pool}
}

func (s *CategoryStore) List(ctx context.Context) ([]*models.Category, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, description, image_url, created_at
		FROM categories
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []*models.Category
	for rows.Next() {
		var (
			category    models.Category
			description pgtype.Text
			imageURL    pgtype.Text
			createdAt   pgtype.Timestamptz
		)
		if err := rows.Scan(&category.ID, &category.Name, &description, &imageURL, &createdAt); err != nil {
			return nil, err
		}
		if description.Valid {
			category.Description = description.String
		}
		if imageURL.Valid {
			category.ImageURL = imageURL.String
		}
		category.CreatedAt = createdAt.Time
		categories = append(categories, &category)
	}
	return categories, rows.Err()
}

func (s *CategoryStore) Create(ctx context.Context, category *models.Category) error {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO categories (name, description, image_url)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, category.Name, category.Description, category.ImageURL)

	var createdAt pgtype.Timestamptz
	if err := row.Scan(&category.ID, &createdAt); err != nil {
		return err
	}
	category.CreatedAt = createdAt.Time
	return nil
}

// UpsertByName inserts or refreshes a category during catalog seeding.
func (s *CategoryStore) UpsertByName(ctx context.Context, category *models.Category) error {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO categories (name, description, image_url)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE
		SET description = EXCLUDED.description, image_url = EXCLUDED.image_url
		RETURNING id
	`, category.Name, category.Description, category.ImageURL)
	return row.Scan(&category.ID)
}
