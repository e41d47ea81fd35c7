package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/khelmart/khelmart/internal/models"
)

type ProfileStore struct {
	pool *pgxpool.Pool
}

func NewProfileStore(pool *pgxpool.Pool) *ProfileStore {
	return &ProfileStore{pool: pool}
}

func (s *ProfileStore) Get(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	var (
		profile   models.Profile
		fullName  pgtype.Text
		phone     pgtype.Text
		updatedAt pgtype.Timestamptz
	)
	err := s.pool.QueryRow(ctx, `
		SELECT user_id, full_name, phone, updated_at
		FROM profiles
		WHERE user_id = $1
	`, userID).Scan(&profile.UserID, &fullName, &phone, &updatedAt)
	if err != nil {
		return nil, err
	}
	if fullName.Valid {
		profile.FullName = fullName.String
	}
	if phone.Valid {
		profile.Phone = phone.String
	}
	profile.UpdatedAt = updatedAt.Time
	return &profile, nil
}

func (s *ProfileStore) Upsert(ctx context.Context, profile *models.Profile) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO profiles (user_id, full_name, phone)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET full_name = EXCLUDED.full_name, phone = EXCLUDED.phone, updated_at = NOW()
	`, profile.UserID, profile.FullName, profile.Phone)
	return err
}

type AddressStore struct {
	pool *pgxpool.Pool
}

func NewAddressStore(pool *pgxpool.Pool) *AddressStore {
	return &AddressStore{pool: pool}
}

func (s *AddressStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.CustomerAddress, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, full_name, address_line_1, address_line_2, city, state,
		       postal_code, country, phone, is_default, created_at
		FROM addresses
		WHERE user_id = $1
		ORDER BY is_default DESC, created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var addresses []*models.CustomerAddress
	for rows.Next() {
		var (
			address   models.CustomerAddress
			line2     pgtype.Text
			createdAt pgtype.Timestamptz
		)
		if err := rows.Scan(
			&address.ID, &address.UserID, &address.FullName, &address.AddressLine1,
			&line2, &address.City, &address.State, &address.PostalCode,
			&address.Country, &address.Phone, &address.IsDefault, &createdAt,
		); err != nil {
			return nil, err
		}
		if line2.Valid {
			address.AddressLine2 = line2.String
		}
		address.CreatedAt = createdAt.Time
		addresses = append(addresses, &address)
	}
	return addresses, rows.Err()
}

func (s *AddressStore) Create(ctx context.Context, address *models.CustomerAddress) error {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO addresses (user_id, full_name, address_line_1, address_line_2,
		                       city, state, postal_code, country, phone, is_default)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at
	`, address.UserID, address.FullName, address.AddressLine1, address.AddressLine2,
		address.City, address.State, address.PostalCode, address.Country,
		address.Phone, address.IsDefault)

	var createdAt pgtype.Timestamptz
	if err := row.Scan(&address.ID, &createdAt); err != nil {
		return err
	}
	address.CreatedAt = createdAt.Time
	return nil
}

func (s *AddressStore) Delete(ctx context.Context, addressID, userID uuid.UUID) error {
	cmdTag, err := s.pool.Exec(ctx, `DELETE FROM addresses WHERE id = $1 AND user_id = $2`, addressID, userID)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// SetDefault marks one address as the user's default and clears the flag on
// the rest, in a single transaction.
func (s *AddressStore) SetDefault(ctx context.Context, addressID, userID uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `UPDATE addresses SET is_default = FALSE WHERE user_id = $1`, userID); err != nil {
		return err
	}
	cmdTag, err := tx.Exec(ctx, `UPDATE addresses SET is_default = TRUE WHERE id = $1 AND user_id = $2`, addressID, userID)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return tx.Commit(ctx)
}
