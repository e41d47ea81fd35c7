package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/khelmart/khelmart/internal/models"
)

var (
	ErrInvalidStatusTransition = errors.New("invalid order status transition")
	ErrDuplicateOrderNumber    = errors.New("duplicate order number")
)

type OrderStore struct {
	pool *pgxpool.Pool
}

func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

// CreateWithItems persists the order and its line items in one transaction,
// so a failed item insert never leaves an order without its snapshot.
func (s *OrderStore) CreateWithItems(ctx context.Context, order *models.Order, items []models.OrderItem) error {
	shippingJSON, err := json.Marshal(order.ShippingAddress)
	if err != nil {
		return err
	}
	billingJSON, err := json.Marshal(order.BillingAddress)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `
		INSERT INTO orders (user_id, order_number, total_amount, shipping_address, billing_address, status, payment_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`, order.UserID, order.OrderNumber, order.TotalAmount, shippingJSON, billingJSON, order.Status, order.PaymentStatus)

	var createdAt, updatedAt pgtype.Timestamptz
	if err := row.Scan(&order.ID, &createdAt, &updatedAt); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateOrderNumber, order.OrderNumber)
		}
		return err
	}
	order.CreatedAt = createdAt.Time
	order.UpdatedAt = updatedAt.Time

	for i := range items {
		items[i].OrderID = order.ID
		if err := tx.QueryRow(ctx, `
			INSERT INTO order_items (order_id, product_id, quantity, price)
			VALUES ($1, $2, $3, $4)
			RETURNING id
		`, items[i].OrderID, items[i].ProductID, items[i].Quantity, items[i].Price).Scan(&items[i].ID); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	order.Items = items
	return nil
}

// AttachStripeSession records the hosted payment session reference after the
// provider confirms session creation.
func (s *OrderStore) AttachStripeSession(ctx context.Context, orderID uuid.UUID, sessionID string) error {
	query := `UPDATE orders SET stripe_session_id = $1, updated_at = NOW() WHERE id = $2`
	cmdTag, err := s.pool.Exec(ctx, query, sessionID, orderID)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// MarkPaid transitions an order to confirmed/paid. Re-marking an already paid
// order is allowed so settlement verification stays idempotent; a cancelled
// order is rejected.
func (s *OrderStore) MarkPaid(ctx context.Context, orderID uuid.UUID) error {
	query := `
		UPDATE orders
		SET payment_status = $1, status = $2, updated_at = NOW()
		WHERE id = $3 AND status IN ('pending', 'confirmed') AND payment_status IN ('pending', 'paid')
	`
	cmdTag, err := s.pool.Exec(ctx, query, models.PaymentPaid, models.OrderConfirmed, orderID)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		exists, existsErr := s.exists(ctx, orderID)
		if existsErr != nil {
			return existsErr
		}
		if !exists {
			return pgx.ErrNoRows
		}
		return fmt.Errorf("%w: expected pending/confirmed", ErrInvalidStatusTransition)
	}
	return nil
}

func (s *OrderStore) GetByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, user_id, order_number, total_amount, shipping_address, billing_address,
		       status, payment_status, stripe_session_id, created_at, updated_at
		FROM orders
		WHERE id = $1
	`, orderID)
	order, err := scanOrder(row)
	if err != nil {
		return nil, err
	}
	items, err := s.itemsForOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return order, nil
}

// GetByIDForUser fetches an order only if it belongs to the given user.
func (s *OrderStore) GetByIDForUser(ctx context.Context, orderID, userID uuid.UUID) (*models.Order, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, user_id, order_number, total_amount, shipping_address, billing_address,
		       status, payment_status, stripe_session_id, created_at, updated_at
		FROM orders
		WHERE id = $1 AND user_id = $2
	`, orderID, userID)
	order, err := scanOrder(row)
	if err != nil {
		return nil, err
	}
	items, err := s.itemsForOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return order, nil
}

// ListByUser returns the user's orders, newest first, with line items and the
// referenced product's display fields.
func (s *OrderStore) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Order, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, order_number, total_amount, shipping_address, billing_address,
		       status, payment_status, stripe_session_id, created_at, updated_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, order := range orders {
		items, err := s.itemsForOrder(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		order.Items = items
	}
	return orders, nil
}

func (s *OrderStore) itemsForOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT oi.id, oi.order_id, oi.product_id, oi.quantity, oi.price,
		       COALESCE(p.name, ''), COALESCE(p.image_url, '')
		FROM order_items oi
		LEFT JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = $1
		ORDER BY oi.id
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.OrderItem
	for rows.Next() {
		var item models.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.Price, &item.ProductName, &item.ProductImage); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *OrderStore) exists(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, orderID).Scan(&exists)
	return exists, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*models.Order, error) {
	var (
		order        models.Order
		shippingJSON []byte
		billingJSON  []byte
		sessionID    pgtype.Text
		createdAt    pgtype.Timestamptz
		updatedAt    pgtype.Timestamptz
	)
	if err := row.Scan(
		&order.ID, &order.UserID, &order.OrderNumber, &order.TotalAmount,
		&shippingJSON, &billingJSON, &order.Status, &order.PaymentStatus,
		&sessionID, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	if sessionID.Valid {
		order.StripeSessionID = sessionID.String
	}
	order.CreatedAt = createdAt.Time
	order.UpdatedAt = updatedAt.Time

	if shippingJSON != nil {
		if err := json.Unmarshal(shippingJSON, &order.ShippingAddress); err != nil {
			return nil, err
		}
	}
	if billingJSON != nil {
		if err := json.Unmarshal(billingJSON, &order.BillingAddress); err != nil {
			return nil, err
		}
	}
	return &order, nil
}
