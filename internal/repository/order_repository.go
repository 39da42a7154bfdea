package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"storebot/internal/domain"
)

var (
	ErrOrderNotFound = errors.New("order not found")
)

// OrderRepository defines the interface for order data access
type OrderRepository interface {
	// CreateWithItems persists an order and its line items as one unit.
	CreateWithItems(ctx context.Context, order *domain.Order, items []*domain.OrderItem) (*domain.Order, error)
	// Checkout persists the order with its items, updates the user profile
	// and clears the user's cart in a single transaction. Either all of it
	// becomes visible or none of it does.
	Checkout(ctx context.Context, order *domain.Order, items []*domain.OrderItem, user *domain.User) (*domain.Order, error)
	List(ctx context.Context, userID *int64) ([]*domain.Order, error)
	ItemsByOrder(ctx context.Context, orderID int64) ([]*domain.OrderItem, error)
	UpdateStatus(ctx context.Context, orderID int64, status domain.OrderStatus) error
}

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new instance of OrderRepository
func NewOrderRepository(db *sql.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) CreateWithItems(ctx context.Context, order *domain.Order, items []*domain.OrderItem) (*domain.Order, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertOrderWithItems(ctx, tx, order, items); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit order: %w", err)
	}

	return order, nil
}

func (r *orderRepository) Checkout(ctx context.Context, order *domain.Order, items []*domain.OrderItem, user *domain.User) (*domain.Order, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// The user row must exist before the order referencing it
	userQuery := `
		INSERT INTO users (id, username, first_name, last_name, phone, address, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE
		SET username = EXCLUDED.username,
		    first_name = EXCLUDED.first_name,
		    last_name = EXCLUDED.last_name,
		    phone = EXCLUDED.phone,
		    address = EXCLUDED.address
	`
	_, err = tx.ExecContext(ctx, userQuery,
		user.ID, user.Username, user.FirstName, user.LastName, user.Phone, user.Address, user.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to update user during checkout: %w", err)
	}

	if err := insertOrderWithItems(ctx, tx, order, items); err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, order.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to clear cart during checkout: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit checkout: %w", err)
	}

	return order, nil
}

func insertOrderWithItems(ctx context.Context, tx *sql.Tx, order *domain.Order, items []*domain.OrderItem) error {
	orderQuery := `
		INSERT INTO orders (user_id, status, total_amount, delivery_method, delivery_time,
			payment_method, comment, delivery_address, phone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`

	err := tx.QueryRowContext(ctx, orderQuery,
		order.UserID,
		order.Status,
		order.TotalAmount,
		order.DeliveryMethod,
		order.DeliveryTime,
		order.PaymentMethod,
		order.Comment,
		order.DeliveryAddress,
		order.Phone,
		order.CreatedAt,
		order.UpdatedAt,
	).Scan(&order.ID)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	itemQuery := `
		INSERT INTO order_items (order_id, product_id, quantity, price)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	for _, item := range items {
		item.OrderID = order.ID
		err := tx.QueryRowContext(ctx, itemQuery, item.OrderID, item.ProductID, item.Quantity, item.Price).Scan(&item.ID)
		if err != nil {
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	return nil
}

// List retrieves orders newest first, for one user or for all when userID is nil
func (r *orderRepository) List(ctx context.Context, userID *int64) ([]*domain.Order, error) {
	query := `
		SELECT id, user_id, status, total_amount, delivery_method, delivery_time,
			payment_method, comment, delivery_address, phone, created_at, updated_at
		FROM orders
	`
	args := []interface{}{}
	if userID != nil {
		query += ` WHERE user_id = $1`
		args = append(args, *userID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := []*domain.Order{}
	for rows.Next() {
		order := &domain.Order{}
		err := rows.Scan(
			&order.ID,
			&order.UserID,
			&order.Status,
			&order.TotalAmount,
			&order.DeliveryMethod,
			&order.DeliveryTime,
			&order.PaymentMethod,
			&order.Comment,
			&order.DeliveryAddress,
			&order.Phone,
			&order.CreatedAt,
			&order.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	return orders, nil
}

// ItemsByOrder retrieves the line items of one order
func (r *orderRepository) ItemsByOrder(ctx context.Context, orderID int64) ([]*domain.OrderItem, error) {
	query := `
		SELECT id, order_id, product_id, quantity, price
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list order items: %w", err)
	}
	defer rows.Close()

	items := []*domain.OrderItem{}
	for rows.Next() {
		item := &domain.OrderItem{}
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.Price); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}

	return items, nil
}

// UpdateStatus sets the status of an order
func (r *orderRepository) UpdateStatus(ctx context.Context, orderID int64, status domain.OrderStatus) error {
	query := `UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, orderID, status, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrOrderNotFound
	}

	return nil
}
