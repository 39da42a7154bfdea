package repository

import (
	"context"
	"database/sql"
	"fmt"

	"storebot/internal/domain"
)

// CartRepository defines the interface for cart data access
type CartRepository interface {
	Items(ctx context.Context, userID int64) ([]*domain.CartItem, error)
	Add(ctx context.Context, userID, productID int64, quantity int) error
	SetQuantity(ctx context.Context, userID, productID int64, quantity int) error
	Remove(ctx context.Context, userID, productID int64) error
	Clear(ctx context.Context, userID int64) error
}

type cartRepository struct {
	db *sql.DB
}

// NewCartRepository creates a new instance of CartRepository
func NewCartRepository(db *sql.DB) CartRepository {
	return &cartRepository{db: db}
}

// Items retrieves the cart rows of one user
func (r *cartRepository) Items(ctx context.Context, userID int64) ([]*domain.CartItem, error) {
	query := `
		SELECT user_id, product_id, quantity
		FROM cart_items
		WHERE user_id = $1
		ORDER BY product_id
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart items: %w", err)
	}
	defer rows.Close()

	items := []*domain.CartItem{}
	for rows.Next() {
		item := &domain.CartItem{}
		if err := rows.Scan(&item.UserID, &item.ProductID, &item.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart items: %w", err)
	}

	return items, nil
}

// Add increments the quantity of a cart row, creating it when absent.
// The upsert is a single statement so concurrent adds for the same
// (user, product) pair never lose an increment.
func (r *cartRepository) Add(ctx context.Context, userID, productID int64, quantity int) error {
	query := `
		INSERT INTO cart_items (user_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, product_id) DO UPDATE
		SET quantity = cart_items.quantity + EXCLUDED.quantity
	`

	_, err := r.db.ExecContext(ctx, query, userID, productID, quantity)
	if err != nil {
		return fmt.Errorf("failed to add to cart: %w", err)
	}

	return nil
}

// SetQuantity replaces the quantity of a cart row. A quantity of zero or
// below deletes the row.
func (r *cartRepository) SetQuantity(ctx context.Context, userID, productID int64, quantity int) error {
	if quantity <= 0 {
		return r.Remove(ctx, userID, productID)
	}

	query := `
		UPDATE cart_items SET quantity = $3
		WHERE user_id = $1 AND product_id = $2
	`

	_, err := r.db.ExecContext(ctx, query, userID, productID, quantity)
	if err != nil {
		return fmt.Errorf("failed to set cart quantity: %w", err)
	}

	return nil
}

// Remove deletes one cart row
func (r *cartRepository) Remove(ctx context.Context, userID, productID int64) error {
	query := `DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2`

	_, err := r.db.ExecContext(ctx, query, userID, productID)
	if err != nil {
		return fmt.Errorf("failed to remove cart item: %w", err)
	}

	return nil
}

// Clear deletes all cart rows of one user
func (r *cartRepository) Clear(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}

	return nil
}
