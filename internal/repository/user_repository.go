package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storebot/internal/domain"
)

var (
	ErrUserNotFound = errors.New("user not found")
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	Get(ctx context.Context, id int64) (*domain.User, error)
	Upsert(ctx context.Context, user *domain.User) error
}

type userRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new instance of UserRepository
func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

// Get retrieves a user by chat id using parameterized queries
func (r *userRepository) Get(ctx context.Context, id int64) (*domain.User, error) {
	query := `
		SELECT id, username, first_name, last_name, phone, address, created_at
		FROM users
		WHERE id = $1
	`

	user := &domain.User{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Username,
		&user.FirstName,
		&user.LastName,
		&user.Phone,
		&user.Address,
		&user.CreatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}

	return user, nil
}

// Upsert inserts the user row or updates the mutable profile fields when the
// chat id is already known.
func (r *userRepository) Upsert(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, username, first_name, last_name, phone, address, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE
		SET username = EXCLUDED.username,
		    first_name = EXCLUDED.first_name,
		    last_name = EXCLUDED.last_name,
		    phone = EXCLUDED.phone,
		    address = EXCLUDED.address
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		user.ID,
		user.Username,
		user.FirstName,
		user.LastName,
		user.Phone,
		user.Address,
		user.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}

	return nil
}
