package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrCartNotFound = errors.New("cart not found")
)

// CartRepository defines the interface for cart data access. A cart row is
// created lazily by Save and never deleted; Clear empties its items and
// resets the total.
type CartRepository interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*domain.Cart, error)
	Save(ctx context.Context, cart *domain.Cart) error
	Clear(ctx context.Context, userID uuid.UUID) error
	WithTx(tx *sql.Tx) CartRepository
}

type cartRepository struct {
	db DBTX
}

// NewCartRepository creates a new instance of CartRepository
func NewCartRepository(db *sql.DB) CartRepository {
	return &cartRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction
func (r *cartRepository) WithTx(tx *sql.Tx) CartRepository {
	return &cartRepository{db: tx}
}

// FindByUserID retrieves the user's cart with its items in insertion order.
// Returns ErrCartNotFound when the user has no cart record yet.
func (r *cartRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	query := `
		SELECT id, user_id, total_amount, created_at, updated_at
		FROM carts
		WHERE user_id = $1
	`

	cart := &domain.Cart{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&cart.ID,
		&cart.UserID,
		&cart.TotalAmount,
		&cart.CreatedAt,
		&cart.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to find cart: %w", err)
	}

	itemsQuery := `
		SELECT id, product_id, quantity, price
		FROM cart_items
		WHERE cart_id = $1
		ORDER BY position ASC
	`

	rows, err := r.db.QueryContext(ctx, itemsQuery, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart items: %w", err)
	}
	defer rows.Close()

	cart.Items = []domain.CartItem{}
	for rows.Next() {
		item := domain.CartItem{}
		if err := rows.Scan(&item.ID, &item.ProductID, &item.Quantity, &item.Price); err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		cart.Items = append(cart.Items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart items: %w", err)
	}

	return cart, nil
}

// Save upserts the cart row and replaces its items, preserving the slice
// order as the stored insertion order.
func (r *cartRepository) Save(ctx context.Context, cart *domain.Cart) error {
	upsert := `
		INSERT INTO carts (id, user_id, total_amount, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE
		SET total_amount = EXCLUDED.total_amount, updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(
		ctx,
		upsert,
		cart.ID,
		cart.UserID,
		cart.TotalAmount,
		cart.CreatedAt,
		cart.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cart.ID); err != nil {
		return fmt.Errorf("failed to replace cart items: %w", err)
	}

	insertItem := `
		INSERT INTO cart_items (id, cart_id, product_id, quantity, price, position)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	for i, item := range cart.Items {
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
			cart.Items[i].ID = item.ID
		}
		_, err := r.db.ExecContext(
			ctx,
			insertItem,
			item.ID,
			cart.ID,
			item.ProductID,
			item.Quantity,
			item.Price,
			i,
		)
		if err != nil {
			return fmt.Errorf("failed to save cart item: %w", err)
		}
	}

	return nil
}

// Clear empties the cart's items and zeroes its total. Clearing a user with
// no cart is a no-op.
func (r *cartRepository) Clear(ctx context.Context, userID uuid.UUID) error {
	query := `
		UPDATE carts
		SET total_amount = 0, updated_at = NOW()
		WHERE user_id = $1
	`

	result, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return nil
	}

	deleteItems := `
		DELETE FROM cart_items
		WHERE cart_id = (SELECT id FROM carts WHERE user_id = $1)
	`
	if _, err := r.db.ExecContext(ctx, deleteItems, userID); err != nil {
		return fmt.Errorf("failed to delete cart items: %w", err)
	}

	return nil
}
