package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrEmptyCart is returned by checkout when the cart is missing or has
	// no items.
	ErrEmptyCart = errors.New("cart is empty")

	// ErrAccessDenied is returned when a caller reads an order they neither
	// own nor have admin rights over.
	ErrAccessDenied = errors.New("access denied")

	// ErrInvalidStatusTransition is returned when an order status change
	// violates the transition policy.
	ErrInvalidStatusTransition = errors.New("invalid order status transition")
)

// InsufficientStockError reports that a requested quantity exceeds the
// product's current stock, naming the offending product.
type InsufficientStockError struct {
	ProductID   uuid.UUID
	ProductName string
}

func (e *InsufficientStockError) Error() string {
	if e.ProductName != "" {
		return fmt.Sprintf("insufficient stock for %s", e.ProductName)
	}
	return "insufficient stock"
}
