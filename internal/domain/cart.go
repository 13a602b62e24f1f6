package domain

import (
	"time"

	"github.com/google/uuid"
)

// CartItem is one line of a cart: a product reference, a quantity and the unit
// price captured when the item was first added. The price is deliberately not
// re-read from the catalog on later views.
type CartItem struct {
	ID        uuid.UUID `json:"id" db:"id"`
	ProductID uuid.UUID `json:"product_id" db:"product_id"`
	Quantity  int       `json:"quantity" db:"quantity"`
	Price     float64   `json:"price" db:"price"`
}

// Cart holds a single user's shopping cart. Each user owns at most one cart;
// items keep insertion order and reference each product at most once.
type Cart struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	UserID      uuid.UUID  `json:"user_id" db:"user_id"`
	Items       []CartItem `json:"items"`
	TotalAmount float64    `json:"total_amount" db:"total_amount"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// RecomputeTotal restores the totalAmount invariant after any structural
// change to Items.
func (c *Cart) RecomputeTotal() {
	total := 0.0
	for _, item := range c.Items {
		total += float64(item.Quantity) * item.Price
	}
	c.TotalAmount = total
}

// FindItem returns the index of the line item referencing productID, or -1.
func (c *Cart) FindItem(productID uuid.UUID) int {
	for i, item := range c.Items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}
