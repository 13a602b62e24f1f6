package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"storefront/internal/domain"
	"storefront/internal/repository"

	"github.com/google/uuid"
)

// TransitionPolicy maps an order status to the statuses it may move to.
// Statuses absent from the map are terminal.
type TransitionPolicy map[domain.OrderStatus][]domain.OrderStatus

// DefaultTransitionPolicy is the standard order lifecycle: orders move
// forward through fulfilment or get cancelled before shipping.
var DefaultTransitionPolicy = TransitionPolicy{
	domain.OrderStatusPending:    {domain.OrderStatusProcessing, domain.OrderStatusCancelled},
	domain.OrderStatusProcessing: {domain.OrderStatusShipped, domain.OrderStatusCancelled},
	domain.OrderStatusShipped:    {domain.OrderStatusDelivered},
}

// Allows reports whether the policy permits moving from one status to another.
func (p TransitionPolicy) Allows(from, to domain.OrderStatus) bool {
	for _, allowed := range p[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// OrderService defines the interface for order business logic, including the
// checkout workflow that converts a cart into an order.
type OrderService interface {
	Checkout(ctx context.Context, userID uuid.UUID, address domain.ShippingAddress) (*domain.Order, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error)
	GetOrder(ctx context.Context, id, requesterID uuid.UUID, requesterRole string) (*domain.Order, error)
	ListAll(ctx context.Context, page, pageSize int) ([]*domain.Order, int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) (*domain.Order, error)
}

type orderService struct {
	txm         repository.TxManager
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	cartRepo    repository.CartRepository
	policy      TransitionPolicy
}

// NewOrderService creates a new instance of OrderService. The transition
// policy governs which status changes UpdateStatus accepts.
func NewOrderService(
	txm repository.TxManager,
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	cartRepo repository.CartRepository,
	policy TransitionPolicy,
) OrderService {
	return &orderService{
		txm:         txm,
		orderRepo:   orderRepo,
		productRepo: productRepo,
		cartRepo:    cartRepo,
		policy:      policy,
	}
}

// Checkout converts the user's cart into a pending order. The read-only stock
// pre-check fast-fails before anything is written; the authoritative stock
// guard is the conditional decrement inside the transaction, so two
// concurrent checkouts can never drive stock negative. Order creation, stock
// decrements and the cart clear commit or roll back as one unit.
func (s *orderService) Checkout(ctx context.Context, userID uuid.UUID, address domain.ShippingAddress) (*domain.Order, error) {
	cart, err := s.cartRepo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrCartNotFound) {
			return nil, ErrEmptyCart
		}
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if len(cart.Items) == 0 {
		return nil, ErrEmptyCart
	}

	// Advisory pre-check over every line before any mutation. Product names
	// read here become the order's immutable snapshots.
	orderItems := make([]domain.OrderItem, 0, len(cart.Items))
	for _, item := range cart.Items {
		product, err := s.productRepo.FindByID(ctx, item.ProductID)
		if err != nil {
			return nil, err
		}
		if product.Stock < item.Quantity {
			return nil, &InsufficientStockError{ProductID: product.ID, ProductName: product.Name}
		}
		orderItems = append(orderItems, domain.OrderItem{
			ID:          uuid.New(),
			ProductID:   item.ProductID,
			ProductName: product.Name,
			Quantity:    item.Quantity,
			Price:       item.Price,
		})
	}

	now := time.Now()
	order := &domain.Order{
		ID:              uuid.New(),
		UserID:          userID,
		Items:           orderItems,
		TotalAmount:     cart.TotalAmount,
		Status:          domain.OrderStatusPending,
		ShippingAddress: address,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err = s.txm.RunInTx(ctx, func(tx *sql.Tx) error {
		orders := s.orderRepo.WithTx(tx)
		products := s.productRepo.WithTx(tx)
		carts := s.cartRepo.WithTx(tx)

		if err := orders.Create(ctx, order); err != nil {
			return err
		}

		for i, item := range order.Items {
			if err := products.DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
				if errors.Is(err, repository.ErrStockConflict) {
					return &InsufficientStockError{
						ProductID:   item.ProductID,
						ProductName: order.Items[i].ProductName,
					}
				}
				return err
			}
		}

		return carts.Clear(ctx, order.UserID)
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

// ListForUser returns the user's orders, newest first.
func (s *orderService) ListForUser(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error) {
	orders, err := s.orderRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// GetOrder returns an order if the requester owns it or is an admin.
func (s *orderService) GetOrder(ctx context.Context, id, requesterID uuid.UUID, requesterRole string) (*domain.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if order.UserID != requesterID && requesterRole != domain.RoleAdmin {
		return nil, ErrAccessDenied
	}

	return order, nil
}

// ListAll returns a page of every order plus the total count, for admin views.
func (s *orderService) ListAll(ctx context.Context, page, pageSize int) ([]*domain.Order, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	return s.orderRepo.ListAll(ctx, page, pageSize)
}

// UpdateStatus moves an order to a new status when the transition policy
// allows it, and returns the updated order.
func (s *orderService) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) (*domain.Order, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatusTransition
	}

	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !s.policy.Allows(order.Status, status) {
		return nil, ErrInvalidStatusTransition
	}

	if err := s.orderRepo.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}

	order.Status = status
	order.UpdatedAt = time.Now()
	return order, nil
}
