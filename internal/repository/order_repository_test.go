package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"storefront/internal/domain"

	"github.com/google/uuid"
)

func buildOrder(userID uuid.UUID, createdAt time.Time, items ...domain.OrderItem) *domain.Order {
	total := 0.0
	for _, item := range items {
		total += float64(item.Quantity) * item.Price
	}
	return &domain.Order{
		ID:          uuid.New(),
		UserID:      userID,
		Items:       items,
		TotalAmount: total,
		Status:      domain.OrderStatusPending,
		ShippingAddress: domain.ShippingAddress{
			Street:  "1 Main St",
			City:    "Springfield",
			State:   "IL",
			ZipCode: "62701",
			Country: "USA",
		},
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestOrderRepository_CreateAndFindByID(t *testing.T) {
	repo := NewOrderRepository(testDB)
	ctx := context.Background()

	user := createTestUser(t)
	mug := createTestProduct(t, 10.00, 50)
	tea := createTestProduct(t, 5.00, 50)

	now := time.Now().UTC().Truncate(time.Microsecond)
	order := buildOrder(user.ID, now,
		domain.OrderItem{ID: uuid.New(), ProductID: mug.ID, ProductName: mug.Name, Quantity: 2, Price: 10.00},
		domain.OrderItem{ID: uuid.New(), ProductID: tea.ID, ProductName: tea.Name, Quantity: 1, Price: 5.00},
	)

	if err := repo.Create(ctx, order); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	found, err := repo.FindByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}

	if found.UserID != user.ID || found.Status != domain.OrderStatusPending {
		t.Errorf("order header mismatch: %+v", found)
	}
	if found.TotalAmount != 25.00 {
		t.Errorf("expected total 25.00, got %f", found.TotalAmount)
	}
	if found.ShippingAddress != order.ShippingAddress {
		t.Errorf("shipping address mismatch: %+v", found.ShippingAddress)
	}
	if len(found.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(found.Items))
	}
	if found.Items[0].ProductName != mug.Name || found.Items[1].ProductName != tea.Name {
		t.Errorf("item snapshots out of order: %+v", found.Items)
	}
}

func TestOrderRepository_FindByID_NotFound(t *testing.T) {
	repo := NewOrderRepository(testDB)

	if _, err := repo.FindByID(context.Background(), uuid.New()); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestOrderRepository_ListByUserNewestFirst(t *testing.T) {
	repo := NewOrderRepository(testDB)
	ctx := context.Background()

	user := createTestUser(t)
	other := createTestUser(t)
	product := createTestProduct(t, 10.00, 50)

	base := time.Now().UTC().Truncate(time.Microsecond)
	for i := 0; i < 3; i++ {
		order := buildOrder(user.ID, base.Add(time.Duration(i)*time.Second),
			domain.OrderItem{ID: uuid.New(), ProductID: product.ID, ProductName: product.Name, Quantity: i + 1, Price: 10.00},
		)
		if err := repo.Create(ctx, order); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}
	otherOrder := buildOrder(other.ID, base,
		domain.OrderItem{ID: uuid.New(), ProductID: product.ID, ProductName: product.Name, Quantity: 1, Price: 10.00},
	)
	if err := repo.Create(ctx, otherOrder); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	orders, err := repo.ListByUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("ListByUser failed: %v", err)
	}

	if len(orders) != 3 {
		t.Fatalf("expected 3 orders for the user, got %d", len(orders))
	}
	for i := 1; i < len(orders); i++ {
		if orders[i].CreatedAt.After(orders[i-1].CreatedAt) {
			t.Errorf("orders not newest first at index %d", i)
		}
	}
	for _, order := range orders {
		if order.UserID != user.ID {
			t.Errorf("found another user's order in the listing")
		}
		if len(order.Items) != 1 {
			t.Errorf("items not loaded for order %s", order.ID)
		}
	}
}

func TestOrderRepository_UpdateStatus(t *testing.T) {
	repo := NewOrderRepository(testDB)
	ctx := context.Background()

	user := createTestUser(t)
	product := createTestProduct(t, 10.00, 50)

	order := buildOrder(user.ID, time.Now().UTC().Truncate(time.Microsecond),
		domain.OrderItem{ID: uuid.New(), ProductID: product.ID, ProductName: product.Name, Quantity: 1, Price: 10.00},
	)
	if err := repo.Create(ctx, order); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := repo.UpdateStatus(ctx, order.ID, domain.OrderStatusProcessing); err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}

	found, err := repo.FindByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if found.Status != domain.OrderStatusProcessing {
		t.Errorf("expected processing, got %s", found.Status)
	}

	if err := repo.UpdateStatus(ctx, uuid.New(), domain.OrderStatusShipped); !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("expected ErrOrderNotFound, got %v", err)
	}
}

// A failed step inside RunInTx must leave no trace of the earlier steps. This
// is the backbone of checkout: the order insert and the stock decrements
// stand or fall together.
func TestTxManager_RollbackUndoesEarlierWrites(t *testing.T) {
	txm := NewTxManager(testDB)
	orderRepo := NewOrderRepository(testDB)
	productRepo := NewProductRepository(testDB)
	ctx := context.Background()

	user := createTestUser(t)
	product := createTestProduct(t, 10.00, 5)

	order := buildOrder(user.ID, time.Now().UTC().Truncate(time.Microsecond),
		domain.OrderItem{ID: uuid.New(), ProductID: product.ID, ProductName: product.Name, Quantity: 2, Price: 10.00},
	)

	err := txm.RunInTx(ctx, func(tx *sql.Tx) error {
		if err := orderRepo.WithTx(tx).Create(ctx, order); err != nil {
			return err
		}
		if err := productRepo.WithTx(tx).DecrementStock(ctx, product.ID, 2); err != nil {
			return err
		}
		// A decrement beyond the remaining stock fails the transaction
		return productRepo.WithTx(tx).DecrementStock(ctx, product.ID, 4)
	})
	if !errors.Is(err, ErrStockConflict) {
		t.Fatalf("expected ErrStockConflict out of the transaction, got %v", err)
	}

	if _, err := orderRepo.FindByID(ctx, order.ID); !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("order must not survive the rollback, got %v", err)
	}

	found, err := productRepo.FindByID(ctx, product.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if found.Stock != 5 {
		t.Errorf("stock must be restored to 5, got %d", found.Stock)
	}
}

func TestTxManager_CommitKeepsWrites(t *testing.T) {
	txm := NewTxManager(testDB)
	productRepo := NewProductRepository(testDB)
	ctx := context.Background()

	product := createTestProduct(t, 10.00, 5)

	err := txm.RunInTx(ctx, func(tx *sql.Tx) error {
		return productRepo.WithTx(tx).DecrementStock(ctx, product.ID, 3)
	})
	if err != nil {
		t.Fatalf("RunInTx failed: %v", err)
	}

	found, err := productRepo.FindByID(ctx, product.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if found.Stock != 2 {
		t.Errorf("expected committed stock 2, got %d", found.Stock)
	}
}
