package transport

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"storefront/internal/domain"
	"storefront/internal/middleware"
	"storefront/internal/repository"
	"storefront/internal/service"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type mockOrderRepository struct {
	orders []*domain.Order
}

func (m *mockOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	m.orders = append(m.orders, order)
	return nil
}

func (m *mockOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	for _, order := range m.orders {
		if order.ID == id {
			return order, nil
		}
	}
	return nil, repository.ErrOrderNotFound
}

func (m *mockOrderRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error) {
	var result []*domain.Order
	for _, order := range m.orders {
		if order.UserID == userID {
			result = append(result, order)
		}
	}
	return result, nil
}

func (m *mockOrderRepository) ListAll(ctx context.Context, page, pageSize int) ([]*domain.Order, int, error) {
	return m.orders, len(m.orders), nil
}

func (m *mockOrderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) error {
	for _, order := range m.orders {
		if order.ID == id {
			order.Status = status
			return nil
		}
	}
	return repository.ErrOrderNotFound
}

func (m *mockOrderRepository) WithTx(tx *sql.Tx) repository.OrderRepository {
	return m
}

type passthroughTxManager struct{}

func (passthroughTxManager) RunInTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return fn(nil)
}

type orderHandlerFixture struct {
	handler     *OrderHandler
	productRepo *mockProductRepository
	cartRepo    *mockCartRepository
	orderRepo   *mockOrderRepository
	userID      uuid.UUID
}

func newOrderHandlerFixture() *orderHandlerFixture {
	productRepo := newMockProductRepository()
	cartRepo := newMockCartRepository()
	orderRepo := &mockOrderRepository{}
	orderService := service.NewOrderService(
		passthroughTxManager{},
		orderRepo,
		productRepo,
		cartRepo,
		service.DefaultTransitionPolicy,
	)
	return &orderHandlerFixture{
		handler:     NewOrderHandler(orderService, zap.NewNop()),
		productRepo: productRepo,
		cartRepo:    cartRepo,
		orderRepo:   orderRepo,
		userID:      uuid.New(),
	}
}

func (f *orderHandlerFixture) fillCart(product *domain.Product, quantity int) {
	cart := &domain.Cart{
		ID:     uuid.New(),
		UserID: f.userID,
		Items: []domain.CartItem{
			{ID: uuid.New(), ProductID: product.ID, Quantity: quantity, Price: product.Price},
		},
	}
	cart.RecomputeTotal()
	f.cartRepo.carts[f.userID] = cart
}

func checkoutRequest(userID uuid.UUID) *http.Request {
	body, _ := json.Marshal(CheckoutRequest{
		ShippingAddress: ShippingAddressRequest{
			Street:  "1 Market St",
			City:    "Springfield",
			ZipCode: "12345",
			Country: "US",
		},
	})
	return authedRequest(http.MethodPost, "/api/orders", bytes.NewReader(body), userID)
}

func TestOrderHandler_CheckoutCreatesPendingOrder(t *testing.T) {
	f := newOrderHandlerFixture()
	product := &domain.Product{
		ID:       uuid.New(),
		Name:     "Ceramic Mug",
		Price:    10.00,
		Stock:    5,
		IsActive: true,
	}
	f.productRepo.products[product.ID] = product
	f.fillCart(product, 2)

	w := httptest.NewRecorder()
	f.handler.Checkout(w, checkoutRequest(f.userID))

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var order domain.Order
	if err := json.NewDecoder(w.Body).Decode(&order); err != nil {
		t.Fatalf("failed to decode order: %v", err)
	}

	if order.Status != domain.OrderStatusPending {
		t.Errorf("expected pending status, got %s", order.Status)
	}
	if order.TotalAmount != 20.00 {
		t.Errorf("expected total 20.00, got %v", order.TotalAmount)
	}
	if len(order.Items) != 1 || order.Items[0].ProductName != "Ceramic Mug" {
		t.Errorf("expected one line with snapshotted product name, got %+v", order.Items)
	}
	if order.ShippingAddress.City != "Springfield" {
		t.Errorf("shipping address not carried onto order")
	}

	if product.Stock != 3 {
		t.Errorf("expected stock 3 after checkout, got %d", product.Stock)
	}
	if cart := f.cartRepo.carts[f.userID]; len(cart.Items) != 0 {
		t.Errorf("expected cart emptied after checkout, got %d items", len(cart.Items))
	}
}

func TestOrderHandler_CheckoutEmptyCart(t *testing.T) {
	f := newOrderHandlerFixture()

	w := httptest.NewRecorder()
	f.handler.Checkout(w, checkoutRequest(f.userID))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}

	var response map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if _, exists := response["error"]; !exists {
		t.Error("response missing 'error' field")
	}
}

func TestOrderHandler_CheckoutInsufficientStock(t *testing.T) {
	f := newOrderHandlerFixture()
	product := &domain.Product{
		ID:       uuid.New(),
		Name:     "Ceramic Mug",
		Price:    10.00,
		Stock:    1,
		IsActive: true,
	}
	f.productRepo.products[product.ID] = product
	f.fillCart(product, 4)

	w := httptest.NewRecorder()
	f.handler.Checkout(w, checkoutRequest(f.userID))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if len(f.orderRepo.orders) != 0 {
		t.Errorf("expected no order persisted, got %d", len(f.orderRepo.orders))
	}
}

func TestOrderHandler_GetEnforcesOwnership(t *testing.T) {
	f := newOrderHandlerFixture()
	order := &domain.Order{
		ID:     uuid.New(),
		UserID: f.userID,
		Status: domain.OrderStatusPending,
	}
	f.orderRepo.orders = append(f.orderRepo.orders, order)

	// The owner can read their order.
	req := authedRequest(http.MethodGet, "/api/orders/"+order.ID.String(), nil, f.userID)
	req = withPathParam(req, "id", order.ID.String())
	w := httptest.NewRecorder()
	f.handler.Get(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("owner read: expected 200, got %d", w.Code)
	}

	// A different customer is denied.
	req = authedRequest(http.MethodGet, "/api/orders/"+order.ID.String(), nil, uuid.New())
	req = withPathParam(req, "id", order.ID.String())
	w = httptest.NewRecorder()
	f.handler.Get(w, req)
	if w.Code != http.StatusForbidden {
		t.Errorf("stranger read: expected 403, got %d", w.Code)
	}

	// An admin can read any order.
	req = authedRequest(http.MethodGet, "/api/orders/"+order.ID.String(), nil, uuid.New())
	req = req.WithContext(context.WithValue(req.Context(), middleware.UserRoleKey, domain.RoleAdmin))
	req = withPathParam(req, "id", order.ID.String())
	w = httptest.NewRecorder()
	f.handler.Get(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("admin read: expected 200, got %d", w.Code)
	}
}

func TestOrderHandler_GetUnknownOrder(t *testing.T) {
	f := newOrderHandlerFixture()

	id := uuid.New()
	req := authedRequest(http.MethodGet, "/api/orders/"+id.String(), nil, f.userID)
	req = withPathParam(req, "id", id.String())
	w := httptest.NewRecorder()

	f.handler.Get(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestOrderHandler_UpdateStatus(t *testing.T) {
	tests := []struct {
		name     string
		from     domain.OrderStatus
		to       string
		wantCode int
	}{
		{"pending to processing", domain.OrderStatusPending, "processing", http.StatusOK},
		{"pending to cancelled", domain.OrderStatusPending, "cancelled", http.StatusOK},
		{"pending to delivered", domain.OrderStatusPending, "delivered", http.StatusBadRequest},
		{"shipped to delivered", domain.OrderStatusShipped, "delivered", http.StatusOK},
		{"shipped to cancelled", domain.OrderStatusShipped, "cancelled", http.StatusBadRequest},
		{"delivered is terminal", domain.OrderStatusDelivered, "pending", http.StatusBadRequest},
		{"unknown status", domain.OrderStatusPending, "returned", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newOrderHandlerFixture()
			order := &domain.Order{
				ID:     uuid.New(),
				UserID: f.userID,
				Status: tt.from,
			}
			f.orderRepo.orders = append(f.orderRepo.orders, order)

			body, _ := json.Marshal(UpdateStatusRequest{Status: tt.to})
			req := authedRequest(http.MethodPut, "/api/orders/"+order.ID.String()+"/status", bytes.NewReader(body), uuid.New())
			req = req.WithContext(context.WithValue(req.Context(), middleware.UserRoleKey, domain.RoleAdmin))
			req = withPathParam(req, "id", order.ID.String())
			w := httptest.NewRecorder()

			f.handler.UpdateStatus(w, req)

			if w.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d: %s", tt.wantCode, w.Code, w.Body.String())
			}
			if tt.wantCode == http.StatusOK && order.Status != domain.OrderStatus(tt.to) {
				t.Errorf("expected status %s persisted, got %s", tt.to, order.Status)
			}
			if tt.wantCode != http.StatusOK && order.Status != tt.from {
				t.Errorf("rejected transition must not change status, got %s", order.Status)
			}
		})
	}
}
