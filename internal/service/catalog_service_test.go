package service

import (
	"context"
	"errors"
	"testing"

	"storefront/internal/repository"

	"github.com/google/uuid"
)

func TestCreateProduct_DefaultsAndActivation(t *testing.T) {
	productRepo := newMockProductRepository()
	service := NewCatalogService(productRepo)

	product, err := service.CreateProduct(context.Background(), CreateProductInput{
		Name:        "Mug",
		Description: "A mug",
		Price:       10.00,
		Category:    "kitchen",
		Stock:       5,
	})
	if err != nil {
		t.Fatalf("CreateProduct failed: %v", err)
	}

	if !product.IsActive {
		t.Errorf("new products must start active")
	}
	if product.ImageURL == "" {
		t.Errorf("expected a placeholder image URL")
	}
	if product.ID == uuid.Nil {
		t.Errorf("expected a generated ID")
	}
}

func TestGetProduct_InactiveLooksAbsent(t *testing.T) {
	productRepo := newMockProductRepository()
	service := NewCatalogService(productRepo)
	ctx := context.Background()

	product := seedProduct(productRepo, 10.00, 5, true)

	if _, err := service.GetProduct(ctx, product.ID); err != nil {
		t.Fatalf("active product should be visible, got %v", err)
	}

	if err := service.DeleteProduct(ctx, product.ID); err != nil {
		t.Fatalf("DeleteProduct failed: %v", err)
	}

	if _, err := service.GetProduct(ctx, product.ID); !errors.Is(err, repository.ErrProductNotFound) {
		t.Errorf("soft-deleted product should look absent, got %v", err)
	}

	// The row survives for order history
	if _, err := productRepo.FindByID(ctx, product.ID); err != nil {
		t.Errorf("soft delete must keep the row, got %v", err)
	}
}

func TestUpdateProduct_PartialEdit(t *testing.T) {
	productRepo := newMockProductRepository()
	service := NewCatalogService(productRepo)
	ctx := context.Background()

	product := seedProduct(productRepo, 10.00, 5, true)

	newPrice := 12.50
	updated, err := service.UpdateProduct(ctx, product.ID, UpdateProductInput{Price: &newPrice})
	if err != nil {
		t.Fatalf("UpdateProduct failed: %v", err)
	}

	if !floatsEqual(updated.Price, 12.50) {
		t.Errorf("expected price 12.50, got %f", updated.Price)
	}
	if updated.Name != product.Name || updated.Stock != 5 {
		t.Errorf("untouched fields must survive a partial edit: %+v", updated)
	}
}

func TestUpdateProduct_UnknownID(t *testing.T) {
	service := NewCatalogService(newMockProductRepository())

	name := "Ghost"
	if _, err := service.UpdateProduct(context.Background(), uuid.New(), UpdateProductInput{Name: &name}); !errors.Is(err, repository.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestListActive_DefaultsPagination(t *testing.T) {
	productRepo := newMockProductRepository()
	service := NewCatalogService(productRepo)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		seedProduct(productRepo, 10.00, 5, true)
	}
	seedProduct(productRepo, 10.00, 5, false)

	products, total, err := service.ListActive(ctx, repository.ProductFilter{}, 0, 0)
	if err != nil {
		t.Fatalf("ListActive failed: %v", err)
	}
	if total != 12 {
		t.Errorf("inactive products must not count, got total %d", total)
	}
	if len(products) != 10 {
		t.Errorf("expected default page size 10, got %d", len(products))
	}
}
