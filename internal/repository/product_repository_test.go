package repository

import (
	"context"
	"errors"
	"testing"

	"storebot/internal/domain"
)

func TestProductCreateAndFind(t *testing.T) {
	cleanTables(t)
	repo := NewProductRepository(testDB)
	ctx := context.Background()

	product := &domain.Product{
		Name:        "Linen Shirt",
		Description: "Lightweight linen shirt for summer",
		Price:       2500,
		CategoryID:  1,
		Stock:       10,
		Active:      true,
		Material:    "100% linen",
		Country:     "Portugal",
	}

	if err := repo.Create(ctx, product); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if product.ID == 0 {
		t.Fatal("id was not assigned")
	}

	found, err := repo.FindByID(ctx, product.ID)
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if found.Name != product.Name || found.Price != product.Price || found.Material != product.Material {
		t.Errorf("round trip mismatch: %+v", found)
	}
}

func TestProductFindByID_Unknown(t *testing.T) {
	cleanTables(t)
	repo := NewProductRepository(testDB)

	if _, err := repo.FindByID(context.Background(), 99999); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestProductUpdate(t *testing.T) {
	cleanTables(t)
	repo := NewProductRepository(testDB)
	ctx := context.Background()

	productID := seedProduct(t, "Tee", 100, true)

	product, err := repo.FindByID(ctx, productID)
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}

	product.Price = 149
	product.Stock = 3
	if err := repo.Update(ctx, product); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	updated, _ := repo.FindByID(ctx, productID)
	if updated.Price != 149 || updated.Stock != 3 {
		t.Errorf("update not persisted: %+v", updated)
	}

	missing := &domain.Product{ID: 99999, Name: "Ghost", CategoryID: 1}
	if err := repo.Update(ctx, missing); !errors.Is(err, ErrProductNotFound) {
		t.Errorf("expected ErrProductNotFound, got %v", err)
	}
}

func TestListActive_ExcludesInactive(t *testing.T) {
	cleanTables(t)
	repo := NewProductRepository(testDB)
	ctx := context.Background()

	activeID := seedProduct(t, "Tee", 100, true)
	inactiveID := seedProduct(t, "Retired Hoodie", 300, false)

	products, err := repo.ListActive(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(products) != 1 || products[0].ID != activeID {
		t.Errorf("expected only the active product, got %+v", products)
	}

	// Inactive products stay reachable directly for historic orders
	if _, err := repo.FindByID(ctx, inactiveID); err != nil {
		t.Errorf("inactive product must still resolve by id: %v", err)
	}
}

func TestCategories(t *testing.T) {
	repo := NewProductRepository(testDB)

	categories, err := repo.Categories(context.Background())
	if err != nil {
		t.Fatalf("categories failed: %v", err)
	}
	if len(categories) == 0 {
		t.Fatal("expected the seeded category")
	}
}
