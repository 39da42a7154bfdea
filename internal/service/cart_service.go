package service

import (
	"context"
	"errors"
	"fmt"

	"storebot/internal/repository"

	"go.uber.org/zap"
)

// CartLine is one cart row joined with live product data
type CartLine struct {
	ProductID int64   `json:"product_id"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unit_price"`
	Quantity  int     `json:"quantity"`
	LineTotal float64 `json:"line_total"`
}

// CartSummary holds the derived view of a cart
type CartSummary struct {
	Lines []CartLine `json:"lines"`
	Total float64    `json:"total"`
}

// CartService computes cart totals from persisted rows and live product
// data, and forwards cart mutations to the repository.
type CartService struct {
	carts    repository.CartRepository
	products repository.ProductRepository
	logger   *zap.Logger
}

// NewCartService creates a new instance of CartService
func NewCartService(carts repository.CartRepository, products repository.ProductRepository, logger *zap.Logger) *CartService {
	return &CartService{carts: carts, products: products, logger: logger}
}

// Summary recomputes line totals and the grand total from current product
// prices. Rows whose product vanished or was deactivated are excluded
// silently; they are not an error here.
func (s *CartService) Summary(ctx context.Context, userID int64) (*CartSummary, error) {
	items, err := s.carts.Items(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	summary := &CartSummary{Lines: []CartLine{}}
	for _, item := range items {
		product, err := s.products.FindByID(ctx, item.ProductID)
		if errors.Is(err, repository.ErrProductNotFound) {
			s.logger.Warn("Cart references missing product",
				zap.Int64("user_id", userID),
				zap.Int64("product_id", item.ProductID),
			)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load product %d: %w", item.ProductID, err)
		}
		if !product.Active {
			s.logger.Warn("Cart references deactivated product",
				zap.Int64("user_id", userID),
				zap.Int64("product_id", item.ProductID),
			)
			continue
		}

		lineTotal := product.Price * float64(item.Quantity)
		summary.Lines = append(summary.Lines, CartLine{
			ProductID: product.ID,
			Name:      product.Name,
			UnitPrice: product.Price,
			Quantity:  item.Quantity,
			LineTotal: lineTotal,
		})
		summary.Total += lineTotal
	}

	return summary, nil
}

// IsEmpty reports whether the user's cart has no rows at all
func (s *CartService) IsEmpty(ctx context.Context, userID int64) (bool, error) {
	items, err := s.carts.Items(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to load cart: %w", err)
	}
	return len(items) == 0, nil
}

// Add puts a product into the cart, incrementing the quantity when the row
// already exists. Only active products can be added.
func (s *CartService) Add(ctx context.Context, userID, productID int64, quantity int) error {
	if quantity < 1 {
		quantity = 1
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return err
	}
	if !product.Active {
		return repository.ErrProductNotFound
	}

	return s.carts.Add(ctx, userID, productID, quantity)
}

// SetQuantity replaces a row's quantity; zero or below deletes the row
func (s *CartService) SetQuantity(ctx context.Context, userID, productID int64, quantity int) error {
	return s.carts.SetQuantity(ctx, userID, productID, quantity)
}

// Remove deletes one product from the cart
func (s *CartService) Remove(ctx context.Context, userID, productID int64) error {
	return s.carts.Remove(ctx, userID, productID)
}

// Clear empties the cart
func (s *CartService) Clear(ctx context.Context, userID int64) error {
	return s.carts.Clear(ctx, userID)
}
