package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"storebot/internal/domain"
	"storebot/internal/repository"

	"go.uber.org/zap"
)

var (
	ErrInvalidStatus = errors.New("invalid order status")
)

// Add-product dialogue steps, asked in order
const (
	StepProductName        Step = "awaiting_product_name"
	StepProductDescription Step = "awaiting_product_description"
	StepProductPrice       Step = "awaiting_product_price"
	StepProductCategory    Step = "awaiting_product_category"
	StepProductStock       Step = "awaiting_product_stock"
	StepProductImage       Step = "awaiting_product_image"
)

// Edit-product dialogue steps
const (
	StepEditField Step = "choosing_field"
	StepEditValue Step = "awaiting_new_value"
)

const (
	fieldProductName        = "product_name"
	fieldProductDescription = "product_description"
	fieldProductPrice       = "product_price"
	fieldProductCategory    = "product_category"
	fieldProductStock       = "product_stock"
	fieldProductImage       = "product_image"
	fieldEditProductID      = "edit_product_id"
	fieldEditTarget         = "edit_target"
)

var editFieldOptions = []Option{
	{Value: "name", Label: "Name"},
	{Value: "description", Label: "Description"},
	{Value: "price", Label: "Price"},
	{Value: "stock", Label: "Stock"},
	{Value: "image", Label: "Image URL"},
}

// AdminService drives the product management dialogues and order status
// changes. It keeps its own StepStore so an administrator's product dialogue
// never collides with their own shopping conversation.
type AdminService struct {
	products repository.ProductRepository
	orders   repository.OrderRepository
	store    *StepStore
	logger   *zap.Logger
}

// NewAdminService creates a new instance of AdminService
func NewAdminService(
	products repository.ProductRepository,
	orders repository.OrderRepository,
	store *StepStore,
	logger *zap.Logger,
) *AdminService {
	return &AdminService{products: products, orders: orders, store: store, logger: logger}
}

// StartAddProduct begins the add-product dialogue
func (s *AdminService) StartAddProduct(ctx context.Context, adminID int64) (*Prompt, error) {
	s.store.Clear(adminID)
	s.store.SetStep(adminID, StepProductName)
	return s.promptFor(ctx, adminID, StepProductName)
}

// StartEditProduct begins the edit dialogue for one existing product
func (s *AdminService) StartEditProduct(ctx context.Context, adminID, productID int64) (*Prompt, error) {
	if _, err := s.products.FindByID(ctx, productID); err != nil {
		return nil, err
	}

	s.store.Clear(adminID)
	s.store.Set(adminID, fieldEditProductID, strconv.FormatInt(productID, 10))
	s.store.SetStep(adminID, StepEditField)
	return s.promptFor(ctx, adminID, StepEditField)
}

// Advance feeds one input event into whichever dialogue the admin has open
func (s *AdminService) Advance(ctx context.Context, adminID int64, ev Event) (*Reply, error) {
	step, ok := s.store.Step(adminID)
	if !ok {
		return nil, ErrNoActiveDialog
	}

	if ev.Kind == EventChoice && ev.Value == OptionCancel {
		s.store.Clear(adminID)
		s.logger.Info("Admin dialogue cancelled", zap.Int64("admin_id", adminID))
		return &Reply{Cancelled: true}, nil
	}

	switch step {
	case StepProductName:
		return s.handleProductName(ctx, adminID, ev)
	case StepProductDescription:
		return s.handleProductDescription(ctx, adminID, ev)
	case StepProductPrice:
		return s.handleProductPrice(ctx, adminID, ev)
	case StepProductCategory:
		return s.handleProductCategory(ctx, adminID, ev)
	case StepProductStock:
		return s.handleProductStock(ctx, adminID, ev)
	case StepProductImage:
		return s.handleProductImage(ctx, adminID, ev)
	case StepEditField:
		return s.handleEditField(ctx, adminID, ev)
	case StepEditValue:
		return s.handleEditValue(ctx, adminID, ev)
	default:
		return nil, fmt.Errorf("unknown admin step %q", step)
	}
}

// ListOrders returns all orders, newest first
func (s *AdminService) ListOrders(ctx context.Context) ([]*domain.Order, error) {
	return s.orders.List(ctx, nil)
}

// OrderItems returns the line items of one order
func (s *AdminService) OrderItems(ctx context.Context, orderID int64) ([]*domain.OrderItem, error) {
	return s.orders.ItemsByOrder(ctx, orderID)
}

// UpdateOrderStatus moves an order to a new status after validating it
func (s *AdminService) UpdateOrderStatus(ctx context.Context, orderID int64, status domain.OrderStatus) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}

	if err := s.orders.UpdateStatus(ctx, orderID, status); err != nil {
		return err
	}

	s.logger.Info("Order status updated",
		zap.Int64("order_id", orderID),
		zap.String("status", string(status)),
	)
	return nil
}

func (s *AdminService) handleProductName(ctx context.Context, adminID int64, ev Event) (*Reply, error) {
	name := strings.TrimSpace(ev.Value)
	if len([]rune(name)) < 3 {
		return s.reject(ctx, adminID, StepProductName, "Name must be at least 3 characters")
	}

	s.store.Set(adminID, fieldProductName, name)
	s.store.SetStep(adminID, StepProductDescription)
	return s.promptReply(ctx, adminID, StepProductDescription)
}

func (s *AdminService) handleProductDescription(ctx context.Context, adminID int64, ev Event) (*Reply, error) {
	description := strings.TrimSpace(ev.Value)
	if len([]rune(description)) < 10 {
		return s.reject(ctx, adminID, StepProductDescription, "Description must be at least 10 characters")
	}

	s.store.Set(adminID, fieldProductDescription, description)
	s.store.SetStep(adminID, StepProductPrice)
	return s.promptReply(ctx, adminID, StepProductPrice)
}

func (s *AdminService) handleProductPrice(ctx context.Context, adminID int64, ev Event) (*Reply, error) {
	price, err := parsePrice(ev.Value)
	if err != nil {
		return s.reject(ctx, adminID, StepProductPrice, "Price must be a positive number")
	}

	s.store.Set(adminID, fieldProductPrice, strconv.FormatFloat(price, 'f', -1, 64))
	s.store.SetStep(adminID, StepProductCategory)
	return s.promptReply(ctx, adminID, StepProductCategory)
}

func (s *AdminService) handleProductCategory(ctx context.Context, adminID int64, ev Event) (*Reply, error) {
	options, err := s.categoryOptions(ctx)
	if err != nil {
		return nil, err
	}

	opt, ok := matchOption(options, ev.Value)
	if !ok {
		return s.reject(ctx, adminID, StepProductCategory, "Choose one of the categories")
	}

	s.store.Set(adminID, fieldProductCategory, opt.Value)
	s.store.SetStep(adminID, StepProductStock)
	return s.promptReply(ctx, adminID, StepProductStock)
}

func (s *AdminService) handleProductStock(ctx context.Context, adminID int64, ev Event) (*Reply, error) {
	stock, err := strconv.Atoi(strings.TrimSpace(ev.Value))
	if err != nil || stock < 0 {
		return s.reject(ctx, adminID, StepProductStock, "Stock must be a whole number, zero or above")
	}

	s.store.Set(adminID, fieldProductStock, strconv.Itoa(stock))
	s.store.SetStep(adminID, StepProductImage)
	return s.promptReply(ctx, adminID, StepProductImage)
}

// handleProductImage is the terminal add-product step: the image may be
// skipped, then the collected fields are persisted as one active product.
func (s *AdminService) handleProductImage(ctx context.Context, adminID int64, ev Event) (*Reply, error) {
	image := strings.TrimSpace(ev.Value)
	if ev.Kind == EventChoice && ev.Value == OptionSkip {
		image = ""
	}

	fields := s.store.Fields(adminID)
	price, err := strconv.ParseFloat(fields[fieldProductPrice], 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt price in dialogue state: %w", err)
	}
	categoryID, err := strconv.ParseInt(fields[fieldProductCategory], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt category in dialogue state: %w", err)
	}
	stock, err := strconv.Atoi(fields[fieldProductStock])
	if err != nil {
		return nil, fmt.Errorf("corrupt stock in dialogue state: %w", err)
	}

	product := &domain.Product{
		Name:        fields[fieldProductName],
		Description: fields[fieldProductDescription],
		Price:       price,
		CategoryID:  categoryID,
		ImageURL:    image,
		Stock:       stock,
		Active:      true,
	}

	if err := s.products.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.store.Clear(adminID)
	s.logger.Info("Product created",
		zap.Int64("admin_id", adminID),
		zap.Int64("product_id", product.ID),
		zap.String("name", product.Name),
	)
	return &Reply{Saved: product}, nil
}

func (s *AdminService) handleEditField(ctx context.Context, adminID int64, ev Event) (*Reply, error) {
	opt, ok := matchOption(editFieldOptions, ev.Value)
	if !ok {
		return s.reject(ctx, adminID, StepEditField, "Choose one of the fields")
	}

	s.store.Set(adminID, fieldEditTarget, opt.Value)
	s.store.SetStep(adminID, StepEditValue)
	return s.promptReply(ctx, adminID, StepEditValue)
}

// handleEditValue validates the new value against the same rules the
// add-product dialogue uses, then writes the single changed field. A
// rejected value leaves the product untouched.
func (s *AdminService) handleEditValue(ctx context.Context, adminID int64, ev Event) (*Reply, error) {
	productID, err := strconv.ParseInt(s.store.Field(adminID, fieldEditProductID), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt product id in dialogue state: %w", err)
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	value := strings.TrimSpace(ev.Value)
	switch s.store.Field(adminID, fieldEditTarget) {
	case "name":
		if len([]rune(value)) < 3 {
			return s.reject(ctx, adminID, StepEditValue, "Name must be at least 3 characters")
		}
		product.Name = value
	case "description":
		if len([]rune(value)) < 10 {
			return s.reject(ctx, adminID, StepEditValue, "Description must be at least 10 characters")
		}
		product.Description = value
	case "price":
		price, err := parsePrice(value)
		if err != nil {
			return s.reject(ctx, adminID, StepEditValue, "Price must be a positive number")
		}
		product.Price = price
	case "stock":
		stock, err := strconv.Atoi(value)
		if err != nil || stock < 0 {
			return s.reject(ctx, adminID, StepEditValue, "Stock must be a whole number, zero or above")
		}
		product.Stock = stock
	case "image":
		product.ImageURL = value
	default:
		return nil, fmt.Errorf("unknown edit target %q", s.store.Field(adminID, fieldEditTarget))
	}

	if err := s.products.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	s.store.Clear(adminID)
	s.logger.Info("Product updated",
		zap.Int64("admin_id", adminID),
		zap.Int64("product_id", product.ID),
	)
	return &Reply{Saved: product}, nil
}

func (s *AdminService) promptFor(ctx context.Context, adminID int64, step Step) (*Prompt, error) {
	switch step {
	case StepProductName:
		return &Prompt{Step: step, Text: "Enter the product name", Options: []Option{cancelOption}}, nil
	case StepProductDescription:
		return &Prompt{Step: step, Text: "Enter the product description", Options: []Option{cancelOption}}, nil
	case StepProductPrice:
		return &Prompt{Step: step, Text: "Enter the price", Options: []Option{cancelOption}}, nil
	case StepProductCategory:
		options, err := s.categoryOptions(ctx)
		if err != nil {
			return nil, err
		}
		return &Prompt{Step: step, Text: "Choose a category", Options: withCancel(options)}, nil
	case StepProductStock:
		return &Prompt{Step: step, Text: "Enter the stock quantity", Options: []Option{cancelOption}}, nil
	case StepProductImage:
		return &Prompt{Step: step, Text: "Enter an image URL or skip this step",
			Options: []Option{{Value: OptionSkip, Label: "Skip"}, cancelOption}}, nil
	case StepEditField:
		return &Prompt{Step: step, Text: "Which field do you want to change?",
			Options: withCancel(editFieldOptions)}, nil
	case StepEditValue:
		return &Prompt{Step: step, Text: "Enter the new value", Options: []Option{cancelOption}}, nil
	default:
		return nil, fmt.Errorf("no prompt for step %q", step)
	}
}

func (s *AdminService) categoryOptions(ctx context.Context) ([]Option, error) {
	categories, err := s.products.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}

	options := make([]Option, 0, len(categories))
	for _, c := range categories {
		options = append(options, Option{Value: strconv.FormatInt(c.ID, 10), Label: c.Name})
	}
	return options, nil
}

func (s *AdminService) reject(ctx context.Context, adminID int64, step Step, reason string) (*Reply, error) {
	prompt, err := s.promptFor(ctx, adminID, step)
	if err != nil {
		return nil, err
	}
	return &Reply{Invalid: reason, Prompt: prompt}, nil
}

func (s *AdminService) promptReply(ctx context.Context, adminID int64, step Step) (*Reply, error) {
	prompt, err := s.promptFor(ctx, adminID, step)
	if err != nil {
		return nil, err
	}
	return &Reply{Prompt: prompt}, nil
}

func parsePrice(input string) (float64, error) {
	price, err := strconv.ParseFloat(strings.TrimSpace(input), 64)
	if err != nil {
		return 0, err
	}
	if price <= 0 {
		return 0, fmt.Errorf("price must be positive")
	}
	return price, nil
}
