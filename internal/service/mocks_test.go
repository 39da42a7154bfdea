package service

import (
	"context"
	"sort"
	"time"

	"storebot/internal/domain"
	"storebot/internal/repository"
)

// Mock repositories for testing

type mockUserRepository struct {
	users map[int64]*domain.User
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{users: make(map[int64]*domain.User)}
}

func (m *mockUserRepository) Get(ctx context.Context, id int64) (*domain.User, error) {
	user, exists := m.users[id]
	if !exists {
		return nil, repository.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (m *mockUserRepository) Upsert(ctx context.Context, user *domain.User) error {
	copied := *user
	m.users[user.ID] = &copied
	return nil
}

type mockProductRepository struct {
	products   map[int64]*domain.Product
	categories []*domain.Category
	nextID     int64
}

func newMockProductRepository() *mockProductRepository {
	return &mockProductRepository{
		products: make(map[int64]*domain.Product),
		categories: []*domain.Category{
			{ID: 1, Name: "T-Shirts"},
			{ID: 2, Name: "Hoodies"},
		},
		nextID: 1,
	}
}

func (m *mockProductRepository) addProduct(p *domain.Product) *domain.Product {
	if p.ID == 0 {
		p.ID = m.nextID
		m.nextID++
	} else if p.ID >= m.nextID {
		m.nextID = p.ID + 1
	}
	m.products[p.ID] = p
	return p
}

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	product.ID = m.nextID
	m.nextID++
	copied := *product
	m.products[product.ID] = &copied
	return nil
}

func (m *mockProductRepository) Update(ctx context.Context, product *domain.Product) error {
	if _, exists := m.products[product.ID]; !exists {
		return repository.ErrProductNotFound
	}
	copied := *product
	m.products[product.ID] = &copied
	return nil
}

func (m *mockProductRepository) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	product, exists := m.products[id]
	if !exists {
		return nil, repository.ErrProductNotFound
	}
	copied := *product
	return &copied, nil
}

func (m *mockProductRepository) ListActive(ctx context.Context) ([]*domain.Product, error) {
	out := []*domain.Product{}
	for _, p := range m.products {
		if p.Active {
			copied := *p
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *mockProductRepository) ListActiveByCategory(ctx context.Context, categoryID int64) ([]*domain.Product, error) {
	out := []*domain.Product{}
	for _, p := range m.products {
		if p.Active && p.CategoryID == categoryID {
			copied := *p
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *mockProductRepository) Categories(ctx context.Context) ([]*domain.Category, error) {
	return m.categories, nil
}

type mockCartRepository struct {
	items map[int64]map[int64]int
}

func newMockCartRepository() *mockCartRepository {
	return &mockCartRepository{items: make(map[int64]map[int64]int)}
}

func (m *mockCartRepository) Items(ctx context.Context, userID int64) ([]*domain.CartItem, error) {
	out := []*domain.CartItem{}
	for productID, qty := range m.items[userID] {
		out = append(out, &domain.CartItem{UserID: userID, ProductID: productID, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}

func (m *mockCartRepository) Add(ctx context.Context, userID, productID int64, quantity int) error {
	if m.items[userID] == nil {
		m.items[userID] = make(map[int64]int)
	}
	m.items[userID][productID] += quantity
	return nil
}

func (m *mockCartRepository) SetQuantity(ctx context.Context, userID, productID int64, quantity int) error {
	if quantity <= 0 {
		return m.Remove(ctx, userID, productID)
	}
	if m.items[userID] == nil {
		return nil
	}
	if _, exists := m.items[userID][productID]; exists {
		m.items[userID][productID] = quantity
	}
	return nil
}

func (m *mockCartRepository) Remove(ctx context.Context, userID, productID int64) error {
	delete(m.items[userID], productID)
	return nil
}

func (m *mockCartRepository) Clear(ctx context.Context, userID int64) error {
	delete(m.items, userID)
	return nil
}

// mockOrderRepository mirrors the real Checkout transaction: it persists the
// order, upserts the user and clears the cart together, or does nothing at
// all when checkoutErr is set.
type mockOrderRepository struct {
	orders      map[int64]*domain.Order
	orderItems  map[int64][]*domain.OrderItem
	nextID      int64
	users       *mockUserRepository
	carts       *mockCartRepository
	checkoutErr error
}

func newMockOrderRepository(users *mockUserRepository, carts *mockCartRepository) *mockOrderRepository {
	return &mockOrderRepository{
		orders:     make(map[int64]*domain.Order),
		orderItems: make(map[int64][]*domain.OrderItem),
		nextID:     1,
		users:      users,
		carts:      carts,
	}
}

func (m *mockOrderRepository) CreateWithItems(ctx context.Context, order *domain.Order, items []*domain.OrderItem) (*domain.Order, error) {
	order.ID = m.nextID
	m.nextID++
	m.orders[order.ID] = order
	for _, item := range items {
		item.OrderID = order.ID
	}
	m.orderItems[order.ID] = items
	return order, nil
}

func (m *mockOrderRepository) Checkout(ctx context.Context, order *domain.Order, items []*domain.OrderItem, user *domain.User) (*domain.Order, error) {
	if m.checkoutErr != nil {
		return nil, m.checkoutErr
	}
	if err := m.users.Upsert(ctx, user); err != nil {
		return nil, err
	}
	if _, err := m.CreateWithItems(ctx, order, items); err != nil {
		return nil, err
	}
	if err := m.carts.Clear(ctx, order.UserID); err != nil {
		return nil, err
	}
	return order, nil
}

func (m *mockOrderRepository) List(ctx context.Context, userID *int64) ([]*domain.Order, error) {
	out := []*domain.Order{}
	for _, o := range m.orders {
		if userID == nil || o.UserID == *userID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *mockOrderRepository) ItemsByOrder(ctx context.Context, orderID int64) ([]*domain.OrderItem, error) {
	return m.orderItems[orderID], nil
}

func (m *mockOrderRepository) UpdateStatus(ctx context.Context, orderID int64, status domain.OrderStatus) error {
	order, exists := m.orders[orderID]
	if !exists {
		return repository.ErrOrderNotFound
	}
	order.Status = status
	order.UpdatedAt = time.Now()
	return nil
}
