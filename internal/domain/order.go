package domain

import "time"

// OrderStatus is the admin-driven lifecycle of an order.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusShipping  OrderStatus = "shipping"
	StatusDelivered OrderStatus = "delivered"
)

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusShipping, StatusDelivered:
		return true
	}
	return false
}

// Delivery method values as stored on the order row.
const (
	DeliveryCourier = "delivery"
	DeliveryPickup  = "pickup"
)

// Order represents a committed checkout. DeliveryTime, PaymentMethod and
// Comment hold the display strings collected during the dialogue.
type Order struct {
	ID              int64       `json:"id" db:"id"`
	UserID          int64       `json:"user_id" db:"user_id"`
	Status          OrderStatus `json:"status" db:"status"`
	TotalAmount     float64     `json:"total_amount" db:"total_amount"`
	DeliveryMethod  string      `json:"delivery_method" db:"delivery_method"`
	DeliveryTime    string      `json:"delivery_time" db:"delivery_time"`
	PaymentMethod   string      `json:"payment_method" db:"payment_method"`
	Comment         string      `json:"comment" db:"comment"`
	DeliveryAddress string      `json:"delivery_address" db:"delivery_address"`
	Phone           string      `json:"phone" db:"phone"`
	CreatedAt       time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at" db:"updated_at"`
}

// OrderItem is one line of an order. Price is the unit price frozen at
// commit time; later product price changes never touch it.
type OrderItem struct {
	ID        int64   `json:"id" db:"id"`
	OrderID   int64   `json:"order_id" db:"order_id"`
	ProductID int64   `json:"product_id" db:"product_id"`
	Quantity  int     `json:"quantity" db:"quantity"`
	Price     float64 `json:"price" db:"price"`
}
