package domain

// CartItem is one (user, product) row of a cart. Quantity is always
// positive; setting it to zero or below deletes the row.
type CartItem struct {
	UserID    int64 `json:"user_id" db:"user_id"`
	ProductID int64 `json:"product_id" db:"product_id"`
	Quantity  int   `json:"quantity" db:"quantity"`
}
