package domain

// Product represents a product in the catalog. Only active products are
// browsable; inactive ones stay referenced by historic orders.
type Product struct {
	ID          int64   `json:"id" db:"id"`
	Name        string  `json:"name" db:"name"`
	Description string  `json:"description" db:"description"`
	Price       float64 `json:"price" db:"price"`
	CategoryID  int64   `json:"category_id" db:"category_id"`
	ImageURL    string  `json:"image_url" db:"image_url"`
	Stock       int     `json:"stock" db:"stock"`
	Active      bool    `json:"active" db:"is_active"`

	// Extended card attributes, free text or comma-delimited enumerations.
	DetailedDescription string `json:"detailed_description,omitempty" db:"detailed_description"`
	Sizes               string `json:"sizes,omitempty" db:"sizes"`
	Colors              string `json:"colors,omitempty" db:"colors"`
	Material            string `json:"material,omitempty" db:"material"`
	Weight              string `json:"weight,omitempty" db:"weight"`
	Dimensions          string `json:"dimensions,omitempty" db:"dimensions"`
	Brand               string `json:"brand,omitempty" db:"brand"`
	Country             string `json:"country,omitempty" db:"country"`
}

// Category represents a product category
type Category struct {
	ID          int64  `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	Description string `json:"description" db:"description"`
}
