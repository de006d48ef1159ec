package products

import (
	"errors"
	"time"
)

// Product is a catalog entry owned by a single store profile.
type Product struct {
	ID          string    `json:"id"`
	ProfileID   int64     `json:"profile_id"`
	Name        string    `json:"name"`
	Category    *string   `json:"category,omitempty"`
	Price       float64   `json:"price"`
	ImageURL    *string   `json:"image_url,omitempty"`
	Supplier    *string   `json:"supplier,omitempty"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

var (
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidPrice    = errors.New("price must not be negative")
)

// CreateProductInput captures the fields accepted on product creation.
type CreateProductInput struct {
	ProfileID   int64
	Name        string
	Category    *string
	Price       float64
	ImageURL    *string
	Supplier    *string
	Description *string
}

// UpdateProductInput carries partial updates; nil fields are untouched.
type UpdateProductInput struct {
	Name        *string
	Category    *string
	Price       *float64
	ImageURL    *string
	Supplier    *string
	Description *string
}

// ListProductsRequest filters the product listing.
type ListProductsRequest struct {
	ProfileID int64
	Category  string
	Search    string
	Limit     int
	Offset    int
}
