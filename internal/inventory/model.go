package inventory

import (
	"errors"
	"time"
)

// StockStatus is derived from the current stock level, never stored.
type StockStatus string

const (
	StatusInStock    StockStatus = "in_stock"
	StatusLowStock   StockStatus = "low_stock"
	StatusOutOfStock StockStatus = "out_of_stock"
)

// lowStockThreshold marks items that need restocking soon.
const lowStockThreshold = 10

// DeriveStockStatus maps a stock count to its display status.
func DeriveStockStatus(stock int) StockStatus {
	switch {
	case stock <= 0:
		return StatusOutOfStock
	case stock <= lowStockThreshold:
		return StatusLowStock
	default:
		return StatusInStock
	}
}

// Item is a stocked inventory row owned by a store profile.
type Item struct {
	ID        string      `json:"id"`
	ProfileID int64       `json:"profile_id"`
	ProductID *string     `json:"product_id,omitempty"`
	Name      string      `json:"name"`
	SKU       string      `json:"sku"`
	Stock     int         `json:"stock"`
	SRP       float64     `json:"srp"`
	Supplier  *string     `json:"supplier,omitempty"`
	Status    StockStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Adjustment records a manual stock movement.
type Adjustment struct {
	ID        int64     `json:"id"`
	ItemID    string    `json:"item_id"`
	ProfileID int64     `json:"profile_id"`
	Delta     int       `json:"delta"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

var (
	ErrItemNotFound      = errors.New("inventory item not found")
	ErrSKUTaken          = errors.New("sku already in use")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidDelta      = errors.New("adjustment delta must not be zero")
)

// CreateItemInput captures the fields accepted when stocking a new item.
type CreateItemInput struct {
	ProfileID int64
	ProductID *string
	Name      string
	SKU       string
	Stock     int
	SRP       float64
	Supplier  *string
}

// UpdateItemInput carries partial updates; nil fields are untouched.
type UpdateItemInput struct {
	Name     *string
	SKU      *string
	SRP      *float64
	Supplier *string
}

// ListItemsRequest filters the inventory listing.
type ListItemsRequest struct {
	ProfileID int64
	Status    StockStatus
	Search    string
	Limit     int
	Offset    int
}
