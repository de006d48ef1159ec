package orders

import (
	"errors"
	"time"
)

// Status tracks an order through its lifecycle.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// PaymentMethod is how a completed order was paid. Orders attached to a
// debtor are settled later through the debtor ledger instead.
type PaymentMethod string

const (
	MethodCash  PaymentMethod = "cash"
	MethodGCash PaymentMethod = "gcash"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodGCash:
		return true
	}
	return false
}

// Order is a point-of-sale order owned by a store profile.
type Order struct {
	ID            string        `json:"id"`
	ProfileID     int64         `json:"profile_id"`
	DebtorID      *string       `json:"debtor_id,omitempty"`
	Status        Status        `json:"status"`
	PaymentMethod PaymentMethod `json:"payment_method,omitempty"`
	Total         float64       `json:"total"`
	Items         []OrderItem   `json:"items,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
	CompletedAt   *time.Time    `json:"completed_at,omitempty"`
}

// OrderItem is a single product line within an order.
type OrderItem struct {
	ID        int64   `json:"id"`
	OrderID   string  `json:"order_id"`
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Subtotal  float64 `json:"subtotal"`
}

var (
	ErrOrderNotFound          = errors.New("order not found")
	ErrOrderNotPending        = errors.New("order is not pending")
	ErrEmptyOrder             = errors.New("order must contain at least one item")
	ErrInvalidPaymentMethod   = errors.New("invalid payment method")
	ErrInvalidQuantity        = errors.New("quantity must be at least 1")
	ErrDebtorChargeIncomplete = errors.New("debtor charge incomplete")
)

// ItemInput is an order line supplied at creation.
type ItemInput struct {
	ProductID string
	Name      string
	Quantity  int
	UnitPrice float64
}

// CreateOrderInput captures the fields accepted on order creation.
type CreateOrderInput struct {
	ProfileID int64
	DebtorID  *string
	Items     []ItemInput
}

// CompleteOrderInput finalizes a pending order. Method is required unless the
// order carries a debtor, in which case the total is charged to the ledger.
type CompleteOrderInput struct {
	ProfileID int64
	OrderID   string
	Method    PaymentMethod
}

// ListOrdersRequest filters the order listing.
type ListOrdersRequest struct {
	ProfileID int64
	Status    Status
	DebtorID  string
	Limit     int
	Offset    int
}
