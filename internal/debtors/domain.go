package debtors

import (
	"errors"
	"time"
)

// PaymentMethod enumerates accepted settlement channels.
type PaymentMethod string

const (
	PaymentCash         PaymentMethod = "cash"
	PaymentGCash        PaymentMethod = "gcash"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
)

// Valid reports whether the method is one of the accepted channels.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentGCash, PaymentBankTransfer:
		return true
	}
	return false
}

// Debtor is a credit account owned by exactly one store profile. Balance and
// IsSettled are authoritative; Status is a derived display label.
type Debtor struct {
	ID          string    `json:"id"`
	ProfileID   int64     `json:"profile_id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	Avatar      *string   `json:"avatar,omitempty"`
	UniqueCode  string    `json:"unique_code"`
	DueDate     time.Time `json:"due_date"`
	Status      string    `json:"status"`
	CreditLimit float64   `json:"credit_limit"`
	Balance     float64   `json:"balance"`
	IsSettled   bool      `json:"is_settled"`
	IsArchived  bool      `json:"is_archived"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProductCharge is a purchased-product line item applied to a debtor's
// balance. TotalPrice equals the amount added to the balance at creation.
type ProductCharge struct {
	ID          int64     `json:"id"`
	DebtorID    string    `json:"debtor_id"`
	ProductID   string    `json:"product_id"`
	ProductName string    `json:"product_name,omitempty"`
	Quantity    int       `json:"quantity"`
	TotalPrice  float64   `json:"total_price"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Transaction is an append-only payment record. RemainingBalance captures the
// debtor's balance immediately after the payment was applied.
type Transaction struct {
	ID               int64          `json:"id"`
	DebtorID         string         `json:"debtor_id"`
	ProfileID        int64          `json:"profile_id"`
	Amount           float64        `json:"amount"`
	Method           PaymentMethod  `json:"payment_method"`
	CustomerName     string         `json:"customer_name"`
	RemainingBalance float64        `json:"remaining_balance"`
	IsSettled        bool           `json:"is_settled"`
	Metadata         map[string]any `json:"metadata,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
}

// Typed failures. Validation and not-found errors reject before any mutation;
// ErrConflict is retryable; ErrLedgerRecordFailed is a reconciliation
// emergency and must never be swallowed.
var (
	ErrDebtorNotFound       = errors.New("debtors: debtor not found")
	ErrInvalidAmount        = errors.New("debtors: payment amount must be greater than zero")
	ErrAmountExceedsBalance = errors.New("debtors: payment amount exceeds outstanding balance")
	ErrInvalidQuantity      = errors.New("debtors: quantity must be at least 1")
	ErrInvalidPrice         = errors.New("debtors: total price must not be negative")
	ErrInvalidPaymentMethod = errors.New("debtors: unsupported payment method")
	ErrCreditLimitExceeded  = errors.New("debtors: charge would exceed credit limit")
	ErrConflict             = errors.New("debtors: concurrent update detected, retry")
	ErrLedgerRecordFailed   = errors.New("debtors: ledger record insert failed")
	ErrDebtorHasBalance     = errors.New("debtors: debtor still has an outstanding balance")
	ErrChargeNotFound       = errors.New("debtors: charge not found")
)

// ChargeDebtorInput feeds ChargeDebtor. TotalPrice overrides the computed
// UnitPrice*Quantity when set; a zero total still creates a charge record.
type ChargeDebtorInput struct {
	DebtorID           string
	ProfileID          int64
	ProductID          string
	Quantity           int
	UnitPrice          float64
	TotalPrice         *float64
	EnforceCreditLimit bool
	AllowOverLimit     bool
	// IdempotencyKey, when set, is reserved in the same transaction as the
	// balance increment so a retried charge cannot double-apply.
	IdempotencyKey string
}

// ChargeResult is returned by ChargeDebtor.
type ChargeResult struct {
	Charge     ProductCharge `json:"charge"`
	NewBalance float64       `json:"new_balance"`
}

// SettlementInput feeds SettleDebtorPayment.
type SettlementInput struct {
	DebtorID       string
	ProfileID      int64
	Amount         float64
	Method         PaymentMethod
	CustomerName   string
	IdempotencyKey string
	Metadata       map[string]any
}

// SettlementResult is returned by SettleDebtorPayment.
type SettlementResult struct {
	Success          bool    `json:"success"`
	TransactionID    int64   `json:"transaction_id"`
	Total            float64 `json:"total"`
	RemainingBalance float64 `json:"remaining_balance"`
	IsSettled        bool    `json:"is_settled"`
}

// CreateDebtorInput feeds CreateDebtor. Balance always starts at zero.
type CreateDebtorInput struct {
	ProfileID   int64
	Name        string
	Email       string
	Phone       string
	Avatar      *string
	DueDate     time.Time
	CreditLimit float64
}

// UpdateDebtorInput carries descriptive-field updates. Nil means unchanged;
// Balance and IsSettled are never updated through this path.
type UpdateDebtorInput struct {
	Name        *string
	Email       *string
	Phone       *string
	Avatar      *string
	DueDate     *time.Time
	CreditLimit *float64
}

// ListDebtorsRequest filters debtor listings.
type ListDebtorsRequest struct {
	Settled  *bool
	Archived bool
	Search   string
	Limit    int
	Offset   int
}
