package debtors

import "time"

type createDebtorRequest struct {
	Name        string     `json:"name" validate:"required,max=200"`
	Email       string     `json:"email" validate:"omitempty,email"`
	Phone       string     `json:"phone" validate:"omitempty,max=50"`
	Avatar      *string    `json:"avatar,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CreditLimit float64    `json:"credit_limit" validate:"gte=0"`
}

type updateDebtorRequest struct {
	Name        *string    `json:"name,omitempty" validate:"omitempty,max=200"`
	Email       *string    `json:"email,omitempty" validate:"omitempty,email"`
	Phone       *string    `json:"phone,omitempty" validate:"omitempty,max=50"`
	Avatar      *string    `json:"avatar,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CreditLimit *float64   `json:"credit_limit,omitempty" validate:"omitempty,gte=0"`
}

type chargeRequest struct {
	ProductID          string   `json:"product_id" validate:"required,uuid4"`
	Quantity           int      `json:"quantity" validate:"required,gte=1"`
	UnitPrice          float64  `json:"unit_price" validate:"gte=0"`
	TotalPrice         *float64 `json:"total_price,omitempty" validate:"omitempty,gte=0"`
	EnforceCreditLimit bool     `json:"enforce_credit_limit"`
	AllowOverLimit     bool     `json:"allow_over_limit"`
}

type settlementRequest struct {
	Amount        float64        `json:"payment_amount" validate:"required,gt=0"`
	PaymentMethod string         `json:"payment_method" validate:"required,oneof=cash gcash bank_transfer"`
	CustomerName  string         `json:"customer_name" validate:"omitempty,max=200"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

type updateChargeRequest struct {
	Quantity   *int     `json:"quantity,omitempty" validate:"omitempty,gte=1"`
	TotalPrice *float64 `json:"total_price,omitempty" validate:"omitempty,gte=0"`
}

type settlementResponse struct {
	SettlementResult
	Receipt Receipt `json:"receipt"`
}
