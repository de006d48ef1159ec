package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sariverse/sariverse/internal/debtors"
	"github.com/sariverse/sariverse/internal/shared"
)

// RepositoryPort is the persistence contract the service depends on.
type RepositoryPort interface {
	Create(ctx context.Context, input CreateOrderInput, total float64) (*Order, error)
	Get(ctx context.Context, profileID int64, id string) (*Order, error)
	List(ctx context.Context, req ListOrdersRequest) ([]Order, error)
	MarkCompleted(ctx context.Context, profileID int64, id string, method PaymentMethod) (*Order, error)
	MarkCancelled(ctx context.Context, profileID int64, id string) (*Order, error)
}

// DebtorCharger applies credit charges. All debtor balance writes route
// through the debtors service.
type DebtorCharger interface {
	ChargeDebtor(ctx context.Context, input debtors.ChargeDebtorInput) (*debtors.ChargeResult, error)
}

type Service struct {
	repo    RepositoryPort
	charger DebtorCharger
	logger  *slog.Logger
}

func NewService(repo RepositoryPort, charger DebtorCharger, logger *slog.Logger) *Service {
	return &Service{repo: repo, charger: charger, logger: logger}
}

func (s *Service) Create(ctx context.Context, input CreateOrderInput) (*Order, error) {
	if len(input.Items) == 0 {
		return nil, ErrEmptyOrder
	}
	var total float64
	for _, item := range input.Items {
		if item.Quantity < 1 {
			return nil, ErrInvalidQuantity
		}
		total += item.UnitPrice * float64(item.Quantity)
	}
	return s.repo.Create(ctx, input, total)
}

func (s *Service) Get(ctx context.Context, profileID int64, id string) (*Order, error) {
	return s.repo.Get(ctx, profileID, id)
}

func (s *Service) List(ctx context.Context, req ListOrdersRequest) ([]Order, error) {
	if req.Limit <= 0 || req.Limit > 200 {
		req.Limit = 50
	}
	return s.repo.List(ctx, req)
}

// Complete finalizes a pending order. Orders attached to a debtor are charged
// line by line to the debtor ledger before the status flips; each charge is
// atomic on its own, and a failure leaves the order pending so the caller can
// retry. Orders without a debtor require a valid payment method.
func (s *Service) Complete(ctx context.Context, input CompleteOrderInput) (*Order, error) {
	order, err := s.repo.Get(ctx, input.ProfileID, input.OrderID)
	if err != nil {
		return nil, err
	}
	if order.Status != StatusPending {
		return nil, ErrOrderNotPending
	}

	if order.DebtorID != nil {
		for _, item := range order.Items {
			// The key is deterministic per line item, so a retry after a
			// partial failure skips items already charged.
			_, err := s.charger.ChargeDebtor(ctx, debtors.ChargeDebtorInput{
				DebtorID:       *order.DebtorID,
				ProfileID:      input.ProfileID,
				ProductID:      item.ProductID,
				Quantity:       item.Quantity,
				UnitPrice:      item.UnitPrice,
				IdempotencyKey: orderItemChargeKey(order.ID, item.ID),
			})
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				continue
			}
			if err != nil {
				s.logger.Error("order debtor charge failed",
					slog.String("order_id", order.ID),
					slog.String("debtor_id", *order.DebtorID),
					slog.String("product_id", item.ProductID),
					slog.Any("error", err),
				)
				return nil, fmt.Errorf("%w: %v", ErrDebtorChargeIncomplete, err)
			}
		}
		// Credit orders settle later through the debtor ledger.
		input.Method = ""
	} else if !input.Method.Valid() {
		return nil, ErrInvalidPaymentMethod
	}

	completed, err := s.repo.MarkCompleted(ctx, input.ProfileID, input.OrderID, input.Method)
	if err != nil {
		return nil, err
	}
	s.logger.Info("order completed",
		slog.String("order_id", completed.ID),
		slog.Float64("total", completed.Total),
		slog.Bool("on_credit", completed.DebtorID != nil),
	)
	return completed, nil
}

func orderItemChargeKey(orderID string, itemID int64) string {
	return fmt.Sprintf("orders.complete:%s:%d", orderID, itemID)
}

func (s *Service) Cancel(ctx context.Context, profileID int64, id string) (*Order, error) {
	return s.repo.MarkCancelled(ctx, profileID, id)
}
