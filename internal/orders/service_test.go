package orders

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/sariverse/sariverse/internal/debtors"
	"github.com/sariverse/sariverse/internal/shared"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type memoryRepo struct {
	orders map[string]*Order
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{orders: make(map[string]*Order)}
}

func (r *memoryRepo) Create(ctx context.Context, input CreateOrderInput, total float64) (*Order, error) {
	o := &Order{
		ID:        uuid.NewString(),
		ProfileID: input.ProfileID,
		DebtorID:  input.DebtorID,
		Status:    StatusPending,
		Total:     total,
	}
	for i, item := range input.Items {
		o.Items = append(o.Items, OrderItem{
			ID:        int64(i + 1),
			OrderID:   o.ID,
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Subtotal:  item.UnitPrice * float64(item.Quantity),
		})
	}
	r.orders[o.ID] = o
	return o, nil
}

func (r *memoryRepo) Get(ctx context.Context, profileID int64, id string) (*Order, error) {
	o, ok := r.orders[id]
	if !ok || o.ProfileID != profileID {
		return nil, ErrOrderNotFound
	}
	copied := *o
	return &copied, nil
}

func (r *memoryRepo) List(ctx context.Context, req ListOrdersRequest) ([]Order, error) {
	out := make([]Order, 0)
	for _, o := range r.orders {
		if o.ProfileID != req.ProfileID {
			continue
		}
		if req.Status != "" && o.Status != req.Status {
			continue
		}
		out = append(out, *o)
	}
	return out, nil
}

func (r *memoryRepo) MarkCompleted(ctx context.Context, profileID int64, id string, method PaymentMethod) (*Order, error) {
	o, ok := r.orders[id]
	if !ok || o.ProfileID != profileID {
		return nil, ErrOrderNotFound
	}
	if o.Status != StatusPending {
		return nil, ErrOrderNotPending
	}
	o.Status = StatusCompleted
	o.PaymentMethod = method
	at := time.Now()
	o.CompletedAt = &at
	copied := *o
	return &copied, nil
}

func (r *memoryRepo) MarkCancelled(ctx context.Context, profileID int64, id string) (*Order, error) {
	o, ok := r.orders[id]
	if !ok || o.ProfileID != profileID {
		return nil, ErrOrderNotFound
	}
	if o.Status != StatusPending {
		return nil, ErrOrderNotPending
	}
	o.Status = StatusCancelled
	copied := *o
	return &copied, nil
}

// fakeCharger mirrors the debtors service contract, including the
// transaction-scoped idempotency keys: a key is burned only by a successful
// charge, and replaying one reports a conflict.
type fakeCharger struct {
	charges   []debtors.ChargeDebtorInput
	seenKeys  map[string]bool
	err       error
	failAfter int // fail once this many charges have been applied; 0 disables
}

func (c *fakeCharger) ChargeDebtor(ctx context.Context, input debtors.ChargeDebtorInput) (*debtors.ChargeResult, error) {
	if input.IdempotencyKey != "" && c.seenKeys[input.IdempotencyKey] {
		return nil, shared.ErrIdempotencyConflict
	}
	if c.err != nil {
		return nil, c.err
	}
	if c.failAfter > 0 && len(c.charges) >= c.failAfter {
		return nil, debtors.ErrConflict
	}
	if input.IdempotencyKey != "" {
		if c.seenKeys == nil {
			c.seenKeys = make(map[string]bool)
		}
		c.seenKeys[input.IdempotencyKey] = true
	}
	c.charges = append(c.charges, input)
	return &debtors.ChargeResult{}, nil
}

func TestCreateOrderComputesTotal(t *testing.T) {
	svc := NewService(newMemoryRepo(), &fakeCharger{}, discardLogger())
	ctx := context.Background()

	order, err := svc.Create(ctx, CreateOrderInput{
		ProfileID: 1,
		Items: []ItemInput{
			{ProductID: uuid.NewString(), Name: "Noodles", Quantity: 2, UnitPrice: 15.50},
			{ProductID: uuid.NewString(), Name: "Coffee", Quantity: 3, UnitPrice: 9},
		},
	})
	require.NoError(t, err)
	require.Equal(t, StatusPending, order.Status)
	require.InDelta(t, 58.0, order.Total, 0.0001)
	require.Len(t, order.Items, 2)
}

func TestCreateOrderValidation(t *testing.T) {
	svc := NewService(newMemoryRepo(), &fakeCharger{}, discardLogger())
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateOrderInput{ProfileID: 1})
	require.ErrorIs(t, err, ErrEmptyOrder)

	_, err = svc.Create(ctx, CreateOrderInput{
		ProfileID: 1,
		Items:     []ItemInput{{ProductID: uuid.NewString(), Name: "Bad", Quantity: 0, UnitPrice: 5}},
	})
	require.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestCompleteCashOrder(t *testing.T) {
	repo := newMemoryRepo()
	charger := &fakeCharger{}
	svc := NewService(repo, charger, discardLogger())
	ctx := context.Background()

	order, err := svc.Create(ctx, CreateOrderInput{
		ProfileID: 1,
		Items:     []ItemInput{{ProductID: uuid.NewString(), Name: "Tuna", Quantity: 1, UnitPrice: 34}},
	})
	require.NoError(t, err)

	completed, err := svc.Complete(ctx, CompleteOrderInput{ProfileID: 1, OrderID: order.ID, Method: MethodCash})
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, completed.Status)
	require.Equal(t, MethodCash, completed.PaymentMethod)
	require.NotNil(t, completed.CompletedAt)
	require.Empty(t, charger.charges)
}

func TestCompleteRequiresPaymentMethod(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, &fakeCharger{}, discardLogger())
	ctx := context.Background()

	order, err := svc.Create(ctx, CreateOrderInput{
		ProfileID: 1,
		Items:     []ItemInput{{ProductID: uuid.NewString(), Name: "Tuna", Quantity: 1, UnitPrice: 34}},
	})
	require.NoError(t, err)

	_, err = svc.Complete(ctx, CompleteOrderInput{ProfileID: 1, OrderID: order.ID})
	require.ErrorIs(t, err, ErrInvalidPaymentMethod)

	_, err = svc.Complete(ctx, CompleteOrderInput{ProfileID: 1, OrderID: order.ID, Method: "check"})
	require.ErrorIs(t, err, ErrInvalidPaymentMethod)
}

func TestCompleteCreditOrderChargesDebtor(t *testing.T) {
	repo := newMemoryRepo()
	charger := &fakeCharger{}
	svc := NewService(repo, charger, discardLogger())
	ctx := context.Background()

	debtorID := uuid.NewString()
	order, err := svc.Create(ctx, CreateOrderInput{
		ProfileID: 1,
		DebtorID:  &debtorID,
		Items: []ItemInput{
			{ProductID: uuid.NewString(), Name: "Noodles", Quantity: 2, UnitPrice: 15.50},
			{ProductID: uuid.NewString(), Name: "Coffee", Quantity: 1, UnitPrice: 9},
		},
	})
	require.NoError(t, err)

	completed, err := svc.Complete(ctx, CompleteOrderInput{ProfileID: 1, OrderID: order.ID})
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, completed.Status)
	require.Empty(t, completed.PaymentMethod)

	require.Len(t, charger.charges, 2)
	require.Equal(t, debtorID, charger.charges[0].DebtorID)
	require.Equal(t, 2, charger.charges[0].Quantity)
	require.InDelta(t, 15.50, charger.charges[0].UnitPrice, 0.0001)
	require.NotEmpty(t, charger.charges[0].IdempotencyKey)
	require.NotEqual(t, charger.charges[0].IdempotencyKey, charger.charges[1].IdempotencyKey)
}

func TestCompleteCreditOrderRetrySkipsChargedItems(t *testing.T) {
	repo := newMemoryRepo()
	charger := &fakeCharger{failAfter: 1}
	svc := NewService(repo, charger, discardLogger())
	ctx := context.Background()

	debtorID := uuid.NewString()
	order, err := svc.Create(ctx, CreateOrderInput{
		ProfileID: 1,
		DebtorID:  &debtorID,
		Items: []ItemInput{
			{ProductID: uuid.NewString(), Name: "Noodles", Quantity: 2, UnitPrice: 15.50},
			{ProductID: uuid.NewString(), Name: "Coffee", Quantity: 1, UnitPrice: 9},
		},
	})
	require.NoError(t, err)

	// The second item's charge fails; the order stays pending with one
	// charge applied.
	_, err = svc.Complete(ctx, CompleteOrderInput{ProfileID: 1, OrderID: order.ID})
	require.ErrorIs(t, err, ErrDebtorChargeIncomplete)
	require.Len(t, charger.charges, 1)

	after, err := svc.Get(ctx, 1, order.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPending, after.Status)

	// The retry only charges the remaining item: the first item's key is
	// already burned, so it is skipped rather than re-applied.
	charger.failAfter = 0
	completed, err := svc.Complete(ctx, CompleteOrderInput{ProfileID: 1, OrderID: order.ID})
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, completed.Status)

	require.Len(t, charger.charges, 2)
	require.Equal(t, charger.charges[0].ProductID, order.Items[0].ProductID)
	require.Equal(t, charger.charges[1].ProductID, order.Items[1].ProductID)
}

func TestCompleteCreditOrderChargeFailureLeavesPending(t *testing.T) {
	repo := newMemoryRepo()
	charger := &fakeCharger{err: debtors.ErrCreditLimitExceeded}
	svc := NewService(repo, charger, discardLogger())
	ctx := context.Background()

	debtorID := uuid.NewString()
	order, err := svc.Create(ctx, CreateOrderInput{
		ProfileID: 1,
		DebtorID:  &debtorID,
		Items:     []ItemInput{{ProductID: uuid.NewString(), Name: "Tuna", Quantity: 1, UnitPrice: 34}},
	})
	require.NoError(t, err)

	_, err = svc.Complete(ctx, CompleteOrderInput{ProfileID: 1, OrderID: order.ID})
	require.ErrorIs(t, err, ErrDebtorChargeIncomplete)

	after, err := svc.Get(ctx, 1, order.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPending, after.Status)
}

func TestCompleteTwiceRejected(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, &fakeCharger{}, discardLogger())
	ctx := context.Background()

	order, err := svc.Create(ctx, CreateOrderInput{
		ProfileID: 1,
		Items:     []ItemInput{{ProductID: uuid.NewString(), Name: "Tuna", Quantity: 1, UnitPrice: 34}},
	})
	require.NoError(t, err)

	_, err = svc.Complete(ctx, CompleteOrderInput{ProfileID: 1, OrderID: order.ID, Method: MethodGCash})
	require.NoError(t, err)

	_, err = svc.Complete(ctx, CompleteOrderInput{ProfileID: 1, OrderID: order.ID, Method: MethodGCash})
	require.ErrorIs(t, err, ErrOrderNotPending)
}

func TestCancelOrder(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, &fakeCharger{}, discardLogger())
	ctx := context.Background()

	order, err := svc.Create(ctx, CreateOrderInput{
		ProfileID: 1,
		Items:     []ItemInput{{ProductID: uuid.NewString(), Name: "Tuna", Quantity: 1, UnitPrice: 34}},
	})
	require.NoError(t, err)

	cancelled, err := svc.Cancel(ctx, 1, order.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, cancelled.Status)

	_, err = svc.Complete(ctx, CompleteOrderInput{ProfileID: 1, OrderID: order.ID, Method: MethodCash})
	require.ErrorIs(t, err, ErrOrderNotPending)
}
