package debtors

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/sariverse/sariverse/internal/shared"
)

// memoryRepo mirrors the atomicity contract of the SQL repository: balance
// checks and mutations happen under one lock, settlements append their
// transaction in the same critical section.
type memoryRepo struct {
	mu           sync.Mutex
	debtors      map[string]*Debtor
	charges      []ProductCharge
	transactions []Transaction
	idemKeys     map[string]bool
	nextID       int64

	failLedgerInsert bool
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		debtors:  make(map[string]*Debtor),
		idemKeys: make(map[string]bool),
	}
}

func (r *memoryRepo) addDebtor(profileID int64, balance, creditLimit float64) *Debtor {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := &Debtor{
		ID:          uuid.NewString(),
		ProfileID:   profileID,
		Name:        "Test Debtor",
		CreditLimit: creditLimit,
		Balance:     balance,
		IsSettled:   balance == 0,
		Status:      StatusActive,
	}
	r.debtors[d.ID] = d
	return d
}

func (r *memoryRepo) CreateDebtor(ctx context.Context, input CreateDebtorInput) (*Debtor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := &Debtor{
		ID:          uuid.NewString(),
		ProfileID:   input.ProfileID,
		Name:        input.Name,
		Email:       input.Email,
		Phone:       input.Phone,
		DueDate:     input.DueDate,
		CreditLimit: input.CreditLimit,
		IsSettled:   true,
		Status:      StatusActive,
	}
	r.debtors[d.ID] = d
	return d, nil
}

func (r *memoryRepo) find(profileID int64, id string) (*Debtor, error) {
	d, ok := r.debtors[id]
	if !ok || d.ProfileID != profileID || d.IsArchived {
		return nil, ErrDebtorNotFound
	}
	return d, nil
}

func (r *memoryRepo) GetDebtor(ctx context.Context, profileID int64, id string) (*Debtor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, err := r.find(profileID, id)
	if err != nil {
		return nil, err
	}
	copied := *d
	return &copied, nil
}

func (r *memoryRepo) ListDebtors(ctx context.Context, profileID int64, req ListDebtorsRequest) ([]Debtor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Debtor, 0)
	for _, d := range r.debtors {
		if d.ProfileID != profileID || d.IsArchived != req.Archived {
			continue
		}
		if req.Settled != nil && d.IsSettled != *req.Settled {
			continue
		}
		out = append(out, *d)
	}
	return out, nil
}

func (r *memoryRepo) UpdateDebtor(ctx context.Context, profileID int64, id string, input UpdateDebtorInput) (*Debtor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, err := r.find(profileID, id)
	if err != nil {
		return nil, err
	}
	if input.Name != nil {
		d.Name = *input.Name
	}
	if input.DueDate != nil {
		d.DueDate = *input.DueDate
	}
	if input.CreditLimit != nil {
		d.CreditLimit = *input.CreditLimit
	}
	copied := *d
	return &copied, nil
}

func (r *memoryRepo) ArchiveDebtor(ctx context.Context, profileID int64, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, err := r.find(profileID, id)
	if err != nil {
		return err
	}
	if d.Balance != 0 {
		return ErrDebtorHasBalance
	}
	d.IsArchived = true
	return nil
}

func (r *memoryRepo) ApplyCharge(ctx context.Context, input ChargeDebtorInput, totalPrice float64) (*ChargeResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if input.IdempotencyKey != "" && r.idemKeys[input.IdempotencyKey] {
		return nil, shared.ErrIdempotencyConflict
	}
	d, err := r.find(input.ProfileID, input.DebtorID)
	if err != nil {
		return nil, err
	}
	if input.EnforceCreditLimit && !input.AllowOverLimit && d.Balance+totalPrice > d.CreditLimit {
		return nil, ErrCreditLimitExceeded
	}
	if r.failLedgerInsert {
		return nil, ErrLedgerRecordFailed
	}
	if input.IdempotencyKey != "" {
		r.idemKeys[input.IdempotencyKey] = true
	}
	d.Balance += totalPrice
	d.IsSettled = d.Balance == 0
	r.nextID++
	charge := ProductCharge{
		ID:         r.nextID,
		DebtorID:   input.DebtorID,
		ProductID:  input.ProductID,
		Quantity:   input.Quantity,
		TotalPrice: totalPrice,
		CreatedAt:  time.Now(),
	}
	r.charges = append(r.charges, charge)
	return &ChargeResult{Charge: charge, NewBalance: d.Balance}, nil
}

func (r *memoryRepo) ApplySettlement(ctx context.Context, input SettlementInput) (*SettlementResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if input.IdempotencyKey != "" {
		if r.idemKeys[input.IdempotencyKey] {
			return nil, shared.ErrIdempotencyConflict
		}
		r.idemKeys[input.IdempotencyKey] = true
	}
	d, err := r.find(input.ProfileID, input.DebtorID)
	if err != nil {
		return nil, err
	}
	if input.Amount > d.Balance {
		return nil, ErrAmountExceedsBalance
	}
	if r.failLedgerInsert {
		// Balance stays untouched, mirroring the SQL rollback.
		return nil, ErrLedgerRecordFailed
	}
	d.Balance -= input.Amount
	d.IsSettled = d.Balance == 0
	r.nextID++
	r.transactions = append(r.transactions, Transaction{
		ID:               r.nextID,
		DebtorID:         input.DebtorID,
		ProfileID:        input.ProfileID,
		Amount:           input.Amount,
		Method:           input.Method,
		CustomerName:     input.CustomerName,
		RemainingBalance: d.Balance,
		IsSettled:        d.IsSettled,
		CreatedAt:        time.Now(),
	})
	return &SettlementResult{
		Success:          true,
		TransactionID:    r.nextID,
		Total:            input.Amount,
		RemainingBalance: d.Balance,
		IsSettled:        d.IsSettled,
	}, nil
}

func (r *memoryRepo) UpdateCharge(ctx context.Context, profileID int64, chargeID int64, quantity *int, totalPrice *float64) (*ProductCharge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.charges {
		if r.charges[i].ID != chargeID {
			continue
		}
		d, err := r.find(profileID, r.charges[i].DebtorID)
		if err != nil {
			return nil, err
		}
		if quantity != nil {
			r.charges[i].Quantity = *quantity
		}
		if totalPrice != nil {
			d.Balance += *totalPrice - r.charges[i].TotalPrice
			r.charges[i].TotalPrice = *totalPrice
		}
		copied := r.charges[i]
		return &copied, nil
	}
	return nil, ErrChargeNotFound
}

func (r *memoryRepo) RemoveCharge(ctx context.Context, profileID int64, chargeID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.charges {
		if r.charges[i].ID != chargeID {
			continue
		}
		d, err := r.find(profileID, r.charges[i].DebtorID)
		if err != nil {
			return err
		}
		if d.Balance < r.charges[i].TotalPrice {
			return ErrAmountExceedsBalance
		}
		d.Balance -= r.charges[i].TotalPrice
		d.IsSettled = d.Balance == 0
		r.charges = append(r.charges[:i], r.charges[i+1:]...)
		return nil
	}
	return ErrChargeNotFound
}

func (r *memoryRepo) ListCharges(ctx context.Context, profileID int64, debtorID string) ([]ProductCharge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ProductCharge, 0)
	for _, c := range r.charges {
		if c.DebtorID == debtorID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *memoryRepo) ListTransactions(ctx context.Context, profileID int64, debtorID string) ([]Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Transaction, 0)
	for _, t := range r.transactions {
		if t.DebtorID == debtorID && t.ProfileID == profileID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *memoryRepo) ListAllTransactions(ctx context.Context, profileID int64) ([]Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Transaction, 0)
	for _, t := range r.transactions {
		if t.ProfileID == profileID {
			out = append(out, t)
		}
	}
	return out, nil
}

type countingInvalidator struct {
	mu    sync.Mutex
	bumps int
}

func (c *countingInvalidator) Bump(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bumps++
	return nil
}

func TestChargeDebtorIncreasesBalance(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	d := repo.addDebtor(1, 500, 0)

	result, err := svc.ChargeDebtor(ctx, ChargeDebtorInput{
		DebtorID:  d.ID,
		ProfileID: 1,
		ProductID: uuid.NewString(),
		Quantity:  3,
		UnitPrice: 50,
	})
	require.NoError(t, err)
	require.InDelta(t, 650.0, result.NewBalance, 0.0001)
	require.InDelta(t, 150.0, result.Charge.TotalPrice, 0.0001)

	after, err := svc.GetDebtor(ctx, 1, d.ID)
	require.NoError(t, err)
	require.InDelta(t, 650.0, after.Balance, 0.0001)
	require.False(t, after.IsSettled)
}

func TestChargeDebtorTotalPriceOverride(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	d := repo.addDebtor(1, 0, 0)

	override := 99.0
	result, err := svc.ChargeDebtor(ctx, ChargeDebtorInput{
		DebtorID:   d.ID,
		ProfileID:  1,
		ProductID:  uuid.NewString(),
		Quantity:   2,
		UnitPrice:  50,
		TotalPrice: &override,
	})
	require.NoError(t, err)
	require.InDelta(t, 99.0, result.NewBalance, 0.0001)
}

func TestChargeDebtorZeroTotalAllowed(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	d := repo.addDebtor(1, 0, 0)

	result, err := svc.ChargeDebtor(ctx, ChargeDebtorInput{
		DebtorID:  d.ID,
		ProfileID: 1,
		ProductID: uuid.NewString(),
		Quantity:  1,
		UnitPrice: 0,
	})
	require.NoError(t, err)
	require.InDelta(t, 0.0, result.NewBalance, 0.0001)

	charges, err := svc.ListCharges(ctx, 1, d.ID)
	require.NoError(t, err)
	require.Len(t, charges, 1)

	// A give-away adds nothing to the balance, so a settled account stays
	// settled.
	after, err := svc.GetDebtor(ctx, 1, d.ID)
	require.NoError(t, err)
	require.True(t, after.IsSettled)
}

func TestChargeIdempotencyKeyReplay(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	d := repo.addDebtor(1, 0, 0)

	input := ChargeDebtorInput{
		DebtorID:       d.ID,
		ProfileID:      1,
		ProductID:      uuid.NewString(),
		Quantity:       1,
		UnitPrice:      40,
		IdempotencyKey: "charge-once",
	}
	_, err := svc.ChargeDebtor(ctx, input)
	require.NoError(t, err)

	_, err = svc.ChargeDebtor(ctx, input)
	require.ErrorIs(t, err, shared.ErrIdempotencyConflict)

	after, err := svc.GetDebtor(ctx, 1, d.ID)
	require.NoError(t, err)
	require.InDelta(t, 40.0, after.Balance, 0.0001)

	charges, err := svc.ListCharges(ctx, 1, d.ID)
	require.NoError(t, err)
	require.Len(t, charges, 1)
}

func TestChargeDebtorValidation(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	d := repo.addDebtor(1, 0, 0)

	_, err := svc.ChargeDebtor(ctx, ChargeDebtorInput{DebtorID: d.ID, ProfileID: 1, Quantity: 0, UnitPrice: 10})
	require.ErrorIs(t, err, ErrInvalidQuantity)

	negative := -5.0
	_, err = svc.ChargeDebtor(ctx, ChargeDebtorInput{DebtorID: d.ID, ProfileID: 1, Quantity: 1, TotalPrice: &negative})
	require.ErrorIs(t, err, ErrInvalidPrice)

	_, err = svc.ChargeDebtor(ctx, ChargeDebtorInput{DebtorID: uuid.NewString(), ProfileID: 1, Quantity: 1, UnitPrice: 10})
	require.ErrorIs(t, err, ErrDebtorNotFound)
}

func TestChargeDebtorCreditLimit(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	d := repo.addDebtor(1, 80, 100)

	_, err := svc.ChargeDebtor(ctx, ChargeDebtorInput{
		DebtorID:           d.ID,
		ProfileID:          1,
		ProductID:          uuid.NewString(),
		Quantity:           1,
		UnitPrice:          50,
		EnforceCreditLimit: true,
	})
	require.ErrorIs(t, err, ErrCreditLimitExceeded)

	after, err := svc.GetDebtor(ctx, 1, d.ID)
	require.NoError(t, err)
	require.InDelta(t, 80.0, after.Balance, 0.0001)

	_, err = svc.ChargeDebtor(ctx, ChargeDebtorInput{
		DebtorID:           d.ID,
		ProfileID:          1,
		ProductID:          uuid.NewString(),
		Quantity:           1,
		UnitPrice:          50,
		EnforceCreditLimit: true,
		AllowOverLimit:     true,
	})
	require.NoError(t, err)
}

func TestSettleFullPayment(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	d := repo.addDebtor(1, 650, 0)

	result, err := svc.SettleDebtorPayment(ctx, SettlementInput{
		DebtorID:     d.ID,
		ProfileID:    1,
		Amount:       650,
		Method:       PaymentCash,
		CustomerName: "Mang Tomas",
	})
	require.NoError(t, err)
	require.True(t, result.Success)
	require.True(t, result.IsSettled)
	require.InDelta(t, 0.0, result.RemainingBalance, 0.0001)

	after, err := svc.GetDebtor(ctx, 1, d.ID)
	require.NoError(t, err)
	require.True(t, after.IsSettled)
	require.Equal(t, StatusSettled, after.Status)

	txns, err := svc.ListTransactions(ctx, 1, d.ID)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	require.InDelta(t, 650.0, txns[0].Amount, 0.0001)
	require.InDelta(t, 0.0, txns[0].RemainingBalance, 0.0001)
	require.True(t, txns[0].IsSettled)
}

func TestSettlePartialPayment(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	d := repo.addDebtor(1, 300, 0)

	result, err := svc.SettleDebtorPayment(ctx, SettlementInput{
		DebtorID:  d.ID,
		ProfileID: 1,
		Amount:    100,
		Method:    PaymentGCash,
	})
	require.NoError(t, err)
	require.False(t, result.IsSettled)
	require.InDelta(t, 200.0, result.RemainingBalance, 0.0001)
}

func TestSettleOverpaymentRejected(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	d := repo.addDebtor(1, 300, 0)

	_, err := svc.SettleDebtorPayment(ctx, SettlementInput{
		DebtorID:  d.ID,
		ProfileID: 1,
		Amount:    400,
		Method:    PaymentCash,
	})
	require.ErrorIs(t, err, ErrAmountExceedsBalance)

	// Rejection must leave no trace: balance intact, no transaction appended.
	after, err := svc.GetDebtor(ctx, 1, d.ID)
	require.NoError(t, err)
	require.InDelta(t, 300.0, after.Balance, 0.0001)

	txns, err := svc.ListTransactions(ctx, 1, d.ID)
	require.NoError(t, err)
	require.Empty(t, txns)
}

func TestSettleValidation(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	d := repo.addDebtor(1, 100, 0)

	_, err := svc.SettleDebtorPayment(ctx, SettlementInput{DebtorID: d.ID, ProfileID: 1, Amount: 0, Method: PaymentCash})
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.SettleDebtorPayment(ctx, SettlementInput{DebtorID: d.ID, ProfileID: 1, Amount: -50, Method: PaymentCash})
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.SettleDebtorPayment(ctx, SettlementInput{DebtorID: d.ID, ProfileID: 1, Amount: 50, Method: "check"})
	require.ErrorIs(t, err, ErrInvalidPaymentMethod)

	_, err = svc.SettleDebtorPayment(ctx, SettlementInput{DebtorID: uuid.NewString(), ProfileID: 1, Amount: 50, Method: PaymentCash})
	require.ErrorIs(t, err, ErrDebtorNotFound)
}

func TestSettleIdempotencyKeyReplay(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	d := repo.addDebtor(1, 200, 0)

	input := SettlementInput{
		DebtorID:       d.ID,
		ProfileID:      1,
		Amount:         50,
		Method:         PaymentCash,
		IdempotencyKey: "settle-once",
	}
	_, err := svc.SettleDebtorPayment(ctx, input)
	require.NoError(t, err)

	_, err = svc.SettleDebtorPayment(ctx, input)
	require.ErrorIs(t, err, shared.ErrIdempotencyConflict)

	after, err := svc.GetDebtor(ctx, 1, d.ID)
	require.NoError(t, err)
	require.InDelta(t, 150.0, after.Balance, 0.0001)
}

func TestConcurrentSettlementsOnlyOneWins(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	d := repo.addDebtor(1, 200, 0)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.SettleDebtorPayment(ctx, SettlementInput{
				DebtorID:  d.ID,
				ProfileID: 1,
				Amount:    150,
				Method:    PaymentCash,
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			require.ErrorIs(t, err, ErrAmountExceedsBalance)
		}
	}
	require.Equal(t, 1, succeeded)

	after, err := svc.GetDebtor(ctx, 1, d.ID)
	require.NoError(t, err)
	require.InDelta(t, 50.0, after.Balance, 0.0001)
}

func TestLedgerReconciliation(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	d := repo.addDebtor(1, 0, 0)

	for _, amount := range []float64{120, 75.50, 40} {
		_, err := svc.ChargeDebtor(ctx, ChargeDebtorInput{
			DebtorID:  d.ID,
			ProfileID: 1,
			ProductID: uuid.NewString(),
			Quantity:  1,
			UnitPrice: amount,
		})
		require.NoError(t, err)
	}
	for _, amount := range []float64{100, 35.50} {
		_, err := svc.SettleDebtorPayment(ctx, SettlementInput{
			DebtorID:  d.ID,
			ProfileID: 1,
			Amount:    amount,
			Method:    PaymentBankTransfer,
		})
		require.NoError(t, err)
	}

	charges, err := svc.ListCharges(ctx, 1, d.ID)
	require.NoError(t, err)
	txns, err := svc.ListTransactions(ctx, 1, d.ID)
	require.NoError(t, err)

	var charged, paid float64
	for _, c := range charges {
		charged += c.TotalPrice
	}
	for _, tx := range txns {
		paid += tx.Amount
	}

	after, err := svc.GetDebtor(ctx, 1, d.ID)
	require.NoError(t, err)
	require.InDelta(t, charged-paid, after.Balance, 0.0001)
	require.InDelta(t, 100.0, after.Balance, 0.0001)
}

func TestSettleLedgerRecordFailureSurfaces(t *testing.T) {
	repo := newMemoryRepo()
	repo.failLedgerInsert = true
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	d := repo.addDebtor(1, 100, 0)

	_, err := svc.SettleDebtorPayment(ctx, SettlementInput{
		DebtorID:  d.ID,
		ProfileID: 1,
		Amount:    50,
		Method:    PaymentCash,
	})
	require.ErrorIs(t, err, ErrLedgerRecordFailed)

	after, err := svc.GetDebtor(ctx, 1, d.ID)
	require.NoError(t, err)
	require.InDelta(t, 100.0, after.Balance, 0.0001)
}

func TestArchiveRequiresZeroBalance(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	owing := repo.addDebtor(1, 25, 0)
	require.ErrorIs(t, svc.ArchiveDebtor(ctx, 1, owing.ID), ErrDebtorHasBalance)

	settled := repo.addDebtor(1, 0, 0)
	require.NoError(t, svc.ArchiveDebtor(ctx, 1, settled.ID))

	_, err := svc.GetDebtor(ctx, 1, settled.ID)
	require.ErrorIs(t, err, ErrDebtorNotFound)
}

func TestMutationsBumpCache(t *testing.T) {
	repo := newMemoryRepo()
	inv := &countingInvalidator{}
	svc := NewService(repo, inv, nil)
	ctx := context.Background()

	d := repo.addDebtor(1, 0, 0)

	_, err := svc.ChargeDebtor(ctx, ChargeDebtorInput{
		DebtorID:  d.ID,
		ProfileID: 1,
		ProductID: uuid.NewString(),
		Quantity:  1,
		UnitPrice: 30,
	})
	require.NoError(t, err)

	_, err = svc.SettleDebtorPayment(ctx, SettlementInput{
		DebtorID:  d.ID,
		ProfileID: 1,
		Amount:    30,
		Method:    PaymentCash,
	})
	require.NoError(t, err)

	require.Equal(t, 2, inv.bumps)

	// Failed mutations must not mark caches stale.
	_, err = svc.SettleDebtorPayment(ctx, SettlementInput{
		DebtorID:  d.ID,
		ProfileID: 1,
		Amount:    999,
		Method:    PaymentCash,
	})
	require.ErrorIs(t, err, ErrAmountExceedsBalance)
	require.Equal(t, 2, inv.bumps)
}

func TestUpdateChargeResyncsBalance(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	d := repo.addDebtor(1, 0, 0)

	result, err := svc.ChargeDebtor(ctx, ChargeDebtorInput{
		DebtorID:  d.ID,
		ProfileID: 1,
		ProductID: uuid.NewString(),
		Quantity:  2,
		UnitPrice: 25,
	})
	require.NoError(t, err)
	require.InDelta(t, 50.0, result.NewBalance, 0.0001)

	newTotal := 80.0
	_, err = svc.UpdateCharge(ctx, 1, result.Charge.ID, nil, &newTotal)
	require.NoError(t, err)

	after, err := svc.GetDebtor(ctx, 1, d.ID)
	require.NoError(t, err)
	require.InDelta(t, 80.0, after.Balance, 0.0001)

	require.NoError(t, svc.RemoveCharge(ctx, 1, result.Charge.ID))
	after, err = svc.GetDebtor(ctx, 1, d.ID)
	require.NoError(t, err)
	require.InDelta(t, 0.0, after.Balance, 0.0001)
	require.True(t, after.IsSettled)
}

func TestRemoveChargePartiallyPaidRejected(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	d := repo.addDebtor(1, 0, 0)

	result, err := svc.ChargeDebtor(ctx, ChargeDebtorInput{
		DebtorID:  d.ID,
		ProfileID: 1,
		ProductID: uuid.NewString(),
		Quantity:  1,
		UnitPrice: 50,
	})
	require.NoError(t, err)

	_, err = svc.SettleDebtorPayment(ctx, SettlementInput{
		DebtorID:  d.ID,
		ProfileID: 1,
		Amount:    30,
		Method:    PaymentCash,
	})
	require.NoError(t, err)

	// A payment already consumed part of the charge, so removing it would
	// desync the balance from sum(charges) - sum(payments).
	err = svc.RemoveCharge(ctx, 1, result.Charge.ID)
	require.ErrorIs(t, err, ErrAmountExceedsBalance)

	after, err := svc.GetDebtor(ctx, 1, d.ID)
	require.NoError(t, err)
	require.InDelta(t, 20.0, after.Balance, 0.0001)

	charges, err := svc.ListCharges(ctx, 1, d.ID)
	require.NoError(t, err)
	txns, err := svc.ListTransactions(ctx, 1, d.ID)
	require.NoError(t, err)

	var charged, paid float64
	for _, c := range charges {
		charged += c.TotalPrice
	}
	for _, tx := range txns {
		paid += tx.Amount
	}
	require.InDelta(t, charged-paid, after.Balance, 0.0001)
}
