package debtors

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
)

// now is swapped in tests exercising the due-date status labels.
var now = time.Now

// RepositoryPort defines data access for the debtor ledger. ApplyCharge and
// ApplySettlement are the only balance writers and must be atomic.
type RepositoryPort interface {
	CreateDebtor(ctx context.Context, input CreateDebtorInput) (*Debtor, error)
	GetDebtor(ctx context.Context, profileID int64, id string) (*Debtor, error)
	ListDebtors(ctx context.Context, profileID int64, req ListDebtorsRequest) ([]Debtor, error)
	UpdateDebtor(ctx context.Context, profileID int64, id string, input UpdateDebtorInput) (*Debtor, error)
	ArchiveDebtor(ctx context.Context, profileID int64, id string) error

	ApplyCharge(ctx context.Context, input ChargeDebtorInput, totalPrice float64) (*ChargeResult, error)
	ApplySettlement(ctx context.Context, input SettlementInput) (*SettlementResult, error)
	UpdateCharge(ctx context.Context, profileID int64, chargeID int64, quantity *int, totalPrice *float64) (*ProductCharge, error)
	RemoveCharge(ctx context.Context, profileID int64, chargeID int64) error

	ListCharges(ctx context.Context, profileID int64, debtorID string) ([]ProductCharge, error)
	ListTransactions(ctx context.Context, profileID int64, debtorID string) ([]Transaction, error)
	ListAllTransactions(ctx context.Context, profileID int64) ([]Transaction, error)
}

// Invalidator is notified after successful mutations so cached collections
// (debtor lists, charge lists, transaction lists) are treated as stale.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// Service holds the debtor ledger business rules.
type Service struct {
	repo   RepositoryPort
	cache  Invalidator
	logger *slog.Logger
}

// NewService builds a Service instance. cache may be nil.
func NewService(repo RepositoryPort, cache Invalidator, logger *slog.Logger) *Service {
	return &Service{repo: repo, cache: cache, logger: logger}
}

// CreateDebtor opens a credit account with a zero starting balance.
func (s *Service) CreateDebtor(ctx context.Context, input CreateDebtorInput) (*Debtor, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, errors.New("debtors: name required")
	}
	if input.CreditLimit < 0 {
		return nil, errors.New("debtors: credit limit must not be negative")
	}
	d, err := s.repo.CreateDebtor(ctx, input)
	if err != nil {
		return nil, err
	}
	s.bump(ctx)
	return d, nil
}

// GetDebtor returns a single account with its status label recomputed.
func (s *Service) GetDebtor(ctx context.Context, profileID int64, id string) (*Debtor, error) {
	d, err := s.repo.GetDebtor(ctx, profileID, id)
	if err != nil {
		return nil, err
	}
	d.Status = DeriveStatus(d, now())
	return d, nil
}

// ListDebtors returns accounts with status labels recomputed.
func (s *Service) ListDebtors(ctx context.Context, profileID int64, req ListDebtorsRequest) ([]Debtor, error) {
	list, err := s.repo.ListDebtors(ctx, profileID, req)
	if err != nil {
		return nil, err
	}
	at := now()
	for i := range list {
		list[i].Status = DeriveStatus(&list[i], at)
	}
	return list, nil
}

// UpdateDebtor applies descriptive-field changes.
func (s *Service) UpdateDebtor(ctx context.Context, profileID int64, id string, input UpdateDebtorInput) (*Debtor, error) {
	if input.CreditLimit != nil && *input.CreditLimit < 0 {
		return nil, errors.New("debtors: credit limit must not be negative")
	}
	d, err := s.repo.UpdateDebtor(ctx, profileID, id, input)
	if err != nil {
		return nil, err
	}
	s.bump(ctx)
	return d, nil
}

// ArchiveDebtor soft-deletes a settled account.
func (s *Service) ArchiveDebtor(ctx context.Context, profileID int64, id string) error {
	if err := s.repo.ArchiveDebtor(ctx, profileID, id); err != nil {
		return err
	}
	s.bump(ctx)
	return nil
}

// ChargeDebtor records a product purchase and increases the balance by the
// charge total. A zero total is allowed and still creates an audit record.
func (s *Service) ChargeDebtor(ctx context.Context, input ChargeDebtorInput) (*ChargeResult, error) {
	if input.DebtorID == "" {
		return nil, ErrDebtorNotFound
	}
	if input.Quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	total := input.UnitPrice * float64(input.Quantity)
	if input.TotalPrice != nil {
		total = *input.TotalPrice
	}
	if total < 0 {
		return nil, ErrInvalidPrice
	}

	result, err := s.repo.ApplyCharge(ctx, input, total)
	if err != nil {
		return nil, err
	}
	s.bump(ctx)
	return result, nil
}

// SettleDebtorPayment applies a full or partial payment against the balance.
// Overpayment is rejected, never clamped or credited.
func (s *Service) SettleDebtorPayment(ctx context.Context, input SettlementInput) (*SettlementResult, error) {
	if input.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if !input.Method.Valid() {
		return nil, ErrInvalidPaymentMethod
	}
	if input.DebtorID == "" {
		return nil, ErrDebtorNotFound
	}

	result, err := s.repo.ApplySettlement(ctx, input)
	if err != nil {
		if errors.Is(err, ErrLedgerRecordFailed) && s.logger != nil {
			s.logger.Error("settlement ledger insert failed, flag for reconciliation",
				slog.String("debtor_id", input.DebtorID),
				slog.Float64("amount", input.Amount),
				slog.Any("error", err))
		}
		return nil, err
	}
	s.bump(ctx)
	return result, nil
}

// UpdateCharge corrects a charge record, keeping the balance reconciled.
func (s *Service) UpdateCharge(ctx context.Context, profileID int64, chargeID int64, quantity *int, totalPrice *float64) (*ProductCharge, error) {
	if quantity != nil && *quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	if totalPrice != nil && *totalPrice < 0 {
		return nil, ErrInvalidPrice
	}
	c, err := s.repo.UpdateCharge(ctx, profileID, chargeID, quantity, totalPrice)
	if err != nil {
		return nil, err
	}
	s.bump(ctx)
	return c, nil
}

// RemoveCharge deletes a charge and deducts its total from the balance.
func (s *Service) RemoveCharge(ctx context.Context, profileID int64, chargeID int64) error {
	if err := s.repo.RemoveCharge(ctx, profileID, chargeID); err != nil {
		return err
	}
	s.bump(ctx)
	return nil
}

// ListCharges returns the line items for a debtor.
func (s *Service) ListCharges(ctx context.Context, profileID int64, debtorID string) ([]ProductCharge, error) {
	return s.repo.ListCharges(ctx, profileID, debtorID)
}

// ListTransactions returns a debtor's payment records.
func (s *Service) ListTransactions(ctx context.Context, profileID int64, debtorID string) ([]Transaction, error) {
	return s.repo.ListTransactions(ctx, profileID, debtorID)
}

// ListAllTransactions returns every payment record for a profile.
func (s *Service) ListAllTransactions(ctx context.Context, profileID int64) ([]Transaction, error) {
	return s.repo.ListAllTransactions(ctx, profileID)
}

func (s *Service) bump(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Bump(ctx); err != nil && s.logger != nil {
		s.logger.Warn("cache bump failed", slog.Any("error", err))
	}
}
