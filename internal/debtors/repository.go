package debtors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sariverse/sariverse/internal/platform/db"
	"github.com/sariverse/sariverse/internal/shared"
)

// Repository provides PostgreSQL backed persistence for the debtor ledger.
// Balance is mutated only through ApplyCharge and ApplySettlement, each a
// single RepeatableRead transaction whose balance statement is a conditional
// UPDATE re-checked against the pre-update value. Callers never read-modify-
// write the balance themselves.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const debtorColumns = `id, profile_id, name, email, phone, avatar, unique_code,
	due_date, status, credit_limit, balance, is_settled, is_archived,
	created_at, updated_at`

func scanDebtor(row pgx.Row) (*Debtor, error) {
	var d Debtor
	var avatar pgtype.Text
	var dueDate pgtype.Timestamptz
	err := row.Scan(
		&d.ID, &d.ProfileID, &d.Name, &d.Email, &d.Phone, &avatar, &d.UniqueCode,
		&dueDate, &d.Status, &d.CreditLimit, &d.Balance, &d.IsSettled, &d.IsArchived,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrDebtorNotFound
	}
	if err != nil {
		return nil, err
	}
	if avatar.Valid {
		d.Avatar = &avatar.String
	}
	if dueDate.Valid {
		d.DueDate = dueDate.Time
	}
	return &d, nil
}

// CreateDebtor inserts a new account with a zero balance.
func (r *Repository) CreateDebtor(ctx context.Context, input CreateDebtorInput) (*Debtor, error) {
	id := uuid.NewString()
	code := generateUniqueCode()

	query := `
		INSERT INTO debtors (
			id, profile_id, name, email, phone, avatar, unique_code,
			due_date, status, credit_limit, balance, is_settled, is_archived,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 0, FALSE, FALSE, NOW(), NOW())
		RETURNING ` + debtorColumns

	var avatar pgtype.Text
	if input.Avatar != nil {
		avatar = pgtype.Text{String: *input.Avatar, Valid: true}
	}
	var dueDate pgtype.Timestamptz
	if !input.DueDate.IsZero() {
		dueDate = pgtype.Timestamptz{Time: input.DueDate, Valid: true}
	}

	row := r.pool.QueryRow(ctx, query,
		id, input.ProfileID, input.Name, input.Email, input.Phone, avatar, code,
		dueDate, StatusActive, input.CreditLimit,
	)
	return scanDebtor(row)
}

// GetDebtor fetches a debtor scoped to the owning profile.
func (r *Repository) GetDebtor(ctx context.Context, profileID int64, id string) (*Debtor, error) {
	query := `SELECT ` + debtorColumns + ` FROM debtors WHERE id = $1 AND profile_id = $2`
	return scanDebtor(r.pool.QueryRow(ctx, query, id, profileID))
}

// ListDebtors returns accounts for a profile with optional filtering.
func (r *Repository) ListDebtors(ctx context.Context, profileID int64, req ListDebtorsRequest) ([]Debtor, error) {
	query := `SELECT ` + debtorColumns + ` FROM debtors WHERE profile_id = $1`
	args := []any{profileID}
	argNum := 2

	if !req.Archived {
		query += " AND NOT is_archived"
	}
	if req.Settled != nil {
		query += fmt.Sprintf(" AND is_settled = $%d", argNum)
		args = append(args, *req.Settled)
		argNum++
	}
	if req.Search != "" {
		query += fmt.Sprintf(" AND (name ILIKE $%d OR phone ILIKE $%d)", argNum, argNum)
		args = append(args, "%"+req.Search+"%")
		argNum++
	}

	query += " ORDER BY created_at DESC"
	if req.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argNum)
		args = append(args, req.Limit)
		argNum++
	}
	if req.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argNum)
		args = append(args, req.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Debtor
	for rows.Next() {
		d, err := scanDebtor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// UpdateDebtor applies descriptive-field changes. Balance and settlement
// state are out of reach of this statement.
func (r *Repository) UpdateDebtor(ctx context.Context, profileID int64, id string, input UpdateDebtorInput) (*Debtor, error) {
	sets := []string{"updated_at = NOW()"}
	args := []any{id, profileID}
	argNum := 3

	addSet := func(col string, val any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, argNum))
		args = append(args, val)
		argNum++
	}
	if input.Name != nil {
		addSet("name", *input.Name)
	}
	if input.Email != nil {
		addSet("email", *input.Email)
	}
	if input.Phone != nil {
		addSet("phone", *input.Phone)
	}
	if input.Avatar != nil {
		addSet("avatar", *input.Avatar)
	}
	if input.DueDate != nil {
		addSet("due_date", *input.DueDate)
	}
	if input.CreditLimit != nil {
		addSet("credit_limit", *input.CreditLimit)
	}

	query := fmt.Sprintf(`UPDATE debtors SET %s WHERE id = $1 AND profile_id = $2 RETURNING %s`,
		strings.Join(sets, ", "), debtorColumns)
	return scanDebtor(r.pool.QueryRow(ctx, query, args...))
}

// ArchiveDebtor soft-deletes an account. Accounts with an outstanding balance
// are refused.
func (r *Repository) ArchiveDebtor(ctx context.Context, profileID int64, id string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE debtors SET is_archived = TRUE, updated_at = NOW()
		WHERE id = $1 AND profile_id = $2 AND balance = 0`, id, profileID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetDebtor(ctx, profileID, id); err != nil {
			return err
		}
		return ErrDebtorHasBalance
	}
	return nil
}

// ApplyCharge records a product charge and increments the balance in one
// transaction. When enforceLimit is set the limit check runs inside the same
// conditional UPDATE as the increment so it cannot race with other writers.
func (r *Repository) ApplyCharge(ctx context.Context, input ChargeDebtorInput, totalPrice float64) (*ChargeResult, error) {
	var result ChargeResult

	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if input.IdempotencyKey != "" {
			if err := shared.ReserveIdempotencyKeyTx(ctx, tx, input.IdempotencyKey, "debtors.charge"); err != nil {
				return err
			}
		}

		skipLimit := !input.EnforceCreditLimit || input.AllowOverLimit
		var newBalance float64
		err := tx.QueryRow(ctx, `
			UPDATE debtors
			SET balance = balance + $3,
			    is_settled = (balance + $3) = 0,
			    updated_at = NOW()
			WHERE id = $1 AND profile_id = $2 AND NOT is_archived
			  AND ($4 OR balance + $3 <= credit_limit)
			RETURNING balance`,
			input.DebtorID, input.ProfileID, totalPrice, skipLimit,
		).Scan(&newBalance)
		if errors.Is(err, pgx.ErrNoRows) {
			// Distinguish a missing account from a refused over-limit charge.
			var exists bool
			if err := tx.QueryRow(ctx,
				`SELECT TRUE FROM debtors WHERE id = $1 AND profile_id = $2 AND NOT is_archived`,
				input.DebtorID, input.ProfileID,
			).Scan(&exists); err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return ErrDebtorNotFound
				}
				return err
			}
			return ErrCreditLimitExceeded
		}
		if err != nil {
			return err
		}

		var charge ProductCharge
		err = tx.QueryRow(ctx, `
			INSERT INTO debtor_products (debtor_id, product_id, quantity, total_price, created_at, updated_at)
			VALUES ($1, $2, $3, $4, NOW(), NOW())
			RETURNING id, created_at, updated_at`,
			input.DebtorID, input.ProductID, input.Quantity, totalPrice,
		).Scan(&charge.ID, &charge.CreatedAt, &charge.UpdatedAt)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrLedgerRecordFailed, err)
		}

		charge.DebtorID = input.DebtorID
		charge.ProductID = input.ProductID
		charge.Quantity = input.Quantity
		charge.TotalPrice = totalPrice

		result = ChargeResult{Charge: charge, NewBalance: newBalance}
		return nil
	})
	if err != nil {
		return nil, mapTxErr(err)
	}
	return &result, nil
}

// ApplySettlement decrements the balance and appends the transaction record
// atomically. The balance precondition (amount <= balance) is re-checked by
// the UPDATE itself against the pre-update value.
func (r *Repository) ApplySettlement(ctx context.Context, input SettlementInput) (*SettlementResult, error) {
	var result SettlementResult

	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if input.IdempotencyKey != "" {
			if err := shared.ReserveIdempotencyKeyTx(ctx, tx, input.IdempotencyKey, "debtors.settlement"); err != nil {
				return err
			}
		}

		var remaining float64
		var settled bool
		err := tx.QueryRow(ctx, `
			UPDATE debtors
			SET balance = balance - $3,
			    is_settled = (balance - $3) = 0,
			    status = CASE WHEN (balance - $3) = 0 THEN 'settled' ELSE status END,
			    updated_at = NOW()
			WHERE id = $1 AND profile_id = $2 AND NOT is_archived AND balance >= $3
			RETURNING balance, is_settled`,
			input.DebtorID, input.ProfileID, input.Amount,
		).Scan(&remaining, &settled)
		if errors.Is(err, pgx.ErrNoRows) {
			var exists bool
			if err := tx.QueryRow(ctx,
				`SELECT TRUE FROM debtors WHERE id = $1 AND profile_id = $2 AND NOT is_archived`,
				input.DebtorID, input.ProfileID,
			).Scan(&exists); err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return ErrDebtorNotFound
				}
				return err
			}
			return ErrAmountExceedsBalance
		}
		if err != nil {
			return err
		}

		var metaJSON []byte
		if input.Metadata != nil {
			metaJSON, err = json.Marshal(input.Metadata)
			if err != nil {
				return err
			}
		}

		var txnID int64
		err = tx.QueryRow(ctx, `
			INSERT INTO transactions (
				debtor_id, profile_id, amount, payment_method, customer_name,
				remaining_balance, is_settled, metadata, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
			RETURNING id`,
			input.DebtorID, input.ProfileID, input.Amount, string(input.Method),
			input.CustomerName, remaining, settled, metaJSON,
		).Scan(&txnID)
		if err != nil {
			// The surrounding tx rolls the balance update back, so the
			// all-or-nothing boundary holds. Surfaced distinctly so callers
			// never mistake it for an ordinary retryable failure.
			return fmt.Errorf("%w: %v", ErrLedgerRecordFailed, err)
		}

		result = SettlementResult{
			Success:          true,
			TransactionID:    txnID,
			Total:            input.Amount,
			RemainingBalance: remaining,
			IsSettled:        settled,
		}
		return nil
	})
	if err != nil {
		return nil, mapTxErr(err)
	}
	return &result, nil
}

// UpdateCharge corrects a charge's quantity/total and re-syncs the balance by
// the delta inside one transaction.
func (r *Repository) UpdateCharge(ctx context.Context, profileID int64, chargeID int64, quantity *int, totalPrice *float64) (*ProductCharge, error) {
	var out ProductCharge

	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var current ProductCharge
		err := tx.QueryRow(ctx, `
			SELECT dp.id, dp.debtor_id, dp.product_id, dp.quantity, dp.total_price, dp.created_at, dp.updated_at
			FROM debtor_products dp
			JOIN debtors d ON d.id = dp.debtor_id
			WHERE dp.id = $1 AND d.profile_id = $2
			FOR UPDATE OF dp`,
			chargeID, profileID,
		).Scan(&current.ID, &current.DebtorID, &current.ProductID, &current.Quantity,
			&current.TotalPrice, &current.CreatedAt, &current.UpdatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrChargeNotFound
		}
		if err != nil {
			return err
		}

		newQuantity := current.Quantity
		if quantity != nil {
			newQuantity = *quantity
		}
		newTotal := current.TotalPrice
		if totalPrice != nil {
			newTotal = *totalPrice
		}
		delta := newTotal - current.TotalPrice

		if delta != 0 {
			var balance float64
			err = tx.QueryRow(ctx, `
				UPDATE debtors
				SET balance = balance + $2,
				    is_settled = (balance + $2) = 0,
				    updated_at = NOW()
				WHERE id = $1 AND balance + $2 >= 0
				RETURNING balance`,
				current.DebtorID, delta,
			).Scan(&balance)
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrAmountExceedsBalance
			}
			if err != nil {
				return err
			}
		}

		err = tx.QueryRow(ctx, `
			UPDATE debtor_products SET quantity = $2, total_price = $3, updated_at = NOW()
			WHERE id = $1
			RETURNING updated_at`, chargeID, newQuantity, newTotal,
		).Scan(&current.UpdatedAt)
		if err != nil {
			return err
		}

		current.Quantity = newQuantity
		current.TotalPrice = newTotal
		out = current
		return nil
	})
	if err != nil {
		return nil, mapTxErr(err)
	}
	return &out, nil
}

// RemoveCharge deletes a charge and deducts its total from the balance. The
// removal is refused when payments already consumed part of the charge
// (balance < total_price), since dropping the record would desync the balance
// from the ledger.
func (r *Repository) RemoveCharge(ctx context.Context, profileID int64, chargeID int64) error {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var debtorID string
		var total float64
		err := tx.QueryRow(ctx, `
			DELETE FROM debtor_products dp
			USING debtors d
			WHERE dp.id = $1 AND d.id = dp.debtor_id AND d.profile_id = $2
			RETURNING dp.debtor_id, dp.total_price`,
			chargeID, profileID,
		).Scan(&debtorID, &total)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrChargeNotFound
		}
		if err != nil {
			return err
		}

		var balance float64
		err = tx.QueryRow(ctx, `
			UPDATE debtors
			SET balance = balance - $2,
			    is_settled = (balance - $2) = 0,
			    updated_at = NOW()
			WHERE id = $1 AND balance - $2 >= 0
			RETURNING balance`, debtorID, total,
		).Scan(&balance)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrAmountExceedsBalance
		}
		return err
	})
	return mapTxErr(err)
}

// ListCharges returns the line items for a debtor, newest first.
func (r *Repository) ListCharges(ctx context.Context, profileID int64, debtorID string) ([]ProductCharge, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT dp.id, dp.debtor_id, dp.product_id, COALESCE(p.name, ''),
			dp.quantity, dp.total_price, dp.created_at, dp.updated_at
		FROM debtor_products dp
		JOIN debtors d ON d.id = dp.debtor_id
		LEFT JOIN products p ON p.id = dp.product_id
		WHERE dp.debtor_id = $1 AND d.profile_id = $2
		ORDER BY dp.created_at DESC`, debtorID, profileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var charges []ProductCharge
	for rows.Next() {
		var c ProductCharge
		if err := rows.Scan(&c.ID, &c.DebtorID, &c.ProductID, &c.ProductName,
			&c.Quantity, &c.TotalPrice, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		charges = append(charges, c)
	}
	return charges, rows.Err()
}

// ListTransactions returns the payment records for a debtor, newest first.
func (r *Repository) ListTransactions(ctx context.Context, profileID int64, debtorID string) ([]Transaction, error) {
	return r.listTransactions(ctx, `
		SELECT id, debtor_id, profile_id, amount, payment_method, customer_name,
			remaining_balance, is_settled, metadata, created_at
		FROM transactions
		WHERE debtor_id = $1 AND profile_id = $2 AND NOT is_deleted
		ORDER BY created_at DESC`, debtorID, profileID)
}

// ListAllTransactions returns every payment record for a profile.
func (r *Repository) ListAllTransactions(ctx context.Context, profileID int64) ([]Transaction, error) {
	return r.listTransactions(ctx, `
		SELECT id, debtor_id, profile_id, amount, payment_method, customer_name,
			remaining_balance, is_settled, metadata, created_at
		FROM transactions
		WHERE profile_id = $1 AND NOT is_deleted
		ORDER BY created_at DESC`, profileID)
}

func (r *Repository) listTransactions(ctx context.Context, query string, args ...any) ([]Transaction, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txns []Transaction
	for rows.Next() {
		var t Transaction
		var method string
		var metaJSON []byte
		if err := rows.Scan(&t.ID, &t.DebtorID, &t.ProfileID, &t.Amount, &method,
			&t.CustomerName, &t.RemainingBalance, &t.IsSettled, &metaJSON, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Method = PaymentMethod(method)
		if len(metaJSON) > 0 {
			_ = json.Unmarshal(metaJSON, &t.Metadata)
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

func mapTxErr(err error) error {
	if err == nil {
		return nil
	}
	if db.IsSerializationFailure(err) {
		return ErrConflict
	}
	return err
}

// generateUniqueCode produces a short human-readable account code.
func generateUniqueCode() string {
	raw := uuid.NewString()
	return "DBT-" + strings.ToUpper(raw[:8])
}
