package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sariverse/sariverse/internal/platform/db"
)

const orderColumns = `id, profile_id, debtor_id, status, payment_method, total, created_at, updated_at, completed_at`

// Repository persists orders and their line items in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanOrder(row pgx.Row) (*Order, error) {
	var (
		o      Order
		method *string
	)
	err := row.Scan(
		&o.ID,
		&o.ProfileID,
		&o.DebtorID,
		&o.Status,
		&method,
		&o.Total,
		&o.CreatedAt,
		&o.UpdatedAt,
		&o.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if method != nil {
		o.PaymentMethod = PaymentMethod(*method)
	}
	return &o, nil
}

// Create inserts the order and its items in one transaction.
func (r *Repository) Create(ctx context.Context, input CreateOrderInput, total float64) (*Order, error) {
	var order *Order
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			INSERT INTO orders (id, profile_id, debtor_id, status, total)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING `+orderColumns,
			uuid.NewString(), input.ProfileID, input.DebtorID, StatusPending, total,
		)
		created, err := scanOrder(row)
		if err != nil {
			return err
		}

		created.Items = make([]OrderItem, 0, len(input.Items))
		for _, item := range input.Items {
			subtotal := item.UnitPrice * float64(item.Quantity)
			var inserted OrderItem
			err := tx.QueryRow(ctx, `
				INSERT INTO order_items (order_id, product_id, name, quantity, unit_price, subtotal)
				VALUES ($1, $2, $3, $4, $5, $6)
				RETURNING id, order_id, product_id, name, quantity, unit_price, subtotal`,
				created.ID, item.ProductID, item.Name, item.Quantity, item.UnitPrice, subtotal,
			).Scan(&inserted.ID, &inserted.OrderID, &inserted.ProductID,
				&inserted.Name, &inserted.Quantity, &inserted.UnitPrice, &inserted.Subtotal)
			if err != nil {
				return err
			}
			created.Items = append(created.Items, inserted)
		}
		order = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (r *Repository) Get(ctx context.Context, profileID int64, id string) (*Order, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 AND profile_id = $2`,
		id, profileID,
	)
	order, err := scanOrder(row)
	if err != nil {
		return nil, err
	}
	items, err := r.listItems(ctx, id)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return order, nil
}

func (r *Repository) listItems(ctx context.Context, orderID string) ([]OrderItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, order_id, product_id, name, quantity, unit_price, subtotal
		FROM order_items WHERE order_id = $1 ORDER BY id ASC`,
		orderID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]OrderItem, 0)
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Name,
			&it.Quantity, &it.UnitPrice, &it.Subtotal); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *Repository) List(ctx context.Context, req ListOrdersRequest) ([]Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE profile_id = $1`
	args := []any{req.ProfileID}

	if req.Status != "" {
		args = append(args, req.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if req.DebtorID != "" {
		args = append(args, req.DebtorID)
		query += fmt.Sprintf(" AND debtor_id = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"
	if req.Limit > 0 {
		args = append(args, req.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if req.Offset > 0 {
		args = append(args, req.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

// MarkCompleted transitions a pending order to completed. The conditional
// update keeps double completion and completion of cancelled orders out.
func (r *Repository) MarkCompleted(ctx context.Context, profileID int64, id string, method PaymentMethod) (*Order, error) {
	var methodValue *string
	if method != "" {
		v := string(method)
		methodValue = &v
	}
	row := r.pool.QueryRow(ctx, `
		UPDATE orders
		SET status = $3, payment_method = $4, completed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND profile_id = $2 AND status = $5
		RETURNING `+orderColumns,
		id, profileID, StatusCompleted, methodValue, StatusPending,
	)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, r.classifyMissing(ctx, profileID, id)
		}
		return nil, err
	}
	items, err := r.listItems(ctx, id)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return order, nil
}

// MarkCancelled transitions a pending order to cancelled.
func (r *Repository) MarkCancelled(ctx context.Context, profileID int64, id string) (*Order, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE orders
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND profile_id = $2 AND status = $4
		RETURNING `+orderColumns,
		id, profileID, StatusCancelled, StatusPending,
	)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, r.classifyMissing(ctx, profileID, id)
		}
		return nil, err
	}
	return order, nil
}

// classifyMissing distinguishes a missing order from one in the wrong state.
func (r *Repository) classifyMissing(ctx context.Context, profileID int64, id string) error {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT TRUE FROM orders WHERE id = $1 AND profile_id = $2`,
		id, profileID,
	).Scan(&exists)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrOrderNotFound
	}
	if err != nil {
		return err
	}
	return ErrOrderNotPending
}
