package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sariverse/sariverse/internal/platform/db"
)

const itemColumns = `id, profile_id, product_id, name, sku, stock, srp, supplier, created_at, updated_at`

// Repository persists inventory items and their adjustment history.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanItem(row pgx.Row) (*Item, error) {
	var it Item
	err := row.Scan(
		&it.ID,
		&it.ProfileID,
		&it.ProductID,
		&it.Name,
		&it.SKU,
		&it.Stock,
		&it.SRP,
		&it.Supplier,
		&it.CreatedAt,
		&it.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	it.Status = DeriveStockStatus(it.Stock)
	return &it, nil
}

func (r *Repository) Create(ctx context.Context, input CreateItemInput) (*Item, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO inventory_items (id, profile_id, product_id, name, sku, stock, srp, supplier)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+itemColumns,
		uuid.NewString(), input.ProfileID, input.ProductID, input.Name,
		input.SKU, input.Stock, input.SRP, input.Supplier,
	)
	item, err := scanItem(row)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, ErrSKUTaken
		}
		return nil, err
	}
	return item, nil
}

func (r *Repository) Get(ctx context.Context, profileID int64, id string) (*Item, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+itemColumns+` FROM inventory_items WHERE id = $1 AND profile_id = $2`,
		id, profileID,
	)
	return scanItem(row)
}

func (r *Repository) List(ctx context.Context, req ListItemsRequest) ([]Item, error) {
	query := `SELECT ` + itemColumns + ` FROM inventory_items WHERE profile_id = $1`
	args := []any{req.ProfileID}

	// Status is derived, so filter on the stock bands that produce it.
	switch req.Status {
	case StatusOutOfStock:
		query += " AND stock <= 0"
	case StatusLowStock:
		query += fmt.Sprintf(" AND stock > 0 AND stock <= %d", lowStockThreshold)
	case StatusInStock:
		query += fmt.Sprintf(" AND stock > %d", lowStockThreshold)
	}
	if req.Search != "" {
		args = append(args, "%"+req.Search+"%")
		query += fmt.Sprintf(" AND (name ILIKE $%d OR sku ILIKE $%d)", len(args), len(args))
	}
	query += " ORDER BY name ASC"
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

	out := make([]Item, 0)
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *it)
	}
	return out, rows.Err()
}

func (r *Repository) Update(ctx context.Context, profileID int64, id string, input UpdateItemInput) (*Item, error) {
	sets := make([]string, 0, 4)
	args := []any{id, profileID}

	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if input.Name != nil {
		add("name", *input.Name)
	}
	if input.SKU != nil {
		add("sku", *input.SKU)
	}
	if input.SRP != nil {
		add("srp", *input.SRP)
	}
	if input.Supplier != nil {
		add("supplier", *input.Supplier)
	}
	if len(sets) == 0 {
		return r.Get(ctx, profileID, id)
	}
	sets = append(sets, "updated_at = NOW()")

	row := r.pool.QueryRow(ctx, `
		UPDATE inventory_items SET `+strings.Join(sets, ", ")+`
		WHERE id = $1 AND profile_id = $2
		RETURNING `+itemColumns,
		args...,
	)
	item, err := scanItem(row)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, ErrSKUTaken
		}
		return nil, err
	}
	return item, nil
}

// AdjustStock applies a signed delta atomically and records the movement.
// The conditional update rejects adjustments that would drive stock negative.
func (r *Repository) AdjustStock(ctx context.Context, profileID int64, id string, delta int, reason string) (*Item, error) {
	var item *Item
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			UPDATE inventory_items
			SET stock = stock + $3, updated_at = NOW()
			WHERE id = $1 AND profile_id = $2 AND stock + $3 >= 0
			RETURNING `+itemColumns,
			id, profileID, delta,
		)
		updated, err := scanItem(row)
		if err != nil {
			if !errors.Is(err, ErrItemNotFound) {
				return err
			}
			// Distinguish a missing row from a rejected delta.
			var exists bool
			lookupErr := tx.QueryRow(ctx,
				`SELECT TRUE FROM inventory_items WHERE id = $1 AND profile_id = $2`,
				id, profileID,
			).Scan(&exists)
			if errors.Is(lookupErr, pgx.ErrNoRows) {
				return ErrItemNotFound
			}
			if lookupErr != nil {
				return lookupErr
			}
			return ErrInsufficientStock
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO stock_adjustments (item_id, profile_id, delta, reason)
			VALUES ($1, $2, $3, $4)`,
			id, profileID, delta, reason,
		)
		if err != nil {
			return err
		}
		item = updated
		return nil
	})
	if err != nil {
		return nil, mapTxErr(err)
	}
	return item, nil
}

func (r *Repository) ListAdjustments(ctx context.Context, profileID int64, itemID string, limit int) ([]Adjustment, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, item_id, profile_id, delta, reason, created_at
		FROM stock_adjustments
		WHERE item_id = $1 AND profile_id = $2
		ORDER BY created_at DESC
		LIMIT $3`,
		itemID, profileID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Adjustment, 0)
	for rows.Next() {
		var a Adjustment
		if err := rows.Scan(&a.ID, &a.ItemID, &a.ProfileID, &a.Delta, &a.Reason, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *Repository) Delete(ctx context.Context, profileID int64, id string) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM inventory_items WHERE id = $1 AND profile_id = $2`,
		id, profileID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

func mapTxErr(err error) error {
	if db.IsSerializationFailure(err) {
		return fmt.Errorf("stock adjustment conflict: %w", err)
	}
	return err
}
