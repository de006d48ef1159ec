package products

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const productColumns = `id, profile_id, name, category, price, image_url, supplier, description, created_at, updated_at`

// Repository persists products in PostgreSQL. All queries are scoped to the
// owning profile.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	err := row.Scan(
		&p.ID,
		&p.ProfileID,
		&p.Name,
		&p.Category,
		&p.Price,
		&p.ImageURL,
		&p.Supplier,
		&p.Description,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *Repository) Create(ctx context.Context, input CreateProductInput) (*Product, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO products (id, profile_id, name, category, price, image_url, supplier, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+productColumns,
		uuid.NewString(), input.ProfileID, input.Name, input.Category,
		input.Price, input.ImageURL, input.Supplier, input.Description,
	)
	return scanProduct(row)
}

func (r *Repository) Get(ctx context.Context, profileID int64, id string) (*Product, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1 AND profile_id = $2`,
		id, profileID,
	)
	return scanProduct(row)
}

func (r *Repository) List(ctx context.Context, req ListProductsRequest) ([]Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE profile_id = $1`
	args := []any{req.ProfileID}

	if req.Category != "" {
		args = append(args, req.Category)
		query += fmt.Sprintf(" AND category = $%d", len(args))
	}
	if req.Search != "" {
		args = append(args, "%"+req.Search+"%")
		query += fmt.Sprintf(" AND name ILIKE $%d", len(args))
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

	out := make([]Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *Repository) Count(ctx context.Context, req ListProductsRequest) (int, error) {
	query := `SELECT COUNT(*) FROM products WHERE profile_id = $1`
	args := []any{req.ProfileID}

	if req.Category != "" {
		args = append(args, req.Category)
		query += fmt.Sprintf(" AND category = $%d", len(args))
	}
	if req.Search != "" {
		args = append(args, "%"+req.Search+"%")
		query += fmt.Sprintf(" AND name ILIKE $%d", len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (r *Repository) Update(ctx context.Context, profileID int64, id string, input UpdateProductInput) (*Product, error) {
	sets := make([]string, 0, 6)
	args := []any{id, profileID}

	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if input.Name != nil {
		add("name", *input.Name)
	}
	if input.Category != nil {
		add("category", *input.Category)
	}
	if input.Price != nil {
		add("price", *input.Price)
	}
	if input.ImageURL != nil {
		add("image_url", *input.ImageURL)
	}
	if input.Supplier != nil {
		add("supplier", *input.Supplier)
	}
	if input.Description != nil {
		add("description", *input.Description)
	}
	if len(sets) == 0 {
		return r.Get(ctx, profileID, id)
	}
	sets = append(sets, "updated_at = NOW()")

	row := r.pool.QueryRow(ctx, `
		UPDATE products SET `+strings.Join(sets, ", ")+`
		WHERE id = $1 AND profile_id = $2
		RETURNING `+productColumns,
		args...,
	)
	return scanProduct(row)
}

func (r *Repository) Delete(ctx context.Context, profileID int64, id string) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM products WHERE id = $1 AND profile_id = $2`,
		id, profileID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}
