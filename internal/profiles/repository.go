package profiles

import (
	"context"
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

// Repository provides PostgreSQL backed persistence for profiles.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const profileColumns = `id, user_id, email, first_name, last_name, store_name, role, password_hash, created_at, updated_at`

func scanProfile(row pgx.Row) (*Profile, error) {
	var p Profile
	var first, last, store pgtype.Text
	err := row.Scan(&p.ID, &p.UserID, &p.Email, &first, &last, &store, &p.Role, &p.PasswordHash, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if first.Valid {
		p.FirstName = &first.String
	}
	if last.Valid {
		p.LastName = &last.String
	}
	if store.Valid {
		p.StoreName = &store.String
	}
	return &p, nil
}

// Create inserts a new profile with a fresh user id.
func (r *Repository) Create(ctx context.Context, email, passwordHash string, storeName *string) (*Profile, error) {
	var store pgtype.Text
	if storeName != nil {
		store = pgtype.Text{String: *storeName, Valid: true}
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO profiles (user_id, email, store_name, role, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, 'owner', $4, NOW(), NOW())
		RETURNING `+profileColumns,
		uuid.NewString(), strings.ToLower(email), store, passwordHash)
	p, err := scanProfile(row)
	if db.IsUniqueViolation(err) {
		return nil, shared.ErrEmailTaken
	}
	return p, err
}

// GetByEmail fetches a profile by login email.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*Profile, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE email = $1`, strings.ToLower(email))
	return scanProfile(row)
}

// GetByID fetches a profile by primary key.
func (r *Repository) GetByID(ctx context.Context, id int64) (*Profile, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id)
	return scanProfile(row)
}

// Update applies profile field changes.
func (r *Repository) Update(ctx context.Context, id int64, input UpdateProfileInput) (*Profile, error) {
	sets := []string{"updated_at = NOW()"}
	args := []any{id}
	argNum := 2

	addSet := func(col string, val any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, argNum))
		args = append(args, val)
		argNum++
	}
	if input.FirstName != nil {
		addSet("first_name", *input.FirstName)
	}
	if input.LastName != nil {
		addSet("last_name", *input.LastName)
	}
	if input.StoreName != nil {
		addSet("store_name", *input.StoreName)
	}

	query := fmt.Sprintf(`UPDATE profiles SET %s WHERE id = $1 RETURNING %s`,
		strings.Join(sets, ", "), profileColumns)
	return scanProfile(r.pool.QueryRow(ctx, query, args...))
}
