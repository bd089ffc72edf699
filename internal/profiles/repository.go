package profiles

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gatekeeper-events/gatekeeper/internal/shared"
)

// RepositoryPort defines data access methods for profiles.
type RepositoryPort interface {
	Insert(ctx context.Context, profile *Profile) error
	Get(ctx context.Context, userID uuid.UUID) (*Profile, error)
	UpdateDisplayName(ctx context.Context, userID uuid.UUID, displayName string) error
	List(ctx context.Context) ([]Profile, error)
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert creates the profile row. Conflicts on user_id are overwritten so
// a re-fired creation hook stays idempotent.
func (r *Repository) Insert(ctx context.Context, profile *Profile) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO profiles (user_id, email, display_name, created_at, updated_at)
		 VALUES ($1, $2, $3, NOW(), NOW())
		 ON CONFLICT (user_id) DO UPDATE SET email = EXCLUDED.email, updated_at = NOW()`,
		profile.UserID, profile.Email, profile.DisplayName,
	)
	return err
}

// Get fetches a profile by user id.
func (r *Repository) Get(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	var p Profile
	err := r.pool.QueryRow(ctx,
		`SELECT user_id, email, display_name, created_at, updated_at FROM profiles WHERE user_id = $1`,
		userID,
	).Scan(&p.UserID, &p.Email, &p.DisplayName, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// UpdateDisplayName changes the display name.
func (r *Repository) UpdateDisplayName(ctx context.Context, userID uuid.UUID, displayName string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE profiles SET display_name = $2, updated_at = NOW() WHERE user_id = $1`,
		userID, displayName,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// List returns all profiles ordered by display name.
func (r *Repository) List(ctx context.Context) ([]Profile, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT user_id, email, display_name, created_at, updated_at FROM profiles ORDER BY display_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var profiles []Profile
	for rows.Next() {
		var p Profile
		if err := rows.Scan(&p.UserID, &p.Email, &p.DisplayName, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return profiles, nil
}

var _ RepositoryPort = (*Repository)(nil)
