package access

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Resolver answers "what role does this user hold" for policy evaluation
// and for application code branching on role. It reads with its own pool
// handle and never passes through the policy layer, so policy rules that
// consult it cannot recurse. It exposes parameterized reads only.
type Resolver struct {
	pool *pgxpool.Pool
}

// NewResolver constructs a Resolver.
func NewResolver(pool *pgxpool.Pool) *Resolver {
	return &Resolver{pool: pool}
}

// RoleOf returns the user's role, or ErrNoRole when none is assigned.
func (r *Resolver) RoleOf(ctx context.Context, userID uuid.UUID) (Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx,
		`SELECT role FROM role_assignments WHERE user_id = $1`, userID,
	).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNoRole
		}
		return "", err
	}
	return role, nil
}

// HasRole reports whether the user holds exactly the given role.
func (r *Resolver) HasRole(ctx context.Context, userID uuid.UUID, role Role) (bool, error) {
	got, err := r.RoleOf(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNoRole) {
			return false, nil
		}
		return false, err
	}
	return got == role, nil
}
