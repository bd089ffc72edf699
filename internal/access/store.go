package access

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gatekeeper-events/gatekeeper/internal/platform/db"
)

// Repository defines persistence operations for role assignments and
// access codes. All role mutation in the system funnels through these
// methods; HTTP callers never reach the tables directly.
type Repository interface {
	RoleForCode(ctx context.Context, code string) (Role, error)
	AssignmentForUser(ctx context.Context, userID uuid.UUID) (*Assignment, error)
	InsertAssignment(ctx context.Context, userID uuid.UUID, role Role) error
	RemoveUser(ctx context.Context, userID uuid.UUID) error
	ListAssignments(ctx context.Context) ([]Assignment, error)
	UpdateCode(ctx context.Context, role Role, code string, updatedBy uuid.UUID) error
	ListCodes(ctx context.Context) ([]Code, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// RoleForCode resolves a submitted code to its role. Returns ErrInvalidCode
// when no row matches, without disclosing which codes exist.
func (r *PGRepository) RoleForCode(ctx context.Context, code string) (Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx, `SELECT role FROM access_codes WHERE code = $1`, code).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrInvalidCode
		}
		return "", err
	}
	return role, nil
}

// AssignmentForUser fetches the user's role assignment, or ErrNoRole.
func (r *PGRepository) AssignmentForUser(ctx context.Context, userID uuid.UUID) (*Assignment, error) {
	var a Assignment
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, role, created_at FROM role_assignments WHERE user_id = $1`,
		userID,
	).Scan(&a.ID, &a.UserID, &a.Role, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoRole
		}
		return nil, err
	}
	return &a, nil
}

// InsertAssignment writes a new role assignment. The unique index on
// user_id is the final backstop against concurrent inserts; a violation
// surfaces as ErrAlreadyAssigned.
func (r *PGRepository) InsertAssignment(ctx context.Context, userID uuid.UUID, role Role) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO role_assignments (user_id, role, created_at) VALUES ($1, $2, NOW())`,
		userID, role,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrAlreadyAssigned
		}
		return err
	}
	return nil
}

// RemoveUser revokes the user's role and deletes the profile in one
// transaction. Subsequent resolver lookups return ErrNoRole.
func (r *PGRepository) RemoveUser(ctx context.Context, userID uuid.UUID) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM role_assignments WHERE user_id = $1`, userID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `DELETE FROM profiles WHERE user_id = $1`, userID)
		return err
	})
}

// ListAssignments returns all role assignments ordered by creation time.
func (r *PGRepository) ListAssignments(ctx context.Context) ([]Assignment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, role, created_at FROM role_assignments ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var assignments []Assignment
	for rows.Next() {
		var a Assignment
		if err := rows.Scan(&a.ID, &a.UserID, &a.Role, &a.CreatedAt); err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return assignments, nil
}

// UpdateCode overwrites the code for a role. Last write wins; there is no
// version check. Returns ErrUnknownRole when no row was updated.
func (r *PGRepository) UpdateCode(ctx context.Context, role Role, code string, updatedBy uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE access_codes SET code = $2, updated_at = NOW(), updated_by = $3 WHERE role = $1`,
		role, code, updatedBy,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUnknownRole
	}
	return nil
}

// ListCodes returns all access codes. Callers must gate this behind the
// admin policy; the raw secrets are included.
func (r *PGRepository) ListCodes(ctx context.Context) ([]Code, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, role, code, updated_at, updated_by FROM access_codes ORDER BY role`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var codes []Code
	for rows.Next() {
		var c Code
		if err := rows.Scan(&c.ID, &c.Role, &c.Code, &c.UpdatedAt, &c.UpdatedBy); err != nil {
			return nil, err
		}
		codes = append(codes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return codes, nil
}

var _ Repository = (*PGRepository)(nil)
