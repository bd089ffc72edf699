package access

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Role is one of the fixed privilege levels a user can hold. Roles carry
// distinct capability sets rather than a linear hierarchy.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleStaff     Role = "staff"
	RoleReception Role = "reception"
)

// Roles returns the closed set of valid roles.
func Roles() []Role {
	return []Role{RoleAdmin, RoleStaff, RoleReception}
}

// Valid reports whether r belongs to the fixed role set.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleStaff, RoleReception:
		return true
	}
	return false
}

// Assignment binds a user to a single role. At most one row exists per user,
// enforced by a unique index on user_id.
type Assignment struct {
	ID        int64
	UserID    uuid.UUID
	Role      Role
	CreatedAt time.Time
}

// Code maps a role to its current registration secret. Exactly one row
// exists per role, seeded by migration.
type Code struct {
	ID        int64
	Role      Role
	Code      string
	UpdatedAt time.Time
	UpdatedBy uuid.NullUUID
}

var (
	// ErrInvalidCode indicates the submitted code matches no role.
	ErrInvalidCode = errors.New("access: invalid code")
	// ErrAlreadyAssigned indicates the user already holds a role.
	ErrAlreadyAssigned = errors.New("access: role already assigned")
	// ErrUnknownRole indicates a role outside the fixed set.
	ErrUnknownRole = errors.New("access: unknown role")
	// ErrNoRole indicates the user holds no role assignment.
	ErrNoRole = errors.New("access: no role assigned")
)
