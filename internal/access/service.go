package access

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Service performs the privileged role operations. It is the only path
// through which role assignments are created: callers submit a code, never
// a role, so a client cannot choose its own privilege level.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService constructs a Service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// AssignRoleWithCode validates the submitted code and assigns the matched
// role to the user. Fails with ErrInvalidCode when the code matches no
// role, or ErrAlreadyAssigned when the user already holds one. The unique
// index on role_assignments.user_id closes the window between the existing
// assignment check and the insert, so two concurrent calls for the same
// user cannot both succeed.
func (s *Service) AssignRoleWithCode(ctx context.Context, userID uuid.UUID, code string) (Role, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", ErrInvalidCode
	}

	role, err := s.repo.RoleForCode(ctx, code)
	if err != nil {
		return "", err
	}

	if _, err := s.repo.AssignmentForUser(ctx, userID); err == nil {
		return "", ErrAlreadyAssigned
	} else if !errors.Is(err, ErrNoRole) {
		return "", err
	}

	if err := s.repo.InsertAssignment(ctx, userID, role); err != nil {
		return "", err
	}

	if s.logger != nil {
		s.logger.Info("role assigned",
			slog.String("user_id", userID.String()),
			slog.String("role", string(role)))
	}
	return role, nil
}

// UpdateCode rotates the registration secret for a role. Admin only,
// enforced by the policy layer on the route. Overwrite semantics: a
// concurrent admin edit is silently replaced.
func (s *Service) UpdateCode(ctx context.Context, role Role, newCode string, updatedBy uuid.UUID) error {
	if !role.Valid() {
		return ErrUnknownRole
	}
	newCode = strings.TrimSpace(newCode)
	if newCode == "" {
		return errors.New("access: code must not be empty")
	}
	return s.repo.UpdateCode(ctx, role, newCode, updatedBy)
}

// RemoveUser revokes a user's role assignment and deletes the profile.
// There is no self-service role change: an admin removes the user and the
// user signs up again with a new code.
func (s *Service) RemoveUser(ctx context.Context, userID uuid.UUID) error {
	return s.repo.RemoveUser(ctx, userID)
}

// ListAssignments returns every role assignment for the admin overview.
func (s *Service) ListAssignments(ctx context.Context) ([]Assignment, error) {
	return s.repo.ListAssignments(ctx)
}

// ListCodes returns the current access codes, secrets included, ordered
// by the fixed role set rather than whatever the store yields.
func (s *Service) ListCodes(ctx context.Context) ([]Code, error) {
	codes, err := s.repo.ListCodes(ctx)
	if err != nil {
		return nil, err
	}
	order := make(map[Role]int, len(Roles()))
	for i, role := range Roles() {
		order[role] = i
	}
	sort.SliceStable(codes, func(i, j int) bool {
		return order[codes[i].Role] < order[codes[j].Role]
	})
	return codes, nil
}
