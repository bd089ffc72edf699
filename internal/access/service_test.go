package access_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatekeeper-events/gatekeeper/internal/access"
	_ "github.com/gatekeeper-events/gatekeeper/testing"
)

// stubRepo keeps assignments and codes in memory and mirrors the database
// uniqueness guarantee on user_id.
type stubRepo struct {
	codes       map[string]access.Role
	assignments map[uuid.UUID]access.Role
	removed     []uuid.UUID
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		codes: map[string]access.Role{
			"MASTER_FLORIPA":  access.RoleAdmin,
			"EQUIPE_2025":     access.RoleStaff,
			"RECEPCAO_EVENTO": access.RoleReception,
		},
		assignments: make(map[uuid.UUID]access.Role),
	}
}

func (s *stubRepo) RoleForCode(ctx context.Context, code string) (access.Role, error) {
	role, ok := s.codes[code]
	if !ok {
		return "", access.ErrInvalidCode
	}
	return role, nil
}

func (s *stubRepo) AssignmentForUser(ctx context.Context, userID uuid.UUID) (*access.Assignment, error) {
	role, ok := s.assignments[userID]
	if !ok {
		return nil, access.ErrNoRole
	}
	return &access.Assignment{UserID: userID, Role: role}, nil
}

func (s *stubRepo) InsertAssignment(ctx context.Context, userID uuid.UUID, role access.Role) error {
	if _, ok := s.assignments[userID]; ok {
		return access.ErrAlreadyAssigned
	}
	s.assignments[userID] = role
	return nil
}

func (s *stubRepo) RemoveUser(ctx context.Context, userID uuid.UUID) error {
	delete(s.assignments, userID)
	s.removed = append(s.removed, userID)
	return nil
}

func (s *stubRepo) ListAssignments(ctx context.Context) ([]access.Assignment, error) {
	out := make([]access.Assignment, 0, len(s.assignments))
	for id, role := range s.assignments {
		out = append(out, access.Assignment{UserID: id, Role: role})
	}
	return out, nil
}

func (s *stubRepo) UpdateCode(ctx context.Context, role access.Role, code string, updatedBy uuid.UUID) error {
	for existing, r := range s.codes {
		if r == role {
			delete(s.codes, existing)
		}
	}
	s.codes[code] = role
	return nil
}

func (s *stubRepo) ListCodes(ctx context.Context) ([]access.Code, error) {
	out := make([]access.Code, 0, len(s.codes))
	for code, role := range s.codes {
		out = append(out, access.Code{Role: role, Code: code})
	}
	return out, nil
}

func TestAssignRoleWithCode(t *testing.T) {
	ctx := context.Background()
	repo := newStubRepo()
	svc := access.NewService(repo, nil)

	userID := uuid.New()
	role, err := svc.AssignRoleWithCode(ctx, userID, "EQUIPE_2025")
	require.NoError(t, err)
	assert.Equal(t, access.RoleStaff, role)
	assert.Equal(t, access.RoleStaff, repo.assignments[userID])
}

func TestAssignRoleWithCodeTrimsInput(t *testing.T) {
	repo := newStubRepo()
	svc := access.NewService(repo, nil)

	role, err := svc.AssignRoleWithCode(context.Background(), uuid.New(), "  RECEPCAO_EVENTO  ")
	require.NoError(t, err)
	assert.Equal(t, access.RoleReception, role)
}

func TestAssignRoleWithCodeInvalid(t *testing.T) {
	svc := access.NewService(newStubRepo(), nil)

	_, err := svc.AssignRoleWithCode(context.Background(), uuid.New(), "WRONG_CODE")
	assert.ErrorIs(t, err, access.ErrInvalidCode)

	_, err = svc.AssignRoleWithCode(context.Background(), uuid.New(), "   ")
	assert.ErrorIs(t, err, access.ErrInvalidCode)
}

func TestAssignRoleWithCodeAlreadyAssigned(t *testing.T) {
	ctx := context.Background()
	repo := newStubRepo()
	svc := access.NewService(repo, nil)

	userID := uuid.New()
	_, err := svc.AssignRoleWithCode(ctx, userID, "EQUIPE_2025")
	require.NoError(t, err)

	// A second code submission must not change the held role.
	_, err = svc.AssignRoleWithCode(ctx, userID, "MASTER_FLORIPA")
	assert.ErrorIs(t, err, access.ErrAlreadyAssigned)
	assert.Equal(t, access.RoleStaff, repo.assignments[userID])
}

func TestUpdateCodeRotation(t *testing.T) {
	ctx := context.Background()
	repo := newStubRepo()
	svc := access.NewService(repo, nil)
	admin := uuid.New()

	require.NoError(t, svc.UpdateCode(ctx, access.RoleStaff, "NEW_CODE_2026", admin))

	// The old code stops working immediately, the new one takes over.
	_, err := svc.AssignRoleWithCode(ctx, uuid.New(), "EQUIPE_2025")
	assert.ErrorIs(t, err, access.ErrInvalidCode)

	role, err := svc.AssignRoleWithCode(ctx, uuid.New(), "NEW_CODE_2026")
	require.NoError(t, err)
	assert.Equal(t, access.RoleStaff, role)
}

func TestUpdateCodeValidation(t *testing.T) {
	svc := access.NewService(newStubRepo(), nil)
	admin := uuid.New()

	err := svc.UpdateCode(context.Background(), access.Role("owner"), "X", admin)
	assert.ErrorIs(t, err, access.ErrUnknownRole)

	err = svc.UpdateCode(context.Background(), access.RoleStaff, "   ", admin)
	assert.Error(t, err)
}

func TestListCodesFixedRoleOrder(t *testing.T) {
	svc := access.NewService(newStubRepo(), nil)

	// The stub yields map order; the service reorders by the role set.
	codes, err := svc.ListCodes(context.Background())
	require.NoError(t, err)
	require.Len(t, codes, 3)
	for i, role := range access.Roles() {
		assert.Equal(t, role, codes[i].Role)
	}
}

func TestRemoveUserThenReassign(t *testing.T) {
	ctx := context.Background()
	repo := newStubRepo()
	svc := access.NewService(repo, nil)

	userID := uuid.New()
	_, err := svc.AssignRoleWithCode(ctx, userID, "RECEPCAO_EVENTO")
	require.NoError(t, err)

	require.NoError(t, svc.RemoveUser(ctx, userID))
	assert.Contains(t, repo.removed, userID)

	// Role change is remove plus re-signup with a different code.
	role, err := svc.AssignRoleWithCode(ctx, userID, "MASTER_FLORIPA")
	require.NoError(t, err)
	assert.Equal(t, access.RoleAdmin, role)
}
