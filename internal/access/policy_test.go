package access_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatekeeper-events/gatekeeper/internal/access"
	"github.com/gatekeeper-events/gatekeeper/internal/shared"
	_ "github.com/gatekeeper-events/gatekeeper/testing"
)

type stubRoleSource struct {
	roles map[uuid.UUID]access.Role
}

func (s *stubRoleSource) RoleOf(ctx context.Context, userID uuid.UUID) (access.Role, error) {
	role, ok := s.roles[userID]
	if !ok {
		return "", access.ErrNoRole
	}
	return role, nil
}

func TestRuleTable(t *testing.T) {
	cases := []struct {
		role     access.Role
		resource string
		action   string
		want     bool
	}{
		{access.RoleAdmin, shared.ResourceAccessCodes, shared.ActionUpdate, true},
		{access.RoleAdmin, shared.ResourceRoleAssignments, shared.ActionDelete, true},
		{access.RoleAdmin, shared.ResourceLogs, shared.ActionRead, true},
		{access.RoleStaff, shared.ResourceEvents, shared.ActionCreate, true},
		{access.RoleStaff, shared.ResourceGuests, shared.ActionDelete, false},
		{access.RoleStaff, shared.ResourceAccessCodes, shared.ActionRead, false},
		{access.RoleStaff, shared.ResourceLogs, shared.ActionRead, false},
		{access.RoleReception, shared.ResourceCheckins, shared.ActionCreate, true},
		{access.RoleReception, shared.ResourceCheckins, shared.ActionDelete, true},
		{access.RoleReception, shared.ResourceGuests, shared.ActionCreate, false},
		{access.RoleReception, shared.ResourceEvents, shared.ActionUpdate, false},
		// No role may write assignments directly, not even admin.
		{access.RoleAdmin, shared.ResourceRoleAssignments, shared.ActionCreate, false},
	}
	for _, tc := range cases {
		got := access.Allowed(tc.role, tc.resource, tc.action)
		assert.Equalf(t, tc.want, got, "%s %s %s", tc.role, tc.resource, tc.action)
	}
}

func TestRuleTableDeniesUnknownRole(t *testing.T) {
	assert.False(t, access.Allowed(access.Role("superuser"), shared.ResourceEvents, shared.ActionRead))
	assert.False(t, access.Allowed(access.Role(""), shared.ResourceEvents, shared.ActionRead))
}

func sessionRequest(t *testing.T, userID string) *http.Request {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sm := shared.NewSessionManager(client, "test_session", "secret", time.Hour, false)

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	if userID != "" {
		sess.SetUser(userID)
	}
	return req.WithContext(shared.ContextWithSession(req.Context(), sess))
}

func TestRequireAnonymous(t *testing.T) {
	policy := access.Policy{Roles: &stubRoleSource{}}
	handler := policy.Require(shared.ResourceEvents, shared.ActionRead)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, sessionRequest(t, ""))
	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestRequireRolelessUser(t *testing.T) {
	policy := access.Policy{Roles: &stubRoleSource{}}
	handler := policy.Require(shared.ResourceEvents, shared.ActionRead)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, sessionRequest(t, uuid.NewString()))
	assert.Equal(t, http.StatusForbidden, res.Code)
}

func TestRequireAllowsAndExposesRole(t *testing.T) {
	userID := uuid.New()
	policy := access.Policy{Roles: &stubRoleSource{roles: map[uuid.UUID]access.Role{userID: access.RoleReception}}}

	var seen access.Role
	handler := policy.Require(shared.ResourceCheckins, shared.ActionCreate)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = access.RoleFromContext(r.Context())
			w.WriteHeader(http.StatusOK)
		}))

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, sessionRequest(t, userID.String()))
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, access.RoleReception, seen)
}

func TestRequireDeniesInsufficientRole(t *testing.T) {
	userID := uuid.New()
	policy := access.Policy{Roles: &stubRoleSource{roles: map[uuid.UUID]access.Role{userID: access.RoleReception}}}

	handler := policy.Require(shared.ResourceGuests, shared.ActionCreate)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, sessionRequest(t, userID.String()))
	assert.Equal(t, http.StatusForbidden, res.Code)
}
