package access

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/gatekeeper-events/gatekeeper/internal/shared"
)

// RoleSource resolves a user to a role without passing through the policy
// layer itself. *Resolver is the production implementation.
type RoleSource interface {
	RoleOf(ctx context.Context, userID uuid.UUID) (Role, error)
}

type ruleKey struct {
	role     Role
	resource string
	action   string
}

// rules is the declarative allow table. Anything not listed is denied.
// Role assignments and access codes deliberately have no create/insert
// entries for any role: the only write path is the assignment service.
var rules = map[ruleKey]struct{}{}

func allow(role Role, resource string, actions ...string) {
	for _, action := range actions {
		rules[ruleKey{role, resource, action}] = struct{}{}
	}
}

func init() {
	allow(RoleAdmin, shared.ResourceRoleAssignments, shared.ActionRead, shared.ActionDelete)
	allow(RoleAdmin, shared.ResourceAccessCodes, shared.ActionRead, shared.ActionUpdate)
	allow(RoleAdmin, shared.ResourceEvents, shared.ActionRead, shared.ActionCreate, shared.ActionUpdate, shared.ActionDelete)
	allow(RoleAdmin, shared.ResourceGuests, shared.ActionRead, shared.ActionCreate, shared.ActionUpdate, shared.ActionDelete)
	allow(RoleAdmin, shared.ResourceCheckins, shared.ActionCreate, shared.ActionDelete)
	allow(RoleAdmin, shared.ResourceLogs, shared.ActionRead)
	allow(RoleAdmin, shared.ResourceProfiles, shared.ActionRead, shared.ActionUpdate, shared.ActionDelete)

	allow(RoleStaff, shared.ResourceEvents, shared.ActionRead, shared.ActionCreate, shared.ActionUpdate, shared.ActionDelete)
	allow(RoleStaff, shared.ResourceGuests, shared.ActionRead, shared.ActionCreate, shared.ActionUpdate)
	allow(RoleStaff, shared.ResourceCheckins, shared.ActionCreate, shared.ActionDelete)

	allow(RoleReception, shared.ResourceEvents, shared.ActionRead)
	allow(RoleReception, shared.ResourceGuests, shared.ActionRead)
	allow(RoleReception, shared.ResourceCheckins, shared.ActionCreate, shared.ActionDelete)
}

// Allowed evaluates the rule table for a single (role, resource, action).
func Allowed(role Role, resource, action string) bool {
	_, ok := rules[ruleKey{role, resource, action}]
	return ok
}

// Policy is the HTTP enforcement point. Every protected route passes
// through Require before reaching its handler; UI-side gating is not
// trusted.
type Policy struct {
	Roles  RoleSource
	Logger *slog.Logger
}

// Require returns middleware that rejects requests whose session user does
// not hold a role allowing (resource, action). Anonymous requests get 401,
// roleless or under-privileged users get 403.
func (p Policy) Require(resource, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := p.currentUserID(r)
			if !ok {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			role, err := p.Roles.RoleOf(r.Context(), userID)
			if err != nil {
				if errors.Is(err, ErrNoRole) {
					http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
					return
				}
				if p.Logger != nil {
					p.Logger.Error("policy resolve role", slog.Any("error", err))
				}
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			if !Allowed(role, resource, action) {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r.WithContext(contextWithRole(r.Context(), role)))
		})
	}
}

func (p Policy) currentUserID(r *http.Request) (uuid.UUID, bool) {
	raw := shared.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		if p.Logger != nil {
			p.Logger.Error("policy parse user id", slog.String("value", raw))
		}
		return uuid.Nil, false
	}
	return id, true
}

type roleContextKey struct{}

func contextWithRole(ctx context.Context, role Role) context.Context {
	return context.WithValue(ctx, roleContextKey{}, role)
}

// RoleFromContext returns the role the policy layer resolved for this
// request, or empty for public routes.
func RoleFromContext(ctx context.Context) Role {
	role, _ := ctx.Value(roleContextKey{}).(Role)
	return role
}
