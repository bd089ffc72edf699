package access

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/gatekeeper-events/gatekeeper/internal/platform/httpx"
	"github.com/gatekeeper-events/gatekeeper/internal/shared"
)

// Handler wires HTTP endpoints for role and access code administration.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	resolver  *Resolver
	policy    Policy
	limiter   func(http.Handler) http.Handler
	validator *validator.Validate
}

// NewHandler constructs a Handler instance. limiter throttles the code
// submission endpoint and may be nil.
func NewHandler(logger *slog.Logger, service *Service, resolver *Resolver, policy Policy, limiter func(http.Handler) http.Handler) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		resolver:  resolver,
		policy:    policy,
		limiter:   limiter,
		validator: validator.New(),
	}
}

// MountRoutes registers access routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/me", h.myRole)
	if h.limiter != nil {
		// Codes are shared secrets; keep guessing expensive.
		r.With(h.limiter).Post("/assign", h.assignWithCode)
	} else {
		r.Post("/assign", h.assignWithCode)
	}
	r.Group(func(r chi.Router) {
		r.Use(h.policy.Require(shared.ResourceRoleAssignments, shared.ActionRead))
		r.Get("/assignments", h.listAssignments)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.policy.Require(shared.ResourceRoleAssignments, shared.ActionDelete))
		r.Delete("/assignments/{userID}", h.removeUser)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.policy.Require(shared.ResourceAccessCodes, shared.ActionRead))
		r.Get("/codes", h.listCodes)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.policy.Require(shared.ResourceAccessCodes, shared.ActionUpdate))
		r.Put("/codes/{role}", h.updateCode)
	})
}

type roleResponse struct {
	Role *Role `json:"role"`
}

func (h *Handler) myRole(w http.ResponseWriter, r *http.Request) {
	raw := shared.UserIDFromContext(r.Context())
	if raw == "" {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	role, err := h.resolver.RoleOf(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrNoRole) {
			httpx.JSON(w, http.StatusOK, roleResponse{Role: nil})
			return
		}
		h.logger.Error("resolve own role", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, roleResponse{Role: &role})
}

type assignRequest struct {
	AccessCode string `json:"access_code" validate:"required,min=4,max=128"`
}

// assignWithCode lets an authenticated user without a role submit a code.
// This is the same privileged operation the signup flow invokes; the
// caller supplies a code, never a role.
func (h *Handler) assignWithCode(w http.ResponseWriter, r *http.Request) {
	raw := shared.UserIDFromContext(r.Context())
	if raw == "" {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	var req assignRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	role, err := h.service.AssignRoleWithCode(r.Context(), userID, req.AccessCode)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCode):
			httpx.Problem(w, http.StatusUnprocessableEntity, "Invalid Code", "access code does not match any role")
		case errors.Is(err, ErrAlreadyAssigned):
			httpx.Problem(w, http.StatusConflict, "Already Assigned", "a role is already assigned to this account")
		default:
			h.logger.Error("assign role", slog.Any("error", err))
			httpx.RespondError(w, err)
		}
		return
	}
	httpx.JSON(w, http.StatusCreated, roleResponse{Role: &role})
}

type assignmentView struct {
	UserID    string `json:"user_id"`
	Role      Role   `json:"role"`
	CreatedAt string `json:"created_at"`
}

func (h *Handler) listAssignments(w http.ResponseWriter, r *http.Request) {
	assignments, err := h.service.ListAssignments(r.Context())
	if err != nil {
		h.logger.Error("list assignments", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	views := make([]assignmentView, len(assignments))
	for i, a := range assignments {
		views[i] = assignmentView{
			UserID:    a.UserID.String(),
			Role:      a.Role,
			CreatedAt: a.CreatedAt.UTC().Format(time.RFC3339),
		}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"assignments": views})
}

func (h *Handler) removeUser(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid user id")
		return
	}
	if err := h.service.RemoveUser(r.Context(), userID); err != nil {
		h.logger.Error("remove user", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type codeView struct {
	Role      Role   `json:"role"`
	Code      string `json:"code"`
	UpdatedAt string `json:"updated_at"`
}

func (h *Handler) listCodes(w http.ResponseWriter, r *http.Request) {
	codes, err := h.service.ListCodes(r.Context())
	if err != nil {
		h.logger.Error("list codes", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	views := make([]codeView, len(codes))
	for i, c := range codes {
		views[i] = codeView{
			Role:      c.Role,
			Code:      c.Code,
			UpdatedAt: c.UpdatedAt.UTC().Format(time.RFC3339),
		}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"codes": views})
}

type updateCodeRequest struct {
	Code string `json:"code" validate:"required,min=4,max=128"`
}

func (h *Handler) updateCode(w http.ResponseWriter, r *http.Request) {
	role := Role(chi.URLParam(r, "role"))
	if !role.Valid() {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	var req updateCodeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	raw := shared.UserIDFromContext(r.Context())
	updatedBy, err := uuid.Parse(raw)
	if err != nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	if err := h.service.UpdateCode(r.Context(), role, req.Code, updatedBy); err != nil {
		if errors.Is(err, ErrUnknownRole) {
			httpx.RespondError(w, httpx.ErrNotFound)
			return
		}
		h.logger.Error("update code", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
