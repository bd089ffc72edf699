package profiles

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/gatekeeper-events/gatekeeper/internal/access"
	"github.com/gatekeeper-events/gatekeeper/internal/platform/httpx"
	"github.com/gatekeeper-events/gatekeeper/internal/shared"
)

// Handler wires HTTP endpoints for profile management.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	policy    access.Policy
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, policy access.Policy) *Handler {
	return &Handler{logger: logger, service: service, policy: policy, validator: validator.New()}
}

// MountRoutes registers profile routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/profile", h.myProfile)
	r.Put("/profile", h.renameSelf)
	r.Group(func(r chi.Router) {
		r.Use(h.policy.Require(shared.ResourceProfiles, shared.ActionRead))
		r.Get("/profiles", h.listProfiles)
	})
}

type profileView struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

func (h *Handler) myProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	profile, err := h.service.Get(r.Context(), userID)
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	httpx.JSON(w, http.StatusOK, toView(profile))
}

type renameRequest struct {
	DisplayName string `json:"display_name" validate:"required,min=2,max=120"`
}

func (h *Handler) renameSelf(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	var req renameRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.service.Rename(r.Context(), userID, req.DisplayName); err != nil {
		h.logger.Error("rename profile", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list profiles", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	views := make([]profileView, len(profiles))
	for i := range profiles {
		views[i] = toView(&profiles[i])
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"profiles": views})
}

func toView(p *Profile) profileView {
	return profileView{UserID: p.UserID.String(), Email: p.Email, DisplayName: p.DisplayName}
}

func currentUserID(r *http.Request) (uuid.UUID, bool) {
	raw := shared.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
