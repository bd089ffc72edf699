package events

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/gatekeeper-events/gatekeeper/internal/access"
	"github.com/gatekeeper-events/gatekeeper/internal/platform/httpx"
	"github.com/gatekeeper-events/gatekeeper/internal/shared"
)

// Handler wires HTTP endpoints for event management.
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

// MountRoutes registers authenticated event routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.policy.Require(shared.ResourceEvents, shared.ActionRead))
		r.Get("/", h.list)
		r.Get("/{eventID}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.policy.Require(shared.ResourceEvents, shared.ActionCreate))
		r.Post("/", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.policy.Require(shared.ResourceEvents, shared.ActionUpdate))
		r.Put("/{eventID}", h.update)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.policy.Require(shared.ResourceEvents, shared.ActionDelete))
		r.Delete("/{eventID}", h.remove)
	})
}

// MountPublicRoutes registers the unauthenticated display read.
func (h *Handler) MountPublicRoutes(r chi.Router) {
	r.Get("/{eventID}/display", h.display)
}

type eventRequest struct {
	Name         string    `json:"name" validate:"required,min=2,max=200"`
	Venue        string    `json:"venue" validate:"max=200"`
	StartsAt     time.Time `json:"starts_at" validate:"required"`
	WifiNetwork  string    `json:"wifi_network" validate:"max=120"`
	WifiPassword string    `json:"wifi_password" validate:"max=120"`
	CoverURL     string    `json:"cover_url" validate:"omitempty,url"`
	Public       bool      `json:"public"`
}

type eventView struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Venue        string    `json:"venue"`
	StartsAt     time.Time `json:"starts_at"`
	WifiNetwork  string    `json:"wifi_network"`
	WifiPassword string    `json:"wifi_password"`
	CoverURL     string    `json:"cover_url,omitempty"`
	Public       bool      `json:"public"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list events", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	views := make([]eventView, len(list))
	for i := range list {
		views[i] = toView(&list[i])
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"events": views})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "eventID"))
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	event, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	httpx.JSON(w, http.StatusOK, toView(event))
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	userID, err := uuid.Parse(shared.UserIDFromContext(r.Context()))
	if err != nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	event, err := h.service.Create(r.Context(), toInput(req), userID)
	if err != nil {
		h.logger.Error("create event", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toView(event))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "eventID"))
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	event, err := h.service.Update(r.Context(), id, toInput(req))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toView(event))
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "eventID"))
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) display(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "eventID"))
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	info, err := h.service.Display(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	httpx.JSON(w, http.StatusOK, info)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (eventRequest, bool) {
	var req eventRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return req, false
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return req, false
	}
	return req, true
}

func toInput(req eventRequest) EventInput {
	return EventInput{
		Name:         req.Name,
		Venue:        req.Venue,
		StartsAt:     req.StartsAt,
		WifiNetwork:  req.WifiNetwork,
		WifiPassword: req.WifiPassword,
		CoverURL:     req.CoverURL,
		Public:       req.Public,
	}
}

func toView(e *Event) eventView {
	return eventView{
		ID:           e.ID.String(),
		Name:         e.Name,
		Venue:        e.Venue,
		StartsAt:     e.StartsAt,
		WifiNetwork:  e.WifiNetwork,
		WifiPassword: e.WifiPassword,
		CoverURL:     e.CoverURL,
		Public:       e.Public,
	}
}
