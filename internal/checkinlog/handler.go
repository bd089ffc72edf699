package checkinlog

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/gatekeeper-events/gatekeeper/internal/access"
	"github.com/gatekeeper-events/gatekeeper/internal/platform/httpx"
	"github.com/gatekeeper-events/gatekeeper/internal/shared"
)

// Handler exposes the timeline read.
type Handler struct {
	logger  *slog.Logger
	service *Service
	policy  access.Policy
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, policy access.Policy) *Handler {
	return &Handler{logger: logger, service: service, policy: policy}
}

// MountRoutes registers log routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.policy.Require(shared.ResourceLogs, shared.ActionRead))
		r.Get("/", h.timeline)
	})
}

type entryView struct {
	ID        string    `json:"id"`
	EventID   string    `json:"event_id"`
	GuestID   string    `json:"guest_id"`
	GuestName string    `json:"guest_name"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	Detail    string    `json:"detail,omitempty"`
	At        time.Time `json:"at"`
}

func (h *Handler) timeline(w http.ResponseWriter, r *http.Request) {
	filters := TimelineFilters{Action: r.URL.Query().Get("action")}
	if raw := r.URL.Query().Get("event_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httpx.RespondError(w, httpx.ErrValidation)
			return
		}
		filters.EventID = id
	}
	filters.Page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	filters.PageSize, _ = strconv.Atoi(r.URL.Query().Get("page_size"))

	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		h.logger.Error("log timeline", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	views := make([]entryView, len(result.Rows))
	for i, e := range result.Rows {
		views[i] = entryView{
			ID:        e.ID,
			EventID:   e.EventID.String(),
			GuestID:   e.GuestID.String(),
			GuestName: e.GuestName,
			Actor:     e.Actor,
			Action:    e.Action,
			Detail:    e.Detail,
			At:        e.At,
		}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"entries": views, "paging": result.Paging})
}
