package guests

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/gatekeeper-events/gatekeeper/internal/access"
	"github.com/gatekeeper-events/gatekeeper/internal/platform/httpx"
	"github.com/gatekeeper-events/gatekeeper/internal/shared"
)

// ImportEnqueuer hands large import batches to the background worker.
type ImportEnqueuer interface {
	EnqueueImport(ctx context.Context, eventID uuid.UUID, actor string, rows []ImportRow) error
}

// Imports above this row count run in the worker instead of the request.
const asyncImportThreshold = 200

// Handler wires HTTP endpoints for guest management and the public
// check-in flows.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	publisher *RedisPublisher
	policy    access.Policy
	enqueuer  ImportEnqueuer
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, publisher *RedisPublisher, policy access.Policy, enqueuer ImportEnqueuer) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		publisher: publisher,
		policy:    policy,
		enqueuer:  enqueuer,
		validator: validator.New(),
	}
}

// MountEventRoutes registers guest routes scoped to an event.
func (h *Handler) MountEventRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.policy.Require(shared.ResourceGuests, shared.ActionRead))
		r.Get("/{eventID}/guests", h.list)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.policy.Require(shared.ResourceGuests, shared.ActionCreate))
		r.Post("/{eventID}/guests", h.create)
		r.Post("/{eventID}/guests/import", h.importGuests)
	})
}

// MountGuestRoutes registers routes addressing a single guest.
func (h *Handler) MountGuestRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.policy.Require(shared.ResourceGuests, shared.ActionUpdate))
		r.Put("/{guestID}", h.update)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.policy.Require(shared.ResourceGuests, shared.ActionDelete))
		r.Delete("/{guestID}", h.remove)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.policy.Require(shared.ResourceCheckins, shared.ActionCreate))
		r.Post("/{guestID}/checkin", h.checkin)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.policy.Require(shared.ResourceCheckins, shared.ActionDelete))
		r.Delete("/{guestID}/checkin", h.undoCheckin)
	})
}

// MountPublicRoutes registers the unauthenticated flows.
func (h *Handler) MountPublicRoutes(r chi.Router) {
	r.Post("/{eventID}/selfcheckin", h.selfCheckin)
	r.Get("/{eventID}/checkins/stream", h.stream)
}

type guestRequest struct {
	Name       string `json:"name" validate:"required,min=2,max=200"`
	Email      string `json:"email" validate:"omitempty,email"`
	Phone      string `json:"phone" validate:"max=40"`
	Company    string `json:"company" validate:"max=200"`
	TableLabel string `json:"table_label" validate:"max=40"`
}

type guestView struct {
	ID          string     `json:"id"`
	EventID     string     `json:"event_id"`
	Name        string     `json:"name"`
	Email       string     `json:"email,omitempty"`
	Phone       string     `json:"phone,omitempty"`
	Company     string     `json:"company,omitempty"`
	TableLabel  string     `json:"table_label,omitempty"`
	Source      string     `json:"source"`
	CheckedIn   bool       `json:"checked_in"`
	CheckedInAt *time.Time `json:"checked_in_at,omitempty"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	eventID, err := uuid.Parse(chi.URLParam(r, "eventID"))
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	guests, err := h.service.List(r.Context(), eventID, r.URL.Query().Get("q"))
	if err != nil {
		h.logger.Error("list guests", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	views := make([]guestView, len(guests))
	for i := range guests {
		views[i] = toView(&guests[i])
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"guests": views})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	eventID, err := uuid.Parse(chi.URLParam(r, "eventID"))
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	var req guestRequest
	if !h.decode(w, r, &req) {
		return
	}
	guest, err := h.service.Create(r.Context(), eventID, toInput(req), actorFrom(r))
	if err != nil {
		if errors.Is(err, ErrDuplicateGuest) {
			httpx.RespondError(w, httpx.ErrDuplicate)
			return
		}
		h.logger.Error("create guest", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toView(guest))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	guestID, err := uuid.Parse(chi.URLParam(r, "guestID"))
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	var req guestRequest
	if !h.decode(w, r, &req) {
		return
	}
	guest, err := h.service.Update(r.Context(), guestID, toInput(req))
	if err != nil {
		if errors.Is(err, ErrDuplicateGuest) {
			httpx.RespondError(w, httpx.ErrDuplicate)
			return
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toView(guest))
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	guestID, err := uuid.Parse(chi.URLParam(r, "guestID"))
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	if err := h.service.Delete(r.Context(), guestID, actorFrom(r)); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) checkin(w http.ResponseWriter, r *http.Request) {
	h.setCheckin(w, r, true)
}

func (h *Handler) undoCheckin(w http.ResponseWriter, r *http.Request) {
	h.setCheckin(w, r, false)
}

func (h *Handler) setCheckin(w http.ResponseWriter, r *http.Request, checked bool) {
	guestID, err := uuid.Parse(chi.URLParam(r, "guestID"))
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	var guest *Guest
	if checked {
		guest, err = h.service.CheckIn(r.Context(), guestID, actorFrom(r))
	} else {
		guest, err = h.service.UndoCheckIn(r.Context(), guestID, actorFrom(r))
	}
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toView(guest))
}

type importRequest struct {
	Rows []ImportRow `json:"rows" validate:"required,min=1,max=5000"`
}

func (h *Handler) importGuests(w http.ResponseWriter, r *http.Request) {
	eventID, err := uuid.Parse(chi.URLParam(r, "eventID"))
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	var req importRequest
	if !h.decode(w, r, &req) {
		return
	}

	if h.enqueuer != nil && len(req.Rows) > asyncImportThreshold {
		if err := h.enqueuer.EnqueueImport(r.Context(), eventID, actorFrom(r), req.Rows); err != nil {
			h.logger.Error("enqueue import", slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusAccepted, map[string]any{"queued": len(req.Rows)})
		return
	}

	report, err := h.service.Import(r.Context(), eventID, req.Rows, actorFrom(r))
	if err != nil {
		h.logger.Error("import guests", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

type selfCheckinRequest struct {
	Name  string `json:"name" validate:"required,min=2,max=200"`
	Email string `json:"email" validate:"omitempty,email"`
}

func (h *Handler) selfCheckin(w http.ResponseWriter, r *http.Request) {
	eventID, err := uuid.Parse(chi.URLParam(r, "eventID"))
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	var req selfCheckinRequest
	if !h.decode(w, r, &req) {
		return
	}
	guest, err := h.service.SelfCheckIn(r.Context(), eventID, req.Name, req.Email)
	if err != nil {
		switch {
		case errors.Is(err, ErrEventNotPublic):
			httpx.RespondError(w, httpx.ErrForbidden)
		case errors.Is(err, shared.ErrNotFound):
			httpx.RespondError(w, httpx.ErrNotFound)
		default:
			h.logger.Error("self checkin", slog.Any("error", err))
			httpx.RespondError(w, err)
		}
		return
	}
	httpx.JSON(w, http.StatusOK, toView(guest))
}

// stream relays the per-event check-in feed as server-sent events.
func (h *Handler) stream(w http.ResponseWriter, r *http.Request) {
	eventID, err := uuid.Parse(chi.URLParam(r, "eventID"))
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher.Flush()

	g, ctx := errgroup.WithContext(r.Context())
	sub := h.publisher.Subscribe(ctx, eventID)
	ch := sub.Channel()

	g.Go(func() error {
		<-ctx.Done()
		return sub.Close()
	})
	g.Go(func() error {
		ticker := time.NewTicker(25 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case msg, open := <-ch:
				if !open {
					return nil
				}
				if _, err := fmt.Fprintf(w, "data: %s\n\n", msg.Payload); err != nil {
					return err
				}
				flusher.Flush()
			case <-ticker.C:
				if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
					return err
				}
				flusher.Flush()
			}
		}
	})
	if err := g.Wait(); err != nil && h.logger != nil {
		h.logger.Debug("checkin stream closed", slog.Any("error", err))
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return false
	}
	if err := h.validator.Struct(target); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return false
	}
	return true
}

func actorFrom(r *http.Request) string {
	if id := shared.UserIDFromContext(r.Context()); id != "" {
		return id
	}
	return PublicActor
}

func toInput(req guestRequest) GuestInput {
	return GuestInput{
		Name:       req.Name,
		Email:      req.Email,
		Phone:      req.Phone,
		Company:    req.Company,
		TableLabel: req.TableLabel,
	}
}

func toView(g *Guest) guestView {
	return guestView{
		ID:          g.ID.String(),
		EventID:     g.EventID.String(),
		Name:        g.Name,
		Email:       g.Email,
		Phone:       g.Phone,
		Company:     g.Company,
		TableLabel:  g.TableLabel,
		Source:      g.Source,
		CheckedIn:   g.CheckedIn,
		CheckedInAt: g.CheckedInAt,
	}
}
