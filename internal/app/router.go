package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/gatekeeper-events/gatekeeper/internal/access"
	"github.com/gatekeeper-events/gatekeeper/internal/checkinlog"
	"github.com/gatekeeper-events/gatekeeper/internal/events"
	"github.com/gatekeeper-events/gatekeeper/internal/guests"
	"github.com/gatekeeper-events/gatekeeper/internal/identity"
	"github.com/gatekeeper-events/gatekeeper/internal/profiles"
	"github.com/gatekeeper-events/gatekeeper/internal/shared"
	"github.com/gatekeeper-events/gatekeeper/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	SessionManager  *shared.SessionManager
	CSRFManager     *shared.CSRFManager
	IdentityHandler *identity.Handler
	AccessHandler   *access.Handler
	ProfilesHandler *profiles.Handler
	EventsHandler   *events.Handler
	GuestsHandler   *guests.Handler
	LogsHandler     *checkinlog.Handler
	JobsHandler     *jobs.Handler
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", func(r chi.Router) {
		r.Use(SignupRateLimiter(params.Config))
		params.IdentityHandler.MountRoutes(r)
	})

	r.Route("/access", params.AccessHandler.MountRoutes)
	r.Route("/account", params.ProfilesHandler.MountRoutes)

	r.Route("/events", func(r chi.Router) {
		params.EventsHandler.MountRoutes(r)
		params.GuestsHandler.MountEventRoutes(r)
	})
	r.Route("/guests", params.GuestsHandler.MountGuestRoutes)
	r.Route("/logs", params.LogsHandler.MountRoutes)

	// Kiosk and totem endpoints, no session required.
	r.Route("/public/events", func(r chi.Router) {
		params.EventsHandler.MountPublicRoutes(r)
		params.GuestsHandler.MountPublicRoutes(r)
	})

	if params.JobsHandler != nil {
		r.Route("/jobs", params.JobsHandler.MountRoutes)
	}

	return r
}
