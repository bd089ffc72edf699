package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/gatekeeper-events/gatekeeper/internal/access"
	"github.com/gatekeeper-events/gatekeeper/internal/app"
	"github.com/gatekeeper-events/gatekeeper/internal/checkinlog"
	"github.com/gatekeeper-events/gatekeeper/internal/events"
	"github.com/gatekeeper-events/gatekeeper/internal/guests"
	"github.com/gatekeeper-events/gatekeeper/internal/identity"
	"github.com/gatekeeper-events/gatekeeper/internal/platform/cache"
	"github.com/gatekeeper-events/gatekeeper/internal/platform/db"
	"github.com/gatekeeper-events/gatekeeper/internal/profiles"
	"github.com/gatekeeper-events/gatekeeper/internal/shared"
	"github.com/gatekeeper-events/gatekeeper/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	if err := db.Migrate(cfg.PGDSN); err != nil {
		logger.Error("run migrations", slog.Any("error", err))
		os.Exit(1)
	}

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "gatekeeper_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	resolver := access.NewResolver(pool)
	policy := access.Policy{Roles: resolver, Logger: logger}

	accessRepo := access.NewRepository(pool)
	accessService := access.NewService(accessRepo, logger)
	accessHandler := access.NewHandler(logger, accessService, resolver, policy, app.SignupRateLimiter(cfg))

	profilesRepo := profiles.NewRepository(pool)
	profilesService := profiles.NewService(profilesRepo)
	profilesHandler := profiles.NewHandler(logger, profilesService, policy)

	identityRepo := identity.NewRepository(pool)
	identityService := identity.NewService(identityRepo, profilesService, logger)
	identityHandler := identity.NewHandler(logger, identityService, accessService, sessionManager, csrfManager)

	eventsRepo := events.NewRepository(pool)
	eventsService := events.NewService(eventsRepo)
	eventsHandler := events.NewHandler(logger, eventsService, policy)

	logsRepo := checkinlog.NewRepository(pool)
	logsService := checkinlog.NewService(logsRepo)
	logsHandler := checkinlog.NewHandler(logger, logsService, policy)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	publisher := guests.NewRedisPublisher(redisClient)
	guestsRepo := guests.NewRepository(pool)
	guestsService := guests.NewService(guestsRepo, publisher, logsService, logger)
	guestsHandler := guests.NewHandler(logger, guestsService, publisher, policy, jobClient)

	jobsHandler := jobs.NewHandler(asynq.NewInspector(redisOpts), logger)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		SessionManager:  sessionManager,
		CSRFManager:     csrfManager,
		IdentityHandler: identityHandler,
		AccessHandler:   accessHandler,
		ProfilesHandler: profilesHandler,
		EventsHandler:   eventsHandler,
		GuestsHandler:   guestsHandler,
		LogsHandler:     logsHandler,
		JobsHandler:     jobsHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		// No write deadline. The public check-in stream holds its
		// response open for the lifetime of the kiosk connection.
		WriteTimeout: 0,
		IdleTimeout:  cfg.AppIdleTimeout,
	}

	go func() {
		logger.Info("listening", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", slog.Any("error", err))
	}
	logger.Info("stopped")
}
