package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/gatekeeper-events/gatekeeper/internal/app"
	"github.com/gatekeeper-events/gatekeeper/internal/checkinlog"
	"github.com/gatekeeper-events/gatekeeper/internal/guests"
	"github.com/gatekeeper-events/gatekeeper/internal/platform/cache"
	"github.com/gatekeeper-events/gatekeeper/internal/platform/db"
	"github.com/gatekeeper-events/gatekeeper/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	logsRepo := checkinlog.NewRepository(pool)
	logsService := checkinlog.NewService(logsRepo)

	publisher := guests.NewRedisPublisher(redisClient)
	guestsRepo := guests.NewRepository(pool)
	guestsService := guests.NewService(guestsRepo, publisher, logsService, logger)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskGuestsImport, Handler: jobs.NewGuestsImportHandler(guestsService, logger)},
			{Type: jobs.TaskLogsPrune, Handler: jobs.NewLogsPruneHandler(logsService, cfg.LogRetention, logger)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 4 * * *", Task: jobs.NewLogsPruneTask()},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("worker started")
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("worker stopped")
}
