package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/gatekeeper-events/gatekeeper/internal/checkinlog"
	"github.com/gatekeeper-events/gatekeeper/internal/guests"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskGuestsImport processes large guest list imports off-request.
	TaskGuestsImport = "guests:import"
	// TaskLogsPrune trims old check-in log entries on a schedule.
	TaskLogsPrune = "logs:prune"
)

// GuestsImportPayload carries an import batch destined for one event.
type GuestsImportPayload struct {
	EventID uuid.UUID          `json:"event_id"`
	Actor   string             `json:"actor"`
	Rows    []guests.ImportRow `json:"rows"`
}

// NewGuestsImportTask constructs an Asynq task.
func NewGuestsImportTask(payload GuestsImportPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskGuestsImport, data), nil
}

// NewGuestsImportHandler processes TaskGuestsImport tasks.
func NewGuestsImportHandler(service *guests.Service, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload GuestsImportPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		report, err := service.Import(ctx, payload.EventID, payload.Rows, payload.Actor)
		if err != nil {
			logger.Error("guest import job", slog.Any("error", err), slog.String("event_id", payload.EventID.String()))
			return err
		}
		logger.Info("guest import done",
			slog.String("event_id", payload.EventID.String()),
			slog.Int("inserted", report.Inserted),
			slog.Int("skipped", report.Skipped))
		return nil
	}
}

// NewLogsPruneTask constructs the scheduled log retention task.
func NewLogsPruneTask() *asynq.Task {
	return asynq.NewTask(TaskLogsPrune, nil)
}

// NewLogsPruneHandler trims log entries older than the retention window.
func NewLogsPruneHandler(service *checkinlog.Service, retention time.Duration, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		removed, err := service.Prune(ctx, retention)
		if err != nil {
			logger.Error("log prune job", slog.Any("error", err))
			return err
		}
		if removed > 0 {
			logger.Info("log prune done", slog.Int64("removed", removed))
		}
		return nil
	}
}
