package giveaway

import (
	"context"
	"errors"
	"log/slog"

	"github.com/robfig/cron/v3"

	"superlot/internal/bootstrap/logging"
	"superlot/internal/errs"
)

// Worker drives the notification queue on a cron schedule. Each tick runs
// one pending sweep followed by one retry sweep.
type Worker struct {
	service  *Service
	schedule string
	cron     *cron.Cron
}

func NewWorker(service *Service, schedule string) (*Worker, error) {
	if service == nil {
		return nil, errors.New("giveaway service is required")
	}
	if schedule == "" {
		schedule = "@every 1m"
	}
	return &Worker{
		service:  service,
		schedule: schedule,
		cron:     cron.New(),
	}, nil
}

// Start registers the sweep job and launches the scheduler. The given
// context bounds every tick; Stop waits for a running tick to finish.
func (w *Worker) Start(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}

	logCtx := logging.WithAttrs(ctx,
		slog.String("component", "worker"),
		slog.String("schedule", w.schedule),
	)

	_, err := w.cron.AddFunc(w.schedule, func() {
		w.Tick(logCtx)
	})
	if err != nil {
		return errs.Wrap(err, "register notification sweep")
	}

	w.cron.Start()
	logging.Info(logCtx, "notification worker started")
	return nil
}

// Tick runs one full sweep immediately. Exposed so the CLI can force a
// sweep outside the schedule.
func (w *Worker) Tick(ctx context.Context) {
	if pending, err := w.service.ProcessPending(ctx); err != nil {
		logging.Error(ctx, "pending sweep failed", slog.Any("err", errs.Loggable(err)))
	} else if pending.Processed > 0 {
		logging.Info(ctx, "pending sweep done",
			slog.Int("sent", pending.Sent),
			slog.Int("failed", pending.Failed),
		)
	}

	if retried, err := w.service.RetryFailed(ctx); err != nil {
		logging.Error(ctx, "retry sweep failed", slog.Any("err", errs.Loggable(err)))
	} else if retried.Processed > 0 {
		logging.Info(ctx, "retry sweep done",
			slog.Int("sent", retried.Sent),
			slog.Int("failed", retried.Failed),
		)
	}
}

// Stop halts the scheduler and blocks until in-flight jobs return.
func (w *Worker) Stop() {
	stopCtx := w.cron.Stop()
	<-stopCtx.Done()
}
