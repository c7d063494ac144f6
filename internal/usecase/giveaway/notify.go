package giveaway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"superlot/internal/bootstrap/logging"
	domaingiveaway "superlot/internal/domain/giveaway"
	"superlot/internal/errs"
	"superlot/internal/ports"
)

// QueueNotification enqueues the delivery task for a winner. Calling it
// again for the same winner returns the existing task unchanged.
func (s *Service) QueueNotification(ctx context.Context, winnerID uint64) (ports.NotificationTask, error) {
	if ctx == nil {
		return ports.NotificationTask{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return ports.NotificationTask{}, errs.Wrap(err, "check context")
	}
	if s.repo == nil {
		return ports.NotificationTask{}, errors.New("giveaway repository is required")
	}

	winner, err := s.repo.GetWinnerByID(ctx, winnerID)
	if err != nil {
		return ports.NotificationTask{}, err
	}

	task, err := s.repo.CreateNotificationTask(ctx, ports.NotificationTaskCreate{
		WinnerID:   winner.WinnerID,
		GiftCodeID: winner.GiftCodeID,
		Status:     string(domaingiveaway.TaskPending),
		CreatedAt:  s.now(),
	})
	if err != nil {
		return ports.NotificationTask{}, err
	}

	s.setCacheBestEffort(ctx, cacheTaskStatusKey(task.TaskID), task.Status)
	logging.Info(ctx, "notification queued",
		slog.String("component", "usecase.notify"),
		slog.Uint64("winner_id", winner.WinnerID),
		slog.Uint64("task_id", task.TaskID),
	)
	return task, nil
}

// ProcessNotification attempts one delivery for the task. On success the
// task and its winner flip to SENT in one transaction; on failure the retry
// counter advances and, once exhausted, task and winner land on FAILED
// together.
func (s *Service) ProcessNotification(ctx context.Context, taskID uint64) (ports.NotificationTask, error) {
	if ctx == nil {
		return ports.NotificationTask{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return ports.NotificationTask{}, errs.Wrap(err, "check context")
	}
	if s.repo == nil {
		return ports.NotificationTask{}, errors.New("giveaway repository is required")
	}
	if s.uow == nil {
		return ports.NotificationTask{}, errors.New("giveaway unit of work is required")
	}
	if s.messenger == nil {
		return ports.NotificationTask{}, errors.New("messenger is required")
	}
	if s.codec == nil {
		return ports.NotificationTask{}, errors.New("gift codec is required")
	}

	task, err := s.repo.GetNotificationTask(ctx, taskID)
	if err != nil {
		return ports.NotificationTask{}, err
	}
	return s.processTask(ctx, task)
}

func (s *Service) processTask(ctx context.Context, task ports.NotificationTask) (ports.NotificationTask, error) {
	logCtx := logging.WithAttrs(ctx,
		slog.String("component", "usecase.notify"),
		slog.Uint64("task_id", task.TaskID),
		slog.Uint64("winner_id", task.WinnerID),
	)

	status := domaingiveaway.TaskStatus(task.Status)
	if !domaingiveaway.CanTransition(status, domaingiveaway.TaskSending) {
		return task, errs.Wrapf(domaingiveaway.ErrSendFailed, "task %d is %s", task.TaskID, task.Status)
	}
	if task.RetryCount >= s.settings.MaxRetries {
		return task, errs.Wrapf(domaingiveaway.ErrSendFailed, "task %d exhausted %d attempts", task.TaskID, task.RetryCount)
	}

	now := s.now()
	if err := s.repo.MarkTaskSending(ctx, task.TaskID, now); err != nil {
		return task, err
	}
	s.setCacheBestEffort(ctx, cacheTaskStatusKey(task.TaskID), string(domaingiveaway.TaskSending))

	winner, err := s.repo.GetWinnerByID(ctx, task.WinnerID)
	if err != nil {
		return task, s.recordFailure(logCtx, task, fmt.Sprintf("load winner: %v", err))
	}

	message, err := s.renderWinnerMessage(winner)
	if err != nil {
		return task, s.recordFailure(logCtx, task, fmt.Sprintf("render message: %v", err))
	}

	sendCtx := ctx
	if s.settings.SendTimeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, s.settings.SendTimeout)
		defer cancel()
	}

	messageID, err := s.messenger.SendDirectMessage(sendCtx, winner.Handle, message)
	if err != nil {
		return task, s.recordFailure(logCtx, task, err.Error())
	}

	// The send is not transactional with the commit below. A failed commit
	// counts as a failed attempt so the task lands in RETRYING and the next
	// sweep delivers again: the winner may get the message twice, but the
	// consumed code is never stranded. Duplicate sends are accepted; lost
	// codes are not.
	sentAt := s.now()
	err = s.uow.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.MarkTaskSent(txCtx, task.TaskID, messageID, sentAt); err != nil {
			return err
		}
		return s.repo.MarkWinnerSent(txCtx, task.WinnerID, messageID, sentAt)
	})
	if err != nil {
		return task, s.recordFailure(logCtx, task, fmt.Sprintf("commit sent state: %v", err))
	}

	s.setCacheBestEffort(ctx, cacheTaskStatusKey(task.TaskID), string(domaingiveaway.TaskSent))
	s.setCacheBestEffort(ctx, cacheWinnerStatusKey(task.WinnerID), string(domaingiveaway.WinnerSent))
	logging.Info(logCtx, "notification sent", slog.String("message_id", messageID))

	return s.repo.GetNotificationTask(ctx, task.TaskID)
}

// recordFailure advances the retry counter. The final failure moves the
// task and the winner to FAILED in the same transaction so the two never
// disagree.
func (s *Service) recordFailure(ctx context.Context, task ports.NotificationTask, reason string) error {
	now := s.now()
	retryCount := task.RetryCount + 1

	if retryCount >= s.settings.MaxRetries {
		err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
			if err := s.repo.RecordTaskFailure(txCtx, task.TaskID, string(domaingiveaway.TaskFailed), retryCount, reason, now); err != nil {
				return err
			}
			return s.repo.MarkWinnerFailed(txCtx, task.WinnerID)
		})
		if err != nil {
			return errs.Wrap(err, "commit failed state")
		}
		s.setCacheBestEffort(ctx, cacheTaskStatusKey(task.TaskID), string(domaingiveaway.TaskFailed))
		s.setCacheBestEffort(ctx, cacheWinnerStatusKey(task.WinnerID), string(domaingiveaway.WinnerFailed))
		logging.Error(ctx, "notification failed permanently",
			slog.Int("retry_count", retryCount),
			slog.String("reason", reason),
		)
		return errs.Wrapf(domaingiveaway.ErrSendFailed, "%s", reason)
	}

	if err := s.repo.RecordTaskFailure(ctx, task.TaskID, string(domaingiveaway.TaskRetrying), retryCount, reason, now); err != nil {
		return errs.Wrap(err, "record retry")
	}
	s.setCacheBestEffort(ctx, cacheTaskStatusKey(task.TaskID), string(domaingiveaway.TaskRetrying))
	logging.Warn(ctx, "notification attempt failed",
		slog.Int("retry_count", retryCount),
		slog.String("reason", reason),
	)
	return errs.Wrapf(domaingiveaway.ErrSendFailed, "%s", reason)
}

func (s *Service) renderWinnerMessage(winner ports.WinnerDetail) (string, error) {
	code := winner.Code
	if winner.EncryptedCode != "" {
		decrypted, err := s.codec.Decrypt(winner.EncryptedCode)
		if err != nil {
			return "", errs.Wrap(err, "decrypt gift code")
		}
		code = decrypted
	}
	return s.profile.Render(winner.ScreenName, code, winner.Amount)
}

// ProcessResult summarizes one queue sweep.
type ProcessResult struct {
	Processed int
	Sent      int
	Failed    int
}

// ProcessPending delivers queued tasks, at most BatchSize per sweep, with
// MaxConcurrent sends in flight. Each task settles its own outcome; one
// failing send never blocks the rest of the batch.
func (s *Service) ProcessPending(ctx context.Context) (ProcessResult, error) {
	return s.processBatch(ctx, string(domaingiveaway.TaskPending))
}

// RetryFailed picks up tasks parked in RETRYING that still have attempts
// left and runs them through the send path again.
func (s *Service) RetryFailed(ctx context.Context) (ProcessResult, error) {
	return s.processBatch(ctx, string(domaingiveaway.TaskRetrying))
}

func (s *Service) processBatch(ctx context.Context, status string) (ProcessResult, error) {
	if ctx == nil {
		return ProcessResult{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return ProcessResult{}, errs.Wrap(err, "check context")
	}
	if s.repo == nil {
		return ProcessResult{}, errors.New("giveaway repository is required")
	}

	tasks, err := s.repo.ListNotificationTasks(ctx, status, s.settings.MaxRetries, s.settings.BatchSize)
	if err != nil {
		return ProcessResult{}, err
	}
	if len(tasks) == 0 {
		return ProcessResult{}, nil
	}

	logCtx := logging.WithAttrs(ctx,
		slog.String("component", "usecase.notify"),
		slog.String("status", status),
		slog.Int("tasks", len(tasks)),
	)

	var sent, failed int64
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.settings.MaxConcurrent)

	sentCh := make(chan bool, len(tasks))
	for _, task := range tasks {
		task := task
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			// Every per-task error settles as a failed outcome; returning it
			// would cancel the group and abort siblings mid-send. Only parent
			// cancellation stops the sweep.
			if _, err := s.processTask(groupCtx, task); err != nil {
				if !errors.Is(err, domaingiveaway.ErrSendFailed) {
					logging.Error(logCtx, "notification task errored",
						slog.Uint64("task_id", task.TaskID),
						slog.Any("err", errs.Loggable(err)),
					)
				}
				sentCh <- false
				return nil
			}
			sentCh <- true
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return ProcessResult{}, errs.Wrap(err, "process notification batch")
	}
	close(sentCh)
	for ok := range sentCh {
		if ok {
			sent++
		} else {
			failed++
		}
	}

	result := ProcessResult{Processed: len(tasks), Sent: int(sent), Failed: int(failed)}
	logging.Info(logCtx, "notification sweep finished",
		slog.Int("sent", result.Sent),
		slog.Int("failed", result.Failed),
	)
	return result, nil
}

// RearmNotification resets a permanently FAILED task so the operator can
// retry it after fixing the underlying problem, then runs one attempt
// immediately.
func (s *Service) RearmNotification(ctx context.Context, taskID uint64) (ports.NotificationTask, error) {
	if ctx == nil {
		return ports.NotificationTask{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return ports.NotificationTask{}, errs.Wrap(err, "check context")
	}
	if s.repo == nil {
		return ports.NotificationTask{}, errors.New("giveaway repository is required")
	}

	task, err := s.repo.GetNotificationTask(ctx, taskID)
	if err != nil {
		return ports.NotificationTask{}, err
	}
	if domaingiveaway.TaskStatus(task.Status) != domaingiveaway.TaskFailed {
		return task, fmt.Errorf("task %d is %s, only FAILED tasks can be re-armed", taskID, task.Status)
	}

	if err := s.repo.ResetTaskRetries(ctx, taskID); err != nil {
		return ports.NotificationTask{}, err
	}
	task.RetryCount = 0
	task.LastError = ""

	logging.Info(ctx, "notification re-armed",
		slog.String("component", "usecase.notify"),
		slog.Uint64("task_id", taskID),
	)
	return s.processTask(ctx, task)
}

// NotificationStatus reads a task, preferring the cache for the status
// field when it is warm.
func (s *Service) NotificationStatus(ctx context.Context, taskID uint64) (ports.NotificationTask, error) {
	if ctx == nil {
		return ports.NotificationTask{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return ports.NotificationTask{}, errs.Wrap(err, "check context")
	}
	if s.repo == nil {
		return ports.NotificationTask{}, errors.New("giveaway repository is required")
	}

	task, err := s.repo.GetNotificationTask(ctx, taskID)
	if err != nil {
		return ports.NotificationTask{}, err
	}

	if s.cache != nil {
		if cached, ok, cacheErr := s.cache.Get(ctx, cacheTaskStatusKey(taskID)); cacheErr == nil && ok {
			if domaingiveaway.ValidTaskStatus(domaingiveaway.TaskStatus(cached)) {
				task.Status = cached
			}
		}
	}
	return task, nil
}

// ListNotifications returns tasks in the given status, newest-queued last.
// An empty status lists everything the limit allows.
func (s *Service) ListNotifications(ctx context.Context, status string, limit int) ([]ports.NotificationTask, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(err, "check context")
	}
	if s.repo == nil {
		return nil, errors.New("giveaway repository is required")
	}
	if status != "" && !domaingiveaway.ValidTaskStatus(domaingiveaway.TaskStatus(status)) {
		return nil, fmt.Errorf("unknown task status %q", status)
	}
	if limit <= 0 {
		limit = s.settings.BatchSize
	}
	return s.repo.ListNotificationTasks(ctx, status, -1, limit)
}
