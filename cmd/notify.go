package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"superlot/internal/bootstrap"
	"superlot/internal/bootstrap/logging"
	"superlot/internal/errs"
	"superlot/internal/usecase/giveaway"
)

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Manage the winner notification queue",
}

var notifyQueueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Enqueue the notification for a winner",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *giveaway.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		winnerID, _ := cmd.Flags().GetUint64("winner")
		task, err := svc.QueueNotification(ctx, winnerID)
		if err != nil {
			logging.Error(ctx, "queue notification failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "queue notification")
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "task %d queued for winner %d, status=%s\n",
			task.TaskID, task.WinnerID, task.Status); err != nil {
			return errs.Wrap(err, "write queue output")
		}
		return nil
	}),
}

var notifyProcessCmd = &cobra.Command{
	Use:   "process",
	Short: "Attempt delivery for one task",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *giveaway.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		taskID, _ := cmd.Flags().GetUint64("task")
		task, err := svc.ProcessNotification(ctx, taskID)
		if err != nil {
			logging.Error(ctx, "process notification failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "process notification")
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "task %d status=%s retries=%d\n",
			task.TaskID, task.Status, task.RetryCount); err != nil {
			return errs.Wrap(err, "write process output")
		}
		return nil
	}),
}

var notifySweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one pending sweep plus one retry sweep",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *giveaway.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		pending, err := svc.ProcessPending(ctx)
		if err != nil {
			logging.Error(ctx, "pending sweep failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "process pending")
		}
		retried, err := svc.RetryFailed(ctx)
		if err != nil {
			logging.Error(ctx, "retry sweep failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "retry failed")
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "pending: %d sent, %d failed; retried: %d sent, %d failed\n",
			pending.Sent, pending.Failed, retried.Sent, retried.Failed); err != nil {
			return errs.Wrap(err, "write sweep output")
		}
		return nil
	}),
}

var notifyRearmCmd = &cobra.Command{
	Use:   "rearm",
	Short: "Reset a permanently failed task and retry it",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *giveaway.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		taskID, _ := cmd.Flags().GetUint64("task")
		task, err := svc.RearmNotification(ctx, taskID)
		if err != nil {
			logging.Error(ctx, "rearm notification failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "rearm notification")
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "task %d status=%s retries=%d\n",
			task.TaskID, task.Status, task.RetryCount); err != nil {
			return errs.Wrap(err, "write rearm output")
		}
		return nil
	}),
}

var notifyStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show one task",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *giveaway.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		taskID, _ := cmd.Flags().GetUint64("task")
		task, err := svc.NotificationStatus(ctx, taskID)
		if err != nil {
			return errs.Wrap(err, "get notification status")
		}

		lastError := task.LastError
		if lastError == "" {
			lastError = "-"
		}
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "task %d winner=%d status=%s retries=%d last_error=%s\n",
			task.TaskID, task.WinnerID, task.Status, task.RetryCount, lastError); err != nil {
			return errs.Wrap(err, "write status output")
		}
		return nil
	}),
}

var notifyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks, optionally filtered by status",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *giveaway.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")
		tasks, err := svc.ListNotifications(ctx, status, limit)
		if err != nil {
			return errs.Wrap(err, "list notifications")
		}

		out := cmd.OutOrStdout()
		if _, err := fmt.Fprintf(out, "tasks: %d\n", len(tasks)); err != nil {
			return errs.Wrap(err, "write list output")
		}
		for _, task := range tasks {
			if _, err := fmt.Fprintf(out, "  task %d winner=%d status=%s retries=%d\n",
				task.TaskID, task.WinnerID, task.Status, task.RetryCount); err != nil {
				return errs.Wrap(err, "write list output")
			}
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(notifyCmd)
	notifyCmd.AddCommand(notifyQueueCmd)
	notifyCmd.AddCommand(notifyProcessCmd)
	notifyCmd.AddCommand(notifySweepCmd)
	notifyCmd.AddCommand(notifyRearmCmd)
	notifyCmd.AddCommand(notifyStatusCmd)
	notifyCmd.AddCommand(notifyListCmd)

	notifyQueueCmd.Flags().Uint64("winner", 0, "Winner id (required)")
	_ = notifyQueueCmd.MarkFlagRequired("winner")

	notifyProcessCmd.Flags().Uint64("task", 0, "Task id (required)")
	_ = notifyProcessCmd.MarkFlagRequired("task")

	notifyRearmCmd.Flags().Uint64("task", 0, "Task id (required)")
	_ = notifyRearmCmd.MarkFlagRequired("task")

	notifyStatusCmd.Flags().Uint64("task", 0, "Task id (required)")
	_ = notifyStatusCmd.MarkFlagRequired("task")

	notifyListCmd.Flags().String("status", "", "Filter by task status")
	notifyListCmd.Flags().Int("limit", 50, "Maximum tasks to list")
}
