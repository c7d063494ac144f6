package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"superlot/internal/bootstrap"
	"superlot/internal/bootstrap/logging"
	"superlot/internal/errs"
	"superlot/internal/usecase/giveaway"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the notification worker on its schedule until interrupted",
	RunE: withWorker(func(cmd *cobra.Command, app *bootstrap.App, worker *giveaway.Worker) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		once, _ := cmd.Flags().GetBool("once")
		if once {
			worker.Tick(ctx)
			if _, err := fmt.Fprintln(cmd.OutOrStdout(), "sweep completed"); err != nil {
				return errs.Wrap(err, "write worker output")
			}
			return nil
		}

		if err := worker.Start(ctx); err != nil {
			logging.Error(ctx, "start worker failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "start worker")
		}
		defer worker.Stop()

		logging.Info(ctx, "worker running",
			slog.String("schedule", app.Config.Notification.Schedule))

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		select {
		case sig := <-stop:
			logging.Info(ctx, "worker stopping", slog.String("signal", sig.String()))
		case <-ctx.Done():
			logging.Info(ctx, "worker context cancelled")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(workerCmd)

	workerCmd.Flags().Bool("once", false, "Run a single sweep and exit")
}
