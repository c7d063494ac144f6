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

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show campaign totals",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App, svc *giveaway.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		if err := app.Ping(ctx); err != nil {
			logging.Error(ctx, "database ping failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "ping database")
		}

		overview, err := svc.CampaignStats(ctx)
		if err != nil {
			logging.Error(ctx, "load campaign stats failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "load campaign stats")
		}

		out := cmd.OutOrStdout()
		lines := []string{
			"database:      ok",
			fmt.Sprintf("entries:       %d total, %d valid, %d invalid, %d today", overview.TotalEntries, overview.ValidEntries, overview.InvalidEntries, overview.TodayEntries),
			fmt.Sprintf("participants:  %d unique, %d followers", overview.UniqueParticipants, overview.Followers),
			fmt.Sprintf("inventory:     %d codes available", overview.AvailableCodes),
			fmt.Sprintf("winners:       %d drawn, %d notified, %d failed", overview.Winners, overview.NotifiedWinners, overview.FailedWinners),
		}
		for _, line := range lines {
			if _, err := fmt.Fprintln(out, line); err != nil {
				return errs.Wrap(err, "write stats output")
			}
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
