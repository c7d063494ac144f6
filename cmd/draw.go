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

var drawCmd = &cobra.Command{
	Use:   "draw",
	Short: "Draw winners and bind gift codes",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *giveaway.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		count, _ := cmd.Flags().GetInt("count")
		queueNotifications, _ := cmd.Flags().GetBool("notify")

		winners, err := svc.DrawWinners(ctx, count)
		if err != nil {
			logging.Error(ctx, "draw failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "draw winners")
		}

		out := cmd.OutOrStdout()
		if _, err := fmt.Fprintf(out, "drew %d winners\n", len(winners)); err != nil {
			return errs.Wrap(err, "write draw output")
		}
		for _, winner := range winners {
			if _, err := fmt.Fprintf(out, "  winner %d: @%s gift_code=%d token=%s\n",
				winner.WinnerID, winner.Handle, winner.GiftCodeID, winner.Token); err != nil {
				return errs.Wrap(err, "write draw output")
			}
			if !queueNotifications {
				continue
			}
			if _, err := svc.QueueNotification(ctx, winner.WinnerID); err != nil {
				logging.Error(ctx, "queue notification failed",
					slog.Uint64("winner_id", winner.WinnerID),
					slog.Any("err", errs.Loggable(err)),
				)
				return errs.Wrap(err, "queue notification")
			}
		}
		if queueNotifications {
			if _, err := fmt.Fprintf(out, "queued %d notifications\n", len(winners)); err != nil {
				return errs.Wrap(err, "write draw output")
			}
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(drawCmd)

	drawCmd.Flags().Int("count", 1, "Number of winners to draw")
	drawCmd.Flags().Bool("notify", false, "Queue a notification task for each winner")
}
