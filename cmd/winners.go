package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"superlot/internal/bootstrap"
	"superlot/internal/bootstrap/logging"
	"superlot/internal/errs"
	"superlot/internal/usecase/giveaway"
)

var winnersCmd = &cobra.Command{
	Use:   "winners",
	Short: "Inspect and manage winning records",
}

var winnersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all winners",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *giveaway.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		winners, err := svc.ListWinners(ctx)
		if err != nil {
			return errs.Wrap(err, "list winners")
		}

		out := cmd.OutOrStdout()
		if _, err := fmt.Fprintf(out, "winners: %d\n", len(winners)); err != nil {
			return errs.Wrap(err, "write winners output")
		}
		for _, winner := range winners {
			confirmed := ""
			if winner.ConfirmedAt != nil {
				confirmed = " confirmed"
			}
			if _, err := fmt.Fprintf(out, "  winner %d: @%s amount=%d status=%s%s\n",
				winner.WinnerID, winner.Handle, winner.Amount, winner.Status, confirmed); err != nil {
				return errs.Wrap(err, "write winners output")
			}
		}
		return nil
	}),
}

var winnersGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show the winning record for a participant",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *giveaway.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		handle, _ := cmd.Flags().GetString("handle")
		winner, err := svc.GetWinnerByHandle(ctx, handle)
		if err != nil {
			return errs.Wrap(err, "get winner")
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "winner %d: @%s amount=%d status=%s token=%s\n",
			winner.WinnerID, winner.Handle, winner.Amount, winner.Status, winner.Token); err != nil {
			return errs.Wrap(err, "write winner output")
		}
		return nil
	}),
}

var winnersConfirmCmd = &cobra.Command{
	Use:   "confirm",
	Short: "Confirm a claim by its token",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *giveaway.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		token, _ := cmd.Flags().GetString("token")
		view, err := svc.ConfirmClaim(ctx, token)
		if err != nil {
			logging.Error(ctx, "confirm claim failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "confirm claim")
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "winner %d confirmed, status=%s\n", view.WinnerID, view.Status); err != nil {
			return errs.Wrap(err, "write confirm output")
		}
		return nil
	}),
}

var winnersExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the winner roster as CSV",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *giveaway.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		path, _ := cmd.Flags().GetString("out")
		writer := cmd.OutOrStdout()
		if path != "" {
			file, err := os.Create(path)
			if err != nil {
				return errs.Wrap(err, "create export file")
			}
			defer file.Close()
			writer = file
		}

		exported, err := svc.ExportWinnersCSV(ctx, writer)
		if err != nil {
			logging.Error(ctx, "export winners failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "export winners")
		}

		if path != "" {
			if _, err := fmt.Fprintf(cmd.OutOrStdout(), "exported %d winners to %s\n", exported, path); err != nil {
				return errs.Wrap(err, "write export output")
			}
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(winnersCmd)
	winnersCmd.AddCommand(winnersListCmd)
	winnersCmd.AddCommand(winnersGetCmd)
	winnersCmd.AddCommand(winnersConfirmCmd)
	winnersCmd.AddCommand(winnersExportCmd)

	winnersGetCmd.Flags().String("handle", "", "Participant handle (required)")
	_ = winnersGetCmd.MarkFlagRequired("handle")

	winnersConfirmCmd.Flags().String("token", "", "Claim token (required)")
	_ = winnersConfirmCmd.MarkFlagRequired("token")

	winnersExportCmd.Flags().String("out", "", "Output file (stdout when empty)")
}
