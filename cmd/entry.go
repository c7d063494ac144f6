package cmd

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"superlot/internal/bootstrap"
	"superlot/internal/bootstrap/logging"
	"superlot/internal/errs"
	"superlot/internal/usecase/giveaway"
)

var entryCmd = &cobra.Command{
	Use:   "entry",
	Short: "Record and inspect campaign entries",
}

var entrySubmitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Record one entry for a participant",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *giveaway.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		handle, _ := cmd.Flags().GetString("handle")
		eventID, _ := cmd.Flags().GetString("event-id")
		eventAtRaw, _ := cmd.Flags().GetString("event-at")
		correlationKey, _ := cmd.Flags().GetString("correlation-key")

		var eventAt time.Time
		if eventAtRaw != "" {
			parsed, err := time.Parse(time.RFC3339, eventAtRaw)
			if err != nil {
				return errs.Wrap(err, "parse event-at")
			}
			eventAt = parsed
		}

		result, err := svc.SubmitEntry(ctx, giveaway.SubmitEntryInput{
			Handle:         handle,
			SourceEventID:  eventID,
			SourceEventAt:  eventAt,
			CorrelationKey: correlationKey,
		})
		if err != nil {
			logging.Error(ctx, "submit entry failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "submit entry")
		}

		out := cmd.OutOrStdout()
		if result.Valid {
			_, err = fmt.Fprintf(out, "entry %d recorded for @%s\n", result.EntryID, handle)
		} else {
			_, err = fmt.Fprintf(out, "entry %d recorded as invalid: %s\n", result.EntryID, result.InvalidReason)
		}
		if err != nil {
			return errs.Wrap(err, "write submit output")
		}
		return nil
	}),
}

var entryAssessCmd = &cobra.Command{
	Use:   "assess",
	Short: "Compute the advisory fraud score for a participant",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *giveaway.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		handle, _ := cmd.Flags().GetString("handle")
		assessment, err := svc.AssessParticipant(ctx, handle)
		if err != nil {
			return errs.Wrap(err, "assess participant")
		}

		reasons := "none"
		if len(assessment.Reasons) > 0 {
			reasons = strings.Join(assessment.Reasons, "; ")
		}
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "@%s score=%d reasons=%s\n", handle, assessment.Score, reasons); err != nil {
			return errs.Wrap(err, "write assess output")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(entryCmd)
	entryCmd.AddCommand(entrySubmitCmd)
	entryCmd.AddCommand(entryAssessCmd)

	entrySubmitCmd.Flags().String("handle", "", "Participant handle (required)")
	entrySubmitCmd.Flags().String("event-id", "", "Source event id (required)")
	entrySubmitCmd.Flags().String("event-at", "", "Source event time, RFC3339 (defaults to now)")
	entrySubmitCmd.Flags().String("correlation-key", "", "Device or network correlation key")
	_ = entrySubmitCmd.MarkFlagRequired("handle")
	_ = entrySubmitCmd.MarkFlagRequired("event-id")

	entryAssessCmd.Flags().String("handle", "", "Participant handle (required)")
	_ = entryAssessCmd.MarkFlagRequired("handle")
}
