package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"superlot/internal/bootstrap"
	"superlot/internal/bootstrap/logging"
	"superlot/internal/errs"
	"superlot/internal/ports"
	"superlot/internal/usecase/giveaway"
)

var participantCmd = &cobra.Command{
	Use:   "participant",
	Short: "Manage campaign participants",
}

var participantRegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Create or refresh a participant profile",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *giveaway.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		handle, _ := cmd.Flags().GetString("handle")
		screenName, _ := cmd.Flags().GetString("screen-name")
		profileImage, _ := cmd.Flags().GetString("profile-image")
		isFollower, _ := cmd.Flags().GetBool("follower")

		participant, err := svc.RegisterParticipant(ctx, ports.ParticipantUpsert{
			Handle:       handle,
			ScreenName:   screenName,
			ProfileImage: profileImage,
			IsFollower:   isFollower,
		})
		if err != nil {
			logging.Error(ctx, "register participant failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "register participant")
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "participant %d registered: @%s follower=%t\n",
			participant.ParticipantID, participant.Handle, participant.IsFollower); err != nil {
			return errs.Wrap(err, "write register output")
		}
		return nil
	}),
}

var participantGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show one participant",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *giveaway.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		handle, _ := cmd.Flags().GetString("handle")
		participant, err := svc.GetParticipant(ctx, handle)
		if err != nil {
			return errs.Wrap(err, "get participant")
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "@%s (%s) follower=%t created=%s\n",
			participant.Handle, participant.ScreenName, participant.IsFollower,
			participant.CreatedAt.Format("2006-01-02")); err != nil {
			return errs.Wrap(err, "write participant output")
		}
		return nil
	}),
}

var participantFollowersCmd = &cobra.Command{
	Use:   "followers",
	Short: "List followers",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *giveaway.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		total, err := svc.FollowerCount(ctx)
		if err != nil {
			return errs.Wrap(err, "count followers")
		}
		followers, err := svc.ListFollowers(ctx, limit, offset)
		if err != nil {
			return errs.Wrap(err, "list followers")
		}

		out := cmd.OutOrStdout()
		if _, err := fmt.Fprintf(out, "followers: %d\n", total); err != nil {
			return errs.Wrap(err, "write followers output")
		}
		for _, follower := range followers {
			if _, err := fmt.Fprintf(out, "  @%s (%s)\n", follower.Handle, follower.ScreenName); err != nil {
				return errs.Wrap(err, "write followers output")
			}
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(participantCmd)
	participantCmd.AddCommand(participantRegisterCmd)
	participantCmd.AddCommand(participantGetCmd)
	participantCmd.AddCommand(participantFollowersCmd)

	participantRegisterCmd.Flags().String("handle", "", "Participant handle (required)")
	participantRegisterCmd.Flags().String("screen-name", "", "Display name")
	participantRegisterCmd.Flags().String("profile-image", "", "Profile image URL")
	participantRegisterCmd.Flags().Bool("follower", false, "Mark the participant as a follower")
	_ = participantRegisterCmd.MarkFlagRequired("handle")

	participantGetCmd.Flags().String("handle", "", "Participant handle (required)")
	_ = participantGetCmd.MarkFlagRequired("handle")

	participantFollowersCmd.Flags().Int("limit", 50, "Maximum followers to list")
	participantFollowersCmd.Flags().Int("offset", 0, "Listing offset")
}
