package cmd

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"superlot/internal/bootstrap"
	"superlot/internal/bootstrap/logging"
	"superlot/internal/errs"
	"superlot/internal/usecase/giveaway"
)

var giftcodeCmd = &cobra.Command{
	Use:   "giftcode",
	Short: "Manage the gift code inventory",
}

var giftcodeCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Add one gift code to the inventory",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *giveaway.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		code, _ := cmd.Flags().GetString("code")
		amount, _ := cmd.Flags().GetInt("amount")
		note, _ := cmd.Flags().GetString("note")
		expiresAt, err := parseExpiry(cmd)
		if err != nil {
			return err
		}

		created, err := svc.CreateGiftCode(ctx, giveaway.CreateGiftCodeInput{
			Code:      code,
			Amount:    amount,
			ExpiresAt: expiresAt,
			Note:      note,
		})
		if err != nil {
			logging.Error(ctx, "create gift code failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "create gift code")
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "gift code %d created, amount=%d\n", created.GiftCodeID, created.Amount); err != nil {
			return errs.Wrap(err, "write create output")
		}
		return nil
	}),
}

var giftcodeImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import codes from a file, one per line",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *giveaway.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		path, _ := cmd.Flags().GetString("file")
		amount, _ := cmd.Flags().GetInt("amount")
		expiresAt, err := parseExpiry(cmd)
		if err != nil {
			return err
		}

		file, err := os.Open(path)
		if err != nil {
			return errs.Wrap(err, "open import file")
		}
		defer file.Close()

		var codes []string
		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			codes = append(codes, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return errs.Wrap(err, "read import file")
		}

		imported, err := svc.ImportGiftCodes(ctx, codes, amount, expiresAt)
		if err != nil {
			logging.Error(ctx, "import gift codes failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "import gift codes")
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "imported %d gift codes\n", imported); err != nil {
			return errs.Wrap(err, "write import output")
		}
		return nil
	}),
}

var giftcodeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List remaining unused gift codes",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *giveaway.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		codes, err := svc.ListUnusedGiftCodes(ctx)
		if err != nil {
			return errs.Wrap(err, "list gift codes")
		}

		out := cmd.OutOrStdout()
		if _, err := fmt.Fprintf(out, "unused gift codes: %d\n", len(codes)); err != nil {
			return errs.Wrap(err, "write list output")
		}
		for _, code := range codes {
			expiry := "never"
			if code.ExpiresAt != nil {
				expiry = code.ExpiresAt.Format("2006-01-02")
			}
			if _, err := fmt.Fprintf(out, "  #%d amount=%d expires=%s\n", code.GiftCodeID, code.Amount, expiry); err != nil {
				return errs.Wrap(err, "write list output")
			}
		}
		return nil
	}),
}

var giftcodeRevealCmd = &cobra.Command{
	Use:   "reveal",
	Short: "Decrypt one stored gift code",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *giveaway.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		id, _ := cmd.Flags().GetUint64("id")
		plaintext, err := svc.RevealGiftCode(ctx, id)
		if err != nil {
			return errs.Wrap(err, "reveal gift code")
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s\n", plaintext); err != nil {
			return errs.Wrap(err, "write reveal output")
		}
		return nil
	}),
}

var giftcodeUseCmd = &cobra.Command{
	Use:   "use",
	Short: "Consume one gift code outside the draw flow",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *giveaway.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		code, _ := cmd.Flags().GetString("code")
		note, _ := cmd.Flags().GetString("note")

		used, err := svc.UseGiftCode(ctx, code, note)
		if err != nil {
			logging.Error(ctx, "use gift code failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "use gift code")
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "gift code %d marked used\n", used.GiftCodeID); err != nil {
			return errs.Wrap(err, "write use output")
		}
		return nil
	}),
}

func parseExpiry(cmd *cobra.Command) (*time.Time, error) {
	raw, _ := cmd.Flags().GetString("expires-at")
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, errs.Wrap(err, "parse expires-at")
	}
	return &parsed, nil
}

func init() {
	rootCmd.AddCommand(giftcodeCmd)
	giftcodeCmd.AddCommand(giftcodeCreateCmd)
	giftcodeCmd.AddCommand(giftcodeImportCmd)
	giftcodeCmd.AddCommand(giftcodeListCmd)
	giftcodeCmd.AddCommand(giftcodeRevealCmd)
	giftcodeCmd.AddCommand(giftcodeUseCmd)

	giftcodeCreateCmd.Flags().String("code", "", "Plaintext code (generated when empty)")
	giftcodeCreateCmd.Flags().Int("amount", 0, "Code value (required)")
	giftcodeCreateCmd.Flags().String("expires-at", "", "Expiry, RFC3339")
	giftcodeCreateCmd.Flags().String("note", "", "Operator note")
	_ = giftcodeCreateCmd.MarkFlagRequired("amount")

	giftcodeImportCmd.Flags().String("file", "", "File with one code per line (required)")
	giftcodeImportCmd.Flags().Int("amount", 0, "Value applied to every imported code (required)")
	giftcodeImportCmd.Flags().String("expires-at", "", "Expiry, RFC3339")
	_ = giftcodeImportCmd.MarkFlagRequired("file")
	_ = giftcodeImportCmd.MarkFlagRequired("amount")

	giftcodeRevealCmd.Flags().Uint64("id", 0, "Gift code id (required)")
	_ = giftcodeRevealCmd.MarkFlagRequired("id")

	giftcodeUseCmd.Flags().String("code", "", "Plaintext code to consume (required)")
	giftcodeUseCmd.Flags().String("note", "", "Reason recorded on the code")
	_ = giftcodeUseCmd.MarkFlagRequired("code")
}
