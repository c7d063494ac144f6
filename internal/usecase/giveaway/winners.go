package giveaway

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"superlot/internal/bootstrap/logging"
	domaingiveaway "superlot/internal/domain/giveaway"
	"superlot/internal/errs"
	"superlot/internal/ports"
)

// GetWinnerByHandle looks up a participant's winning record, if any.
func (s *Service) GetWinnerByHandle(ctx context.Context, handle string) (ports.WinnerDetail, error) {
	if ctx == nil {
		return ports.WinnerDetail{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return ports.WinnerDetail{}, errs.Wrap(err, "check context")
	}
	if s.repo == nil {
		return ports.WinnerDetail{}, errors.New("giveaway repository is required")
	}

	participant, err := s.repo.GetParticipantByHandle(ctx, strings.TrimSpace(handle))
	if err != nil {
		return ports.WinnerDetail{}, err
	}
	return s.repo.GetWinnerByParticipant(ctx, participant.ParticipantID)
}

func (s *Service) GetWinner(ctx context.Context, winnerID uint64) (ports.WinnerDetail, error) {
	if ctx == nil {
		return ports.WinnerDetail{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return ports.WinnerDetail{}, errs.Wrap(err, "check context")
	}
	if s.repo == nil {
		return ports.WinnerDetail{}, errors.New("giveaway repository is required")
	}
	return s.repo.GetWinnerByID(ctx, winnerID)
}

func (s *Service) ListWinners(ctx context.Context) ([]ports.WinnerDetail, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(err, "check context")
	}
	if s.repo == nil {
		return nil, errors.New("giveaway repository is required")
	}
	return s.repo.ListWinners(ctx)
}

// ClaimView is what a winner following their claim link gets to see. The
// plaintext code is only included once the winner has been notified.
type ClaimView struct {
	WinnerID    uint64
	ScreenName  string
	Amount      int
	Status      string
	Confirmed   bool
	ConfirmedAt *time.Time
	GiftCode    string
}

// ResolveClaimToken maps a claim token back to the winning record.
func (s *Service) ResolveClaimToken(ctx context.Context, token string) (ClaimView, error) {
	if ctx == nil {
		return ClaimView{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return ClaimView{}, errs.Wrap(err, "check context")
	}
	if s.repo == nil {
		return ClaimView{}, errors.New("giveaway repository is required")
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return ClaimView{}, domaingiveaway.ErrWinnerNotFound
	}

	winner, err := s.repo.GetWinnerByToken(ctx, token)
	if err != nil {
		return ClaimView{}, err
	}

	view := ClaimView{
		WinnerID:    winner.WinnerID,
		ScreenName:  winner.ScreenName,
		Amount:      winner.Amount,
		Status:      winner.Status,
		Confirmed:   winner.ConfirmedAt != nil,
		ConfirmedAt: winner.ConfirmedAt,
	}

	if domaingiveaway.WinnerStatus(winner.Status) == domaingiveaway.WinnerSent && s.codec != nil && winner.EncryptedCode != "" {
		code, err := s.codec.Decrypt(winner.EncryptedCode)
		if err != nil {
			return ClaimView{}, errs.Wrap(err, "decrypt gift code")
		}
		view.GiftCode = code
	}
	return view, nil
}

// ConfirmClaim records that the winner acknowledged receipt. Confirming an
// already confirmed claim is a no-op.
func (s *Service) ConfirmClaim(ctx context.Context, token string) (ClaimView, error) {
	if ctx == nil {
		return ClaimView{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return ClaimView{}, errs.Wrap(err, "check context")
	}
	if s.repo == nil {
		return ClaimView{}, errors.New("giveaway repository is required")
	}

	winner, err := s.repo.GetWinnerByToken(ctx, strings.TrimSpace(token))
	if err != nil {
		return ClaimView{}, err
	}

	if winner.ConfirmedAt == nil {
		if err := s.repo.ConfirmWinner(ctx, winner.WinnerID, s.now()); err != nil {
			return ClaimView{}, err
		}
		logging.Info(ctx, "winner confirmed claim",
			slog.String("component", "usecase.winners"),
			slog.Uint64("winner_id", winner.WinnerID),
		)
	}
	return s.ResolveClaimToken(ctx, token)
}

var exportHeader = []string{"winner_id", "handle", "screen_name", "amount", "status", "notified_at", "confirmed_at"}

// ExportWinnersCSV streams the winner roster. Codes are deliberately left
// out of the export.
func (s *Service) ExportWinnersCSV(ctx context.Context, w io.Writer) (int, error) {
	if ctx == nil {
		return 0, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return 0, errs.Wrap(err, "check context")
	}
	if s.repo == nil {
		return 0, errors.New("giveaway repository is required")
	}

	winners, err := s.repo.ListWinners(ctx)
	if err != nil {
		return 0, err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return 0, errs.Wrap(err, "write export header")
	}
	for _, winner := range winners {
		record := []string{
			formatID(winner.WinnerID),
			winner.Handle,
			winner.ScreenName,
			strconv.Itoa(winner.Amount),
			winner.Status,
			formatTimePtr(winner.NotifiedAt),
			formatTimePtr(winner.ConfirmedAt),
		}
		if err := cw.Write(record); err != nil {
			return 0, errs.Wrap(err, "write export row")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, errs.Wrap(err, "flush export")
	}
	return len(winners), nil
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
