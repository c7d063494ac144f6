package giveaway

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"superlot/internal/bootstrap/logging"
	domaingiveaway "superlot/internal/domain/giveaway"
	"superlot/internal/errs"
	"superlot/internal/ports"
)

type WinnerResult struct {
	WinnerID      uint64
	ParticipantID uint64
	Handle        string
	GiftCodeID    uint64
	Token         string
}

// DrawWinners selects count winners from eligible entries and binds each to
// one gift code. Selection, binding and inventory consumption run inside a
// single transaction: a concurrent draw either sees the committed winners or
// none of them, never a partial allocation.
func (s *Service) DrawWinners(ctx context.Context, count int) ([]WinnerResult, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(err, "check context")
	}
	if count <= 0 {
		return nil, domaingiveaway.ErrInvalidWinnerCount
	}
	if s.repo == nil {
		return nil, errors.New("giveaway repository is required")
	}
	if s.uow == nil {
		return nil, errors.New("giveaway unit of work is required")
	}

	logCtx := logging.WithAttrs(ctx,
		slog.String("component", "usecase.draw"),
		slog.Int("count", count),
	)

	now := s.now()
	var results []WinnerResult

	err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		eligible, err := s.repo.ListEligibleEntries(txCtx)
		if err != nil {
			return err
		}
		if len(eligible) == 0 {
			return domaingiveaway.ErrNoEligibleEntries
		}
		if len(eligible) < count {
			return &domaingiveaway.InsufficientEntriesError{Required: count, Available: len(eligible)}
		}

		available, err := s.repo.CountAvailableGiftCodes(txCtx, now)
		if err != nil {
			return err
		}
		if available < int64(count) {
			return &domaingiveaway.InsufficientInventoryError{Required: count, Available: int(available)}
		}

		codes, err := s.repo.ListAvailableGiftCodes(txCtx, now, count)
		if err != nil {
			return err
		}
		if len(codes) < count {
			return &domaingiveaway.InsufficientInventoryError{Required: count, Available: len(codes)}
		}

		indexes, err := domaingiveaway.SelectIndexes(len(eligible), count)
		if err != nil {
			return err
		}

		selected := make([]ports.EligibleEntry, 0, count)
		for _, idx := range indexes {
			selected = append(selected, eligible[idx])
		}

		// Defensive invariant check before any write: selection must never
		// produce the same participant or code twice.
		if err := checkDistinctBindings(selected, codes[:count]); err != nil {
			logging.Error(logCtx, "duplicate binding detected before commit", slog.Any("err", errs.Loggable(err)))
			return err
		}

		results = make([]WinnerResult, 0, count)
		for i, candidate := range selected {
			code := codes[i]

			winner, err := s.repo.CreateWinner(txCtx, ports.WinnerCreate{
				ParticipantID: candidate.ParticipantID,
				GiftCodeID:    code.GiftCodeID,
				EntryID:       candidate.EntryID,
				Token:         uuid.NewString(),
				Status:        string(domaingiveaway.WinnerPending),
				CreatedAt:     now,
			})
			if err != nil {
				return err
			}

			if err := s.repo.MarkGiftCodeUsed(txCtx, code.GiftCodeID, now, ""); err != nil {
				return err
			}

			results = append(results, WinnerResult{
				WinnerID:      winner.WinnerID,
				ParticipantID: candidate.ParticipantID,
				Handle:        candidate.Handle,
				GiftCodeID:    code.GiftCodeID,
				Token:         winner.Token,
			})
		}

		return nil
	})
	if err != nil {
		return nil, classifyDrawError(logCtx, err)
	}

	for _, result := range results {
		s.setCacheBestEffort(ctx, cacheWinnerStatusKey(result.WinnerID), string(domaingiveaway.WinnerPending))
	}

	logging.Info(logCtx, "draw completed", slog.Int("winners", len(results)))
	return results, nil
}

func checkDistinctBindings(entries []ports.EligibleEntry, codes []ports.GiftCode) error {
	seenParticipants := make(map[uint64]struct{}, len(entries))
	for _, entry := range entries {
		if _, dup := seenParticipants[entry.ParticipantID]; dup {
			return errs.Wrapf(domaingiveaway.ErrDuplicateWinner, "participant %d selected twice", entry.ParticipantID)
		}
		seenParticipants[entry.ParticipantID] = struct{}{}
	}

	seenCodes := make(map[uint64]struct{}, len(codes))
	for _, code := range codes {
		if _, dup := seenCodes[code.GiftCodeID]; dup {
			return errs.Wrapf(domaingiveaway.ErrDuplicateWinner, "gift code %d loaded twice", code.GiftCodeID)
		}
		seenCodes[code.GiftCodeID] = struct{}{}
	}
	return nil
}

// classifyDrawError keeps the domain taxonomy intact and folds unknown
// store failures into the transient draw-transaction bucket, which callers
// may retry wholesale.
func classifyDrawError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, domaingiveaway.ErrInvalidWinnerCount),
		errors.Is(err, domaingiveaway.ErrNoEligibleEntries),
		errors.Is(err, domaingiveaway.ErrSelectionExhausted):
		return err
	case errors.Is(err, domaingiveaway.ErrDuplicateWinner):
		logging.Error(ctx, "draw aborted on duplicate winner invariant", slog.Any("err", errs.Loggable(err)))
		return err
	}

	var entriesErr *domaingiveaway.InsufficientEntriesError
	var inventoryErr *domaingiveaway.InsufficientInventoryError
	if errors.As(err, &entriesErr) || errors.As(err, &inventoryErr) {
		return err
	}

	logging.Warn(ctx, "draw transaction failed", slog.Any("err", errs.Loggable(err)))
	return errs.Wrapf(domaingiveaway.ErrDrawTransactionFailed, "%v", err)
}
