package giveaway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"superlot/internal/bootstrap/logging"
	domaingiveaway "superlot/internal/domain/giveaway"
	"superlot/internal/errs"
	"superlot/internal/ports"
)

type SubmitEntryInput struct {
	Handle         string
	SourceEventID  string
	SourceEventAt  time.Time
	CorrelationKey string
}

type SubmitEntryResult struct {
	EntryID       uint64
	Valid         bool
	InvalidReason string
	FraudScore    int
	FraudReasons  []string
}

const (
	invalidReasonNotFollower = "participant is not a follower"
	invalidReasonDuplicate   = "duplicate entry within 24 hours"
)

// SubmitEntry records one submission. Eligibility gates in order: follow
// status, the 24-hour duplicate window, then the fraud score. Failing
// entries are persisted as invalid with the reason; fraud scoring below the
// gate threshold leaves no trace.
func (s *Service) SubmitEntry(ctx context.Context, input SubmitEntryInput) (SubmitEntryResult, error) {
	if ctx == nil {
		return SubmitEntryResult{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return SubmitEntryResult{}, errs.Wrap(err, "check context")
	}
	if s.repo == nil {
		return SubmitEntryResult{}, errors.New("giveaway repository is required")
	}
	if s.uow == nil {
		return SubmitEntryResult{}, errors.New("giveaway unit of work is required")
	}

	handle := strings.TrimSpace(input.Handle)
	if handle == "" {
		return SubmitEntryResult{}, errors.New("handle is required")
	}
	sourceEventID := strings.TrimSpace(input.SourceEventID)
	if sourceEventID == "" {
		return SubmitEntryResult{}, errors.New("source event id is required")
	}

	logCtx := logging.WithAttrs(ctx,
		slog.String("component", "usecase.entry"),
		slog.String("handle", handle),
	)

	now := s.now()
	sourceEventAt := input.SourceEventAt
	if sourceEventAt.IsZero() {
		sourceEventAt = now
	}

	var result SubmitEntryResult
	err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		participant, err := s.repo.GetParticipantByHandle(txCtx, handle)
		if err != nil {
			return err
		}

		create := ports.EntryCreate{
			ParticipantID:  participant.ParticipantID,
			SourceEventID:  sourceEventID,
			SourceEventAt:  sourceEventAt,
			CorrelationKey: input.CorrelationKey,
			CreatedAt:      now,
			IsValid:        true,
		}

		if !participant.IsFollower {
			create.IsValid = false
			create.InvalidReason = invalidReasonNotFollower
		} else {
			duplicate, err := s.repo.HasValidEntrySince(txCtx, participant.ParticipantID, now.Add(-s.settings.DuplicateWindow))
			if err != nil {
				return err
			}
			if duplicate {
				create.IsValid = false
				create.InvalidReason = invalidReasonDuplicate
			}
		}

		entry, err := s.repo.CreateEntry(txCtx, create)
		if err != nil {
			return err
		}

		result = SubmitEntryResult{
			EntryID:       entry.EntryID,
			Valid:         entry.IsValid,
			InvalidReason: entry.InvalidReason,
		}
		if !entry.IsValid {
			return nil
		}

		assessment, err := s.assessParticipant(txCtx, participant, input.CorrelationKey, now)
		if err != nil {
			return err
		}
		result.FraudScore = assessment.Score
		result.FraudReasons = assessment.Reasons

		if !assessment.Exceeds(s.settings.Scoring) {
			return nil
		}

		reason := fmt.Sprintf("fraud score: %d", assessment.Score)
		if err := s.repo.InvalidateEntry(txCtx, entry.EntryID, reason); err != nil {
			return err
		}
		result.Valid = false
		result.InvalidReason = reason

		logging.Warn(logCtx, "entry invalidated by fraud gate",
			slog.Uint64("entry_id", entry.EntryID),
			slog.Int("score", assessment.Score),
			slog.Any("reasons", assessment.Reasons),
		)
		return nil
	})
	if err != nil {
		return SubmitEntryResult{}, err
	}

	logging.Info(logCtx, "entry recorded",
		slog.Uint64("entry_id", result.EntryID),
		slog.Bool("valid", result.Valid),
	)
	return result, nil
}

// AssessParticipant computes the advisory fraud score for a participant
// without touching any state.
func (s *Service) AssessParticipant(ctx context.Context, handle string) (domaingiveaway.Assessment, error) {
	if ctx == nil {
		return domaingiveaway.Assessment{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return domaingiveaway.Assessment{}, errs.Wrap(err, "check context")
	}
	if s.repo == nil {
		return domaingiveaway.Assessment{}, errors.New("giveaway repository is required")
	}

	participant, err := s.repo.GetParticipantByHandle(ctx, strings.TrimSpace(handle))
	if err != nil {
		return domaingiveaway.Assessment{}, err
	}
	return s.assessParticipant(ctx, participant, "", s.now())
}

func (s *Service) assessParticipant(ctx context.Context, participant ports.Participant, correlationKey string, now time.Time) (domaingiveaway.Assessment, error) {
	entries, err := s.repo.ListEntriesByParticipant(ctx, participant.ParticipantID)
	if err != nil {
		return domaingiveaway.Assessment{}, err
	}

	history := domaingiveaway.ParticipantHistory{
		AccountCreatedAt: participant.CreatedAt,
		EntryTimes:       make([]time.Time, 0, len(entries)),
	}
	for _, entry := range entries {
		history.EntryTimes = append(history.EntryTimes, entry.CreatedAt)
		if correlationKey == "" && entry.CorrelationKey != "" {
			correlationKey = entry.CorrelationKey
		}
	}

	if correlationKey != "" {
		correlated, err := s.repo.CountCorrelatedEntries(ctx, correlationKey, participant.ParticipantID)
		if err != nil {
			return domaingiveaway.Assessment{}, err
		}
		history.CorrelatedEntryCount = int(correlated)
	}

	return domaingiveaway.ScoreParticipant(history, now, s.settings.Scoring), nil
}
