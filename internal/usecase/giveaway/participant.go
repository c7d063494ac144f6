package giveaway

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"superlot/internal/bootstrap/logging"
	"superlot/internal/errs"
	"superlot/internal/ports"
)

// RegisterParticipant creates or refreshes a participant profile keyed by
// handle.
func (s *Service) RegisterParticipant(ctx context.Context, input ports.ParticipantUpsert) (ports.Participant, error) {
	if ctx == nil {
		return ports.Participant{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return ports.Participant{}, errs.Wrap(err, "check context")
	}
	if s.repo == nil {
		return ports.Participant{}, errors.New("giveaway repository is required")
	}

	input.Handle = strings.TrimSpace(input.Handle)
	if input.Handle == "" {
		return ports.Participant{}, errors.New("handle is required")
	}

	participant, err := s.repo.UpsertParticipant(ctx, input)
	if err != nil {
		return ports.Participant{}, err
	}

	logging.Info(ctx, "participant registered",
		slog.String("component", "usecase.participant"),
		slog.String("handle", participant.Handle),
		slog.Bool("is_follower", participant.IsFollower),
	)
	return participant, nil
}

func (s *Service) GetParticipant(ctx context.Context, handle string) (ports.Participant, error) {
	if ctx == nil {
		return ports.Participant{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return ports.Participant{}, errs.Wrap(err, "check context")
	}
	if s.repo == nil {
		return ports.Participant{}, errors.New("giveaway repository is required")
	}
	return s.repo.GetParticipantByHandle(ctx, strings.TrimSpace(handle))
}

func (s *Service) ListFollowers(ctx context.Context, limit, offset int) ([]ports.Participant, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(err, "check context")
	}
	if s.repo == nil {
		return nil, errors.New("giveaway repository is required")
	}
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListFollowers(ctx, limit, offset)
}

func (s *Service) FollowerCount(ctx context.Context) (int64, error) {
	if ctx == nil {
		return 0, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return 0, errs.Wrap(err, "check context")
	}
	if s.repo == nil {
		return 0, errors.New("giveaway repository is required")
	}
	return s.repo.CountFollowers(ctx)
}
