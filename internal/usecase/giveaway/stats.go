package giveaway

import (
	"context"
	"errors"
	"time"

	domaingiveaway "superlot/internal/domain/giveaway"
	"superlot/internal/errs"
	"superlot/internal/ports"
)

// CampaignOverview combines entry counts with inventory and winner totals
// for the operator dashboard.
type CampaignOverview struct {
	ports.CampaignStats
	Followers       int64
	AvailableCodes  int64
	Winners         int
	NotifiedWinners int
	FailedWinners   int
}

// CampaignStats reports the current campaign totals. Today's entry count
// uses the local midnight boundary.
func (s *Service) CampaignStats(ctx context.Context) (CampaignOverview, error) {
	if ctx == nil {
		return CampaignOverview{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return CampaignOverview{}, errs.Wrap(err, "check context")
	}
	if s.repo == nil {
		return CampaignOverview{}, errors.New("giveaway repository is required")
	}

	now := s.now()
	startOfToday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	stats, err := s.repo.CampaignStats(ctx, startOfToday)
	if err != nil {
		return CampaignOverview{}, err
	}

	followers, err := s.repo.CountFollowers(ctx)
	if err != nil {
		return CampaignOverview{}, err
	}

	available, err := s.repo.CountAvailableGiftCodes(ctx, now)
	if err != nil {
		return CampaignOverview{}, err
	}

	winners, err := s.repo.ListWinners(ctx)
	if err != nil {
		return CampaignOverview{}, err
	}

	overview := CampaignOverview{
		CampaignStats:  stats,
		Followers:      followers,
		AvailableCodes: available,
		Winners:        len(winners),
	}
	for _, winner := range winners {
		switch domaingiveaway.WinnerStatus(winner.Status) {
		case domaingiveaway.WinnerSent:
			overview.NotifiedWinners++
		case domaingiveaway.WinnerFailed:
			overview.FailedWinners++
		}
	}
	return overview, nil
}
