package giveaway

import (
	"context"
	"time"

	domaingiveaway "superlot/internal/domain/giveaway"
	"superlot/internal/ports"
)

// Settings carries the tunables the usecases need; the bootstrap layer maps
// them from file/env config.
type Settings struct {
	MaxRetries      int
	BatchSize       int
	MaxConcurrent   int
	SendTimeout     time.Duration
	DuplicateWindow time.Duration
	Scoring         domaingiveaway.ScoringConfig
}

func DefaultSettings() Settings {
	return Settings{
		MaxRetries:      3,
		BatchSize:       10,
		MaxConcurrent:   4,
		SendTimeout:     10 * time.Second,
		DuplicateWindow: 24 * time.Hour,
		Scoring:         domaingiveaway.DefaultScoringConfig(),
	}
}

type Service struct {
	repo      ports.GiveawayRepository
	uow       ports.UnitOfWork
	cache     ports.Cache
	messenger ports.Messenger
	codec     ports.GiftCodec
	profile   MessageProfile
	settings  Settings

	// now is swappable in tests.
	now func() time.Time
}

// NewService wires the giveaway usecases with the store, the delivery
// channel and the gift code codec.
func NewService(
	repo ports.GiveawayRepository,
	uow ports.UnitOfWork,
	cache ports.Cache,
	messenger ports.Messenger,
	codec ports.GiftCodec,
	profile MessageProfile,
	settings Settings,
) *Service {
	if settings.MaxRetries <= 0 {
		settings.MaxRetries = DefaultSettings().MaxRetries
	}
	if settings.BatchSize <= 0 {
		settings.BatchSize = DefaultSettings().BatchSize
	}
	if settings.MaxConcurrent <= 0 {
		settings.MaxConcurrent = DefaultSettings().MaxConcurrent
	}
	if settings.DuplicateWindow <= 0 {
		settings.DuplicateWindow = DefaultSettings().DuplicateWindow
	}
	if settings.Scoring.ScoreThreshold <= 0 {
		settings.Scoring = domaingiveaway.DefaultScoringConfig()
	}

	return &Service{
		repo:      repo,
		uow:       uow,
		cache:     cache,
		messenger: messenger,
		codec:     codec,
		profile:   profile,
		settings:  settings,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) setCacheBestEffort(ctx context.Context, key string, value string) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Set(ctx, key, value, 0)
}

func cacheWinnerStatusKey(winnerID uint64) string {
	return "winner_status:" + formatID(winnerID)
}

func cacheTaskStatusKey(taskID uint64) string {
	return "task_status:" + formatID(taskID)
}
