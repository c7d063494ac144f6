package bootstrap

import (
	"context"
	"log/slog"
	"time"

	"go.uber.org/fx"
	"gorm.io/gorm"

	"superlot/internal/bootstrap/config"
	"superlot/internal/bootstrap/database"
	"superlot/internal/bootstrap/logging"
	domaingiveaway "superlot/internal/domain/giveaway"
	cacheinfra "superlot/internal/infrastructure/cache"
	"superlot/internal/infrastructure/codec"
	"superlot/internal/infrastructure/messaging"
	sqliterepo "superlot/internal/infrastructure/persistence/sqlite/repository"
	sqliteuow "superlot/internal/infrastructure/persistence/sqlite/uow"
	"superlot/internal/ports"
	usecasegiveaway "superlot/internal/usecase/giveaway"
)

var Module = fx.Options(
	fx.Provide(provideConfig),
	fx.Provide(provideDatabase),
	fx.Provide(provideApp),
	fx.Provide(
		fx.Annotate(
			sqliterepo.NewGiveawayRepository,
			fx.As(new(ports.GiveawayRepository)),
		),
	),
	fx.Provide(
		fx.Annotate(
			sqliteuow.NewUnitOfWork,
			fx.As(new(ports.UnitOfWork)),
		),
	),
	fx.Provide(
		fx.Annotate(
			cacheinfra.NewSQLiteCache,
			fx.As(new(ports.Cache)),
		),
	),
	fx.Provide(provideCodec),
	fx.Provide(provideMessenger),
	fx.Provide(provideProfile),
	fx.Provide(provideSettings),
	fx.Provide(usecasegiveaway.NewService),
	fx.Provide(provideWorker),
)

type configParams struct {
	fx.In

	Ctx        context.Context
	ConfigFile string `name:"configFile"`
}

func provideConfig(p configParams) (config.Config, error) {
	ctx := logging.WithAttrs(p.Ctx, slog.String("component", "bootstrap.fx"))
	return config.Load(ctx, p.ConfigFile)
}

func provideDatabase(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (*gorm.DB, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx"))

	db, err := database.Open(logCtx, cfg.Database)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})

	return db, nil
}

func provideApp(cfg config.Config, db *gorm.DB) *App {
	return &App{
		Config: cfg,
		DB:     db,
	}
}

func provideCodec(cfg config.Config) (ports.GiftCodec, error) {
	return codec.NewAESCodec(cfg.Encryption.Passphrase, cfg.Encryption.Salt)
}

func provideMessenger(ctx context.Context, cfg config.Config) (ports.Messenger, error) {
	if !cfg.Telegram.Enabled {
		logging.Warn(ctx, "telegram delivery disabled, sends will fail until configured",
			slog.String("component", "bootstrap.fx"))
		return messaging.DisabledMessenger{}, nil
	}
	return messaging.NewTelegramMessenger(cfg.Telegram.Token)
}

func provideProfile(cfg config.Config) (usecasegiveaway.MessageProfile, error) {
	return usecasegiveaway.LoadMessageProfile(cfg.Notification.ProfileFile)
}

func provideSettings(cfg config.Config) usecasegiveaway.Settings {
	return usecasegiveaway.Settings{
		MaxRetries:      cfg.Notification.MaxRetries,
		BatchSize:       cfg.Notification.BatchSize,
		MaxConcurrent:   cfg.Notification.MaxConcurrent,
		SendTimeout:     cfg.Notification.SendTimeout(),
		DuplicateWindow: 24 * time.Hour,
		Scoring: domaingiveaway.ScoringConfig{
			RecentEntryThreshold: cfg.Fraud.RecentEntryThreshold,
			MinAccountAge:        time.Duration(cfg.Fraud.MinAccountAgeDays) * 24 * time.Hour,
			ScoreThreshold:       cfg.Fraud.ScoreThreshold,
		},
	}
}

func provideWorker(cfg config.Config, service *usecasegiveaway.Service) (*usecasegiveaway.Worker, error) {
	return usecasegiveaway.NewWorker(service, cfg.Notification.Schedule)
}
