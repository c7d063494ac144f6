package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"superlot/internal/bootstrap/logging"
	"superlot/internal/errs"
)

type Config struct {
	App          AppConfig          `mapstructure:"app"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Encryption   EncryptionConfig   `mapstructure:"encryption"`
	Telegram     TelegramConfig     `mapstructure:"telegram"`
	Notification NotificationConfig `mapstructure:"notification"`
	Fraud        FraudConfig        `mapstructure:"fraud"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// EncryptionConfig drives the gift code codec. The passphrase never appears
// in logs; the salt is not secret but must stay stable for the lifetime of
// the stored inventory.
type EncryptionConfig struct {
	Passphrase string `mapstructure:"passphrase"`
	Salt       string `mapstructure:"salt"`
}

type TelegramConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Token   string `mapstructure:"token"`
}

type NotificationConfig struct {
	MaxRetries     int    `mapstructure:"max_retries"`
	BatchSize      int    `mapstructure:"batch_size"`
	MaxConcurrent  int    `mapstructure:"max_concurrent"`
	SendTimeoutSec int    `mapstructure:"send_timeout_seconds"`
	Schedule       string `mapstructure:"schedule"`
	ProfileFile    string `mapstructure:"profile_file"`
}

func (c NotificationConfig) SendTimeout() time.Duration {
	return time.Duration(c.SendTimeoutSec) * time.Second
}

type FraudConfig struct {
	RecentEntryThreshold int `mapstructure:"recent_entry_threshold"`
	MinAccountAgeDays    int `mapstructure:"min_account_age_days"`
	ScoreThreshold       int `mapstructure:"score_threshold"`
}

func Load(ctx context.Context, configFile string) (Config, error) {
	if ctx == nil {
		return Config{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return Config{}, errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.config"))

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("SL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile == "" && errors.As(err, &notFound) {
			// Keep default and env-backed config when no file is provided.
			logging.Warn(logCtx, "config file not found, fallback to defaults and env")
		} else {
			return Config{}, errs.Wrap(err, "read config")
		}
	} else {
		logging.Info(logCtx, "using config file", slog.String("path", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errs.Wrap(err, "unmarshal config")
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}

	logging.Info(
		logCtx,
		"config loaded",
		slog.String("app", cfg.App.Name),
		slog.String("env", cfg.App.Env),
		slog.String("database_driver", cfg.Database.Driver),
		slog.Bool("telegram_enabled", cfg.Telegram.Enabled),
	)

	return cfg, nil
}

func validate(cfg Config) error {
	if cfg.Database.DSN == "" {
		return errors.New("database.dsn is required")
	}
	if cfg.Encryption.Passphrase == "" {
		return errors.New("encryption.passphrase is required")
	}
	if cfg.Telegram.Enabled && strings.TrimSpace(cfg.Telegram.Token) == "" {
		return errors.New("telegram.token is required when telegram.enabled")
	}
	if cfg.Notification.MaxRetries <= 0 {
		return fmt.Errorf("notification.max_retries must be positive, got %d", cfg.Notification.MaxRetries)
	}
	if cfg.Notification.BatchSize <= 0 {
		return fmt.Errorf("notification.batch_size must be positive, got %d", cfg.Notification.BatchSize)
	}
	if cfg.Notification.MaxConcurrent <= 0 {
		return fmt.Errorf("notification.max_concurrent must be positive, got %d", cfg.Notification.MaxConcurrent)
	}
	if cfg.Fraud.ScoreThreshold <= 0 {
		return fmt.Errorf("fraud.score_threshold must be positive, got %d", cfg.Fraud.ScoreThreshold)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "superlot")
	v.SetDefault("app.env", "development")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "data/superlot.sqlite")

	v.SetDefault("encryption.salt", "superlot-giftcode")

	v.SetDefault("telegram.enabled", false)

	v.SetDefault("notification.max_retries", 3)
	v.SetDefault("notification.batch_size", 10)
	v.SetDefault("notification.max_concurrent", 4)
	v.SetDefault("notification.send_timeout_seconds", 10)
	v.SetDefault("notification.schedule", "@every 1m")

	v.SetDefault("fraud.recent_entry_threshold", 5)
	v.SetDefault("fraud.min_account_age_days", 30)
	v.SetDefault("fraud.score_threshold", 50)
}
