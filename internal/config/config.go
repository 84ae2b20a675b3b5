package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevelRaw string `env:"LOG_LEVEL" envDefault:"info"`
	LogLevel    slog.Level

	// StorageBackend is one of redis, sqlite or memory.
	StorageBackend string        `env:"STORAGE_BACKEND" envDefault:"redis"`
	RedisURL       string        `env:"REDIS_URL" envDefault:"localhost:6379"`
	SQLitePath     string        `env:"SQLITE_PATH" envDefault:"./data/word-quest.db"`
	ProgressTTL    time.Duration `env:"PROGRESS_TTL" envDefault:"720h"`

	DataDir        string `env:"DATA_DIR" envDefault:"./data"`
	DiceFlourishes int    `env:"DICE_FLOURISHES" envDefault:"10"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.LogLevel = parseLogLevel(cfg.LogLevelRaw)

	switch cfg.StorageBackend {
	case "redis", "sqlite", "memory":
	default:
		return nil, fmt.Errorf("STORAGE_BACKEND must be redis, sqlite or memory, got %q", cfg.StorageBackend)
	}
	if cfg.DiceFlourishes < 0 {
		return nil, fmt.Errorf("DICE_FLOURISHES must not be negative, got %d", cfg.DiceFlourishes)
	}
	return &cfg, nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
