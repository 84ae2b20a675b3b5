package logger

import (
	"io"
	"log/slog"
	"os"

	"github.com/jwebster45206/word-quest/internal/config"
)

// Setup configures the global slog logger based on environment
func Setup(cfg *config.Config) *slog.Logger {
	return SetupTo(cfg, os.Stdout)
}

// SetupTo is Setup with an explicit destination; the console player logs to
// a file so the terminal stays free for the UI.
func SetupTo(cfg *config.Config, w io.Writer) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	if cfg.Environment == "production" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// WithProfile adds the reader's profile id to logger context
func WithProfile(logger *slog.Logger, profileID string) *slog.Logger {
	return logger.With("profile_id", profileID)
}
