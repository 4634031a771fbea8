package config

import (
	"log/slog"
	"os"
)

// NewLogger returns a slog.Logger for the given environment, honoring
// LOG_LEVEL (debug, info, warn, error; default info). Production logs JSON;
// everything else logs text.
func NewLogger(environment string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: logLevel(os.Getenv("LOG_LEVEL"))}
	if environment == "production" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
