package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"

	"keyrelay/internal/config"
)

// Init builds the process logger from configuration and installs it as the
// slog default. Development gets colourised tint output; production gets JSON.
func Init(cfg *config.Config) *slog.Logger {
	return New(os.Stderr, cfg.IsProduction(), cfg.LogLevel)
}

// New creates a logger writing to w.
func New(w io.Writer, production bool, level string) *slog.Logger {
	var logger *slog.Logger
	if production {
		logger = slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: ParseLevel(level),
		}))
	} else {
		logger = slog.New(tint.NewHandler(w, &tint.Options{
			Level:      ParseLevel(level),
			TimeFormat: time.Kitchen,
		}))
	}

	slog.SetDefault(logger)

	return logger
}

// ParseLevel maps a config string to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
