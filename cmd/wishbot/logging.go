package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/coopco/wishbot/internal/config"
)

// setupLogger installs the default slog logger for the configured mode and
// returns a func that releases the log file, if any.
func setupLogger(cfg *config.Config, stderr io.Writer) (func() error, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.Log.Level))); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Log.Level, err)
	}
	if cfg.Bot.Debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	closer := func() error { return nil }
	var handler slog.Handler
	switch cfg.Log.Mode {
	case config.LogConsole:
		handler = slog.NewTextHandler(stderr, opts)
	case config.LogDisabled:
		handler = slog.NewTextHandler(io.Discard, opts)
	default:
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		handler = slog.NewJSONHandler(f, opts)
		closer = f.Close
	}
	slog.SetDefault(slog.New(handler))
	return closer, nil
}
