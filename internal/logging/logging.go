// Package logging installs the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/phobologic/provenance/internal/config"
)

// ParseLevel converts a level name or a numeric slog level. Unknown values
// yield fallback.
func ParseLevel(value string, fallback slog.Level) slog.Level {
	level := strings.ToLower(strings.TrimSpace(value))
	switch level {
	case "":
		return fallback
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	if n, err := strconv.Atoi(level); err == nil {
		return slog.Level(n)
	}
	return fallback
}

// New builds a logger for cfg. Records go to a rotated file when cfg.File
// is set and to stderr otherwise. verbose forces debug level.
func New(cfg config.Log, verbose bool, stderr io.Writer) *slog.Logger {
	level := ParseLevel(cfg.Level, slog.LevelInfo)
	if verbose {
		level = slog.LevelDebug
	}

	if strings.TrimSpace(cfg.File) != "" {
		w := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
			AddSource: true,
			Level:     level,
		}))
	}

	handler := log.NewWithOptions(stderr, log.Options{
		Prefix: "provenance",
		Level:  log.Level(level),
	})
	return slog.New(handler)
}

// Setup installs the logger for cfg as the slog default and returns it.
func Setup(cfg config.Log, verbose bool, stderr io.Writer) *slog.Logger {
	logger := New(cfg, verbose, stderr)
	slog.SetDefault(logger)
	return logger
}
