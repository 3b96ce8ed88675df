// Package applog builds the structured loggers handed to the protocol
// cores and the example CLI binaries. It never holds a process-wide
// singleton that library code depends on — callers receive a *slog.Logger
// and pass it down, the way jejacks0n-euphio's Connection/Server types take
// a logger parameter instead of reaching into a global.
package applog

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// TargetConfig describes one logging sink: stdout and/or a file, each with
// its own level and formatting knobs.
type TargetConfig struct {
	Stdout     bool   `yaml:"stdout,omitempty"`
	File       string `yaml:"file,omitempty"`
	Level      string `yaml:"level"`
	Source     bool   `yaml:"source"`
	HideTime   bool   `yaml:"hideTime,omitempty"`
	TimeFormat string `yaml:"timeFormat,omitempty"`
}

// Setup builds a *slog.Logger fanning out to every configured target. When
// quiet is true it discards everything (used by tests and batch CLI runs).
func Setup(targets []TargetConfig, quiet bool) *slog.Logger {
	if quiet {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	var handlers []slog.Handler
	for _, cfg := range targets {
		if h, ok := buildHandler(cfg); ok {
			handlers = append(handlers, h)
		}
	}

	switch len(handlers) {
	case 0:
		return slog.New(tint.NewHandler(os.Stdout, nil))
	case 1:
		return slog.New(handlers[0])
	default:
		return slog.New(newMultiHandler(handlers...))
	}
}

func buildHandler(cfg TargetConfig) (slog.Handler, bool) {
	level := parseLevel(cfg.Level)
	replaceAttr := func(groups []string, a slog.Attr) slog.Attr {
		if cfg.HideTime && a.Key == slog.TimeKey {
			return slog.Attr{}
		}
		return a
	}
	timeFormat := time.TimeOnly
	if cfg.TimeFormat != "" {
		timeFormat = cfg.TimeFormat
	}

	switch {
	case cfg.Stdout:
		return tint.NewHandler(os.Stdout, &tint.Options{
			NoColor:     !isatty.IsTerminal(os.Stdout.Fd()),
			Level:       level,
			AddSource:   cfg.Source,
			ReplaceAttr: replaceAttr,
			TimeFormat:  timeFormat,
		}), true

	case cfg.File != "":
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, false
		}
		file, err := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, false
		}
		return tint.NewHandler(file, &tint.Options{
			NoColor:     true,
			Level:       level,
			AddSource:   cfg.Source,
			ReplaceAttr: replaceAttr,
			TimeFormat:  timeFormat,
		}), true

	default:
		return nil, false
	}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info", "":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
