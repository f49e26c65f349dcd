package logger

import (
	"io"
	stdlog "log"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/chatsentry/chatsentry/internal/config"
)

// New builds the process logger from configuration. Console output goes to
// stderr in human-readable form; file output is JSON and rotated by size.
func New(cfg config.LogConfig) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var writers []io.Writer
	if cfg.Console {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	}

	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
			return zerolog.Logger{}, errors.Wrap(err, "failed to create log directory")
		}
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    maxOr(cfg.MaxSizeMB, 10),
			MaxBackups: cfg.MaxBackups,
			LocalTime:  true,
		})
	}

	if len(writers) == 0 {
		return zerolog.Logger{}, errors.New("no log outputs configured")
	}

	log := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().
		Timestamp().
		Logger()

	// third-party packages that still use the stdlib logger end up in the same sinks
	stdlog.SetOutput(log)
	stdlog.SetFlags(0)

	return log, nil
}

// Component returns a child logger tagged with the component name.
func Component(log zerolog.Logger, name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}

func maxOr(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
