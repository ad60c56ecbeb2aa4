package slogutil

import (
	"io"
	"log/slog"

	"nqs/internal/config"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// FromConfig builds the CLI logger. Records go to w in the configured format
// and, when cfg.File is set, also to that file in the human format (rotated
// when cfg.MaxSize parses to a positive size).
//
// cliLevel overrides cfg.Level when non-nil. The returned closer releases the
// log file and is never nil.
func FromConfig(w io.Writer, cfg config.LoggingConfig, cliLevel *slog.Level) (*slog.Logger, io.Closer, error) {
	level := LevelFromString(cfg.Level)
	if cliLevel != nil {
		level = *cliLevel
	}

	console := NewFormatHandler(w, level, Format(cfg.Format))
	if cfg.File == "" {
		return slog.New(console), nopCloser{}, nil
	}

	rf, err := OpenRotatingFile(cfg.File, ParseSize(cfg.MaxSize), cfg.MaxBackups)
	if err != nil {
		return nil, nil, err
	}
	file := NewHandler(rf, &slog.HandlerOptions{Level: fileLevel(level)})
	return slog.New(NewTeeHandler(console, file)), rf, nil
}

// fileLevel keeps the log file at warn or below even when the console is quiet.
func fileLevel(level slog.Level) slog.Level {
	if level > slog.LevelWarn {
		return slog.LevelWarn
	}
	return level
}
