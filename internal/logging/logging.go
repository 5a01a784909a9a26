// Package logging builds the zerolog logger shared by the application.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nhle/carehub/internal/model"
)

// New returns a logger writing JSON lines to w at the given level.
// An empty or unknown level falls back to info.
func New(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// Console returns a human-readable logger on stderr, used by commands that
// do not take over the terminal.
func Console(level string) zerolog.Logger {
	return New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}, level)
}

// OpenFile returns a logger appending to cfg.File. The terminal UI owns
// stdout, so it logs here instead. The caller closes the returned file.
func OpenFile(cfg model.LogConfig) (zerolog.Logger, io.Closer, error) {
	if cfg.File == "" {
		return zerolog.Nop(), io.NopCloser(nil), nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("creating log directory: %w", err)
	}

	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("opening log file %s: %w", cfg.File, err)
	}

	return New(f, cfg.Level), f, nil
}
