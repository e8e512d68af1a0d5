// Package logging builds the slog logger used across dir-archiver.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/raoulx24/dir-archiver/internal/config"
)

// ParseLevel maps a config level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// New builds a text or JSON logger writing to w. When cfg.Dir is set the
// output is also appended to a per-session file backup_<start time>.log in
// that directory, rotated once it exceeds cfg.MaxSizeMB; the returned closer
// closes it.
func New(cfg config.LoggingConfig, w io.Writer) (*slog.Logger, io.Closer, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}
	if w == nil {
		w = os.Stderr
	}

	var closer io.Closer = nopCloser{}
	if cfg.Dir != "" {
		f, err := openSessionFile(cfg, time.Now())
		if err != nil {
			return nil, nil, err
		}
		w = io.MultiWriter(w, f)
		closer = f
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler), closer, nil
}

func openSessionFile(cfg config.LoggingConfig, start time.Time) (*lumberjack.Logger, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating log dir: %w", err)
	}

	maxSize := cfg.MaxSizeMB
	if maxSize <= 0 {
		maxSize = config.DefaultLogMaxSizeMB
	}

	name := fmt.Sprintf("backup_%s.log", start.Format("2006-01-02_15-04-05"))
	return &lumberjack.Logger{
		Filename:   filepath.Join(cfg.Dir, name),
		MaxSize:    maxSize,
		MaxBackups: cfg.MaxBackups,
		LocalTime:  true,
	}, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
