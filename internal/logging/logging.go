// Package logging sets up the application's structured logger. The TUI owns
// the terminal, so records go to a rotating file instead of stderr.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures New.
type Options struct {
	File  string
	Level string
}

// Logger bundles the slog logger with its adjustable level and the file it
// writes to.
type Logger struct {
	*slog.Logger
	Level *slog.LevelVar
	out   io.WriteCloser
}

// ParseLevel maps a config string to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
	return l, nil
}

// New opens a JSON logger writing to opts.File, rotated by size.
func New(opts Options) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	out := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}
	return newLogger(out, opts.Level)
}

// NewWriter is New over an arbitrary writer.
func NewWriter(w io.Writer, level string) (*Logger, error) {
	return newLogger(nopCloser{w}, level)
}

func newLogger(out io.WriteCloser, level string) (*Logger, error) {
	lvl := new(slog.LevelVar)
	parsed, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	lvl.Set(parsed)

	h := slog.NewJSONHandler(out, &slog.HandlerOptions{Level: lvl})
	return &Logger{
		Logger: slog.New(h),
		Level:  lvl,
		out:    out,
	}, nil
}

// SetLevel changes the level of every logger derived from l.
func (l *Logger) SetLevel(level string) error {
	parsed, err := ParseLevel(level)
	if err != nil {
		return err
	}
	l.Level.Set(parsed)
	return nil
}

// Close flushes and closes the log file.
func (l *Logger) Close() error {
	return l.out.Close()
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
