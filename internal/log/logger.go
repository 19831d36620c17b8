package log

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures NewLogger.
type Options struct {
	// Writer receives log output, typically os.Stderr. Nil means os.Stderr.
	Writer io.Writer

	// Verbose sets the level to Debug.
	Verbose bool

	// File, when set, also writes logs to this path, rotated by size.
	File string

	// MaxSizeMB is the size at which File is rotated. Zero means 10 MB.
	MaxSizeMB int

	// MaxBackups is the number of rotated files kept. Zero means 3.
	MaxBackups int
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewLogger creates a text logger wrapped in a SecureHandler.
// The level is Warn, Info when a log file is configured, or Debug when verbose.
// The returned closer releases the log file and must be closed on exit.
func NewLogger(opts Options) (*slog.Logger, io.Closer) {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	level := slog.LevelWarn
	var closer io.Closer = nopCloser{}
	if opts.File != "" {
		level = slog.LevelInfo
		rotator := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    orDefault(opts.MaxSizeMB, 10),
			MaxBackups: orDefault(opts.MaxBackups, 3),
			Compress:   true,
		}
		w = io.MultiWriter(w, rotator)
		closer = rotator
	}
	if opts.Verbose {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(NewSecureHandler(handler)), closer
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
