// Package logging builds the structured loggers of the long-running commands.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/m-mizutani/clog"
	"golang.org/x/term"
)

// Format represents the log output format
type Format int

// Supported log formats.
const (
	FormatAuto Format = iota
	FormatConsole
	FormatJSON
)

// NewLogger creates a new slog.Logger with automatic format detection.
// A terminal gets clog console output, anything else gets JSON.
func NewLogger(level slog.Level, w io.Writer) *slog.Logger {
	return NewLoggerWithFormat(level, w, FormatAuto)
}

// NewLoggerWithFormat creates a new slog.Logger with the specified format.
func NewLoggerWithFormat(level slog.Level, w io.Writer, format Format) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}

	if format == FormatAuto {
		format = FormatJSON
		if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			format = FormatConsole
		}
	}

	var handler slog.Handler
	switch format {
	case FormatConsole:
		handler = clog.New(
			clog.WithWriter(w),
			clog.WithLevel(level),
			clog.WithTimeFmt("15:04:05"),
			clog.WithSource(false),
			clog.WithAttrHook(clog.GoerrHook),
		)
	default:
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: level,
		})
	}
	return slog.New(handler)
}

// ParseLogLevel parses a string log level to slog.Level. Unknown values are info.
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// ParseFormat parses the log-format setting. Unknown values mean auto.
func ParseFormat(format string) Format {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "console", "text":
		return FormatConsole
	case "json":
		return FormatJSON
	default:
		return FormatAuto
	}
}

// New builds a logger from the log-level and log-format settings.
func New(w io.Writer, level, format string) *slog.Logger {
	return NewLoggerWithFormat(ParseLogLevel(level), w, ParseFormat(format))
}
