// Package logging builds the structured logger used by the rolloutguard
// demo binary.
//
// Loggers write JSON via [log/slog] with a configurable minimum level, so
// demo output matches what a production host of the library would emit.
package logging

import (
	"io"
	"log/slog"
	"strings"
)

// New creates a [slog.Logger] writing JSON to w at the given level.
// Accepted level strings (case-insensitive): "debug", "info", "warn",
// "error". Unrecognised or empty values default to "info".
func New(level string, w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(level),
	}))
}

// ParseLevel converts a level string to a [slog.Level], defaulting to
// [slog.LevelInfo].
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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
