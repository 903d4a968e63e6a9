// Package telemetry provides the gate's logging and optional metrics
// surface. Logging is always on; metrics are an opt-in debug surface
// (spec's Non-goals exclude a metrics transport, not structured logging).
package telemetry

import (
	"io"
	"log/slog"
	"strings"
)

// NewLogger builds the gate's slog.Logger, writing to w in either "text"
// or "json" format at the given minimum level. Unrecognized formats fall
// back to text; unrecognized levels fall back to info.
func NewLogger(w io.Writer, format, level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// parseLogLevel converts a string log level to slog.Level. Unrecognized
// values return slog.LevelInfo.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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
