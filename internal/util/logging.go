// Package util holds small helpers shared across containust's binaries
// that don't warrant their own package.
package util

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// ParseLogLevel maps the CONTAINUST_LOG environment variable's value
// ("debug", "info", "warn", "error", case-insensitive) to a slog.Level,
// defaulting to Info for an empty or unrecognized value.
func ParseLogLevel(s string) slog.Level {
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

// NewLogger builds the slog.Logger every containust binary logs through: a
// text handler on stderr at the level named by CONTAINUST_LOG, with
// HH:MM:SS timestamps instead of slog's default RFC3339.
func NewLogger() *slog.Logger {
	level := ParseLogLevel(os.Getenv("CONTAINUST_LOG"))
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(interface{ Format(string) string }); ok {
					return slog.String(slog.TimeKey, t.Format("15:04:05"))
				}
			}
			return a
		},
	})
	return slog.New(handler)
}

// Warn logs a warning through the CONTAINUST_LOG-configured default
// logger, for the few call sites that predate a logger being threaded to
// them explicitly.
func Warn(format string, args ...interface{}) {
	NewLogger().Warn(fmt.Sprintf(format, args...))
}
