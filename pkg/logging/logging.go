// Package logging builds the slog loggers used across the client.
package logging

import (
	"io"
	"log/slog"
	"strings"
)

// Nop returns a logger that discards everything
func Nop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

// New returns a text logger writing to w. Debug lowers the level and adds
// source locations.
func New(w io.Writer, debug bool) *slog.Logger {
	if w == nil {
		return Nop()
	}
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: debug,
	}))
}

// RedactValue masks a credential, keeping the last four characters and the
// "Bearer " scheme when present.
func RedactValue(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(trimmed), "bearer ") {
		return "Bearer " + mask(strings.TrimSpace(trimmed[7:]))
	}
	return mask(trimmed)
}

func mask(value string) string {
	if value == "" {
		return ""
	}
	if len(value) <= 4 {
		return "****"
	}
	return "****" + value[len(value)-4:]
}
