package slog

import (
	"log/slog"
	"os"
	"strings"
)

// LevelFromEnv returns the level named by LLMBRIDGE_LOG_LEVEL, falling back
// to LOG_LEVEL and then INFO.
func LevelFromEnv() slog.Level {
	level := os.Getenv("LLMBRIDGE_LOG_LEVEL")
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	return ParseLevel(level)
}

// ParseLevel parses TRACE, DEBUG, INFO, WARN/WARNING or ERROR
// (case-insensitive). Anything else is INFO.
func ParseLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "TRACE":
		return LevelTrace
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// NewFromEnv builds a text-handler Observer on stderr at LevelFromEnv.
func NewFromEnv() *Observer {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: LevelFromEnv()})
	return New(slog.New(handler))
}
