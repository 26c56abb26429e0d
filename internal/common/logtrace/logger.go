// Package logtrace provides logging and tracing utilities for the application.
// It integrates with zerolog for structured logging and carries request ids on contexts.
package logtrace

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger initializes the global logger with Unix timestamps at the given level.
// An empty or unknown level falls back to info.
func InitLogger(level string) {
	InitLoggerWithWriter(os.Stderr, level)
}

// InitLoggerWithWriter is InitLogger with an explicit destination.
func InitLoggerWithWriter(w io.Writer, level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(ParseLevel(level))
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
