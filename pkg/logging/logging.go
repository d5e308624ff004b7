// Package logging configures the process-wide zerolog logger.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// logWriter stores the current log writer globally. Tests swap it out to
// capture output.
var logWriter io.Writer = os.Stderr

func init() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

// ConfigureGlobalLogging sets the global log level and output format.
// format "text" renders a human-readable console stream; anything else
// falls through to zerolog's native JSON.
func ConfigureGlobalLogging(levelStr, format string) {
	level := parseLogLevel(levelStr)
	zerolog.SetGlobalLevel(level)

	w := logWriter
	if format == "text" {
		w = zerolog.ConsoleWriter{Out: logWriter, TimeFormat: time.RFC3339}
	}

	logContext := zerolog.New(w).With().Timestamp()
	if level <= zerolog.DebugLevel {
		logContext = logContext.Caller()
	}

	log.Logger = logContext.Logger().Level(level)
	zerolog.DefaultContextLogger = &log.Logger
}

// parseLogLevel converts a string log level to zerolog.Level, defaulting
// to info on empty or unparseable input.
func parseLogLevel(levelString string) zerolog.Level {
	if levelString == "" {
		return zerolog.InfoLevel
	}
	level, err := zerolog.ParseLevel(strings.ToLower(levelString))
	if err != nil {
		log.Error().Err(err).
			Str("logLevel", levelString).
			Msg("Invalid log level provided. Defaulting to info level.")
		return zerolog.InfoLevel
	}
	return level
}

// SetLogWriter sets the global log writer.
func SetLogWriter(w io.Writer) {
	logWriter = w
}
