// Package logger provides the process-wide zerolog logger and privacy helpers for log fields.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Log is the global logger instance.
var Log zerolog.Logger

func init() {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	Log = newLogger(os.Stdout, false)
}

func newLogger(w io.Writer, jsonOutput bool) zerolog.Logger {
	if !jsonOutput {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).
		With().
		Timestamp().
		Caller().
		Logger()
}

// SetLevel sets the global log level. Unknown or empty levels fall back to info.
func SetLevel(level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

// SetJSON switches to JSON output (for production).
func SetJSON() {
	Log = newLogger(os.Stdout, true)
}

// SetOutput redirects the logger to w, keeping the chosen format.
func SetOutput(w io.Writer, jsonOutput bool) {
	Log = newLogger(w, jsonOutput)
}

// Configure applies LOG_LEVEL and LOG_FORMAT. Any format other than "json" keeps console output.
func Configure(level, format string) {
	SetLevel(level)
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		SetJSON()
	}
}

// ForJourney returns a child logger tagging every entry with the journey ID.
func ForJourney(journeyID string) zerolog.Logger {
	return Log.With().Str("journey_id", journeyID).Logger()
}
