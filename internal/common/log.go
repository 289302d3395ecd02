package common

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// LoggingEnabled controls whether Logf produces output.
var LoggingEnabled = true

var logger = NewLogger(LogConfig{Level: "info", Out: os.Stdout, Pretty: true})

// LogConfig describes how NewLogger builds a logger.
type LogConfig struct {
	Level  string // debug, info, warn, error
	Out    io.Writer
	Pretty bool
}

// NewLogger builds a zerolog logger from cfg. Unknown levels fall back to info.
func NewLogger(cfg LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	out := cfg.Out
	if out == nil {
		out = os.Stdout
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// SetLogger replaces the logger used by Logf and LogDuration.
func SetLogger(l zerolog.Logger) {
	logger = l
}

// Logger returns the logger used by Logf and LogDuration.
func Logger() *zerolog.Logger {
	return &logger
}

// Logf logs a formatted message at info level if logging is enabled.
func Logf(format string, args ...interface{}) {
	if LoggingEnabled {
		logger.Info().Msg(strings.TrimRight(fmt.Sprintf(format, args...), "\n"))
	}
}

// formatDuration formats a duration with 2 decimal places.
// Returns a string like "1.23 ms" (no padding).
func formatDuration(d time.Duration) string {
	ms := float64(d) / float64(time.Millisecond)

	// Handle durations >= 1 second
	if ms >= 1000 {
		sec := ms / 1000
		return fmt.Sprintf("%.2f s", sec)
	} else if ms < 0.01 {
		// Sub-0.01 ms: show in microseconds
		us := ms * 1000
		return fmt.Sprintf("%.2f us", us)
	}
	// Everything else in milliseconds with 2 decimal places
	return fmt.Sprintf("%.2f ms", ms)
}

// LogDuration logs a message with the elapsed time since start attached as
// the "elapsed" field.
func LogDuration(start time.Time, format string, args ...interface{}) {
	if !LoggingEnabled {
		return
	}
	logger.Info().
		Str("elapsed", formatDuration(time.Since(start))).
		Msg(fmt.Sprintf(format, args...))
}
