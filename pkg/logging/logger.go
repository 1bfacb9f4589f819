// Package logging provides structured logging configuration using zerolog.
// Setup installs the process-wide logger; components derive their own logger
// with NewLogger.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	Level LogLevel

	// Pretty switches from JSON lines to zerolog's console writer.
	Pretty bool

	// Output defaults to os.Stderr when nil.
	Output io.Writer

	// Service, if set, is attached to every line as "service".
	Service string
}

// DefaultConfig returns JSON logging at info level on stderr.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger and returns it.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}
	}

	ctx := zerolog.New(output).With().Timestamp()
	if cfg.Service != "" {
		ctx = ctx.Str("service", cfg.Service)
	}
	logger := ctx.Logger()

	log.Logger = logger
	return logger
}

// parseLevel converts LogLevel to zerolog.Level.
func parseLevel(level LogLevel) zerolog.Level {
	switch ParseLevel(string(level)) {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// ParseLevel converts a configuration string to a LogLevel.
// Unknown values fall back to LevelInfo.
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Counter increments (move, start)
//   - Metrics scrapes (body size)
//   - Stats mirror publishes
//
// Info: Normal operation events
//   - HTTP access log lines
//   - Listener startup/shutdown
//   - Configuration summary at startup
//
// Warn: Warning conditions that don't prevent operation
//   - 4xx responses (unknown paths, wrong methods)
//   - Stats mirror publish failures (next tick tries again)
//   - Client disconnects while writing a response
//
// Error: Error conditions requiring attention
//   - Failed counter increments (programmer errors)
//   - Metrics exposition failures
//   - Recovered handler panics
//   - Listener bind failures
//
// Context Fields:
//   - component: Subsystem name (server, metrics, mirror)
//   - request_id: chi request id
//   - method, path, status: HTTP access fields
//   - duration: Request duration
//   - counter: Counter name being incremented
//   - addr: Listener address
