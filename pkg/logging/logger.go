// Package logging configures zerolog for swapi-roster and fixes the field
// names its components log with.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Field names shared by every component.
const (
	FieldComponent  = "component"
	FieldService    = "service"
	FieldRunID      = "run_id"
	FieldURL        = "url"
	FieldStatusCode = "status_code"
	FieldErrorClass = "error_class"
)

// Component names passed to NewLogger.
const (
	ComponentClient     = "swapi-client"
	ComponentEnrich     = "enrich"
	ComponentPool       = "enrich-pool"
	ComponentPagination = "pagination"
	ComponentRoster     = "roster"
	ComponentLoader     = "loader"
	ComponentServer     = "server"
)

// DefaultService is the service field written on every line.
const DefaultService = "swapi-roster"

// Config holds logger configuration. Level and Pretty mirror the
// log_level and pretty_log settings.
type Config struct {
	// Level is one of debug, info, warn (or warning) and error.
	Level string

	// Pretty switches from JSON lines to zerolog's console writer.
	Pretty bool

	// Output defaults to os.Stderr.
	Output io.Writer

	// Service defaults to DefaultService.
	Service string
}

// DefaultConfig returns info-level JSON logging to stderr.
func DefaultConfig() Config {
	return Config{
		Level:   "info",
		Output:  os.Stderr,
		Service: DefaultService,
	}
}

// ParseLevel maps a configured level name to a zerolog level.
func ParseLevel(level string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel, nil
	case "", "info":
		return zerolog.InfoLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	default:
		return zerolog.NoLevel, fmt.Errorf("unknown log level %q", level)
	}
}

// Setup configures the global zerolog logger and returns it. Component
// loggers created afterwards with NewLogger inherit its output and level.
func Setup(cfg Config) (zerolog.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), err
	}
	zerolog.SetGlobalLevel(level)

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out}
	}

	service := cfg.Service
	if service == "" {
		service = DefaultService
	}

	logger := zerolog.New(out).With().
		Timestamp().
		Str(FieldService, service).
		Logger()
	log.Logger = logger

	return logger, nil
}

// NewLogger returns the global logger tagged with component.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str(FieldComponent, component).Logger()
}

// ForRun returns a component logger that also carries the roster load's
// run_id, so every line of one load can be grepped together.
func ForRun(component, runID string) zerolog.Logger {
	return log.With().
		Str(FieldComponent, component).
		Str(FieldRunID, runID).
		Logger()
}

// Log Level Guidelines:
//
// Debug: cache hits and misses, conditional requests, derived avatars,
// worker start and stop.
//
// Info: page loaded, walk complete, roster load complete, 304 responses,
// server startup and shutdown.
//
// Warn: skipped vehicles, species and films; unavailable homeworlds;
// budget throttling and retries; cache errors; duplicate characters.
//
// Error: page fetch failures, network or parse failures in the detail view,
// exhausted budget, configuration errors.
