// Package log wraps slog with a component tag so every line carries
// which part of the system emitted it.
package log

import (
	"log/slog"
	"os"
)

// Standard component names.
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentStorage = "storage"
	ComponentEvents  = "events"
	ComponentExport  = "export"
)

// Logger is a component-tagged slog.Logger.
type Logger struct {
	*slog.Logger
}

// Config holds logger configuration
type Config struct {
	Level     slog.Level
	Component string
	Handler   slog.Handler
}

// DefaultConfig returns sensible defaults for logging
func DefaultConfig() Config {
	return Config{
		Level:     slog.LevelInfo,
		Component: ComponentApp,
	}
}

// New creates a new logger with the given configuration
func New(config Config) *Logger {
	handler := config.Handler
	if handler == nil {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: config.Level,
		})
	}
	return &Logger{
		Logger: slog.New(handler).With("component", config.Component),
	}
}

// WithComponent returns a logger tagged with a different component.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{Logger: l.Logger.With("component", component)}
}

// SetDefault installs the logger as the process-wide slog default, so
// packages logging through the slog top-level functions inherit the
// handler and component tag.
func SetDefault(logger *Logger) {
	slog.SetDefault(logger.Logger)
}
