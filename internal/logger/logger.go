// Package logger builds the structured slog logger used by the neurogalaxy service.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Format defines how log records are rendered
type Format string

// Supported formats
const (
	TEXT Format = "text"
	JSON Format = "json"
)

// Config holds configuration options for the logger
type Config struct {
	Level       slog.Level
	Format      Format
	Output      io.Writer
	DefaultTags map[string]any
}

// DefaultConfig returns a default logger configuration. Output goes to stderr
// because stdout carries the MCP stdio transport.
func DefaultConfig() *Config {
	return &Config{
		Level:       slog.LevelInfo,
		Format:      TEXT,
		Output:      os.Stderr,
		DefaultTags: map[string]any{"service": "neurogalaxy"},
	}
}

// New creates a new slog.Logger with the given configuration
func New(config *Config) *slog.Logger {
	if config == nil {
		config = DefaultConfig()
	}
	out := config.Output
	if out == nil {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: config.Level}

	var handler slog.Handler
	if config.Format == JSON {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	logger := slog.New(handler)
	for k, v := range config.DefaultTags {
		logger = logger.With(k, v)
	}
	return logger
}

// FromSettings builds a logger from the level and format strings found in the
// configuration file.
func FromSettings(level, format string) *slog.Logger {
	cfg := DefaultConfig()
	cfg.Level = ParseLevel(level)
	cfg.Format = ParseFormat(format)
	return New(cfg)
}

// ParseLevel converts a string level to a slog.Level
func ParseLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseFormat converts a string to a Format, defaulting to TEXT.
func ParseFormat(format string) Format {
	if strings.EqualFold(strings.TrimSpace(format), string(JSON)) {
		return JSON
	}
	return TEXT
}

// Component returns a child logger tagged with a component name.
func Component(logger *slog.Logger, name string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With("component", name)
}
