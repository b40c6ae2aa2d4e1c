// ============================================================================
// meinDOLMETSCHER - Lokaler Sprachübersetzer
// ============================================================================
//
// Package:     logging
// Description: Logger construction on top of log/slog
// Author:      Mike Stoffels
// Created:     2026-10-17
// License:     MIT
// ============================================================================

package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// LoggerConfig holds configuration for creating loggers
type LoggerConfig struct {
	// Service or component name, emitted as "component"
	ServiceName string

	// Log level (debug, info, warn, error)
	Level string

	// Output format: "json" or "text" (default: text)
	Format string

	// Primary output (default: stderr)
	Output io.Writer

	// Additional outputs, e.g. a log file
	AdditionalOutputs []io.Writer
}

// DefaultLoggerConfig returns a default configuration
func DefaultLoggerConfig(serviceName string) LoggerConfig {
	return LoggerConfig{
		ServiceName: serviceName,
		Level:       "info",
		Format:      "text",
	}
}

// Logger is a named structured logger. Loggers are values handed to the
// components that need them; there is no process-wide instance.
type Logger struct {
	slog   *slog.Logger
	level  *slog.LevelVar
	output io.Writer
	format string
	name   string
	attrs  []any
}

// NewLogger creates a logger from configuration
func NewLogger(cfg LoggerConfig) *Logger {
	var output io.Writer = os.Stderr
	if cfg.Output != nil {
		output = cfg.Output
	}
	if len(cfg.AdditionalOutputs) > 0 {
		writers := append([]io.Writer{output}, cfg.AdditionalOutputs...)
		output = io.MultiWriter(writers...)
	}

	level := new(slog.LevelVar)
	level.Set(ParseLevel(cfg.Level).slog())

	l := &Logger{
		level:  level,
		output: output,
		format: cfg.Format,
		name:   cfg.ServiceName,
	}
	l.slog = l.build()
	return l
}

// New creates a logger with default configuration for the named component
func New(name string) *Logger {
	return NewLogger(DefaultLoggerConfig(name))
}

// Discard returns a logger that drops every record
func Discard() *Logger {
	cfg := DefaultLoggerConfig("discard")
	cfg.Output = io.Discard
	return NewLogger(cfg)
}

func (l *Logger) build() *slog.Logger {
	opts := &slog.HandlerOptions{Level: l.level}

	var handler slog.Handler
	if l.format == "json" {
		handler = slog.NewJSONHandler(l.output, opts)
	} else {
		handler = slog.NewTextHandler(l.output, opts)
	}

	logger := slog.New(handler)
	if l.name != "" {
		logger = logger.With("component", l.name)
	}
	if len(l.attrs) > 0 {
		logger = logger.With(l.attrs...)
	}
	return logger
}

func (l *Logger) clone() *Logger {
	c := *l
	c.attrs = append([]any(nil), l.attrs...)
	return &c
}

// Named returns a logger for a sub-component sharing output and level
func (l *Logger) Named(name string) *Logger {
	c := l.clone()
	c.name = name
	c.slog = c.build()
	return c
}

// With returns a logger that adds the key-value pairs to every record
func (l *Logger) With(keysAndValues ...any) *Logger {
	c := l.clone()
	c.attrs = append(c.attrs, keysAndValues...)
	c.slog = c.build()
	return c
}

// WithLevel returns a new logger with its own level
func (l *Logger) WithLevel(level Level) *Logger {
	c := l.clone()
	c.level = new(slog.LevelVar)
	c.level.Set(level.slog())
	c.slog = c.build()
	return c
}

// SetLevel changes the level of this logger and every logger derived from
// it with Named or With.
func (l *Logger) SetLevel(level Level) {
	l.level.Set(level.slog())
}

// Enabled reports whether records at level are emitted
func (l *Logger) Enabled(level Level) bool {
	return l.slog.Enabled(context.Background(), level.slog())
}

// Name returns the component name
func (l *Logger) Name() string {
	return l.name
}

// Slog exposes the underlying slog logger
func (l *Logger) Slog() *slog.Logger {
	return l.slog
}

// Debug logs a debug message with key-value pairs
func (l *Logger) Debug(msg string, keysAndValues ...any) {
	l.slog.Debug(msg, keysAndValues...)
}

// Info logs an info message with key-value pairs
func (l *Logger) Info(msg string, keysAndValues ...any) {
	l.slog.Info(msg, keysAndValues...)
}

// Warn logs a warning message with key-value pairs
func (l *Logger) Warn(msg string, keysAndValues ...any) {
	l.slog.Warn(msg, keysAndValues...)
}

// Error logs an error message with key-value pairs
func (l *Logger) Error(msg string, keysAndValues ...any) {
	l.slog.Error(msg, keysAndValues...)
}
