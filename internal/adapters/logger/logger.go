// Package logger implements a logging adapter using log/slog.
package logger

import (
	"io"
	"log/slog"
	"os"
	"sync"

	"go.trai.ch/mill/internal/core/domain"
	"go.trai.ch/mill/internal/core/ports"
)

// Logger implements ports.Logger using log/slog.
type Logger struct {
	logger *slog.Logger
	level  slog.LevelVar
	mu     sync.RWMutex
}

// New creates a new Logger writing to stderr at info level.
func New() *Logger {
	l := &Logger{}
	l.level.Set(slog.LevelInfo)
	l.logger = slog.New(l.handler(os.Stderr))
	return l
}

var _ ports.Logger = (*Logger)(nil)

func (l *Logger) handler(w io.Writer) slog.Handler {
	// Use a text handler for human-readable output, writing to stderr as per 12-factor app guidelines
	return slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: &l.level,
	})
}

// SetOutput updates the logger's output destination.
// This is thread-safe and updates the underlying slog handler.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logger = slog.New(l.handler(w))
}

// SetLevel changes the minimum level that is written. It applies to every handler
// installed by SetOutput, before or after the call.
func (l *Logger) SetLevel(level domain.LogLevel) {
	l.level.Set(slog.Level(level))
}

// Debug logs a diagnostic message.
func (l *Logger) Debug(msg string) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.logger.Debug(msg)
}

// Info logs an informational message.
func (l *Logger) Info(msg string) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.logger.Info(msg)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.logger.Warn(msg)
}

// Error logs an error message. zerr metadata on the chain is rendered as attributes.
func (l *Logger) Error(err error) {
	if err == nil {
		return
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.logger.Error("operation failed", "error", err)
}
