// Package logging provides structured logging for Quorum sessions.
// It wraps Go's log/slog package to produce JSON-formatted logs with
// persistent session/round/participant attributes for post-hoc analysis
// of debate runs.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Log levels supported by the logger.
const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

// Logger provides structured logging with persistent attributes.
// It is safe for concurrent use.
type Logger struct {
	logger *slog.Logger
	closer io.Closer
	mu     sync.Mutex
	attrs  []slog.Attr
}

// NewLogger creates a Logger that writes JSON logs to {sessionDir}/debug.log,
// rotating per the rotation config. If sessionDir is empty, logs go to stderr.
func NewLogger(sessionDir, level string, rotation RotationConfig) (*Logger, error) {
	var writer io.Writer
	var closer io.Closer

	if sessionDir != "" {
		if err := os.MkdirAll(sessionDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create session directory: %w", err)
		}
		rw, err := NewRotatingWriter(filepath.Join(sessionDir, "debug.log"), rotation)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		writer = rw
		closer = rw
	} else {
		writer = os.Stderr
	}

	handler := slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: parseLevel(level)})

	return &Logger{
		logger: slog.New(handler),
		closer: closer,
		attrs:  make([]slog.Attr, 0),
	}, nil
}

// parseLevel converts a string log level to slog.Level, defaulting to INFO.
func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithSession returns a child Logger with the session ID on every entry.
func (l *Logger) WithSession(sessionID string) *Logger {
	return l.withAttr(slog.String("session_id", sessionID))
}

// WithRound returns a child Logger with the round number and kind on every entry.
func (l *Logger) WithRound(number int, kind string) *Logger {
	return l.withAttr(slog.Int("round", number)).withAttr(slog.String("round_kind", kind))
}

// WithParticipant returns a child Logger with the participant identity on every entry.
func (l *Logger) WithParticipant(name string) *Logger {
	return l.withAttr(slog.String("participant", name))
}

// With returns a child Logger with arbitrary alternating key-value attributes.
func (l *Logger) With(args ...any) *Logger {
	if len(args) == 0 {
		return l
	}

	newAttrs := make([]slog.Attr, 0, len(l.attrs)+len(args)/2)
	newAttrs = append(newAttrs, l.attrs...)
	for i := 0; i < len(args)-1; i += 2 {
		key, ok := args[i].(string)
		if !ok {
			continue
		}
		newAttrs = append(newAttrs, slog.Any(key, args[i+1]))
	}

	return &Logger{logger: l.logger, closer: l.closer, attrs: newAttrs}
}

func (l *Logger) withAttr(attr slog.Attr) *Logger {
	newAttrs := make([]slog.Attr, len(l.attrs)+1)
	copy(newAttrs, l.attrs)
	newAttrs[len(l.attrs)] = attr
	return &Logger{logger: l.logger, closer: l.closer, attrs: newAttrs}
}

// Debug logs a message at DEBUG level with optional key-value pairs.
func (l *Logger) Debug(msg string, args ...any) { l.log(slog.LevelDebug, msg, args...) }

// Info logs a message at INFO level with optional key-value pairs.
func (l *Logger) Info(msg string, args ...any) { l.log(slog.LevelInfo, msg, args...) }

// Warn logs a message at WARN level with optional key-value pairs.
func (l *Logger) Warn(msg string, args ...any) { l.log(slog.LevelWarn, msg, args...) }

// Error logs a message at ERROR level with optional key-value pairs.
func (l *Logger) Error(msg string, args ...any) { l.log(slog.LevelError, msg, args...) }

func (l *Logger) log(level slog.Level, msg string, args ...any) {
	allArgs := make([]any, 0, len(l.attrs)*2+len(args))
	for _, attr := range l.attrs {
		allArgs = append(allArgs, attr.Key, attr.Value.Any())
	}
	allArgs = append(allArgs, args...)

	l.logger.Log(context.Background(), level, msg, allArgs...)
}

// Close flushes and closes the underlying log file. A stderr logger
// treats this as a no-op.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closer != nil {
		if err := l.closer.Close(); err != nil {
			return fmt.Errorf("failed to close log file: %w", err)
		}
		l.closer = nil
	}
	return nil
}

// NopLogger returns a Logger that discards all output. Useful for tests.
func NopLogger() *Logger {
	return &Logger{
		logger: slog.New(slog.NewJSONHandler(io.Discard, nil)),
		attrs:  make([]slog.Attr, 0),
	}
}

// ValidLevels returns the list of valid log level strings.
func ValidLevels() []string {
	return []string{LevelDebug, LevelInfo, LevelWarn, LevelError}
}
