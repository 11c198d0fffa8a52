// Package logger provides structured logging for the report studio engine.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog with engine-specific helpers.
type Logger struct {
	zlog zerolog.Logger
}

// Config holds logger configuration.
type Config struct {
	Level      string // debug, info, warn, error
	Pretty     bool   // console output for development
	Output     io.Writer
	WithCaller bool
}

// New creates a structured logger. Output defaults to stderr so stdout stays
// free for the MCP stdio transport.
func New(cfg Config) *Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}
	}

	zlog := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Str("service", "reportstudio").
		Logger()
	if cfg.WithCaller {
		zlog = zlog.With().Caller().Logger()
	}
	return &Logger{zlog: zlog}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zlog: zerolog.Nop()}
}

// Zerolog returns the underlying zerolog logger.
func (l *Logger) Zerolog() *zerolog.Logger {
	return &l.zlog
}

func (l *Logger) Debug() *zerolog.Event { return l.zlog.Debug() }
func (l *Logger) Info() *zerolog.Event  { return l.zlog.Info() }
func (l *Logger) Warn() *zerolog.Event  { return l.zlog.Warn() }
func (l *Logger) Error() *zerolog.Event { return l.zlog.Error() }

// With returns a child logger tagged with a component name.
func (l *Logger) With(component string) *Logger {
	return &Logger{zlog: l.zlog.With().Str("component", component).Logger()}
}

// WithDocument returns a child logger tagged with a document id.
func (l *Logger) WithDocument(id string) *Logger {
	return &Logger{zlog: l.zlog.With().Str("document", id).Logger()}
}

// LogOperation logs a document operation at debug level, or at warn level
// when it failed.
func (l *Logger) LogOperation(op string, duration time.Duration, err error) {
	if err != nil {
		l.zlog.Warn().
			Str("operation", op).
			Dur("duration_ms", duration).
			Err(err).
			Msg("operation failed")
		return
	}
	l.zlog.Debug().
		Str("operation", op).
		Dur("duration_ms", duration).
		Msg("operation applied")
}

// LogStorage logs a persistence call.
func (l *Logger) LogStorage(op, docID string, duration time.Duration, err error) {
	event := l.zlog.Debug()
	if err != nil {
		event = l.zlog.Error().Err(err)
	}
	event.
		Str("operation", op).
		Str("document", docID).
		Dur("duration_ms", duration).
		Msg("storage operation completed")
}
