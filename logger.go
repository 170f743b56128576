package autotune

import (
	"os"

	"github.com/rs/zerolog"
)

// Logger is the logging seam every component in this module depends on.
// Callers take the interface, never a concrete logger, so a host
// application can plug in whatever structured logger it already runs.
type Logger interface {
	Debug(msg string, fields map[string]any)
	Info(msg string, fields map[string]any)
	Warn(msg string, fields map[string]any)
	Error(msg string, fields map[string]any)
}

// zerologLogger backs the default Logger with github.com/rs/zerolog,
// giving structured, leveled, field-based logging instead of bare
// Printf-style messages.
type zerologLogger struct {
	log zerolog.Logger
}

// NewDefaultLogger returns a Logger backed by a console-writer zerolog
// logger at info level, suitable for CLI demos; production callers
// typically construct their own zerolog.Logger and wrap it instead.
func NewDefaultLogger() Logger {
	return &zerologLogger{
		log: zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.InfoLevel).With().Timestamp().Logger(),
	}
}

// NewLogger wraps an existing zerolog.Logger, for callers that already run
// zerolog and want the autotuner's diagnostics folded into their own
// structured log stream.
func NewLogger(l zerolog.Logger) Logger {
	return &zerologLogger{log: l}
}

func (l *zerologLogger) Debug(msg string, fields map[string]any) { l.event(l.log.Debug(), msg, fields) }
func (l *zerologLogger) Info(msg string, fields map[string]any)  { l.event(l.log.Info(), msg, fields) }
func (l *zerologLogger) Warn(msg string, fields map[string]any)  { l.event(l.log.Warn(), msg, fields) }
func (l *zerologLogger) Error(msg string, fields map[string]any) { l.event(l.log.Error(), msg, fields) }

func (l *zerologLogger) event(e *zerolog.Event, msg string, fields map[string]any) {
	for k, v := range fields {
		e = e.Interface(k, v)
	}
	e.Msg(msg)
}

// noopLogger discards everything; used as the default when a caller passes
// a nil Logger into dispatch options.
type noopLogger struct{}

func (noopLogger) Debug(string, map[string]any) {}
func (noopLogger) Info(string, map[string]any)  {}
func (noopLogger) Warn(string, map[string]any)  {}
func (noopLogger) Error(string, map[string]any) {}
