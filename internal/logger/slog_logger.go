package logger

import (
	"context"
	"io"
	"log/slog"
	"math"
	"os"
	"slices"
	"time"
)

const (
	// traceLevelValue sits below slog.LevelDebug (-4)
	traceLevelValue = slog.Level(-8)

	floatPrecisionRatio = 1000.0
)

// SlogLogger implements Logger on top of a slog.Handler. Both the central
// logger's module loggers and standalone test loggers use it.
type SlogLogger struct {
	handler  slog.Handler
	level    slog.Level
	module   string
	timezone *time.Location
	fields   []Field
}

// NewSlogLogger creates a logger writing JSON records to writer.
func NewSlogLogger(writer io.Writer, level LogLevel, timezone *time.Location) *SlogLogger {
	if writer == nil {
		writer = os.Stdout
	}
	if timezone == nil {
		timezone = time.UTC
	}
	slogLevel := parseSlogLevel(level)
	return &SlogLogger{
		handler:  slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: slogLevel}),
		level:    slogLevel,
		timezone: timezone,
	}
}

// NewConsoleLogger creates a human-readable logger for use before the
// central logger has been configured.
func NewConsoleLogger(module string, level LogLevel) *SlogLogger {
	slogLevel := parseSlogLevel(level)
	return &SlogLogger{
		handler:  newTextHandler(os.Stdout, slogLevel, time.Local),
		level:    slogLevel,
		module:   module,
		timezone: time.Local,
	}
}

// NewDiscardLogger returns a logger that drops everything.
func NewDiscardLogger() *SlogLogger {
	return &SlogLogger{
		handler:  slog.DiscardHandler,
		level:    slog.LevelError + 1,
		timezone: time.UTC,
	}
}

// Module returns a logger scoped to name, nested under the current module.
func (l *SlogLogger) Module(name string) Logger {
	if l == nil {
		return nil
	}
	moduleName := name
	if l.module != "" {
		moduleName = l.module + "." + name
	}
	return &SlogLogger{
		handler:  l.handler,
		level:    l.level,
		module:   moduleName,
		timezone: l.timezone,
		fields:   slices.Clone(l.fields),
	}
}

func (l *SlogLogger) Trace(msg string, fields ...Field) { l.logAt(traceLevelValue, msg, fields) }
func (l *SlogLogger) Debug(msg string, fields ...Field) { l.logAt(slog.LevelDebug, msg, fields) }
func (l *SlogLogger) Info(msg string, fields ...Field)  { l.logAt(slog.LevelInfo, msg, fields) }
func (l *SlogLogger) Warn(msg string, fields ...Field)  { l.logAt(slog.LevelWarn, msg, fields) }
func (l *SlogLogger) Error(msg string, fields ...Field) { l.logAt(slog.LevelError, msg, fields) }

// Log logs with an explicit level
func (l *SlogLogger) Log(level LogLevel, msg string, fields ...Field) {
	l.logAt(parseSlogLevel(level), msg, fields)
}

// With returns a logger carrying fields on every entry
func (l *SlogLogger) With(fields ...Field) Logger {
	if l == nil {
		return nil
	}
	return &SlogLogger{
		handler:  l.handler,
		level:    l.level,
		module:   l.module,
		timezone: l.timezone,
		fields:   slices.Concat(l.fields, fields),
	}
}

// WithContext returns a logger tagged with the trace ID stored in ctx.
func (l *SlogLogger) WithContext(ctx context.Context) Logger {
	if l == nil {
		return nil
	}
	traceID := TraceIDFromContext(ctx)
	if traceID == "" {
		return l
	}
	return l.With(String(traceIDKey, traceID))
}

// Flush is a no-op; file output is flushed by CentralLogger.
func (l *SlogLogger) Flush() error {
	return nil
}

func (l *SlogLogger) logAt(level slog.Level, msg string, fields []Field) {
	if l == nil || l.level > level {
		return
	}

	attrs := make([]slog.Attr, 0, 1+len(l.fields)+len(fields))
	if l.module != "" {
		attrs = append(attrs, slog.String(moduleKey, l.module))
	}
	for i := range l.fields {
		attrs = append(attrs, fieldToAttr(l.fields[i]))
	}
	for i := range fields {
		attrs = append(attrs, fieldToAttr(fields[i]))
	}

	slog.New(l.handler).LogAttrs(context.Background(), level, msg, attrs...)
}

// fieldToAttr converts a Field to a slog.Attr, redacting secrets
func fieldToAttr(f Field) slog.Attr {
	f = redactField(f)
	switch v := f.Value.(type) {
	case string:
		return slog.String(f.Key, v)
	case int:
		return slog.Int(f.Key, v)
	case int64:
		return slog.Int64(f.Key, v)
	case uint64:
		return slog.Uint64(f.Key, v)
	case float64:
		return slog.Float64(f.Key, math.Round(v*floatPrecisionRatio)/floatPrecisionRatio)
	case bool:
		return slog.Bool(f.Key, v)
	case time.Time:
		return slog.Time(f.Key, v)
	case time.Duration:
		// slog.Duration renders nanoseconds in JSON
		return slog.String(f.Key, v.Round(time.Millisecond).String())
	default:
		return slog.Any(f.Key, v)
	}
}

// parseSlogLevel converts LogLevel to slog.Level
func parseSlogLevel(level LogLevel) slog.Level {
	switch level {
	case LogLevelTrace:
		return traceLevelValue
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
