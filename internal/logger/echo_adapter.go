package logger

import (
	"fmt"
	"io"
	"sync/atomic"

	gommonlog "github.com/labstack/gommon/log"
)

// EchoAdapter routes echo's own logging (startup errors, Recover stack
// traces, binder warnings) into a Logger so it shares format and sinks with
// the rest of the application.
//
//	e := echo.New()
//	e.Logger = logger.NewEchoAdapter(log.Module("echo"))
//
// Output, prefix and header settings are ignored. The level set through
// SetLevel filters entries before they reach the Logger, whose own module
// levels still apply.
type EchoAdapter struct {
	logger Logger
	level  atomic.Uint32
}

// NewEchoAdapter returns an adapter logging at DEBUG and above. A nil logger
// discards everything.
func NewEchoAdapter(l Logger) *EchoAdapter {
	if l == nil {
		l = NewDiscardLogger()
	}
	a := &EchoAdapter{logger: l}
	a.level.Store(uint32(gommonlog.DEBUG))
	return a
}

func (a *EchoAdapter) emit(lvl gommonlog.Lvl, msg string, fields ...Field) {
	if lvl < a.Level() {
		return
	}
	switch lvl {
	case gommonlog.DEBUG:
		a.logger.Debug(msg, fields...)
	case gommonlog.INFO:
		a.logger.Info(msg, fields...)
	case gommonlog.WARN:
		a.logger.Warn(msg, fields...)
	default:
		a.logger.Error(msg, fields...)
	}
}

func (a *EchoAdapter) emitJSON(lvl gommonlog.Lvl, j gommonlog.JSON) {
	a.emit(lvl, "echo", Any("data", j))
}

func (a *EchoAdapter) Output() io.Writer    { return io.Discard }
func (a *EchoAdapter) SetOutput(io.Writer)  {}
func (a *EchoAdapter) Prefix() string       { return "" }
func (a *EchoAdapter) SetPrefix(string)     {}
func (a *EchoAdapter) SetHeader(string)     {}
func (a *EchoAdapter) Level() gommonlog.Lvl { return gommonlog.Lvl(a.level.Load()) }

// SetLevel changes the minimum level passed on to the Logger.
func (a *EchoAdapter) SetLevel(lvl gommonlog.Lvl) { a.level.Store(uint32(lvl)) }

func (a *EchoAdapter) Print(i ...any)                 { a.emit(gommonlog.INFO, fmt.Sprint(i...)) }
func (a *EchoAdapter) Printf(format string, i ...any) { a.emit(gommonlog.INFO, fmt.Sprintf(format, i...)) }
func (a *EchoAdapter) Printj(j gommonlog.JSON)        { a.emitJSON(gommonlog.INFO, j) }

func (a *EchoAdapter) Debug(i ...any)                 { a.emit(gommonlog.DEBUG, fmt.Sprint(i...)) }
func (a *EchoAdapter) Debugf(format string, i ...any) { a.emit(gommonlog.DEBUG, fmt.Sprintf(format, i...)) }
func (a *EchoAdapter) Debugj(j gommonlog.JSON)        { a.emitJSON(gommonlog.DEBUG, j) }

func (a *EchoAdapter) Info(i ...any)                 { a.emit(gommonlog.INFO, fmt.Sprint(i...)) }
func (a *EchoAdapter) Infof(format string, i ...any) { a.emit(gommonlog.INFO, fmt.Sprintf(format, i...)) }
func (a *EchoAdapter) Infoj(j gommonlog.JSON)        { a.emitJSON(gommonlog.INFO, j) }

func (a *EchoAdapter) Warn(i ...any)                 { a.emit(gommonlog.WARN, fmt.Sprint(i...)) }
func (a *EchoAdapter) Warnf(format string, i ...any) { a.emit(gommonlog.WARN, fmt.Sprintf(format, i...)) }
func (a *EchoAdapter) Warnj(j gommonlog.JSON)        { a.emitJSON(gommonlog.WARN, j) }

func (a *EchoAdapter) Error(i ...any)                 { a.emit(gommonlog.ERROR, fmt.Sprint(i...)) }
func (a *EchoAdapter) Errorf(format string, i ...any) { a.emit(gommonlog.ERROR, fmt.Sprintf(format, i...)) }
func (a *EchoAdapter) Errorj(j gommonlog.JSON)        { a.emitJSON(gommonlog.ERROR, j) }

// Fatal variants log at ERROR and panic instead of exiting, so the server's
// shutdown path still runs.
func (a *EchoAdapter) Fatal(i ...any) { a.fatal(fmt.Sprint(i...)) }
func (a *EchoAdapter) Fatalf(format string, i ...any) {
	a.fatal(fmt.Sprintf(format, i...))
}
func (a *EchoAdapter) Fatalj(j gommonlog.JSON) { a.fatal(fmt.Sprint(j)) }

func (a *EchoAdapter) Panic(i ...any) { a.fatal(fmt.Sprint(i...)) }
func (a *EchoAdapter) Panicf(format string, i ...any) {
	a.fatal(fmt.Sprintf(format, i...))
}
func (a *EchoAdapter) Panicj(j gommonlog.JSON) { a.fatal(fmt.Sprint(j)) }

func (a *EchoAdapter) fatal(msg string) {
	a.logger.Error(msg)
	panic("echo: " + msg)
}
