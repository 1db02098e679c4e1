// Package logger wraps log/slog with printf-style helpers.
// Console output is colored with tint on a terminal and logfmt otherwise.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
)

// fallback serves nil Loggers.
var fallback = New()

type Logger struct {
	sl *slog.Logger
}

// New returns a Logger writing to stderr at Level.
func New() *Logger {
	if isatty.IsTerminal(os.Stderr.Fd()) {
		return &Logger{sl: slog.New(terminalHandler(os.Stderr, Level))}
	}
	return &Logger{sl: slog.New(textHandler(os.Stderr, Level))}
}

// NewWithWriter returns a Logger writing logfmt to w at Level.
func NewWithWriter(w io.Writer) *Logger {
	return &Logger{sl: slog.New(textHandler(w, Level))}
}

// Discard returns a Logger that writes nothing.
func Discard() *Logger {
	return &Logger{sl: slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: levelOff}))}
}

// WithDebugLog returns a Logger that also writes every record, debug
// included, to w. The console keeps its own threshold.
func (l *Logger) WithDebugLog(w io.Writer) *Logger {
	return &Logger{sl: slog.New(teeHandler{l.logger().Handler(), textHandler(w, slog.LevelDebug)})}
}

func (l *Logger) Error(a ...any)   { l.log(slog.LevelError, fmt.Sprint(a...)) }
func (l *Logger) Warning(a ...any) { l.log(slog.LevelWarn, fmt.Sprint(a...)) }
func (l *Logger) Notice(a ...any)  { l.log(LevelNotice, fmt.Sprint(a...)) }
func (l *Logger) Info(a ...any)    { l.log(slog.LevelInfo, fmt.Sprint(a...)) }
func (l *Logger) Debug(a ...any)   { l.log(slog.LevelDebug, fmt.Sprint(a...)) }

func (l *Logger) Errorf(format string, a ...any)   { l.log(slog.LevelError, fmt.Sprintf(format, a...)) }
func (l *Logger) Warningf(format string, a ...any) { l.log(slog.LevelWarn, fmt.Sprintf(format, a...)) }
func (l *Logger) Noticef(format string, a ...any)  { l.log(LevelNotice, fmt.Sprintf(format, a...)) }
func (l *Logger) Infof(format string, a ...any)    { l.log(slog.LevelInfo, fmt.Sprintf(format, a...)) }
func (l *Logger) Debugf(format string, a ...any)   { l.log(slog.LevelDebug, fmt.Sprintf(format, a...)) }

// With returns a Logger that adds args to every record.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{sl: l.logger().With(args...)}
}

func (l *Logger) log(level slog.Level, msg string) {
	l.logger().Log(context.Background(), level, msg)
}

func (l *Logger) logger() *slog.Logger {
	if l == nil || l.sl == nil {
		return fallback.sl
	}
	return l.sl
}
