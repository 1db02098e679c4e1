package logger

import (
	"log/slog"
	"strings"

	"github.com/pkg/errors"
)

const (
	// LevelNotice sits between info and warn.
	LevelNotice = slog.LevelInfo + 2
	levelOff    = slog.LevelError + 64
)

// Level is the console threshold of every Logger created by this package.
// Session log sinks added with WithDebugLog ignore it.
var Level = new(slog.LevelVar)

var levelNames = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"notice":  LevelNotice,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"err":     slog.LevelError,
	"error":   slog.LevelError,
	"off":     levelOff,
	"none":    levelOff,
}

// ParseLevel returns the level called name, ignoring case.
func ParseLevel(name string) (slog.Level, error) {
	lvl, ok := levelNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, errors.Errorf("unknown log level %q", name)
	}
	return lvl, nil
}

// SetLevel sets Level by name. An unknown name leaves Level unchanged.
func SetLevel(name string) error {
	lvl, err := ParseLevel(name)
	if err != nil {
		return err
	}
	Level.Set(lvl)
	return nil
}

func levelLabel(lvl slog.Level) string {
	switch {
	case lvl >= slog.LevelError:
		return "error"
	case lvl >= slog.LevelWarn:
		return "warn"
	case lvl >= LevelNotice:
		return "notice"
	case lvl >= slog.LevelInfo:
		return "info"
	default:
		return "debug"
	}
}
