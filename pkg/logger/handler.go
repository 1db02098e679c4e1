package logger

import (
	"context"
	"io"
	"log/slog"
	"runtime"
	"time"

	"github.com/lmittmann/tint"
)

func replaceLevel(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey {
		return a
	}
	if lvl, ok := a.Value.Any().(slog.Level); ok {
		return slog.String(a.Key, levelLabel(lvl))
	}
	return a
}

// textHandler writes logfmt records, one per line.
func textHandler(w io.Writer, lvl slog.Leveler) slog.Handler {
	return slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl, ReplaceAttr: replaceLevel})
}

// terminalHandler writes colored records for an interactive operator.
func terminalHandler(w io.Writer, lvl slog.Leveler) slog.Handler {
	return tint.NewHandler(w, &tint.Options{
		Level:      lvl,
		TimeFormat: time.TimeOnly,
		NoColor:    runtime.GOOS == "windows",
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelNotice {
					return slog.String(a.Key, "NTC")
				}
			}
			return a
		},
	})
}

// teeHandler hands each record to every handler enabled for its level.
type teeHandler []slog.Handler

func (t teeHandler) Enabled(ctx context.Context, lvl slog.Level) bool {
	for _, h := range t {
		if h.Enabled(ctx, lvl) {
			return true
		}
	}
	return false
}

func (t teeHandler) Handle(ctx context.Context, r slog.Record) error {
	var first error
	for _, h := range t {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (t teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(teeHandler, len(t))
	for i, h := range t {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (t teeHandler) WithGroup(name string) slog.Handler {
	out := make(teeHandler, len(t))
	for i, h := range t {
		out[i] = h.WithGroup(name)
	}
	return out
}
