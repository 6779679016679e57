// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package log builds the structured loggers used by the stress harness.
package log

import (
	"context"
	"io"
	"log/slog"
)

// NewText returns a logger writing logfmt-style records at or above level.
func NewText(w io.Writer, level Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       slog.Level(level),
		ReplaceAttr: replaceAttr,
	}))
}

// NewJson returns a logger writing one JSON object per record.
func NewJson(w io.Writer, level Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       slog.Level(level),
		ReplaceAttr: replaceAttr,
	}))
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(LevelError + 4)}))
}

// Trace logs at TRACE level.
func Trace(l *slog.Logger, msg string, v ...any) {
	l.Log(context.Background(), slog.Level(LevelTrace), msg, v...)
}

func replaceAttr(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		if level, ok := a.Value.Any().(slog.Level); ok {
			a.Value = slog.StringValue(Level(level).String())
		}
	}
	return a
}
