package logging

import (
	"context"
	"log/slog"
)

// teeHandler sends each record to the terminal handler and to the daily log
// file handler. Both share one level, so Enabled only consults the terminal.
type teeHandler struct {
	terminal slog.Handler
	file     slog.Handler
}

func newTeeHandler(terminal, file slog.Handler) slog.Handler {
	if file == nil {
		return terminal
	}
	return teeHandler{terminal: terminal, file: file}
}

func (h teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.terminal.Enabled(ctx, level)
}

// Handle writes to both handlers. A failed file write does not suppress the
// terminal line; the terminal error wins when both fail.
func (h teeHandler) Handle(ctx context.Context, record slog.Record) error {
	fileErr := h.file.Handle(ctx, record.Clone())
	if err := h.terminal.Handle(ctx, record); err != nil {
		return err
	}
	return fileErr
}

func (h teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return teeHandler{terminal: h.terminal.WithAttrs(attrs), file: h.file.WithAttrs(attrs)}
}

func (h teeHandler) WithGroup(name string) slog.Handler {
	return teeHandler{terminal: h.terminal.WithGroup(name), file: h.file.WithGroup(name)}
}

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (h discardHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h discardHandler) WithGroup(string) slog.Handler { return h }
