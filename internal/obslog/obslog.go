// Package obslog provides the three slog.Handler flavors the kernel's
// boot/shutdown/debug diagnostics are logged through: human-readable,
// structured JSON, and silent.
package obslog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
)

// NewSilentHandler returns a handler that discards every record, for
// tests and library-embedding contexts that want the kernel quiet by
// default.
func NewSilentHandler() slog.Handler { return silentHandler{} }

type silentHandler struct{}

func (silentHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (silentHandler) Handle(context.Context, slog.Record) error { return nil }
func (h silentHandler) WithAttrs([]slog.Attr) slog.Handler       { return h }
func (h silentHandler) WithGroup(string) slog.Handler            { return h }

// NewJSONHandler returns the structured, machine-readable flavor (a thin
// wrapper kept only so callers can pick between all three obslog flavors
// uniformly without reaching for log/slog directly).
func NewJSONHandler(w io.Writer, level slog.Level) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
}

// HumanHandler renders records as short, readable lines rather than
// key=value pairs, suited to interactive terminals.
type HumanHandler struct {
	w     io.Writer
	level slog.Level
}

// NewHumanHandler returns a human-readable handler writing to w at or
// above level.
func NewHumanHandler(w io.Writer, level slog.Level) *HumanHandler {
	return &HumanHandler{w: w, level: level}
}

func (h *HumanHandler) Enabled(_ context.Context, level slog.Level) bool { return level >= h.level }

func (h *HumanHandler) Handle(_ context.Context, r slog.Record) error {
	if _, err := fmt.Fprintf(h.w, "[%s] %s\n", r.Level, r.Message); err != nil {
		return err
	}
	var werr error
	r.Attrs(func(a slog.Attr) bool {
		if _, err := fmt.Fprintf(h.w, "  %s: %v\n", a.Key, a.Value); err != nil {
			werr = err
			return false
		}
		return true
	})
	return werr
}

func (h *HumanHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *HumanHandler) WithGroup(string) slog.Handler       { return h }
