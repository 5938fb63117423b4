package render

import (
	"context"
	"log/slog"
)

// nopHandler discards every record. Enabled returns false so callers
// skip formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func nopLogger() *slog.Logger { return slog.New(nopHandler{}) }

func loggerOrNop(l *slog.Logger) *slog.Logger {
	if l == nil {
		return nopLogger()
	}
	return l
}
