// Package logger provides opinionated slog construction for recall.
//
// Services log JSON, the CLI logs through charmbracelet/log, and everything
// else gets slog's text handler. All of them are plain *slog.Logger values so
// packages never depend on the concrete handler.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"

	charmlog "github.com/charmbracelet/log"
)

type config struct {
	level  slog.Level
	pretty bool
	json   bool
	source bool
	writer io.Writer
}

// New builds a *slog.Logger from the given options.
func New(opts ...Option) *slog.Logger {
	c := &config{
		level:  slog.LevelInfo,
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(c)
	}
	w := c.writer

	switch {
	case c.json:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:     c.level,
			AddSource: c.source,
		}))

	case c.pretty:
		return slog.New(charmlog.NewWithOptions(w, charmlog.Options{
			Level:           charmlog.Level(c.level),
			ReportTimestamp: true,
			ReportCaller:    c.source,
		}))

	default:
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
			Level:     c.level,
			AddSource: c.source,
		}))
	}
}

// Nop returns a logger that drops everything.
func Nop() *slog.Logger {
	return slog.New(nopHandler{})
}

type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (h nopHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h nopHandler) WithGroup(string) slog.Handler           { return h }
