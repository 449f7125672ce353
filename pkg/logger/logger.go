// Package logger provides opinionated slog-based logging for the papers system.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"

	charmlog "github.com/charmbracelet/log"
)

// config is the internal configuration assembled from Options.
type config struct {
	level     slog.Level
	pretty    bool
	json      bool
	source    bool
	component string
	writer    io.Writer
}

// New creates a *slog.Logger. By default it writes text records at Info level
// to os.Stdout. Use WithPretty for CLI output and WithJSON for services.
func New(opts ...Option) *slog.Logger {
	c := &config{
		level:  slog.LevelInfo,
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(c)
	}

	l := slog.New(c.handler())
	if c.component != "" {
		l = l.With("component", c.component)
	}
	return l
}

func (c *config) handler() slog.Handler {
	w := c.writer
	if w == nil {
		w = os.Stdout
	}

	switch {
	case c.pretty:
		return charmlog.NewWithOptions(w, charmlog.Options{
			Level:           charmlog.Level(c.level),
			ReportTimestamp: true,
			ReportCaller:    c.source,
		})
	case c.json:
		return slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:     c.level,
			AddSource: c.source,
		})
	default:
		return slog.NewTextHandler(w, &slog.HandlerOptions{
			Level:     c.level,
			AddSource: c.source,
		})
	}
}

// Nop returns a logger that discards everything.
func Nop() *slog.Logger {
	return slog.New(nopHandler{})
}

type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (h nopHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h nopHandler) WithGroup(string) slog.Handler           { return h }
