package logger

import (
	"io"
	"log/slog"
)

// Option customizes a logger built by New.
type Option func(*config)

// WithDebug lowers the level to Debug.
func WithDebug(debug bool) Option {
	return func(c *config) {
		c.level = slog.LevelInfo
		if debug {
			c.level = slog.LevelDebug
		}
	}
}

// WithSource adds the caller's file:line to every record. The papers
// commands enable it together with --debug.
func WithSource(source bool) Option {
	return func(c *config) {
		c.source = source
	}
}

// WithPretty selects the charmbracelet/log handler used for terminal output.
// It takes precedence over WithJSON.
func WithPretty(pretty bool) Option {
	return func(c *config) {
		c.pretty = pretty
	}
}

// WithJSON selects slog's JSON handler, used for service and file logs.
func WithJSON(json bool) Option {
	return func(c *config) {
		c.json = json
	}
}

// WithWriter sets the destination. Defaults to os.Stdout.
func WithWriter(w io.Writer) Option {
	return func(c *config) {
		c.writer = w
	}
}

// WithComponent tags every record with a "component" attribute, e.g.
// "ingest" or "serve".
func WithComponent(name string) Option {
	return func(c *config) {
		c.component = name
	}
}
