// Package logging builds the structured loggers shared by every component.
//
// Output goes to stderr by default: stdout carries the MCP protocol when the
// server runs over stdio.
package logging

import (
	"io"
	"os"

	"github.com/phuslu/log"
)

// Options configures a logger
type Options struct {
	Level   string    // debug, info, warn, error; unknown values mean info
	Writer  io.Writer // defaults to os.Stderr
	Console bool      // human-readable output instead of JSON lines
}

// New creates a logger from options
func New(opts Options) *log.Logger {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	logger := &log.Logger{
		Level:      log.ParseLevel(opts.Level),
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	}
	if opts.Console {
		logger.Writer = &log.ConsoleWriter{Writer: w}
	} else {
		logger.Writer = &log.IOWriter{Writer: w}
	}
	return logger
}

// Nop returns a logger that discards everything
func Nop() *log.Logger {
	return &log.Logger{
		Level:  log.PanicLevel,
		Writer: &log.IOWriter{Writer: io.Discard},
	}
}

// OrNop returns l, or a discarding logger when l is nil
func OrNop(l *log.Logger) *log.Logger {
	if l == nil {
		return Nop()
	}
	return l
}
