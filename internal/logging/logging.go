// Package logging configures the process-wide zerolog logger.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Options control the global logger.
type Options struct {
	Verbose bool
	// JSON disables the console writer, for log shipping.
	JSON bool
	// Out defaults to stderr so stdout stays free for command results.
	Out io.Writer
}

// Init installs the global logger and level.
func Init(opts Options) {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(Level(opts.Verbose))

	out := opts.Out
	if out == nil {
		out = os.Stderr
	}
	if !opts.JSON {
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: "15:04:05",
			NoColor:    os.Getenv("NO_COLOR") != "",
		}
	}

	log.Logger = zerolog.New(out).With().Timestamp().Logger()
}

// Level maps the verbose flag to a zerolog level.
func Level(verbose bool) zerolog.Level {
	if verbose {
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}

// NewLogger creates a logger writing to all of writers, or the global
// logger when none are given.
func NewLogger(writers ...io.Writer) zerolog.Logger {
	switch len(writers) {
	case 0:
		return log.Logger
	case 1:
		return zerolog.New(writers[0]).With().Timestamp().Logger()
	}
	return zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Logger()
}

// WithComponent creates a logger with a component field
func WithComponent(component string) zerolog.Logger {
	return log.Logger.With().Str("component", component).Logger()
}
