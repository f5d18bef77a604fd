// Package logging configures the zerolog.Logger that cmd/dxbrun hands to
// the VM; the container decoder does not log. Embedding hosts get a logger that
// discards output by default (spec.md §1 "external collaborators": the
// core must not spam a game's stdout); cmd/dxbrun opts into console output
// based on its config file's log level.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Nop returns a logger that discards everything, the same as the default
// of a VM constructed without an explicit WithLogger option.
func Nop() zerolog.Logger { return zerolog.Nop() }

// New builds a console-pretty-printed logger at the given level, writing
// to w. An empty or unrecognized level defaults to "info".
func New(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	out := zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}

// NewStderr is a convenience wrapper around New for cmd/dxbrun's default
// logging destination.
func NewStderr(level string) zerolog.Logger {
	return New(os.Stderr, level)
}
