// Package logging wires structured logging for the incremental SVD engine,
// the way sawpanic-cryptorun/internal/log configures zerolog once at the
// edge and threads the resulting logger through constructors rather than
// reaching for a process-global logger inside numerical hot paths.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds a zerolog.Logger writing to w (os.Stderr if nil) with a
// "component" field set, so interleaved output from the kernel, the
// interval manager and the facade can be told apart.
func New(component string, w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	zerolog.TimeFieldFormat = time.RFC3339
	return zerolog.New(w).With().Timestamp().Str("component", component).Logger()
}

// Nop returns a logger that discards all output, used as the default when
// callers construct a kernel/facade without supplying one explicitly.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}
