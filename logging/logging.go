// Package logging wires the process-wide zerolog logger, the way
// badu-term/log/main.go wires a package-level zerolog.Logger through the
// stdlib log package. The kvm core never owns a logging singleton itself
// (spec.md §9: "Global mutable state... The core specified here accepts
// both as dependency-injected values"); this package only provides the
// default construction an external binary (cmd/kvmd) opts into.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Init configures the global zerolog level and field names and returns a
// logger writing to w (typically os.Stderr or a rotated file handle owned
// by the caller). Mirrors badu-term/log.InitLogger's field renaming, minus
// the per-user temp file path, which belongs to the external collaborator
// that owns persistence/config, not the core.
func Init(w io.Writer, debug bool) zerolog.Logger {
	zerolog.TimestampFieldName = "t"
	zerolog.LevelFieldName = "l"
	zerolog.MessageFieldName = "m"

	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	return zerolog.New(w).With().Timestamp().Logger()
}

// Default returns a logger writing to stderr at info level, used by
// packages that are handed no explicit logger (e.g. in tests).
func Default() zerolog.Logger {
	return Init(os.Stderr, false)
}

// Nop returns a logger that discards everything, for call sites that want
// to opt out of logging entirely (e.g. table-driven tests asserting pure
// functions).
func Nop() zerolog.Logger {
	return zerolog.Nop()
}
