package reactor

import (
	"io"
	"os"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Logger is the structured log sink used throughout the reactor core: a
// plain alias of logiface's generic Logger, specialized to stumpy's JSON
// event type.
//
// Severity mapping: TRACE -> Trace, DEBUG -> Debug, INFO -> Info,
// WARN -> Warning, ERROR -> Err, SYSERR -> Crit, FATAL -> Fatal (which
// also calls os.Exit(1) after the event is written).
type Logger = logiface.Logger[*stumpy.Event]

// NewLogger builds a Logger that writes newline-delimited JSON to w. A nil
// w defaults to os.Stderr.
func NewLogger(w io.Writer, level logiface.Level) *Logger {
	if w == nil {
		w = os.Stderr
	}
	return stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(w)),
		stumpy.L.WithLevel(level),
	)
}

// discardLogger is used as the default collaborator when none is supplied,
// so internal code can always call Logger methods without a nil check.
var discardLogger = NewLogger(io.Discard, logiface.LevelInformational)
