package lasprep

import (
	"io"
	"log"
	"time"
)

// Statter receives the counters and stage timings of a run. Names are dotted,
// e.g. "tiles.processed" or "tile.colorize".
type Statter interface {
	Count(name string, value int64, rate float64, tags ...string)
	Timing(name string, value time.Duration, rate float64, tags ...string)
}

// NopStatter drops every stat.
type NopStatter struct{}

// Count does nothing.
func (NopStatter) Count(name string, value int64, rate float64, tags ...string) {}

// Timing does nothing.
func (NopStatter) Timing(name string, value time.Duration, rate float64, tags ...string) {}

// Logger is what every stage logs through. Printf is for progress a user
// wants to see; Debugf for pipeline JSON, skipped tiles and the like.
type Logger interface {
	Printf(format string, v ...interface{})
	Debugf(format string, v ...interface{})
}

// NewLogger returns a Logger writing timestamped lines to w. Debug lines are
// only written when verbose is set.
func NewLogger(w io.Writer, verbose bool) Logger {
	l := log.New(w, "", log.LstdFlags)
	if verbose {
		return VerboseLogger{Logger: l}
	}
	return StdLogger{Logger: l}
}

// NopLogger logs nothing.
type NopLogger struct{}

// Printf does nothing.
func (NopLogger) Printf(format string, v ...interface{}) {}

// Debugf does nothing.
func (NopLogger) Debugf(format string, v ...interface{}) {}

// StdLogger drops debug lines.
type StdLogger struct {
	*log.Logger
}

// Printf writes a line.
func (s StdLogger) Printf(format string, v ...interface{}) {
	s.Logger.Printf(format, v...)
}

// Debugf does nothing.
func (StdLogger) Debugf(format string, v ...interface{}) {}

// VerboseLogger writes debug lines too, prefixed with "debug: ".
type VerboseLogger struct {
	*log.Logger
}

// Printf writes a line.
func (s VerboseLogger) Printf(format string, v ...interface{}) {
	s.Logger.Printf(format, v...)
}

// Debugf writes a debug line.
func (s VerboseLogger) Debugf(format string, v ...interface{}) {
	s.Logger.Printf("debug: "+format, v...)
}
