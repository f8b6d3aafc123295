// Package logging builds the console log sink used for progress lines.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// TimeFormat is the timestamp layout prefixed to every console line.
const TimeFormat = "2006-01-02 15:04:05.000"

// New returns a timestamped console logger writing to w. When verbose is false the
// logger discards everything.
func New(w io.Writer, verbose bool) zerolog.Logger {
	if !verbose {
		return zerolog.Nop()
	}
	if w == nil {
		w = os.Stderr
	}
	console := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: TimeFormat,
		NoColor:    !isTerminal(w),
	}
	return zerolog.New(console).With().Timestamp().Logger()
}

// NewJSON returns a structured logger for machine consumption. It is used when the
// report itself is JSON or YAML, so log lines stay parseable too.
func NewJSON(w io.Writer, level zerolog.Level) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
