package rsl

import (
	"io"
	"os"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/lestrrat-go/strftime"
)

/*------------------------------------------------------------------
 * Purpose: Structured logging for the whole package, via
 * github.com/charmbracelet/log. Every component logs through a
 * *Logger with bts/trx/lchan/sapi fields attached so any line can be
 * traced back to the radio resource it concerns.
 *---------------------------------------------------------------*/

// Logger is the structured logger type used throughout this package.
type Logger = *charmlog.Logger

// NewLogger builds a Logger writing to w at the given level. The
// package convention: Warn for recoverable protocol errors, Error for
// unrecoverable per-lchan conditions, Debug for routine drops.
func NewLogger(w io.Writer, level charmlog.Level) Logger {
	l := charmlog.NewWithOptions(w, charmlog.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Level:           level,
	})
	return l
}

// DefaultLogger is a stderr logger at Info level, for callers that
// don't build their own.
func DefaultLogger() Logger {
	return NewLogger(os.Stderr, charmlog.InfoLevel)
}

// pagingTraceName formats the per-day audit-trail file name for the
// paging scheduler from a strftime pattern. The registry evaluates it
// once per paging attempt to decide whether the day has rolled over.
func pagingTraceName(pattern string, t time.Time) (string, error) {
	f, err := strftime.New(pattern)
	if err != nil {
		return "", err
	}
	return f.FormatString(t), nil
}
