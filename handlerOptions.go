package gelf

import (
	"log/slog"
	"time"
)

// HandlerOptions are used to customize the GELF slog.Handler.
//
// NB: The struct pointer options approach is used to be consistent with the
// approach used in the standard library for `slog.HandlerOptions`.
type HandlerOptions struct {

	// Level reports the minimum record level that will be logged. The handler
	// discards records with lower levels. If Level is nil, the handler assumes
	// LevelInfo. The handler calls Level.Level for each record processed; to
	// adjust the minimum level dynamically, use a LevelVar.
	Level slog.Leveler

	// TimeFormat allows customization of how time.Time values inside log
	// content will get serialized. This does not change the timestamp of the
	// log itself, whose representation is fixed by the GELF specification.
	// The default is time.RFC3339Nano.
	TimeFormat string

	// AddSource causes the handler to compute the source code position of
	// the log statement and report it through the `_file`, `_line`, and
	// `_method_name` fields of the emitted message.
	AddSource bool

	// ThreadName is reported as the `_thread_name` field of every message.
	// Go does not expose thread identities, so this is a fixed label for the
	// whole handler; when empty the transport reports "main".
	ThreadName string

	// Verbose controls whether debug logs are written to the internal logger.
	Verbose bool
}

const defaultTimeFormat = time.RFC3339Nano

// DefaultHandlerOptions returns *HandlerOptions with all default values.
func DefaultHandlerOptions() *HandlerOptions {
	return &HandlerOptions{
		Level:      slog.LevelInfo,
		TimeFormat: defaultTimeFormat,
	}
}

// resolve ensures that all options have valid values.
func (o *HandlerOptions) resolve() {

	// set default log level if not provided
	if o.Level == nil {
		o.Level = slog.LevelInfo
	}

	// set time format if missing
	if len(o.TimeFormat) == 0 {
		o.TimeFormat = defaultTimeFormat
	}
}
