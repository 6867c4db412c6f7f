package gelf

import "strings"

// Level is the severity of a log event as understood by the logging
// front-end. It is mapped onto the GELF `level` field, which carries syslog
// severities (0-7, lower is more severe).
type Level int

const (
	// LevelAll is a threshold pseudo-level; events should not normally carry
	// it. Events that do map to informational rather than being rejected.
	LevelAll Level = iota

	// LevelDebug maps to syslog debug (7).
	LevelDebug

	// LevelInfo maps to syslog informational (6).
	LevelInfo

	// LevelWarn maps to syslog warning (4).
	LevelWarn

	// LevelError maps to syslog error (3).
	LevelError

	// LevelOff is a threshold pseudo-level, like LevelAll.
	LevelOff
)

// ParseLevel converts a level name to a Level. Unrecognized names return
// LevelInfo, the same fallback the syslog mapping uses.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "all":
		return LevelAll
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	case "off":
		return LevelOff
	default:
		return LevelInfo
	}
}

func (l Level) String() string {
	switch l {
	case LevelAll:
		return "all"
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	case LevelOff:
		return "off"
	default:
		return "info"
	}
}

// syslog returns the GELF/syslog severity for the level. The two
// non-actionable threshold levels, and any out-of-range value, map to
// informational (6) rather than propagating an invalid severity.
func (l Level) syslog() int {
	switch l {
	case LevelDebug:
		return 7
	case LevelInfo:
		return 6
	case LevelWarn:
		return 4
	case LevelError:
		return 3
	default:
		return 6
	}
}
