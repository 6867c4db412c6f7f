package gelf

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Record is one log event submitted to an Appender. The Handler fills it
// from slog records; callers integrating another logging front-end can
// construct Records directly.
type Record struct {

	// Format is the human-readable message, optionally containing `${name}`
	// placeholders substituted from Args. It becomes the GELF
	// `short_message` after rendering.
	Format string

	// Args supplies values for the `${name}` placeholders in Format. String
	// values are inserted verbatim; other values are rendered as JSON.
	// Placeholders with no matching key are left in the message untouched.
	Args map[string]any

	// Severity of the event. It is mapped onto the GELF syslog `level`.
	Severity Level

	// File and Line identify the source location of the log statement.
	File string
	Line int

	// Method is the function or method name of the log statement.
	Method string

	// ThreadName is reported as `_thread_name`. If empty, "main" is used.
	ThreadName string

	// TaskName is reported as `_task_name`, only when non-empty.
	TaskName string

	// Context is a free-form string reported as the `context` field, only
	// when non-empty.
	Context string

	// FullMessage is reported as the GELF `full_message` field, only when
	// non-empty. Use it for multi-line payloads such as backtraces.
	FullMessage string

	// Fields are per-event additional fields. Keys must be valid GELF field
	// names (leading underscore, `[A-Za-z0-9_.\-]` characters, not
	// reserved); invalid keys are skipped when the message is composed.
	// Configured user fields overwrite colliding keys.
	Fields map[string]any
}

// renderTemplate substitutes `${name}` placeholders in format with values
// from args. Unknown placeholders and unterminated `${` sequences are kept
// literally.
func renderTemplate(format string, args map[string]any) string {
	if len(args) == 0 || !strings.Contains(format, "${") {
		return format
	}

	var b strings.Builder
	b.Grow(len(format) + 16)

	rest := format
	for {
		i := strings.Index(rest, "${")
		if i < 0 {
			b.WriteString(rest)
			break
		}
		end := strings.Index(rest[i+2:], "}")
		if end < 0 {
			b.WriteString(rest)
			break
		}

		b.WriteString(rest[:i])
		key := rest[i+2 : i+2+end]
		if v, ok := args[key]; ok {
			b.WriteString(renderArg(v))
		} else {
			b.WriteString(rest[i : i+3+end])
		}
		rest = rest[i+3+end:]
	}

	return b.String()
}

// renderArg renders one placeholder value: strings verbatim, everything else
// as JSON, falling back to fmt formatting for values JSON cannot express.
func renderArg(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
