package gelf

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/francoispqt/gojay"
)

const gelfVersion = "1.1"

// extraField is one additional (underscore-prefixed) field of a message.
// Fields are kept sorted so serialization is deterministic.
type extraField struct {
	key   string
	value any
}

// gelfMessage is one fully composed GELF record, constructed fresh per log
// call on the worker goroutine, serialized, and discarded after
// transmission.
type gelfMessage struct {
	host         string
	shortMessage string
	fullMessage  string
	timestamp    float64
	level        int
	context      string
	timestampNS  int64
	logID        uint64
	line         int
	file         string
	methodName   string
	threadName   string
	taskName     string
	extra        []extraField
}

// composeMessage derives the GELF message for one record. It is a pure
// function of the record, the validated config, the composition time, and
// the message's log id; all shared state lives with the caller.
//
// Per-event fields merge first and configured user fields last, so config
// always wins on collision. Event field keys that are reserved or break the
// GELF naming pattern are skipped.
func composeMessage(rec *Record, cfg *config, now time.Time, logID uint64) *gelfMessage {
	threadName := rec.ThreadName
	if len(threadName) == 0 {
		threadName = "main"
	}

	m := &gelfMessage{
		host:         cfg.host,
		shortMessage: renderTemplate(rec.Format, rec.Args),
		fullMessage:  rec.FullMessage,
		timestamp:    float64(now.UnixNano()) / float64(time.Second),
		level:        rec.Severity.syslog(),
		context:      rec.Context,
		timestampNS:  now.UnixNano(),
		logID:        logID,
		line:         rec.Line,
		file:         rec.File,
		methodName:   rec.Method,
		threadName:   threadName,
		taskName:     rec.TaskName,
	}

	if len(rec.Fields) == 0 && len(cfg.userFields) == 0 {
		return m
	}

	merged := make(map[string]any, len(rec.Fields)+len(cfg.userFields))
	for k, v := range rec.Fields {
		if !validFieldKey(k) {
			continue
		}
		merged[k] = v
	}
	for k, v := range cfg.userFields {
		merged[k] = v
	}

	m.extra = make([]extraField, 0, len(merged))
	for k, v := range merged {
		m.extra = append(m.extra, extraField{key: k, value: v})
	}
	sort.Slice(m.extra, func(i, j int) bool { return m.extra[i].key < m.extra[j].key })

	return m
}

// IsNil implements gojay.MarshalerJSONObject.
func (m *gelfMessage) IsNil() bool { return m == nil }

// MarshalJSONObject implements gojay.MarshalerJSONObject. Numeric fields are
// emitted as unquoted JSON numbers; collectors parse `timestamp` and `level`
// numerically, so stringified numbers would be rejected.
func (m *gelfMessage) MarshalJSONObject(enc *gojay.Encoder) {
	enc.StringKey("version", gelfVersion)
	enc.StringKey("host", m.host)
	enc.StringKey("short_message", m.shortMessage)
	enc.StringKeyOmitEmpty("full_message", m.fullMessage)
	enc.Float64Key("timestamp", m.timestamp)
	enc.IntKey("level", m.level)
	enc.StringKeyOmitEmpty("context", m.context)
	enc.Int64Key("_timestamp_ns", m.timestampNS)
	enc.Uint64Key("_log_id", m.logID)
	enc.IntKey("_line", m.line)
	enc.StringKey("_file", m.file)
	enc.StringKey("_method_name", m.methodName)
	enc.StringKey("_thread_name", m.threadName)
	enc.StringKeyOmitEmpty("_task_name", m.taskName)
	for i := range m.extra {
		addFieldValue(enc, m.extra[i].key, m.extra[i].value)
	}
}

// addFieldValue encodes one additional field. Scalars use the typed gojay
// writers so numbers stay unquoted; maps and slices recurse with sorted
// keys; anything else goes through encoding/json and is embedded verbatim,
// since gojay has no reflection fallback of its own.
func addFieldValue(enc *gojay.Encoder, key string, v any) {
	switch v := v.(type) {
	case nil:
		enc.AddNullKey(key)
	case string:
		enc.StringKey(key, v)
	case bool:
		enc.BoolKey(key, v)
	case int:
		enc.IntKey(key, v)
	case int32:
		enc.Int64Key(key, int64(v))
	case int64:
		enc.Int64Key(key, v)
	case uint:
		enc.Uint64Key(key, uint64(v))
	case uint32:
		enc.Uint64Key(key, uint64(v))
	case uint64:
		enc.Uint64Key(key, v)
	case float32:
		enc.Float64Key(key, float64(v))
	case float64:
		enc.Float64Key(key, v)
	case map[string]any:
		enc.ObjectKey(key, jsonObject(v))
	case []any:
		enc.ArrayKey(key, jsonArray(v))
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			enc.StringKey(key, fmt.Sprintf("%v", v))
			return
		}
		ej := gojay.EmbeddedJSON(raw)
		enc.AddEmbeddedJSONKey(key, &ej)
	}
}

// addValue is the keyless counterpart of addFieldValue, for array elements.
func addValue(enc *gojay.Encoder, v any) {
	switch v := v.(type) {
	case nil:
		enc.AddNull()
	case string:
		enc.String(v)
	case bool:
		enc.Bool(v)
	case int:
		enc.Int(v)
	case int32:
		enc.Int64(int64(v))
	case int64:
		enc.Int64(v)
	case uint:
		enc.Uint64(uint64(v))
	case uint32:
		enc.Uint64(uint64(v))
	case uint64:
		enc.Uint64(v)
	case float32:
		enc.Float64(float64(v))
	case float64:
		enc.Float64(v)
	case map[string]any:
		enc.Object(jsonObject(v))
	case []any:
		enc.Array(jsonArray(v))
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			enc.String(fmt.Sprintf("%v", v))
			return
		}
		ej := gojay.EmbeddedJSON(raw)
		enc.AddEmbeddedJSON(&ej)
	}
}

// jsonObject serializes a generic map with deterministic key order.
type jsonObject map[string]any

func (o jsonObject) IsNil() bool { return o == nil }

func (o jsonObject) MarshalJSONObject(enc *gojay.Encoder) {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		addFieldValue(enc, k, o[k])
	}
}

// jsonArray serializes a generic slice.
type jsonArray []any

func (a jsonArray) IsNil() bool { return a == nil }

func (a jsonArray) MarshalJSONArray(enc *gojay.Encoder) {
	for _, v := range a {
		addValue(enc, v)
	}
}
