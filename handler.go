package gelf

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
)

type mcKey struct{}

// MessageContextKey is used to attach a free-form context string to a log
// event via its context.Context. The value must be a `string`, and lands in
// the `context` field of the emitted message.
//
//	Example:
//	ctx := context.WithValue(ctx, gelf.MessageContextKey, "checkpoint replay")
//	slog.InfoContext(ctx, "replay complete", "blocks", n)
var MessageContextKey *mcKey = &mcKey{}

// WithMessageContext returns a copy of ctx carrying the free-form context
// string, equivalent to context.WithValue with MessageContextKey.
func WithMessageContext(ctx context.Context, messageContext string) context.Context {
	return context.WithValue(ctx, MessageContextKey, messageContext)
}

type tnKey struct{}

// TaskNameKey is used to attach a task name to a log event via its
// context.Context. The value must be a `string`, and lands in the
// `_task_name` field of the emitted message.
//
//	Example:
//	ctx := context.WithValue(ctx, gelf.TaskNameKey, "ingest-7")
//	slog.InfoContext(ctx, "batch accepted", "rows", rows)
var TaskNameKey *tnKey = &tnKey{}

// WithTaskName returns a copy of ctx carrying the task name, equivalent to
// context.WithValue with TaskNameKey.
func WithTaskName(ctx context.Context, taskName string) context.Context {
	return context.WithValue(ctx, TaskNameKey, taskName)
}

// Sink is the delivery API the Handler writes to. *Appender implements it.
type Sink interface {
	Log(Record)
	Shutdown(context.Context) error
}

// Handler is an adapter that maps Go structured logs onto GELF messages and
// submits them to a Sink, normally an *Appender shipping to a collector over
// UDP.
//
//	// Example of basic usage
//	h, err := gelf.NewHandler("graylog.internal:12201", hostname, nil)
//	if err != nil {
//	   log.Fatalln(err)
//	}
//
//	logger := slog.New(h)
//	slog.SetDefault(logger)
//
//	slog.Info("unrecognized user", "user_id", userID)
//
// GELF records are flat, so nested scopes opened with WithGroup, and group
// attrs, are flattened into dot-joined additional field names: group "req"
// with attr "method" becomes the field `_req.method`.
type Handler struct {
	*HandlerOptions
	sink Sink

	// fields accumulates WithAttrs attrs, already flattened and normalized
	// to GELF additional field names
	fields map[string]any

	// groups holds the scopes opened by WithGroup, applied as a name prefix
	// to all subsequently added attrs
	groups []string
}

// NewHandler wraps an Appender with default Options, pointed at the given
// endpoint and reporting the given source host. The appender is initialized
// before the handler is returned; an endpoint that fails to resolve does not
// fail construction, it is reported through the internal logger and the
// handler discards everything, matching the fire-and-forget contract.
//
// For complete control over the appender configuration, including user
// fields merged into every message, use the `NewHandlerCustom` constructor.
func NewHandler(endpoint, host string, opts *HandlerOptions) (*Handler, error) {
	a, err := New(map[string]any{"endpoint": endpoint, "host": host}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create gelf.Appender: %w", err)
	}
	a.Initialize()

	return NewHandlerCustom(a, opts), nil
}

// NewHandlerCustom creates a Handler that wraps a Sink fully customizable by
// the caller.
func NewHandlerCustom(sink Sink, opts *HandlerOptions) *Handler {
	if opts == nil {
		opts = DefaultHandlerOptions()
	} else {
		opts.resolve()
	}

	return &Handler{
		HandlerOptions: opts,
		sink:           sink,
		fields:         map[string]any{},
	}
}

// Shutdown drains and stops the underlying Sink. You MUST NOT call any other
// logger methods after calling Shutdown. This method blocks until the sink's
// queue is fully drained or the context expires.
func (h *Handler) Shutdown(ctx context.Context) error {
	h.debug("shutting down the logging stack")
	return h.sink.Shutdown(ctx)
}

// deepCopy creates a copy of the Handler that can be independently modified
// moving forward without impacting the parent handler it derives from; that
// requires deep copies of the accumulated field map and the group stack.
func (h *Handler) deepCopy() *Handler {
	// make a copy of the handler
	h2 := *h

	// make a deep copy of the group stack
	h2.groups = make([]string, len(h.groups))
	copy(h2.groups, h.groups)

	// make a deep copy of the accumulated fields
	h2.fields = make(map[string]any, len(h.fields))
	for k, v := range h.fields {
		h2.fields[k] = v
	}

	return &h2
}

func (h *Handler) debug(format string, args ...any) {
	if !h.Verbose {
		return
	}
	InternalLogger().Printf(format, args...)
}

// Enabled reports whether the handler handles records at the given level. The
// handler ignores records whose level is lower. It is called early, before any
// arguments are processed, to save effort if the log event should be discarded.
// If called from a Logger method, the first argument is the context passed to
// that method, or context.Background() if nil was passed or the method does not
// take a context. The context is passed so Enabled can use its values to make a
// decision.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.Level.Level()
}

// Handle handles the Record. It will only be called when Enabled returns true.
// The Context argument is as for Enabled. It is present solely to provide
// Handlers access to the context's values. Canceling the context does not
// affect record processing.
//
// Handle observes the usual rules:
//   - Attr values are resolved.
//   - If an Attr's key and value are both the zero value, the Attr is ignored.
//   - If a group's key is empty, the group's Attrs are inlined.
//   - If a group has no Attrs, it is ignored even if it has a non-empty key.
//
// One deliberate deviation: r.Time is not used. The transport stamps each
// message when the worker composes it, so timestamps always agree with the
// order messages were shipped in.
//
// Two values are read from ctx: a `string` stored under MessageContextKey
// becomes the `context` field, and a `string` stored under TaskNameKey
// becomes the `_task_name` field.
func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	rec := Record{
		Format:     r.Message,
		Severity:   levelFromSlog(r.Level),
		ThreadName: h.ThreadName,
	}

	// rule: ignore source if no program counter
	if h.AddSource && r.PC != 0 {
		fs := runtime.CallersFrames([]uintptr{r.PC})
		f, _ := fs.Next()
		rec.File = f.File
		rec.Line = f.Line
		rec.Method = f.Function
	}

	if s, ok := ctx.Value(MessageContextKey).(string); ok && len(s) > 0 {
		rec.Context = s
	}
	if s, ok := ctx.Value(TaskNameKey).(string); ok && len(s) > 0 {
		rec.TaskName = s
	}

	// merge the pre-accumulated WithAttrs fields with the record's own
	// attrs; the map is built fresh per call so sibling handlers derived
	// from this one stay unaffected
	if len(h.fields) > 0 || r.NumAttrs() > 0 {
		fields := make(map[string]any, len(h.fields)+r.NumAttrs())
		for k, v := range h.fields {
			fields[k] = v
		}
		r.Attrs(func(attr slog.Attr) bool {
			h.addAttr(fields, h.groups, attr)
			return true // continue iterating
		})
		rec.Fields = fields
	}

	h.sink.Log(rec)

	return nil
}

// addAttr flattens one attr into dst and reports how many fields it added.
// Groups recurse with their key pushed onto the scope path; everything else
// becomes a single additional field.
func (h *Handler) addAttr(dst map[string]any, groups []string, attr slog.Attr) (nAdded int) {

	// rule: must first resolve, and then ignore if empty
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return 0
	}

	k, v := attr.Key, attr.Value

	if v.Kind() != slog.KindGroup {
		// rule: ignore non-group attrs with empty keys
		if len(k) == 0 {
			return 0
		}

		name := fieldKey(groups, k)
		if _, reserved := reservedFields[name]; reserved {
			h.debug("dropping attr %q: normalized name %q is reserved", k, name)
			return 0
		}

		dst[name] = h.attrValue(v)
		return 1
	}

	gAttrs := v.Group()

	// rule: ignore empty groups entirely
	if len(gAttrs) == 0 {
		return 0
	}

	// rule: inline attrs if the group key is empty
	gs := groups
	if len(k) > 0 {
		// fresh backing array, so sibling handlers sharing `groups` can
		// never observe this scope
		gs = make([]string, len(groups)+1)
		copy(gs, groups)
		gs[len(groups)] = k
	}

	for i := 0; i < len(gAttrs); i++ {
		nAdded += h.addAttr(dst, gs, gAttrs[i])
	}
	return nAdded
}

// attrValue converts a resolved non-group slog.Value into the plain Go value
// carried on the Record. Durations become nanosecond counts and times are
// formatted with the configured TimeFormat; everything else passes through
// for the composer's serializer to handle.
func (h *Handler) attrValue(v slog.Value) any {
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindBool:
		return v.Bool()
	case slog.KindInt64:
		return v.Int64()
	case slog.KindUint64:
		return v.Uint64()
	case slog.KindFloat64:
		return v.Float64()
	case slog.KindDuration:
		return v.Duration().Nanoseconds()
	case slog.KindTime:
		return v.Time().Format(h.TimeFormat)
	default:
		return v.Any()
	}
}

// fieldKey builds the GELF additional field name for an attr: the open group
// scopes and the attr key joined with dots, characters outside the legal
// field alphabet replaced with underscores, and a leading underscore added
// when the raw name doesn't already carry one.
func fieldKey(groups []string, key string) string {
	raw := key
	if len(groups) > 0 {
		raw = strings.Join(groups, ".") + "." + key
	}

	var b strings.Builder
	b.Grow(len(raw) + 1)
	if raw[0] != '_' {
		b.WriteByte('_')
	}
	for _, r := range raw {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '_', r == '.', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// levelFromSlog buckets an slog.Level the way slog itself names levels:
// everything below Info is debug, below Warn is info, below Error is warn,
// and the rest is error.
func levelFromSlog(l slog.Level) Level {
	switch {
	case l < slog.LevelInfo:
		return LevelDebug
	case l < slog.LevelWarn:
		return LevelInfo
	case l < slog.LevelError:
		return LevelWarn
	default:
		return LevelError
	}
}

// WithAttrs returns a new Handler whose attributes consist of both the
// receiver's attributes and the arguments. The Handler owns the slice: it may
// retain, modify or discard it.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {

	// rule: skip if no attrs
	if len(attrs) == 0 {
		return h
	}

	// make independent copy
	h2 := h.deepCopy()

	// count number of added attrs
	added := 0

	for i := 0; i < len(attrs); i++ {
		added += h2.addAttr(h2.fields, h2.groups, attrs[i])
	}

	// if none added, don't create a new handler
	if added == 0 {
		return h
	}

	return h2
}

// WithGroup returns a new Handler with the given group appended to the
// receiver's existing groups. Because GELF messages are flat, the group
// becomes a name prefix: every attr subsequently added through WithAttrs or
// a log call gets the group path dot-joined in front of its key.
//
// The new scope ends at the end of the log event. That is,
//
//	logger.WithGroup("s").LogAttrs(level, msg, slog.Int("a", 1), slog.Int("b", 2))
//
//	behaves like
//
//	logger.LogAttrs(level, msg, slog.Group("s", slog.Int("a", 1), slog.Int("b", 2)))
//
// If the name is empty, WithGroup returns the receiver, which results in the
// nested attributes being inlined into the parent scope.
func (h *Handler) WithGroup(name string) slog.Handler {

	// rule: ignore if name is empty (true for any attr)
	if len(name) == 0 {
		return h
	}

	// make an independent copy of the handler
	h2 := h.deepCopy()

	// add the new scope
	h2.groups = append(h2.groups, name)

	return h2
}
