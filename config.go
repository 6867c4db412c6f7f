package gelf

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
)

// reservedFields are the GELF additional fields the appender itself emits.
// User-configured fields may not shadow them. `_id` is additionally reserved
// by the GELF specification for collector-side use.
var reservedFields = map[string]struct{}{
	"_id":           {},
	"_timestamp_ns": {},
	"_log_id":       {},
	"_line":         {},
	"_file":         {},
	"_method_name":  {},
	"_thread_name":  {},
	"_task_name":    {},
}

// GELF additional fields must start with an underscore and may only contain
// letters, digits, underscores, dashes, and dots.
var fieldKeyPattern = regexp.MustCompile(`^_[A-Za-z0-9_.\-]*$`)

// validFieldKey reports whether k is usable as a GELF additional field key:
// it must match the naming pattern and must not be reserved.
func validFieldKey(k string) bool {
	if _, reserved := reservedFields[k]; reserved {
		return false
	}
	return fieldKeyPattern.MatchString(k)
}

// config is the validated appender configuration. It is populated only by
// parseConfig, so holding a *config implies every field passed validation.
type config struct {
	// endpoint is the collector address, "host:port" or numeric "ip:port".
	endpoint string

	// host is the value reported as the GELF `host` field. It identifies the
	// emitting node, not the destination.
	host string

	// userFields are additional fields merged verbatim into every message.
	userFields map[string]any
}

// parseConfig extracts the required `endpoint` and `host` string fields from
// a loosely-typed configuration bundle and treats every remaining key as a
// user field. Validation is exhaustive: all offending keys are reported in
// one joined error, and on any error no config is returned.
func parseConfig(args map[string]any) (*config, error) {
	var err error

	endpoint, ok := args["endpoint"].(string)
	if !ok || len(endpoint) == 0 {
		err = errors.New(`required config field "endpoint" must be a non-empty string`)
	}

	host, ok := args["host"].(string)
	if !ok || len(host) == 0 {
		err = errors.Join(err, errors.New(`required config field "host" must be a non-empty string`))
	}

	// deterministic key order, so joined errors are stable
	keys := make([]string, 0, len(args))
	for k := range args {
		if k == "endpoint" || k == "host" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	userFields := make(map[string]any, len(keys))
	for _, k := range keys {
		if _, reserved := reservedFields[k]; reserved {
			err = errors.Join(err, fmt.Errorf("config field %q collides with a reserved field", k))
			continue
		}
		if !fieldKeyPattern.MatchString(k) {
			err = errors.Join(err, fmt.Errorf("config field %q must match %s", k, fieldKeyPattern))
			continue
		}
		userFields[k] = args[k]
	}

	if err != nil {
		return nil, err
	}

	return &config{
		endpoint:   endpoint,
		host:       host,
		userFields: userFields,
	}, nil
}
