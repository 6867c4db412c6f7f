package gelf

import (
	"context"
	"log/slog"
	"testing"
	"time"
)

func TestDefaultHandlerOptions(t *testing.T) {
	opts := DefaultHandlerOptions()

	if opts.Level != slog.LevelInfo {
		t.Errorf("expected the default level to be info, got: %v", opts.Level)
	}
	if opts.TimeFormat != time.RFC3339Nano {
		t.Errorf("expected the default time format to be RFC3339Nano, got: %q", opts.TimeFormat)
	}
	if opts.AddSource {
		t.Error("expected the default for `AddSource` to be false")
	}
	if len(opts.ThreadName) != 0 {
		t.Errorf("expected the default thread name to be empty, got: %q", opts.ThreadName)
	}
	if opts.Verbose {
		t.Error("expected the default for `Verbose` to be false")
	}
}

func TestHandlerOptions_resolvedLevel(t *testing.T) {
	opts := &HandlerOptions{}
	opts.resolve()
	if opts.Level != slog.LevelInfo {
		t.Errorf("expected a nil level to be coerced to info, got: %v", opts.Level)
	}

	opts = &HandlerOptions{Level: slog.LevelError}
	opts.resolve()
	if opts.Level != slog.LevelError {
		t.Errorf("expected an explicit level to be kept, got: %v", opts.Level)
	}
}

func TestHandlerOptions_resolvedTimeFormat(t *testing.T) {
	opts := &HandlerOptions{}
	opts.resolve()
	if opts.TimeFormat != defaultTimeFormat {
		t.Errorf("expected an empty time format to be coerced to the default, got: %q", opts.TimeFormat)
	}

	opts = &HandlerOptions{TimeFormat: time.Kitchen}
	opts.resolve()
	if opts.TimeFormat != time.Kitchen {
		t.Errorf("expected an explicit time format to be kept, got: %q", opts.TimeFormat)
	}
}

func TestHandler_EnabledThreshold(t *testing.T) {
	tests := []struct {
		name   string
		option slog.Leveler
		query  slog.Level
		expect bool
	}{
		{"default admits info", nil, slog.LevelInfo, true},
		{"default rejects debug", nil, slog.LevelDebug, false},
		{"warn threshold rejects info", slog.LevelWarn, slog.LevelInfo, false},
		{"warn threshold admits warn", slog.LevelWarn, slog.LevelWarn, true},
		{"warn threshold admits error", slog.LevelWarn, slog.LevelError, true},
	}
	for i := 0; i < len(tests); i++ {
		tt := tests[i]
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandlerCustom(newTestSink(), &HandlerOptions{Level: tt.option})
			if got := h.Enabled(context.Background(), tt.query); got != tt.expect {
				t.Errorf("failed: %s, expected: %t, got: %t", tt.name, tt.expect, got)
			}
		})
	}
}
