package gelf

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/francoispqt/gojay"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

// Compression modes for the encoded payload. All three are transparent to a
// compliant collector, which sniffs the payload leader.
const (
	// CompressionZlib compresses payloads with zlib (RFC 1950). The default.
	CompressionZlib = "zlib"

	// CompressionGzip compresses payloads with gzip (RFC 1952).
	CompressionGzip = "gzip"

	// CompressionNone ships the raw JSON text uncompressed.
	CompressionNone = "none"
)

// encodePayload serializes a composed message to GELF JSON and applies the
// configured compression.
//
// Serialization runs under a wall-clock budget: blowing the budget means a
// pathological value sneaked into the message (an over-expensive custom
// marshaler, an enormous field) and the message is dropped rather than
// allowed to stall the worker's queue. A budget <= 0 disables the check.
func encodePayload(m *gelfMessage, compression string, budget time.Duration) ([]byte, error) {
	start := time.Now()

	raw, err := gojay.MarshalJSONObject(m)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize GELF message: %w", err)
	}

	if budget > 0 {
		if elapsed := time.Since(start); elapsed > budget {
			return nil, fmt.Errorf("GELF serialization took %s, exceeding the %s budget", elapsed, budget)
		}
	}

	if compression == CompressionNone {
		return raw, nil
	}

	var buf bytes.Buffer
	buf.Grow(len(raw) / 2)

	var w io.WriteCloser
	switch compression {
	case CompressionGzip:
		w = gzip.NewWriter(&buf)
	default:
		w = zlib.NewWriter(&buf)
	}

	if _, err := w.Write(raw); err != nil {
		return nil, fmt.Errorf("failed to compress GELF payload: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to compress GELF payload: %w", err)
	}

	return buf.Bytes(), nil
}
