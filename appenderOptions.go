package gelf

import "time"

// Options are used to customize the Appender.
//
// # Invalid options are coerced
//
// NB: The struct pointer options approach is used to be consistent with the
// options used for the Handler, which uses the struct pointer approach to be
// consistent with the `HandlerOptions` used by log/slog.
type Options struct {

	// Compression selects the payload compression applied after GELF JSON
	// serialization: CompressionZlib, CompressionGzip, or CompressionNone.
	// The default is zlib.
	Compression string

	// QueueDepth sets the maximum number of log records that can be buffered
	// ahead of the worker goroutine. The queue is always buffered so Log
	// never blocks beyond the enqueue; when the queue is full, overflow
	// records are dropped (load shedding). The default depth is 1024.
	QueueDepth int

	// ResolveTimeout bounds the DNS lookup performed by Initialize when the
	// endpoint is not a numeric address. The default is 10s.
	ResolveTimeout time.Duration

	// EncodeBudget is the wall-clock budget for serializing one message to
	// GELF JSON. A message whose serialization exceeds the budget is dropped
	// and reported. If EncodeBudget < 0, no budget is enforced. The default
	// is 50ms.
	EncodeBudget time.Duration

	// Verbose controls whether debug logs are written to the internal
	// logger.
	Verbose bool
}

const (
	defaultCompression    = CompressionZlib
	defaultQueueDepth     = 1024
	defaultResolveTimeout = time.Second * 10
	defaultEncodeBudget   = time.Millisecond * 50
)

// DefaultOptions returns *Options with all default values.
func DefaultOptions() *Options {
	return &Options{
		Compression:    defaultCompression,
		QueueDepth:     defaultQueueDepth,
		ResolveTimeout: defaultResolveTimeout,
		EncodeBudget:   defaultEncodeBudget,
	}
}

// resolve ensures that all options have valid values.
func (o *Options) resolve() {

	// only the three supported modes
	if o.Compression != CompressionZlib && o.Compression != CompressionGzip && o.Compression != CompressionNone {
		o.Compression = defaultCompression
	}

	// must be positive; the queue is always buffered
	if o.QueueDepth < 1 {
		o.QueueDepth = defaultQueueDepth
	}

	// must be positive
	if o.ResolveTimeout < 1 {
		o.ResolveTimeout = defaultResolveTimeout
	}

	// can be negative (disabled) or positive, but not 0
	if o.EncodeBudget == 0 {
		o.EncodeBudget = defaultEncodeBudget
	}
}
