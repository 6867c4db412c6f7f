/*
Package gelf provides a complete GELF (Graylog Extended Log Format) UDP
shipping stack in Go, including:

  - `gelf.Handler` - serializes structured logs (implements `slog.Handler`)
  - `gelf.Appender` - composes, compresses, chunks, and ships GELF messages
    to the collector over UDP
  - `gelf.Record` - the log event type bridging the `Handler` and `Appender`

The transport is fire-and-forget, matching UDP semantics: producer goroutines
never block on network I/O, messages are composed and sent in submission order
by a single background worker that owns the socket, and failures are reported
on an internal side channel rather than retried or surfaced to callers.
Payloads larger than a single 512-byte datagram are split with the GELF
chunking convention so a compliant collector can reassemble them; partial
delivery of a chunked message is an accepted consequence of UDP and simply
yields an unreassemblable message at the receiver.
*/
package gelf
