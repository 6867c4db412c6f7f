package gelf

import (
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"sync/atomic"
	"testing"
	"time"
)

const testHost = "127.0.0.1"

// testMessage is one fully decoded GELF message: reassembled if chunked,
// decompressed, and parsed from JSON into a generic map.
type testMessage map[string]any

// testCollector is a loopback stand-in for a GELF collector. It decodes with
// the standard library rather than the shipping stack's own codecs, so an
// encoding bug cannot cancel itself out in tests.
type testCollector struct {
	conn       *net.UDPConn
	messageCh  chan testMessage
	port       int
	shutdownCh chan struct{}
	sawChunked atomic.Bool

	// pending accumulates fragment bodies per message id; only the read
	// loop goroutine touches it
	pending map[uint64][][]byte

	*testCollectorOptions
}

type testCollectorOptions struct {
	verbose bool
}

func newTestCollector(opts *testCollectorOptions) (*testCollector, error) {
	if opts == nil {
		opts = &testCollectorOptions{}
	}

	c := &testCollector{
		messageCh:            make(chan testMessage, 128),
		shutdownCh:           make(chan struct{}),
		pending:              make(map[uint64][][]byte),
		testCollectorOptions: opts,
	}

	// assign port dynamically (use port 0 to assign dynamically)
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP(testHost), Port: 0})
	if err != nil {
		return nil, fmt.Errorf("failed to start test collector listener: %v", err)
	}
	c.conn = conn
	c.port = conn.LocalAddr().(*net.UDPAddr).Port

	go c.readLoop()

	return c, nil
}

func (c *testCollector) endpoint() string {
	return fmt.Sprintf("%s:%d", testHost, c.port)
}

func (c *testCollector) Shutdown() {
	close(c.shutdownCh)
	c.conn.Close()
}

func (c *testCollector) readLoop() {
	c.debug("starting read loop")
	buf := make([]byte, 64<<10)
	for {
		n, _, err := c.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-c.shutdownCh:
				c.debug("shutting down")
			default:
				c.debug("read error: %v", err)
			}
			return
		}
		datagram := make([]byte, n)
		copy(datagram, buf[:n])
		c.ingest(datagram)
	}
}

// ingest reassembles chunked datagrams per the GELF wire format (magic
// 0x1e 0x0f, 8-byte big-endian message id, sequence byte, count byte) and
// pushes each completed message to messageCh.
func (c *testCollector) ingest(datagram []byte) {
	payload := datagram

	if len(datagram) > 12 && datagram[0] == 0x1e && datagram[1] == 0x0f {
		c.sawChunked.Store(true)

		id := binary.BigEndian.Uint64(datagram[2:10])
		seq := int(datagram[10])
		count := int(datagram[11])
		if seq >= count {
			c.debug("fragment with sequence %d >= count %d", seq, count)
			return
		}

		parts, ok := c.pending[id]
		if !ok {
			parts = make([][]byte, count)
			c.pending[id] = parts
		}
		parts[seq] = datagram[12:]

		for _, p := range parts {
			if p == nil {
				return // incomplete
			}
		}
		delete(c.pending, id)
		payload = bytes.Join(parts, nil)
	}

	m, err := decodeGELF(payload)
	if err != nil {
		c.debug("failed to decode GELF payload: %v", err)
		return
	}
	c.messageCh <- m
}

// next blocks until the collector has one complete message, or fails the
// test after a timeout.
func (c *testCollector) next(t *testing.T) testMessage {
	t.Helper()
	timeout, cancel := context.WithTimeout(context.Background(), time.Second*2)
	defer cancel()
	select {
	case <-timeout.Done():
		t.Fatal("no GELF message was received in time")
		return nil
	case m := <-c.messageCh:
		return m
	}
}

// expectNone fails the test if any message arrives within the wait window.
func (c *testCollector) expectNone(t *testing.T, wait time.Duration) {
	t.Helper()
	select {
	case m := <-c.messageCh:
		t.Fatalf("received a GELF message that should not have been sent: %+v", m)
	case <-time.After(wait):
	}
}

func (c *testCollector) debug(format string, args ...any) {
	if !c.verbose {
		return
	}
	InternalLogger().Printf("testCollector: "+format, args...)
}

// decodeGELF decompresses one complete payload and parses the JSON. The
// compression is sniffed from the leading bytes the way a real collector
// does it: 0x1f 0x8b is gzip, 0x78 is zlib, anything else is plain text.
func decodeGELF(payload []byte) (testMessage, error) {
	var r io.Reader = bytes.NewReader(payload)

	switch {
	case len(payload) > 2 && payload[0] == 0x1f && payload[1] == 0x8b:
		gz, err := gzip.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("bad gzip payload: %v", err)
		}
		defer gz.Close()
		r = gz
	case len(payload) > 1 && payload[0] == 0x78:
		zr, err := zlib.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("bad zlib payload: %v", err)
		}
		defer zr.Close()
		r = zr
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read payload: %v", err)
	}

	m := testMessage{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("failed to parse GELF JSON: %v", err)
	}
	return m, nil
}

// testSink is a sink that records all submitted log records rather than ship
// them to a collector. It implements the Handler's Sink interface.
type testSink struct {
	logs      []Record
	shutdowns int
}

func newTestSink() *testSink {
	return &testSink{logs: make([]Record, 0)}
}

func (s *testSink) Log(rec Record) {
	s.logs = append(s.logs, rec)
}

func (s *testSink) Shutdown(ctx context.Context) error {
	s.shutdowns++
	return nil
}

func (s *testSink) last(t *testing.T) Record {
	t.Helper()
	if len(s.logs) == 0 {
		t.Fatal("no log records were submitted to the sink")
	}
	return s.logs[len(s.logs)-1]
}
