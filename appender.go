package gelf

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// appenderState is the lifecycle of an Appender: unstarted until Initialize
// succeeds, running while the worker goroutine is live, stopped terminally
// after Shutdown or a failed initialization.
type appenderState int

const (
	stateUnstarted appenderState = iota
	stateRunning
	stateStopped
)

// task is one queued unit of work. The worker stamps the message when it
// composes it rather than carrying an enqueue time, so reported timestamps
// always increase in emission order.
type task struct {
	rec Record
}

// Appender ships log records to a GELF collector over UDP. Producer
// goroutines submit records with Log; a single background worker owns the
// socket and performs composition, serialization, compression, chunking, and
// sending, strictly in submission order.
//
// The zero-value Appender is not usable; construct with New, then call
// Initialize once before logging.
type Appender struct {
	opts *Options
	cfg  *config

	mu     sync.RWMutex
	state  appenderState
	conn   *net.UDPConn
	taskCh chan task
	wg     sync.WaitGroup

	logID atomic.Uint64
}

// New validates the configuration bundle and returns an unstarted Appender.
//
// `endpoint` and `host` are required string fields; every remaining key is a
// user field merged into each emitted message, and must be a valid
// non-reserved GELF field name. Validation errors are the only hard failures
// in the stack: an invalid bundle returns an error and no Appender.
func New(args map[string]any, opts *Options) (*Appender, error) {
	cfg, err := parseConfig(args)
	if err != nil {
		return nil, err
	}

	if opts == nil {
		opts = DefaultOptions()
	} else {
		opts.resolve()
	}

	a := &Appender{
		opts:   opts,
		cfg:    cfg,
		taskCh: make(chan task, opts.QueueDepth),
	}

	a.debug("created Appender with the resolved Options: %+v", a.opts)

	return a, nil
}

// Initialize resolves the collector endpoint, opens the UDP socket, and
// starts the background worker. It is synchronous and never fails outward:
// on resolution or socket failure the cause is reported to the internal
// logger and the Appender becomes permanently inert, turning every Log call
// into a no-op. Calling Initialize more than once has no effect.
func (a *Appender) Initialize() {
	a.mu.Lock()
	if state := a.state; state != stateUnstarted {
		a.mu.Unlock()
		a.debug("Initialize called on a %v appender; ignoring", state)
		return
	}
	a.mu.Unlock()

	// resolution and dialing happen outside the lock so concurrent Log
	// calls stay non-blocking while DNS is in flight
	ctx, cancel := context.WithTimeout(context.Background(), a.opts.ResolveTimeout)
	defer cancel()

	addr, err := resolveEndpoint(ctx, a.cfg.endpoint)
	if err != nil {
		a.disable()
		a.reportError("failed to resolve GELF endpoint; appender disabled: %v", err)
		return
	}

	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		a.disable()
		a.reportError("failed to open UDP socket for %s; appender disabled: %v", addr, err)
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != stateUnstarted {
		// lost a race with Shutdown or a concurrent Initialize
		conn.Close()
		return
	}

	a.conn = conn
	a.wg.Add(1)
	go a.run()
	a.state = stateRunning

	a.debug("shipping GELF messages to %s", addr)
}

// disable marks a still-unstarted appender permanently inert. It never
// demotes a running appender, so a racing Initialize cannot strand a live
// worker.
func (a *Appender) disable() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == stateUnstarted {
		a.state = stateStopped
	}
}

// Log submits one record for delivery. It is safe from any goroutine, never
// blocks beyond the enqueue, and is a silent no-op on an appender that is
// not running, whether it was never initialized, failed to resolve its
// endpoint, or was already shut down. When the queue is full the record is
// dropped rather than blocking the caller.
func (a *Appender) Log(rec Record) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.state != stateRunning {
		return
	}

	select {
	case a.taskCh <- task{rec: rec}:
	default:
		a.debug("full queue: dropping log record: queue depth: %d", a.opts.QueueDepth)
	}
}

// Shutdown is used to support graceful teardown. It closes the task queue,
// which releases the worker from waiting for further records, then blocks
// until the worker drains the queue and exits, or the context expires,
// whichever occurs first. Shutdown is idempotent and safe to call on an
// appender that never initialized. After Shutdown, Log calls are silent
// no-ops.
func (a *Appender) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	if a.state != stateRunning {
		a.state = stateStopped
		a.mu.Unlock()
		return nil
	}
	a.state = stateStopped
	close(a.taskCh)
	a.mu.Unlock()

	a.debug("task queue closed; writing out previously enqueued messages")

	doneCh := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(doneCh)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-doneCh:
		a.debug("task queue successfully drained")
		return nil
	}
}

// run is the worker goroutine. It loops until the task queue closes, then
// closes the socket on the way out. The socket is touched only here after
// startup, so it needs no synchronization.
func (a *Appender) run() {
	defer a.wg.Done()
	defer a.conn.Close()

	for t := range a.taskCh {
		a.send(t)
	}

	a.debug("closing UDP socket and returning from worker goroutine")
}

// send composes, encodes, and ships one record. Nothing may escape the task
// boundary: every failure, panics included, is reported and the message
// dropped, so the worker survives indefinitely.
func (a *Appender) send(t task) {
	defer func() {
		if r := recover(); r != nil {
			a.reportError("panic while shipping log record; message dropped: %v", r)
		}
	}()

	// the timestamp is taken here, on the worker, rather than at the log
	// call site: composition order is emission order, so timestamps can
	// never run backwards relative to _log_id
	m := composeMessage(&t.rec, a.cfg, time.Now(), a.logID.Add(1))

	payload, err := encodePayload(m, a.opts.Compression, a.opts.EncodeBudget)
	if err != nil {
		a.reportError("dropping log record: %v", err)
		return
	}

	dgs, err := datagrams(payload)
	if err != nil {
		a.reportError("dropping log record: %v", err)
		return
	}

	// fire-and-forget: a failed send drops the whole message, because a
	// receiver can never reassemble a fragment gap and UDP offers no
	// retransmission to lean on
	sent := 0
	for _, d := range dgs {
		if _, err := a.conn.Write(d); err != nil {
			a.reportError("failed to send datagram %d of %d; message dropped: %v", sent+1, len(dgs), err)
			return
		}
		sent++
	}

	if sent != len(dgs) {
		a.reportError("datagram accounting mismatch: sent %d of %d", sent, len(dgs))
	}
}

// internal logging helpers:
func (a *Appender) debug(format string, args ...any) {
	if !a.opts.Verbose {
		return
	}
	InternalLogger().Printf(format, args...)
}

func (a *Appender) reportError(format string, args ...any) {
	InternalLogger().Printf(format, args...)
}

func (s appenderState) String() string {
	switch s {
	case stateUnstarted:
		return "unstarted"
	case stateRunning:
		return "running"
	default:
		return "stopped"
	}
}
