package transport

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// connState is the per-connection lifecycle state.
type connState int32

const (
	stateIdle connState = iota
	stateConnecting
	stateOpen
	stateClosing
	stateClosed
)

func (s connState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateConnecting:
		return "connecting"
	case stateOpen:
		return "open"
	case stateClosing:
		return "closing"
	case stateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// OutboundQueueDepth bounds each connection's outbound channel. A send
// that finds the queue full is treated the same as a closed channel: it
// fails and the caller's send path triggers a reconnect.
const OutboundQueueDepth = 128

// WriteTimeout bounds a single socket write.
const WriteTimeout = 2 * time.Second

// KeepaliveInterval is how often the writer emits a transport-level ping.
// The ticker is not reset by outbound frames, so pings go out on busy
// connections too.
const KeepaliveInterval = 30 * time.Second

var errOutboundClosed = errors.New("transport: outbound queue closed")

// serverConn is the live state for one configured server_id: its address,
// current relay connection (if any), subscription set, and outbound
// queue. Exactly one exists per server_id for the lifetime of the Client.
type serverConn struct {
	serverID string
	address  string
	subs     *subscriptionSet
	logger   *slog.Logger

	mu       sync.Mutex
	state    connState
	conn     RelayConn
	outbound chan []byte
	genDone  chan struct{} // closed when the current reader+writer generation exits

	onFrame      func(frame []byte)
	onGenEnded   func(reason error)
}

func newServerConn(serverID, address string, logger *slog.Logger) *serverConn {
	return &serverConn{
		serverID: serverID,
		address:  address,
		subs:     newSubscriptionSet(),
		logger:   logger,
		state:    stateIdle,
	}
}

func (c *serverConn) setState(s connState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *serverConn) currentState() connState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// open installs conn as the active relay connection and starts its
// writer/reader goroutines. Any previously installed connection is closed
// with CloseReasonConflict first, per the takeover rule.
func (c *serverConn) open(conn RelayConn, onFrame func([]byte), onGenEnded func(error)) {
	c.mu.Lock()
	if c.conn != nil {
		prior := c.conn
		go prior.Close(CloseReasonConflict)
	}
	c.conn = conn
	c.outbound = make(chan []byte, OutboundQueueDepth)
	c.genDone = make(chan struct{})
	c.state = stateOpen
	c.onFrame = onFrame
	c.onGenEnded = onGenEnded
	outbound := c.outbound
	genDone := c.genDone
	c.mu.Unlock()

	go c.writerLoop(conn, outbound, genDone)
	go c.readerLoop(conn, genDone)
}

// enqueue pushes frame onto the outbound queue. It fails immediately
// (without blocking) if the queue is full or the connection isn't open,
// so the send path can fall back to triggering a reconnect.
func (c *serverConn) enqueue(frame []byte) error {
	c.mu.Lock()
	if c.state != stateOpen || c.outbound == nil {
		c.mu.Unlock()
		return errOutboundClosed
	}
	ch := c.outbound
	c.mu.Unlock()

	select {
	case ch <- frame:
		return nil
	default:
		return errOutboundClosed
	}
}

func (c *serverConn) writerLoop(conn RelayConn, outbound chan []byte, genDone chan struct{}) {
	defer recoverWithLog(c.logger, "transport.writer")

	ticker := time.NewTicker(KeepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case frame, ok := <-outbound:
			if !ok {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), WriteTimeout)
			err := conn.Send(ctx, frame)
			cancel()
			if err != nil {
				c.logger.Warn("write failed, closing connection", "server_id", c.serverID, "error", err)
				c.teardown(conn, genDone, err)
				return
			}
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), WriteTimeout)
			err := conn.Ping(ctx)
			cancel()
			if err != nil {
				c.logger.Warn("keepalive ping failed, closing connection", "server_id", c.serverID, "error", err)
				c.teardown(conn, genDone, err)
				return
			}
		case <-genDone:
			return
		}
	}
}

func (c *serverConn) readerLoop(conn RelayConn, genDone chan struct{}) {
	defer recoverWithLog(c.logger, "transport.reader")

	for {
		frame, err := conn.Receive(context.Background())
		if err != nil {
			c.teardown(conn, genDone, err)
			return
		}
		if c.onFrame != nil {
			c.onFrame(frame)
		}

		select {
		case <-genDone:
			return
		default:
		}
	}
}

// teardown closes the current generation exactly once and notifies the
// client so it can enqueue a reconnect.
func (c *serverConn) teardown(conn RelayConn, genDone chan struct{}, cause error) {
	c.mu.Lock()
	if c.conn != conn {
		c.mu.Unlock()
		return // already superseded by a newer generation
	}
	c.state = stateClosing
	c.conn = nil
	cb := c.onGenEnded
	c.mu.Unlock()

	select {
	case <-genDone:
	default:
		close(genDone)
	}
	conn.Close(CloseReasonError)
	c.setState(stateClosed)

	if cb != nil {
		cb(cause)
	}
}

// close tears the connection down for good (no reconnect follows).
func (c *serverConn) close() {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.state = stateClosed
	genDone := c.genDone
	c.mu.Unlock()

	if genDone != nil {
		select {
		case <-genDone:
		default:
			close(genDone)
		}
	}
	if conn != nil {
		conn.Close(CloseReasonShutdown)
	}
}
