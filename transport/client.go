package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/relaybridge/msgist/logging"
	"github.com/relaybridge/msgist/wire"
)

// Client is the transport server: it owns one serverConn per configured
// server_id, a process-wide inbox table, and the single reconnect
// pipeline all connections share.
type Client struct {
	cfg     Config
	logger  *slog.Logger
	metrics MetricsRecorder

	mu    sync.RWMutex
	conns map[string]*serverConn

	inbox       *inboxTable
	reconnector *reconnector

	handlerMu sync.Mutex
	handler   PacketHandler
}

// New validates cfg and builds a Client with one idle serverConn per
// configured server_id. It does not dial anything; call Start for that.
func New(cfg Config) (*Client, error) {
	if cfg.Scheme == "" {
		return nil, &ConfigError{Msg: "scheme must not be empty"}
	}
	if cfg.Relay == nil {
		return nil, &ConfigError{Msg: "relay implementation is required"}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}
	logger = logging.WithComponent(logger, "transport")
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}

	c := &Client{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		conns:   make(map[string]*serverConn),
		inbox:   newInboxTable(),
	}

	for serverID, addr := range cfg.ServerAddresses {
		if _, err := c.parseAddress(addr); err != nil {
			return nil, &ConfigError{ServerID: serverID, Msg: err.Error()}
		}
		c.conns[serverID] = newServerConn(serverID, addr, logger)
	}

	c.reconnector = newReconnector(logger, metrics, c.connect)
	return c, nil
}

// SetHandler installs the packet handler exactly once. A second call
// returns an error; the handler is meant to be registered at startup and
// never swapped out under load.
func (c *Client) SetHandler(fn PacketHandler) error {
	c.handlerMu.Lock()
	defer c.handlerMu.Unlock()
	if c.handler != nil {
		return fmt.Errorf("transport: packet handler already registered")
	}
	c.handler = fn
	return nil
}

// Start attempts an initial connect for every configured server_id.
// Failures are logged, not fatal — the reconnector takes over from there.
func (c *Client) Start(ctx context.Context) {
	c.mu.RLock()
	ids := make([]string, 0, len(c.conns))
	for id := range c.conns {
		ids = append(ids, id)
	}
	c.mu.RUnlock()

	for _, id := range ids {
		if err := c.connect(id); err != nil {
			c.logger.Warn("initial connect failed", logging.KeyServerID, id, logging.KeyError, err)
			c.reconnector.schedule(id)
		}
	}
}

// Close shuts down every connection and stops the reconnector. No further
// reconnects are scheduled after this returns.
func (c *Client) Close() {
	c.reconnector.stop()

	c.mu.RLock()
	conns := make([]*serverConn, 0, len(c.conns))
	for _, sc := range c.conns {
		conns = append(conns, sc)
	}
	c.mu.RUnlock()

	for _, sc := range conns {
		sc.close()
	}
}

func (c *Client) parseAddress(addr string) (*url.URL, error) {
	u, err := url.Parse(addr)
	if err != nil {
		return nil, fmt.Errorf("malformed address %q: %w", addr, err)
	}
	if u.Scheme != c.cfg.Scheme {
		return nil, fmt.Errorf("address %q uses scheme %q, want %q", addr, u.Scheme, c.cfg.Scheme)
	}
	if u.Port() == "" {
		u.Host = net.JoinHostPort(u.Hostname(), strconv.Itoa(DefaultPort))
	}
	return u, nil
}

// connect (re)dials serverID's relay address and, on success, installs
// the new connection and replays the server's subscription set. It is
// the callback the reconnector drives.
func (c *Client) connect(serverID string) error {
	c.mu.RLock()
	sc, ok := c.conns[serverID]
	c.mu.RUnlock()
	if !ok {
		return &ConfigError{ServerID: serverID, Msg: "unknown server_id"}
	}

	u, err := c.parseAddress(sc.address)
	if err != nil {
		return &ConfigError{ServerID: serverID, Msg: err.Error()}
	}

	opts := DefaultDialOptions()
	opts.TLSConfig = c.cfg.TLSConfig
	opts.InsecureSkipVerify = c.cfg.InsecureSkipVerify

	ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
	defer cancel()

	conn, err := c.cfg.Relay.Dial(ctx, u.String(), opts)
	if err != nil {
		return &ConnectionError{ServerID: serverID, Err: err}
	}

	sc.open(conn,
		func(frame []byte) { c.dispatch(serverID, frame) },
		func(cause error) {
			c.logger.Info("connection ended, scheduling reconnect", logging.KeyServerID, serverID, logging.KeyError, cause)
			c.metrics.ConnectionClosed(serverID)
			c.reconnector.schedule(serverID)
		},
	)
	c.metrics.ConnectionOpened(serverID)

	for _, roomID := range sc.subs.rooms() {
		pkt := wire.NewSub(roomID)
		if err := c.enqueueWithRetry(sc, pkt); err != nil {
			c.logger.Warn("subscription replay failed", logging.KeyServerID, serverID, logging.KeyRoomID, roomID, logging.KeyError, err)
		}
	}

	return nil
}

// dispatch decodes one inbound frame and routes it to the registered
// handler, then into inbox correlation if the handler returns Break.
func (c *Client) dispatch(serverID string, frame []byte) {
	pkt, err := wire.FromBytes(frame)
	if err != nil {
		c.logger.Warn("dropping undecodable packet", logging.KeyServerID, serverID, logging.KeyError, err)
		c.metrics.DecodeError(serverID)
		return
	}
	if err := pkt.Validate(); err != nil {
		c.logger.Warn("dropping invalid packet", logging.KeyServerID, serverID, logging.KeyError, err)
		c.metrics.DecodeError(serverID)
		return
	}
	c.metrics.PacketReceived(serverID, pkt.Type)

	c.handlerMu.Lock()
	handler := c.handler
	c.handlerMu.Unlock()
	if handler == nil {
		return
	}

	outcome, routed := handler(serverID, pkt)
	if outcome != Break || routed == nil || routed.Inbox == nil || routed.Inbox.Respond == nil {
		return
	}
	c.inbox.resolve(routed.Inbox.Respond.ID, routed)
}

// enqueueWithRetry mirrors the spec's send path: a failed enqueue
// triggers one inline reconnect attempt and a single retry before giving
// up and surfacing a ConnectionError.
func (c *Client) enqueueWithRetry(sc *serverConn, pkt *wire.Packet) error {
	raw, err := pkt.ToBytes()
	if err != nil {
		return fmt.Errorf("transport: encode packet: %w", err)
	}

	if err := sc.enqueue(raw); err == nil {
		c.metrics.PacketSent(sc.serverID, pkt.Type)
		return nil
	}

	if err := c.connect(sc.serverID); err != nil {
		return &ConnectionError{ServerID: sc.serverID, Err: err}
	}
	if err := sc.enqueue(raw); err != nil {
		return &ConnectionError{ServerID: sc.serverID, Err: err}
	}
	c.metrics.PacketSent(sc.serverID, pkt.Type)
	return nil
}

func (c *Client) lookup(serverID string) (*serverConn, error) {
	c.mu.RLock()
	sc, ok := c.conns[serverID]
	c.mu.RUnlock()
	if !ok {
		return nil, &ConfigError{ServerID: serverID, Msg: "unknown server_id"}
	}
	return sc, nil
}

// Send encodes and enqueues pkt for delivery on serverID's connection.
func (c *Client) Send(ctx context.Context, serverID string, pkt *wire.Packet) error {
	sc, err := c.lookup(serverID)
	if err != nil {
		return err
	}
	return c.enqueueWithRetry(sc, pkt)
}

// Sub subscribes to roomID on serverID, sending a Sub control packet only
// when this is the first reference (refcounted).
func (c *Client) Sub(ctx context.Context, serverID string, roomID uuid.UUID) error {
	sc, err := c.lookup(serverID)
	if err != nil {
		return err
	}
	first := sc.subs.add(roomID)
	c.metrics.SubscriptionChanged(serverID, len(sc.subs.rooms()))
	if !first {
		return nil
	}
	return c.enqueueWithRetry(sc, wire.NewSub(roomID))
}

// Unsub reverses a prior Sub, sending an Unsub control packet only once
// the refcount reaches zero.
func (c *Client) Unsub(ctx context.Context, serverID string, roomID uuid.UUID) error {
	sc, err := c.lookup(serverID)
	if err != nil {
		return err
	}
	removed := sc.subs.remove(roomID)
	c.metrics.SubscriptionChanged(serverID, len(sc.subs.rooms()))
	if !removed {
		return nil
	}
	return c.enqueueWithRetry(sc, wire.NewUnsub(roomID))
}

// Request attaches an Inbox.Request id to pkt (if it doesn't already
// carry one), enqueues it, and waits for a matching response to be routed
// back through dispatch, or for ctx to expire.
func (c *Client) Request(ctx context.Context, serverID string, pkt *wire.Packet) (*wire.Packet, error) {
	if pkt.Inbox == nil || pkt.Inbox.Request == nil {
		pkt.WithInbox(wire.NewInboxRequest(uuid.New()))
	}
	reqID := pkt.Inbox.Request.ID

	ch := c.inbox.register(reqID)
	if err := c.Send(ctx, serverID, pkt); err != nil {
		c.inbox.forget(reqID)
		return nil, err
	}

	select {
	case resp := <-ch:
		return resp, nil
	case <-ctx.Done():
		c.inbox.forget(reqID)
		return nil, ctx.Err()
	}
}

// Respond addresses pkt as the answer to a prior request carrying
// inboxID and sends it.
func (c *Client) Respond(ctx context.Context, serverID string, pkt *wire.Packet, inboxID uuid.UUID) error {
	pkt.WithInbox(wire.NewInboxRespond(inboxID))
	return c.Send(ctx, serverID, pkt)
}
