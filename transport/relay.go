// Package transport maintains connections to one or more relay endpoints,
// owning per-room subscriptions, request/response correlation by inbox id,
// reconnection with a constant backoff, and per-server outbound queues.
package transport

import (
	"context"
	"crypto/tls"
	"time"
)

// CloseReason tells the peer why a connection was closed, so it can tell
// an intentional takeover apart from an unexpected loss.
type CloseReason string

const (
	CloseReasonConflict CloseReason = "conflict"
	CloseReasonShutdown CloseReason = "shutdown"
	CloseReasonError    CloseReason = "error"
)

// DialOptions configures a single Relay.Dial call.
type DialOptions struct {
	Timeout            time.Duration
	TLSConfig          *tls.Config
	InsecureSkipVerify bool
}

// DefaultDialOptions returns DialOptions with a sensible connect timeout.
func DefaultDialOptions() DialOptions {
	return DialOptions{Timeout: 10 * time.Second}
}

// Relay abstracts the wire carrier beneath the transport server. A Relay
// implementation knows how to dial one specific protocol (WebSocket, in
// wsrelay); the server above it only deals in opaque message frames.
type Relay interface {
	// Dial establishes a bidirectional connection to addr.
	Dial(ctx context.Context, addr string, opts DialOptions) (RelayConn, error)
}

// RelayConn is a single bidirectional, message-framed connection to a
// relay endpoint. Each Send/Receive call transports exactly one Packet's
// serialized bytes.
type RelayConn interface {
	// Send writes one frame. Implementations apply their own write
	// deadline only if ctx carries none.
	Send(ctx context.Context, frame []byte) error

	// Receive blocks for the next inbound frame.
	Receive(ctx context.Context) ([]byte, error)

	// Ping sends a transport-level keepalive frame.
	Ping(ctx context.Context) error

	// Close tears down the connection, reporting reason to the peer when
	// the underlying protocol supports it.
	Close(reason CloseReason) error
}
